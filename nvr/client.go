// Package nvr is the typed client for the upstream NVR service's REST API.
// All state the console shows (cameras, events, frames, recordings) lives
// behind this contract; the console itself persists nothing.
package nvr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/knsh/nvrconsole/models"
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nvr: unexpected status %d from %s", e.Code, e.URL)
}

// Client talks to one NVR service instance.
//
// The underlying http.Client deliberately carries no timeout: on the local
// network a hung request leaves its view region pending, and consumers
// discard superseded responses rather than aborting requests.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.url(path, query)
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, u, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: u}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) getBytes(ctx context.Context, path string, query url.Values) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return data, nil
}

// eventPath addresses an event inside its camera/year/month bucket.
func eventPath(ev models.Event) string {
	return fmt.Sprintf("/events/%s/%s/%s/%s",
		url.PathEscape(ev.Camera), url.PathEscape(ev.Year),
		url.PathEscape(ev.Month), url.PathEscape(ev.EventID))
}

// ListCameras returns all configured cameras with their service status.
func (c *Client) ListCameras(ctx context.Context) ([]models.Camera, error) {
	var cameras []models.Camera
	if err := c.getJSON(ctx, "/cameras/", nil, &cameras); err != nil {
		return nil, err
	}
	return cameras, nil
}

// GetCamera returns one camera's full configuration document.
func (c *Client) GetCamera(ctx context.Context, name string) (models.Camera, error) {
	var camera models.Camera
	err := c.getJSON(ctx, "/cameras/"+url.PathEscape(name), nil, &camera)
	return camera, err
}

// LatestFrame fetches the camera's current snapshot. token defeats any
// intermediary cache on the way to the upstream.
func (c *Client) LatestFrame(ctx context.Context, camera string, token int64) ([]byte, error) {
	q := url.Values{"t": []string{strconv.FormatInt(token, 10)}}
	return c.getBytes(ctx, "/cameras/"+url.PathEscape(camera)+"/latest", q)
}

// ListEvents returns events matching the canonical query, newest first.
func (c *Client) ListEvents(ctx context.Context, query url.Values) ([]models.Event, error) {
	var events []models.Event
	if err := c.getJSON(ctx, "/events/", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ListEventFrames returns the still-frame references captured for an event.
func (c *Client) ListEventFrames(ctx context.Context, ev models.Event) ([]string, error) {
	var frames []string
	if err := c.getJSON(ctx, eventPath(ev)+"/frames", nil, &frames); err != nil {
		return nil, err
	}
	return frames, nil
}

// EventFrame returns the image bytes of one still frame.
func (c *Client) EventFrame(ctx context.Context, ev models.Event, ref string) ([]byte, error) {
	return c.getBytes(ctx, eventPath(ev)+"/frame/"+url.PathEscape(ref), nil)
}

// EventThumbnail returns a representative still for the event card.
func (c *Client) EventThumbnail(ctx context.Context, ev models.Event) ([]byte, error) {
	return c.getBytes(ctx, eventPath(ev)+"/thumbnail", nil)
}

// DeleteEvent removes the event and its media from the upstream store.
func (c *Client) DeleteEvent(ctx context.Context, ev models.Event) error {
	resp, err := c.do(ctx, http.MethodDelete, eventPath(ev), nil, nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// OpenPlayback starts streaming a recorded segment, seeked to offsetSeconds.
// The caller owns the returned body.
func (c *Client) OpenPlayback(ctx context.Context, camera, filename string, offsetSeconds float64) (io.ReadCloser, string, error) {
	q := url.Values{}
	if offsetSeconds > 0 {
		q.Set("ss", strconv.FormatFloat(offsetSeconds, 'f', -1, 64))
	}
	path := "/stream/playback/" + url.PathEscape(camera) + "/" + url.PathEscape(filename)
	resp, err := c.do(ctx, http.MethodGet, path, q, nil, "")
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// SystemStatus returns disk usage and service states for the dashboard.
func (c *Client) SystemStatus(ctx context.Context) (models.SystemStatus, error) {
	var status models.SystemStatus
	err := c.getJSON(ctx, "/system/status", nil, &status)
	return status, err
}

// UpdateCameraConfig round-trips an edited configuration patch for camera.
func (c *Client) UpdateCameraConfig(ctx context.Context, name string, patch map[string]interface{}) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode config patch: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/cameras/"+url.PathEscape(name)+"/config", nil, bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// RestartCamera restarts the camera's capture and detection services and
// returns the per-service outcome map.
func (c *Client) RestartCamera(ctx context.Context, name string) (map[string]string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/cameras/"+url.PathEscape(name)+"/restart", nil, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	results := map[string]string{}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode restart response: %w", err)
	}
	return results, nil
}

// Mask downloads the camera's motion mask image, when one exists.
func (c *Client) Mask(ctx context.Context, name string) ([]byte, error) {
	return c.getBytes(ctx, "/cameras/"+url.PathEscape(name)+"/mask", nil)
}

// UploadMask uploads a mask image as a multipart form, the shape the
// upstream's upload endpoint expects.
func (c *Client) UploadMask(ctx context.Context, name, filename string, mask io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("build mask upload: %w", err)
	}
	if _, err := io.Copy(part, mask); err != nil {
		return fmt.Errorf("copy mask data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finish mask upload: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/cameras/"+url.PathEscape(name)+"/mask", nil, &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
