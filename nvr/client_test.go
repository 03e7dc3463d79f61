package nvr

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knsh/nvrconsole/models"
)

func testEvent() models.Event {
	return models.Event{EventID: "20240309_142200", Camera: "garden", Year: "2024", Month: "03"}
}

func TestListEvents_QueryPassthrough(t *testing.T) {
	var gotPath, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"event_id":"20240309_142200","camera":"garden","timestamp":"2024-03-09T14:22:00","duration_sec":9.5,"jpeg_count":4,"daynight":"day","year":"2024","month":"03","video_file":"20240309_140000.mkv","start_offset":1320}]`))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL)
	events, err := c.ListEvents(context.Background(), map[string][]string{"camera": {"garden"}, "limit": {"60"}})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if gotPath != "/events/" {
		t.Errorf("path = %s", gotPath)
	}
	if gotQuery != "camera=garden&limit=60" {
		t.Errorf("query = %s", gotQuery)
	}
	if len(events) != 1 {
		t.Fatalf("events = %v", events)
	}
	ev := events[0]
	if !ev.HasVideo() || *ev.VideoFile != "20240309_140000.mkv" || ev.StartOffset != 1320 {
		t.Errorf("video fields wrong: %+v", ev)
	}
}

func TestListEventFrames_BucketAddressing(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`["0001.jpg","0002.jpg"]`))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL)
	frames, err := c.ListEventFrames(context.Background(), testEvent())
	if err != nil {
		t.Fatalf("ListEventFrames: %v", err)
	}
	if gotPath != "/events/garden/2024/03/20240309_142200/frames" {
		t.Errorf("path = %s", gotPath)
	}
	if len(frames) != 2 {
		t.Errorf("frames = %v", frames)
	}
}

func TestLatestFrame_CarriesCacheToken(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") != "12345" {
			t.Errorf("cache token missing, query = %s", r.URL.RawQuery)
		}
		w.Write([]byte("jpegbytes"))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL)
	frame, err := c.LatestFrame(context.Background(), "garden", 12345)
	if err != nil {
		t.Fatalf("LatestFrame: %v", err)
	}
	if !bytes.Equal(frame, []byte("jpegbytes")) {
		t.Errorf("frame = %q", frame)
	}
}

func TestNon2xxIsStatusError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL)
	_, err := c.LatestFrame(context.Background(), "garden", 1)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("code = %d", statusErr.Code)
	}
}

func TestDeleteEvent(t *testing.T) {
	var gotMethod, gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"message":"deleted"}`))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL)
	if err := c.DeleteEvent(context.Background(), testEvent()); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/events/garden/2024/03/20240309_142200" {
		t.Errorf("%s %s", gotMethod, gotPath)
	}
}

func TestOpenPlayback_SeekEncoding(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stream/playback/garden/20240309_140000.mkv" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("ss") != "1320" {
			t.Errorf("ss = %s", r.URL.Query().Get("ss"))
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("mp4data"))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL)
	body, contentType, err := c.OpenPlayback(context.Background(), "garden", "20240309_140000.mkv", 1320)
	if err != nil {
		t.Fatalf("OpenPlayback: %v", err)
	}
	defer body.Close()
	if contentType != "video/mp4" {
		t.Errorf("content type = %s", contentType)
	}
}

func TestOpenPlayback_ZeroOffsetOmitted(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("query = %s, want none", r.URL.RawQuery)
		}
		w.Write([]byte("mp4data"))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL)
	body, _, err := c.OpenPlayback(context.Background(), "garden", "20240309_140000.mkv", 0)
	if err != nil {
		t.Fatalf("OpenPlayback: %v", err)
	}
	body.Close()
}

func TestGetCamera_ExtraKeysRoundTrip(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"garden","enabled":true,"status":"active","motion":{"threshold":25,"min_area":500}}`))
	}))
	defer upstream.Close()

	c := NewClient(upstream.URL)
	camera, err := c.GetCamera(context.Background(), "garden")
	if err != nil {
		t.Fatalf("GetCamera: %v", err)
	}
	if camera.Name != "garden" || !camera.Online() {
		t.Errorf("camera = %+v", camera)
	}
	motion, ok := camera.Extra["motion"].(map[string]interface{})
	if !ok || motion["threshold"].(float64) != 25 {
		t.Errorf("free-form config lost: %+v", camera.Extra)
	}
}
