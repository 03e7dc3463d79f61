package handlers

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"log"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"

	"github.com/knsh/nvrconsole/config"
	"github.com/knsh/nvrconsole/events"
	"github.com/knsh/nvrconsole/models"
	"github.com/knsh/nvrconsole/nvr"
)

type EventHandler struct {
	Client   *nvr.Client
	Cfg      config.Config
	Sessions *events.Manager
}

// eventFromURL rebuilds the event identity from its bucket-addressed route.
func eventFromURL(r *http.Request) models.Event {
	return models.Event{
		Camera:  chi.URLParam(r, "camera"),
		Year:    chi.URLParam(r, "year"),
		Month:   chi.URLParam(r, "month"),
		EventID: chi.URLParam(r, "event_id"),
	}
}

// ListEvents translates the browser's filter fields into the canonical
// upstream query. Absent fields stay absent; an empty form lists everything
// up to the configured cap.
func (eh *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := events.Filters{
		Camera:    q.Get("camera"),
		Date:      q.Get("date"),
		StartTime: q.Get("start_time"),
		EndTime:   q.Get("end_time"),
		Limit:     eh.Cfg.EventLimit,
	}

	list, err := eh.Client.ListEvents(r.Context(), filters.Query())
	if err != nil {
		log.Printf("Error listing events: %v", err)
		upstreamError(w, err, "event_list_failed")
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	writeJSON(w, http.StatusOK, list)
}

// DeleteEvent removes the event upstream and closes any review session that
// had it open. Failures surface as an explicit error for the frontend to
// alert on; the list is left for the frontend to re-fetch.
func (eh *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ev := eventFromURL(r)
	if err := eh.Sessions.Delete(r.Context(), ev); err != nil {
		log.Printf("Error deleting event %s: %v", ev.Key(), err)
		upstreamError(w, err, "event_delete_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (eh *EventHandler) ListFrames(w http.ResponseWriter, r *http.Request) {
	frames, err := eh.Client.ListEventFrames(r.Context(), eventFromURL(r))
	if err != nil {
		upstreamError(w, err, "frame_list_failed")
		return
	}
	if frames == nil {
		frames = []string{}
	}
	writeJSON(w, http.StatusOK, frames)
}

func (eh *EventHandler) GetFrame(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	frame, err := eh.Client.EventFrame(r.Context(), eventFromURL(r), ref)
	if err != nil {
		upstreamError(w, err, "frame_fetch_failed")
		return
	}
	writeImage(w, "image/jpeg", frame)
}

// Thumbnail serves the event card still, downscaled when the upstream image
// is larger than the configured size. Event media never changes once
// written, so thumbnails get long cache headers.
func (eh *EventHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	data, err := eh.Client.EventThumbnail(r.Context(), eventFromURL(r))
	if err != nil {
		upstreamError(w, err, "thumbnail_fetch_failed")
		return
	}

	if resized, ok := eh.downscale(data); ok {
		data = resized
	}

	cacheDuration := 24 * time.Hour
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(cacheDuration.Seconds())))
	w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// downscale fits the image inside the configured bounding box. An image that
// cannot be decoded, or already fits, is passed through untouched.
func (eh *EventHandler) downscale(data []byte) ([]byte, bool) {
	maxSize := eh.Cfg.ThumbnailMaxSize
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("Warning: unable to decode upstream thumbnail, passing through: %v", err)
		return nil, false
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxSize && bounds.Dy() <= maxSize {
		return nil, false
	}

	thumb := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		log.Printf("Warning: thumbnail encode failed, passing through: %v", err)
		return nil, false
	}
	return buf.Bytes(), true
}
