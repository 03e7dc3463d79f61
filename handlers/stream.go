package handlers

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/knsh/nvrconsole/nvr"
	"github.com/knsh/nvrconsole/timecode"
)

type StreamHandler struct {
	Client *nvr.Client
}

// Playback pipes the upstream's remuxed segment stream to the player. The
// bytes pass through untouched; seeking happens upstream via the ss offset.
func (sh *StreamHandler) Playback(w http.ResponseWriter, r *http.Request) {
	camera := chi.URLParam(r, "camera")
	filename := chi.URLParam(r, "filename")

	var offset float64
	if ss := r.URL.Query().Get("ss"); ss != "" {
		parsed, err := strconv.ParseFloat(ss, 64)
		if err != nil || parsed < 0 {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "ss must be a non-negative number of seconds")
			return
		}
		offset = parsed
	}

	body, contentType, err := sh.Client.OpenPlayback(r.Context(), camera, filename, offset)
	if err != nil {
		upstreamError(w, err, "playback_failed")
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")
	if _, err := io.Copy(w, body); err != nil {
		// the player aborting mid-stream is routine
		log.Printf("playback stream for %s/%s ended: %v", camera, filename, err)
	}
}

// Timecode resolves the wall-clock overlay for a playback position. An
// unparsable filename yields available=false rather than an error; the
// overlay is simply omitted.
func (sh *StreamHandler) Timecode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filename := q.Get("file")
	if filename == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "file is required")
		return
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	var elapsed float64
	if v := q.Get("elapsed"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "elapsed must be a number of seconds")
			return
		}
		elapsed = parsed
	}

	display, ok := timecode.DisplayTime(filename, offset, elapsed)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"available":    ok,
		"display_time": display,
	})
}
