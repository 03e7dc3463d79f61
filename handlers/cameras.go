package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/knsh/nvrconsole/config"
	"github.com/knsh/nvrconsole/nvr"
	"github.com/knsh/nvrconsole/preview"
)

// configurableSections are the only parts of a camera document the settings
// editor may change; everything else in the document is read-only here.
var configurableSections = []string{"motion", "daynight", "connection"}

type CameraHandler struct {
	Client  *nvr.Client
	Cfg     config.Config
	Preview *preview.Refresher
}

// upstreamError maps a client error onto the console API: upstream statuses
// pass through (a 404 mask means "no mask"), transport failures become 502.
func upstreamError(w http.ResponseWriter, err error, code string) {
	var statusErr *nvr.StatusError
	if errors.As(err, &statusErr) {
		WriteAPIError(w, statusErr.Code, code, err.Error())
		return
	}
	WriteAPIError(w, http.StatusBadGateway, code, err.Error())
}

func (ch *CameraHandler) ListCameras(w http.ResponseWriter, r *http.Request) {
	cameras, err := ch.Client.ListCameras(r.Context())
	if err != nil {
		log.Printf("Error listing cameras: %v", err)
		upstreamError(w, err, "camera_list_failed")
		return
	}
	writeJSON(w, http.StatusOK, cameras)
}

func (ch *CameraHandler) GetCamera(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	camera, err := ch.Client.GetCamera(r.Context(), name)
	if err != nil {
		upstreamError(w, err, "camera_fetch_failed")
		return
	}
	writeJSON(w, http.StatusOK, camera)
}

// Latest serves the live tile. The request retargets the shared refresher,
// so the first hit after a camera switch usually finds no held frame yet; it
// then fetches once directly instead of waiting a poll cycle.
func (ch *CameraHandler) Latest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ch.Preview.SetCamera(name)

	frame, _, _, ok := ch.Preview.Snapshot()
	if !ok {
		direct, err := ch.Client.LatestFrame(r.Context(), name, timeToken())
		if err != nil {
			upstreamError(w, err, "preview_unavailable")
			return
		}
		frame = direct
	}
	writeImage(w, "image/jpeg", frame)
}

// UpdateConfig accepts the edited settings as JSON or YAML, keeps only the
// editable sections, and forwards the patch upstream.
func (ch *CameraHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "unable to read request body")
		return
	}

	doc := map[string]interface{}{}
	if isYAMLRequest(r) {
		err = yaml.Unmarshal(body, &doc)
	} else {
		err = json.Unmarshal(body, &doc)
	}
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "invalid config document: "+err.Error())
		return
	}

	patch := map[string]interface{}{}
	for _, section := range configurableSections {
		if v, ok := doc[section]; ok {
			patch[section] = v
		}
	}
	if len(patch) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "no editable sections in config document")
		return
	}

	if err := ch.Client.UpdateCameraConfig(r.Context(), name, patch); err != nil {
		log.Printf("Error updating config for camera %s: %v", name, err)
		upstreamError(w, err, "config_update_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Configuration updated successfully"})
}

// ConfigYAML renders the camera's configuration document as YAML, the form
// the upstream stores it in and the settings editor displays.
func (ch *CameraHandler) ConfigYAML(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	camera, err := ch.Client.GetCamera(r.Context(), name)
	if err != nil {
		upstreamError(w, err, "camera_fetch_failed")
		return
	}

	doc := make(map[string]interface{}, len(camera.Extra)+2)
	for k, v := range camera.Extra {
		doc[k] = v
	}
	doc["name"] = camera.Name
	doc["enabled"] = camera.Enabled
	// status is runtime state, not configuration

	out, err := yaml.Marshal(doc)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "yaml_encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (ch *CameraHandler) Restart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	results, err := ch.Client.RestartCamera(r.Context(), name)
	if err != nil {
		log.Printf("Error restarting services for camera %s: %v", name, err)
		upstreamError(w, err, "restart_failed")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (ch *CameraHandler) GetMask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	mask, err := ch.Client.Mask(r.Context(), name)
	if err != nil {
		upstreamError(w, err, "mask_fetch_failed")
		return
	}
	writeImage(w, "image/png", mask)
}

func (ch *CameraHandler) UploadMask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "missing mask file upload")
		return
	}
	defer file.Close()

	if err := ch.Client.UploadMask(r.Context(), name, header.Filename, file); err != nil {
		log.Printf("Error uploading mask for camera %s: %v", name, err)
		upstreamError(w, err, "mask_upload_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Mask uploaded for " + name})
}

func isYAMLRequest(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return strings.Contains(contentType, "yaml")
}

// timeToken is the cache-defeating query value for direct snapshot fetches.
func timeToken() int64 {
	return time.Now().UnixNano()
}
