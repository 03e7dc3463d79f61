package models

import (
	"encoding/json"
	"fmt"
)

// CameraStatusActive is the service state the upstream reports for a camera
// whose capture pipeline is running; anything else counts as offline.
const CameraStatusActive = "active"

// Camera is one configured camera as reported by the upstream NVR service.
// Beyond the identity and status fields the document is free-form (motion
// thresholds, connection settings, per-camera overrides), so unknown keys are
// kept in Extra and round-tripped unchanged when the config is sent back.
type Camera struct {
	Name    string
	Enabled bool
	Status  string
	Extra   map[string]interface{}
}

func (c Camera) Online() bool {
	return c.Status == CameraStatusActive
}

func (c *Camera) UnmarshalJSON(data []byte) error {
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["name"].(string); ok {
		c.Name = v
	}
	if v, ok := raw["enabled"].(bool); ok {
		c.Enabled = v
	}
	if v, ok := raw["status"].(string); ok {
		c.Status = v
	}
	delete(raw, "name")
	delete(raw, "enabled")
	delete(raw, "status")
	c.Extra = raw
	return nil
}

func (c Camera) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(c.Extra)+3)
	for k, v := range c.Extra {
		doc[k] = v
	}
	doc["name"] = c.Name
	doc["enabled"] = c.Enabled
	doc["status"] = c.Status
	return json.Marshal(doc)
}

// Event is one motion-detection occurrence. VideoFile is nil when no recorded
// segment was retained for the event; the viewer then falls back to the
// frame-only view.
type Event struct {
	EventID     string  `json:"event_id"`
	Camera      string  `json:"camera"`
	Timestamp   string  `json:"timestamp"`
	DurationSec float64 `json:"duration_sec"`
	JpegCount   int     `json:"jpeg_count"`
	DayNight    string  `json:"daynight"`
	Year        string  `json:"year"`
	Month       string  `json:"month"`
	VideoFile   *string `json:"video_file"`
	StartOffset int     `json:"start_offset"`
}

// Key identifies an event within the upstream store. EventID alone is only
// unique within its camera/year/month bucket.
func (e Event) Key() string {
	return fmt.Sprintf("%s/%s/%s/%s", e.Camera, e.Year, e.Month, e.EventID)
}

func (e Event) HasVideo() bool {
	return e.VideoFile != nil && *e.VideoFile != ""
}

// DiskInfo mirrors the upstream storage report for the recording volume.
type DiskInfo struct {
	TotalGB int64   `json:"total_gb"`
	UsedGB  int64   `json:"used_gb"`
	FreeGB  int64   `json:"free_gb"`
	Percent float64 `json:"percent"`
}

// SystemStatus is the dashboard's periodic status payload.
type SystemStatus struct {
	Disk     DiskInfo          `json:"disk"`
	Services map[string]string `json:"services"`
}
