package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultNVRBaseURL       = "http://127.0.0.1:8000"
	defaultPreviewRefreshMS = 1000
	defaultEventLimit       = 60
	defaultThumbnailMaxSize = 300
	defaultAllowedOrigins   = "http://localhost:5173"
)

type Config struct {
	// upstream NVR service
	NVRBaseURL string

	// live preview poll cadence
	PreviewRefresh time.Duration

	// result-count cap for event list queries
	EventLimit int

	// longest side for downscaled event thumbnails
	ThumbnailMaxSize int

	// browser origins allowed on the console API
	AllowedOrigins []string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	baseURL := getEnvOrDefault("NVR_API_BASE_URL", defaultNVRBaseURL)
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return Config{}, fmt.Errorf("NVR_API_BASE_URL must be an http(s) URL, got '%s'", baseURL)
	}

	refreshMS := getEnvIntOrDefault("PREVIEW_REFRESH_MS", defaultPreviewRefreshMS)
	eventLimit := getEnvIntOrDefault("EVENT_LIMIT", defaultEventLimit)
	thumbMaxSize := getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaultThumbnailMaxSize)

	var origins []string
	for _, o := range strings.Split(getEnvOrDefault("ALLOWED_ORIGINS", defaultAllowedOrigins), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	cfg := Config{
		NVRBaseURL:       strings.TrimRight(baseURL, "/"),
		PreviewRefresh:   time.Duration(refreshMS) * time.Millisecond,
		EventLimit:       eventLimit,
		ThumbnailMaxSize: thumbMaxSize,
		AllowedOrigins:   origins,
	}

	return cfg, nil
}
