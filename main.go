package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/knsh/nvrconsole/config"
	"github.com/knsh/nvrconsole/events"
	"github.com/knsh/nvrconsole/handlers"
	"github.com/knsh/nvrconsole/nvr"
	"github.com/knsh/nvrconsole/preview"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	log.Printf("Upstream NVR service: %s", cfg.NVRBaseURL)
	log.Printf("Live preview refresh interval: %s", cfg.PreviewRefresh)
	log.Printf("Event list cap: %d", cfg.EventLimit)

	client := nvr.NewClient(cfg.NVRBaseURL)
	sessions := events.NewManager(client, client)
	refresher := preview.NewRefresher(client, "", cfg.PreviewRefresh)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go refresher.Run(ctx)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	cameraHandler := &handlers.CameraHandler{Client: client, Cfg: cfg, Preview: refresher}
	eventHandler := &handlers.EventHandler{Client: client, Cfg: cfg, Sessions: sessions}
	sessionHandler := &handlers.SessionHandler{Sessions: sessions}
	streamHandler := &handlers.StreamHandler{Client: client}
	systemHandler := &handlers.SystemHandler{Client: client}

	r.Route("/api", func(r chi.Router) {
		r.Get("/system/status", systemHandler.Status)

		r.Route("/cameras", func(r chi.Router) {
			r.Get("/", cameraHandler.ListCameras)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", cameraHandler.GetCamera)
				r.Get("/latest", cameraHandler.Latest)
				r.Post("/config", cameraHandler.UpdateConfig)
				r.Get("/config/yaml", cameraHandler.ConfigYAML)
				r.Post("/restart", cameraHandler.Restart)
				r.Get("/mask", cameraHandler.GetMask)
				r.Post("/mask", cameraHandler.UploadMask)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Route("/{camera}/{year}/{month}/{event_id}", func(r chi.Router) {
				r.Delete("/", eventHandler.DeleteEvent)
				r.Get("/frames", eventHandler.ListFrames)
				r.Get("/frame/{ref}", eventHandler.GetFrame)
				r.Get("/thumbnail", eventHandler.Thumbnail)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Open)
			r.Route("/{session_id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Post("/select", sessionHandler.Select)
				r.Post("/enlarge", sessionHandler.Enlarge)
				r.Post("/unenlarge", sessionHandler.Unenlarge)
				r.Delete("/", sessionHandler.Close)
			})
		})

		r.Get("/stream/playback/{camera}/{filename}", streamHandler.Playback)
		r.Get("/playback/timecode", streamHandler.Timecode)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: playback streams are long-lived pipes
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("Shutdown signal received")
	case err := <-errCh:
		log.Fatalf("FATAL: Server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: graceful shutdown failed: %v", err)
		_ = server.Close()
	}
	log.Printf("Server stopped")
}
