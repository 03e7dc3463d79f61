// Package preview keeps the dashboard's live tile fresh. A Refresher polls
// the latest still for one camera on a fixed interval and retains the most
// recent successfully loaded frame across transient failures, so the tile
// shows a paused image rather than a broken one.
package preview

import (
	"context"
	"log"
	"sync"
	"time"
)

// FrameFetcher retrieves the current still frame for a camera. token is a
// cache-defeating value the fetcher must carry on the request so no
// intermediary can serve a stale image.
type FrameFetcher interface {
	LatestFrame(ctx context.Context, camera string, token int64) ([]byte, error)
}

// Refresher polls one camera. Switching the target camera clears the held
// frame and restarts the poll cycle immediately; a frame fetched for the old
// camera that resolves after the switch is dropped.
type Refresher struct {
	fetcher  FrameFetcher
	interval time.Duration
	kick     chan struct{}

	mu      sync.RWMutex
	camera  string
	frame   []byte
	takenAt time.Time
	stale   bool
}

func NewRefresher(fetcher FrameFetcher, camera string, interval time.Duration) *Refresher {
	return &Refresher{
		fetcher:  fetcher,
		interval: interval,
		kick:     make(chan struct{}, 1),
		camera:   camera,
	}
}

// Run polls until ctx is cancelled. Each cycle fetches once, then waits for
// the interval or for a camera switch, whichever comes first. Failures are
// logged and retried on the next tick without backoff.
func (r *Refresher) Run(ctx context.Context) {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()
	for {
		r.refresh(ctx)
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(r.interval)
		select {
		case <-ctx.Done():
			return
		case <-r.kick:
		case <-timer.C:
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	r.mu.RLock()
	camera := r.camera
	r.mu.RUnlock()
	if camera == "" {
		return
	}

	frame, err := r.fetcher.LatestFrame(ctx, camera, time.Now().UnixNano())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.camera != camera {
		// Target switched while the fetch was in flight; never bleed the old
		// camera's image into the new tile.
		return
	}
	if err != nil {
		r.stale = true
		log.Printf("Warning: live preview fetch failed for %s: %v", camera, err)
		return
	}
	r.frame = frame
	r.takenAt = time.Now()
	r.stale = false
}

// SetCamera switches the polled camera. The held frame is dropped right away
// and the next fetch happens immediately rather than on the old cadence.
func (r *Refresher) SetCamera(name string) {
	r.mu.Lock()
	if r.camera == name {
		r.mu.Unlock()
		return
	}
	r.camera = name
	r.frame = nil
	r.takenAt = time.Time{}
	r.stale = false
	r.mu.Unlock()

	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Camera returns the currently polled camera name.
func (r *Refresher) Camera() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.camera
}

// Snapshot returns the most recent successfully loaded frame, when it was
// loaded, and whether the last poll failed (the frame is then a hold-over).
// ok is false until a first frame has loaded for the current camera.
func (r *Refresher) Snapshot() (frame []byte, takenAt time.Time, stale bool, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.frame == nil {
		return nil, time.Time{}, r.stale, false
	}
	return r.frame, r.takenAt, r.stale, true
}
