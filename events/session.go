package events

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/facette/natsort"

	"github.com/knsh/nvrconsole/models"
)

// State is the review-session state. A session moves Idle -> FrameLoading on
// selection, FrameLoading -> Ready when the frame list resolves (successfully
// or not), Ready <-> FrameEnlarged when a still is pinned, and back to Idle
// on close.
type State int

const (
	Idle State = iota
	FrameLoading
	Ready
	FrameEnlarged
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FrameLoading:
		return "frame_loading"
	case Ready:
		return "ready"
	case FrameEnlarged:
		return "frame_enlarged"
	default:
		return "unknown"
	}
}

var (
	ErrNoEventOpen  = errors.New("events: no event open")
	ErrNotReady     = errors.New("events: frame list not loaded")
	ErrUnknownFrame = errors.New("events: frame not in loaded set")
)

// FrameLister retrieves the still-frame references belonging to an event.
type FrameLister interface {
	ListEventFrames(ctx context.Context, ev models.Event) ([]string, error)
}

// Session tracks one viewer's event review: which event is open, its frame
// set, and whether a single frame is pinned over the video view.
//
// Each selection bumps a generation counter that travels with the in-flight
// frame fetch; a response arriving for an older generation is discarded, so
// a slow fetch can never overwrite a newer selection. The request itself is
// not aborted, only its result is ignored.
type Session struct {
	lister FrameLister

	mu       sync.Mutex
	state    State
	event    models.Event
	frames   []string
	enlarged string
	gen      uint64
}

func NewSession(lister FrameLister) *Session {
	return &Session{lister: lister}
}

// Select opens ev for review. Any previously loaded frame list and pinned
// frame are cleared before the fetch is issued. The returned channel closes
// once the fetch result has been applied or discarded; callers that do not
// care may ignore it.
func (s *Session) Select(ctx context.Context, ev models.Event) <-chan struct{} {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.event = ev
	s.state = FrameLoading
	s.frames = nil
	s.enlarged = ""
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		frames, err := s.lister.ListEventFrames(ctx, ev)
		if err != nil {
			// Not fatal: the event stays viewable via its video, the frame
			// gallery just reads as empty until a later selection.
			log.Printf("Warning: frame list fetch failed for event %s: %v", ev.Key(), err)
			frames = nil
		}
		natsort.Sort(frames)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			// A newer selection (or a close) superseded this fetch.
			return
		}
		s.frames = frames
		s.state = Ready
	}()
	return done
}

// Enlarge pins one frame of the loaded set full-screen over the video.
func (s *Session) Enlarge(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Ready && s.state != FrameEnlarged {
		return ErrNotReady
	}
	for _, f := range s.frames {
		if f == ref {
			s.enlarged = ref
			s.state = FrameEnlarged
			return nil
		}
	}
	return ErrUnknownFrame
}

// Unenlarge returns from the pinned frame to the video view. Calling it with
// nothing pinned is a no-op.
func (s *Session) Unenlarge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == FrameEnlarged {
		s.enlarged = ""
		s.state = Ready
	}
}

// Close discards all session-local data and returns to Idle from any state.
// An in-flight frame fetch is left to finish; its result will be discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = Idle
	s.event = models.Event{}
	s.frames = nil
	s.enlarged = ""
}

// closeIfOpen closes the session when the event identified by key is the one
// currently under review. Sessions reviewing other events are untouched.
func (s *Session) closeIfOpen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle || s.event.Key() != key {
		return false
	}
	s.gen++
	s.state = Idle
	s.event = models.Event{}
	s.frames = nil
	s.enlarged = ""
	return true
}

// Snapshot is an immutable view of the session for rendering.
type Snapshot struct {
	State    string        `json:"state"`
	Event    *models.Event `json:"event,omitempty"`
	Frames   []string      `json:"frames"`
	Enlarged string        `json:"enlarged_frame,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:    s.state.String(),
		Frames:   append([]string(nil), s.frames...),
		Enlarged: s.enlarged,
	}
	if s.state != Idle {
		ev := s.event
		snap.Event = &ev
	}
	if snap.Frames == nil {
		snap.Frames = []string{}
	}
	return snap
}

// State returns the current machine state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
