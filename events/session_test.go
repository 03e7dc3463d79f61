package events

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/knsh/nvrconsole/models"
)

type listReply struct {
	frames []string
	err    error
}

// stubLister resolves each fetch from a per-event channel so tests control
// the order in which in-flight responses arrive.
type stubLister struct {
	mu      sync.Mutex
	replies map[string]chan listReply
}

func newStubLister(eventIDs ...string) *stubLister {
	l := &stubLister{replies: make(map[string]chan listReply)}
	for _, id := range eventIDs {
		l.replies[id] = make(chan listReply, 1)
	}
	return l
}

func (l *stubLister) resolve(eventID string, frames []string, err error) {
	l.mu.Lock()
	ch := l.replies[eventID]
	l.mu.Unlock()
	ch <- listReply{frames: frames, err: err}
}

func (l *stubLister) ListEventFrames(_ context.Context, ev models.Event) ([]string, error) {
	l.mu.Lock()
	ch := l.replies[ev.EventID]
	l.mu.Unlock()
	r := <-ch
	return r.frames, r.err
}

func event(id string) models.Event {
	return models.Event{EventID: id, Camera: "garden", Year: "2024", Month: "03"}
}

func TestSelect_LoadsFrames(t *testing.T) {
	lister := newStubLister("ev1")
	s := NewSession(lister)

	done := s.Select(context.Background(), event("ev1"))
	if got := s.State(); got != FrameLoading {
		t.Fatalf("state during fetch = %v, want FrameLoading", got)
	}
	lister.resolve("ev1", []string{"0001.jpg", "0002.jpg"}, nil)
	<-done

	snap := s.Snapshot()
	if snap.State != "ready" {
		t.Fatalf("state = %s, want ready", snap.State)
	}
	if !reflect.DeepEqual(snap.Frames, []string{"0001.jpg", "0002.jpg"}) {
		t.Fatalf("frames = %v", snap.Frames)
	}
}

func TestSelect_LatestSelectionWins(t *testing.T) {
	lister := newStubLister("evA", "evB")
	s := NewSession(lister)

	doneA := s.Select(context.Background(), event("evA"))
	doneB := s.Select(context.Background(), event("evB"))

	// B resolves first, then A's stale response straggles in.
	lister.resolve("evB", []string{"b1.jpg"}, nil)
	<-doneB
	lister.resolve("evA", []string{"a1.jpg", "a2.jpg"}, nil)
	<-doneA

	snap := s.Snapshot()
	if snap.Event == nil || snap.Event.EventID != "evB" {
		t.Fatalf("open event = %+v, want evB", snap.Event)
	}
	if !reflect.DeepEqual(snap.Frames, []string{"b1.jpg"}) {
		t.Fatalf("frames = %v, stale response corrupted newer selection", snap.Frames)
	}
	if snap.State != "ready" {
		t.Fatalf("state = %s", snap.State)
	}
}

func TestSelect_FetchFailureMeansEmptyNotFatal(t *testing.T) {
	lister := newStubLister("ev1")
	s := NewSession(lister)

	done := s.Select(context.Background(), event("ev1"))
	lister.resolve("ev1", nil, errors.New("upstream 502"))
	<-done

	snap := s.Snapshot()
	if snap.State != "ready" {
		t.Fatalf("state = %s, want ready despite fetch failure", snap.State)
	}
	if len(snap.Frames) != 0 {
		t.Fatalf("frames = %v, want empty", snap.Frames)
	}
}

func TestSelect_FramesNaturallyOrdered(t *testing.T) {
	lister := newStubLister("ev1")
	s := NewSession(lister)

	done := s.Select(context.Background(), event("ev1"))
	lister.resolve("ev1", []string{"10.jpg", "2.jpg", "1.jpg"}, nil)
	<-done

	want := []string{"1.jpg", "2.jpg", "10.jpg"}
	if got := s.Snapshot().Frames; !reflect.DeepEqual(got, want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
}

func TestEnlargeUnenlarge(t *testing.T) {
	lister := newStubLister("ev1")
	s := NewSession(lister)

	if err := s.Enlarge("0001.jpg"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("enlarge from Idle = %v, want ErrNotReady", err)
	}

	done := s.Select(context.Background(), event("ev1"))
	lister.resolve("ev1", []string{"0001.jpg", "0002.jpg"}, nil)
	<-done

	if err := s.Enlarge("missing.jpg"); !errors.Is(err, ErrUnknownFrame) {
		t.Fatalf("enlarge unknown ref = %v, want ErrUnknownFrame", err)
	}
	if err := s.Enlarge("0002.jpg"); err != nil {
		t.Fatalf("enlarge: %v", err)
	}
	if got := s.State(); got != FrameEnlarged {
		t.Fatalf("state = %v, want FrameEnlarged", got)
	}
	// repinning another frame without unenlarging first is allowed
	if err := s.Enlarge("0001.jpg"); err != nil {
		t.Fatalf("repin: %v", err)
	}
	s.Unenlarge()
	snap := s.Snapshot()
	if snap.State != "ready" || snap.Enlarged != "" {
		t.Fatalf("after unenlarge: %+v", snap)
	}
	s.Unenlarge() // no-op from Ready
	if got := s.State(); got != Ready {
		t.Fatalf("state = %v", got)
	}
}

func TestClose_FromAnyState(t *testing.T) {
	lister := newStubLister("ev1")
	s := NewSession(lister)

	done := s.Select(context.Background(), event("ev1"))
	lister.resolve("ev1", []string{"0001.jpg"}, nil)
	<-done
	if err := s.Enlarge("0001.jpg"); err != nil {
		t.Fatal(err)
	}

	s.Close()
	snap := s.Snapshot()
	if snap.State != "idle" || snap.Event != nil || len(snap.Frames) != 0 || snap.Enlarged != "" {
		t.Fatalf("close did not reset session: %+v", snap)
	}
}

func TestClose_DiscardsInFlightFetch(t *testing.T) {
	lister := newStubLister("ev1")
	s := NewSession(lister)

	done := s.Select(context.Background(), event("ev1"))
	s.Close()
	lister.resolve("ev1", []string{"0001.jpg"}, nil)
	<-done

	snap := s.Snapshot()
	if snap.State != "idle" || len(snap.Frames) != 0 {
		t.Fatalf("late response revived closed session: %+v", snap)
	}
}
