package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/peernotes/peernotes/internal/client"
	"github.com/peernotes/peernotes/internal/notes"
)

var errNetwork = errors.New("network unreachable")

type fakeAPI struct {
	mu        sync.Mutex
	notes     []notes.Note
	reports   []notes.ReportedNote
	listErr   error
	likeErr   error
	reportErr error
	createErr error
	deleteErr error
	// likeGate, when set, blocks LikeNote until it is closed.
	likeGate    chan struct{}
	likeStarted chan struct{}
	created     []client.NewNote
	reportCalls int
}

func (f *fakeAPI) ListNotes(context.Context) ([]notes.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]notes.Note(nil), f.notes...), nil
}

func (f *fakeAPI) CreateNote(_ context.Context, draft client.NewNote) (notes.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, draft)
	if f.createErr != nil {
		return notes.Note{}, f.createErr
	}
	note := notes.Note{ID: int64(100 + len(f.created)), Title: draft.Title, Subject: draft.Subject, Content: draft.Content, Tags: draft.Tags}
	return note, nil
}

func (f *fakeAPI) LikeNote(_ context.Context, id int64) (notes.Note, error) {
	if f.likeStarted != nil {
		close(f.likeStarted)
	}
	if f.likeGate != nil {
		<-f.likeGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.likeErr != nil {
		return notes.Note{}, f.likeErr
	}
	for index := range f.notes {
		if f.notes[index].ID == id {
			f.notes[index].Likes++
			return f.notes[index], nil
		}
	}
	return notes.Note{}, &client.APIError{StatusCode: 404, Message: "Note not found."}
}

func (f *fakeAPI) ReportNote(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportCalls++
	return f.reportErr
}

func (f *fakeAPI) DeleteNote(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeAPI) ListReports(context.Context) ([]notes.ReportedNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notes.ReportedNote(nil), f.reports...), nil
}

// manualScheduler captures dismissals so tests decide when time passes.
type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func (m *manualScheduler) schedule(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, d)
	m.pending = append(m.pending, fn)
}

func (m *manualScheduler) fire() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}
