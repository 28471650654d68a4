package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/peernotes/peernotes/internal/notes"
	"go.uber.org/zap"
)

// ReportsAPI is the subset of the API client the admin console needs.
type ReportsAPI interface {
	ListReports(ctx context.Context) ([]notes.ReportedNote, error)
	DeleteNote(ctx context.Context, id int64) error
}

type AdminConfig struct {
	API ReportsAPI
	// Cache, when set, also loses deleted notes.
	Cache    *Cache
	Notifier *Notifier
	Logger   *zap.Logger
}

// AdminConsole lists the report log and removes reported notes.
type AdminConsole struct {
	api      ReportsAPI
	cache    *Cache
	notifier *Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	state   LoadState
	loadErr error
	reports []notes.ReportedNote
}

func NewAdminConsole(cfg AdminConfig) (*AdminConsole, error) {
	if cfg.API == nil {
		return nil, errors.New("feed: reports api is required")
	}
	notifier := cfg.Notifier
	if notifier == nil && cfg.Cache != nil {
		notifier = cfg.Cache.Notifier()
	}
	if notifier == nil {
		notifier = NewNotifier(NotifierConfig{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminConsole{api: cfg.API, cache: cfg.Cache, notifier: notifier, logger: logger}, nil
}

// Load fetches the report log, most recent first.
func (a *AdminConsole) Load(ctx context.Context) error {
	a.mu.Lock()
	a.state = StateLoading
	a.loadErr = nil
	a.mu.Unlock()

	entries, err := a.api.ListReports(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.state = StateFailed
		a.loadErr = err
		return err
	}
	a.reports = entries
	a.state = StateLoaded
	return nil
}

func (a *AdminConsole) State() (LoadState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.loadErr
}

func (a *AdminConsole) Reports() []notes.ReportedNote {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]notes.ReportedNote(nil), a.reports...)
}

// Delete removes the note on the server, then from the report view and the
// feed cache.
func (a *AdminConsole) Delete(ctx context.Context, id int64) error {
	if err := a.api.DeleteNote(ctx, id); err != nil {
		a.logger.Warn("admin delete failed", zap.Int64("note_id", id), zap.Error(err))
		a.notifier.Notify(MessageRemoveFailed)
		return err
	}

	a.mu.Lock()
	kept := a.reports[:0]
	for _, entry := range a.reports {
		if entry.NoteID != id {
			kept = append(kept, entry)
		}
	}
	a.reports = kept
	a.mu.Unlock()

	if a.cache != nil {
		a.cache.Remove(id)
	}
	a.notifier.Notify(MessageNoteRemoved)
	return nil
}
