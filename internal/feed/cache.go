package feed

import (
	"context"
	"errors"
	"sync"
	"unicode/utf8"

	"github.com/peernotes/peernotes/internal/client"
	"github.com/peernotes/peernotes/internal/notes"
	"go.uber.org/zap"
)

// NotesAPI is the subset of the API client the cache needs.
type NotesAPI interface {
	ListNotes(ctx context.Context) ([]notes.Note, error)
	CreateNote(ctx context.Context, note client.NewNote) (notes.Note, error)
	LikeNote(ctx context.Context, id int64) (notes.Note, error)
	ReportNote(ctx context.Context, id int64) error
	DeleteNote(ctx context.Context, id int64) error
}

// Outcome is the final state of one optimistic mutation.
type Outcome int

const (
	// OutcomeSkipped means nothing was sent.
	OutcomeSkipped Outcome = iota
	// OutcomeConfirmed means the server accepted the change.
	OutcomeConfirmed
	// OutcomeRolledBack means the local change was undone after a failure.
	OutcomeRolledBack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRolledBack:
		return "rolled_back"
	default:
		return "skipped"
	}
}

var errMissingAPI = errors.New("feed: notes api is required")

type CacheConfig struct {
	API      NotesAPI
	Liked    IDSet
	Reported IDSet
	Notifier *Notifier
	Logger   *zap.Logger
}

// Cache owns the client's copy of the note list.
type Cache struct {
	api      NotesAPI
	liked    IDSet
	reported IDSet
	notifier *Notifier
	logger   *zap.Logger

	mu      sync.Mutex
	state   LoadState
	loadErr error
	notes   []notes.Note
	filter  Filter
}

func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.API == nil {
		return nil, errMissingAPI
	}
	liked := cfg.Liked
	if liked == nil {
		liked = NewMemorySet()
	}
	reported := cfg.Reported
	if reported == nil {
		reported = NewMemorySet()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewNotifier(NotifierConfig{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		api:      cfg.API,
		liked:    liked,
		reported: reported,
		notifier: notifier,
		logger:   logger,
		filter:   DefaultFilter(),
	}, nil
}

// Load fetches the full note list. A failure keeps the previous list and
// moves the cache to StateFailed until the next Load.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.loadErr = nil
	c.mu.Unlock()

	fetched, err := c.api.ListNotes(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateFailed
		c.loadErr = err
		return err
	}
	c.notes = fetched
	c.state = StateLoaded
	return nil
}

// State reports the load state and the last load error.
func (c *Cache) State() (LoadState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.loadErr
}

// Notes returns a copy of every loaded note in server order.
func (c *Cache) Notes() []notes.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notes.Note(nil), c.notes...)
}

// Note returns one loaded note.
func (c *Cache) Note(id int64) (notes.Note, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := c.indexLocked(id)
	if index < 0 {
		return notes.Note{}, false
	}
	return c.notes[index], true
}

func (c *Cache) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Cache) SetFilter(filter Filter) {
	if filter.Sort == "" {
		filter.Sort = SortPopular
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = filter
}

// Visible is the filtered and sorted view of the loaded notes.
func (c *Cache) Visible() []notes.Note {
	c.mu.Lock()
	filter := c.filter
	matched := ApplyFilter(c.notes, filter)
	c.mu.Unlock()

	SortNotes(matched, filter.Sort)
	return matched
}

func (c *Cache) IsLiked(id int64) bool    { return c.liked.Has(id) }
func (c *Cache) IsReported(id int64) bool { return c.reported.Has(id) }

func (c *Cache) Notifier() *Notifier { return c.notifier }

// Like applies the like locally before calling the server. On success the
// server row replaces the local copy; on failure the count drops back
// (never below zero), the id is unmarked and a toast is raised. Notes already
// liked on this client are skipped.
func (c *Cache) Like(ctx context.Context, id int64) Outcome {
	if c.liked.Has(id) {
		return OutcomeSkipped
	}

	c.mu.Lock()
	if index := c.indexLocked(id); index >= 0 {
		c.notes[index].Likes++
	}
	c.mu.Unlock()
	c.rememberID(c.liked, id)

	updated, err := c.api.LikeNote(ctx, id)
	if err != nil {
		c.logger.Warn("like failed", zap.Int64("note_id", id), zap.Error(err))
		c.mu.Lock()
		if index := c.indexLocked(id); index >= 0 && c.notes[index].Likes > 0 {
			c.notes[index].Likes--
		}
		c.mu.Unlock()
		if removeErr := c.liked.Remove(id); removeErr != nil {
			c.logger.Warn("failed to persist liked notes", zap.Error(removeErr))
		}
		c.notifier.Notify(MessageLikeFailed)
		return OutcomeRolledBack
	}

	c.mu.Lock()
	if index := c.indexLocked(id); index >= 0 {
		c.notes[index] = updated
	}
	c.mu.Unlock()
	return OutcomeConfirmed
}

// Report waits for the server before marking the note reported. Notes already
// reported on this client raise "Already reported." and send nothing.
func (c *Cache) Report(ctx context.Context, id int64) Outcome {
	if c.reported.Has(id) {
		c.notifier.Notify(MessageAlreadyReport)
		return OutcomeSkipped
	}
	if err := c.api.ReportNote(ctx, id); err != nil {
		c.logger.Warn("report failed", zap.Int64("note_id", id), zap.Error(err))
		c.notifier.Notify(MessageReportFailed)
		return OutcomeRolledBack
	}
	c.rememberID(c.reported, id)
	c.notifier.Notify(MessageNoteReported)
	return OutcomeConfirmed
}

// Post truncates content, creates the note and puts it at the top of the
// list. The filter resets to show every subject and tag, newest first.
func (c *Cache) Post(ctx context.Context, draft client.NewNote) (notes.Note, error) {
	draft.Content = TruncateContent(draft.Content)

	created, err := c.api.CreateNote(ctx, draft)
	if err != nil {
		message := err.Error()
		if message == "" {
			message = MessagePostFailed
		}
		c.notifier.Notify(message)
		return notes.Note{}, err
	}

	c.mu.Lock()
	c.notes = append([]notes.Note{created}, c.notes...)
	c.filter.Subject = notes.FilterAll
	c.filter.Tag = notes.FilterAll
	c.filter.Sort = SortNewest
	c.mu.Unlock()

	c.notifier.Notify(MessageNotePosted)
	return created, nil
}

// Delete removes a note on the server and then from the local list.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	if err := c.api.DeleteNote(ctx, id); err != nil {
		c.logger.Warn("delete failed", zap.Int64("note_id", id), zap.Error(err))
		c.notifier.Notify(MessageRemoveFailed)
		return err
	}
	c.Remove(id)
	c.notifier.Notify(MessageNoteRemoved)
	return nil
}

// Remove drops a note from the local list without contacting the server.
func (c *Cache) Remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index := c.indexLocked(id); index >= 0 {
		c.notes = append(c.notes[:index], c.notes[index+1:]...)
	}
}

func (c *Cache) indexLocked(id int64) int {
	for index := range c.notes {
		if c.notes[index].ID == id {
			return index
		}
	}
	return -1
}

func (c *Cache) rememberID(set IDSet, id int64) {
	if err := set.Add(id); err != nil {
		c.logger.Warn("failed to persist local note state", zap.Int64("note_id", id), zap.Error(err))
	}
}

// TruncateContent cuts content to notes.MaxContentChars characters.
func TruncateContent(content string) string {
	if utf8.RuneCountInString(content) <= notes.MaxContentChars {
		return content
	}
	runes := []rune(content)
	return string(runes[:notes.MaxContentChars])
}
