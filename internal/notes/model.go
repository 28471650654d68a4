package notes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NoteID identifies a persisted note. Identifiers are assigned by the store and never reused.
type NoteID int64

// ParseNoteID validates a raw path parameter and returns a NoteID.
func ParseNoteID(rawInput string) (NoteID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty note id", ErrInvalidInput)
	}
	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: note id %q is not a positive integer", ErrInvalidInput, trimmed)
	}
	return NoteID(value), nil
}

// Int64 exposes the raw identifier.
func (id NoteID) Int64() int64 {
	return int64(id)
}

// String returns the decimal form of the identifier.
func (id NoteID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Note is a shared Markdown note. Likes only ever grow; CreatedAt is immutable.
type Note struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"column:title;type:text;not null" json:"title"`
	Subject   string    `gorm:"column:subject;size:190;not null;default:''" json:"subject"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	Tags      []string  `gorm:"column:tags;type:text;serializer:json" json:"tags"`
	Likes     int64     `gorm:"column:likes;not null;default:0" json:"likes"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_notes_created_at" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// ReportedNote is the append-only report log entry. It keeps a snapshot of the
// note as it looked when first reported; the primary key allows one entry per note.
type ReportedNote struct {
	NoteID     int64     `gorm:"column:note_id;primaryKey;autoIncrement:false" json:"note_id"`
	Title      string    `gorm:"column:title;type:text;not null" json:"title"`
	Subject    string    `gorm:"column:subject;size:190;not null;default:''" json:"subject"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	ReportedAt time.Time `gorm:"column:reported_at;not null;index:idx_reported_notes_reported_at" json:"reported_at"`
}

// TableName provides the explicit table binding for GORM.
func (ReportedNote) TableName() string {
	return "reported_notes"
}

// ModerationStats is the single-row counter of posts rejected by moderation.
type ModerationStats struct {
	ID            int64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	RejectedCount int64 `gorm:"column:rejected_count;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (ModerationStats) TableName() string {
	return "moderation_stats"
}

// ModerationStatsRowID is the primary key of the singleton counter row.
const ModerationStatsRowID int64 = 1

// Stats summarises the store for the admin view.
//
// AdminRemoved counts distinct notes present in the report log. It approximates
// removals: a note deleted without ever being reported is not counted.
type Stats struct {
	VisibleNotes  int64 `json:"visibleNotes"`
	AdminRemoved  int64 `json:"adminRemoved"`
	AutoModerated int64 `json:"autoModerated"`
}

// Models lists every table owned by the note store, in migration order.
func Models() []any {
	return []any{&Note{}, &ReportedNote{}, &ModerationStats{}}
}

var errEmptyField = errors.New("must not be empty")

// NoteDraft is a validated request to create a note.
type NoteDraft struct {
	title   string
	subject string
	content string
	tags    []string
}

// NewNoteDraft validates raw input. Title and content must contain non-whitespace
// text; subject and tags are accepted as given, with blank and repeated tags dropped.
func NewNoteDraft(title, subject, content string, tags []string) (NoteDraft, error) {
	if strings.TrimSpace(title) == "" {
		return NoteDraft{}, fmt.Errorf("%w: title %v", ErrInvalidInput, errEmptyField)
	}
	if strings.TrimSpace(content) == "" {
		return NoteDraft{}, fmt.Errorf("%w: content %v", ErrInvalidInput, errEmptyField)
	}
	return NoteDraft{
		title:   strings.TrimSpace(title),
		subject: strings.TrimSpace(subject),
		content: content,
		tags:    normalizeTags(tags),
	}, nil
}

// Title returns the trimmed title.
func (d NoteDraft) Title() string { return d.title }

// Subject returns the trimmed subject code.
func (d NoteDraft) Subject() string { return d.subject }

// Content returns the Markdown source.
func (d NoteDraft) Content() string { return d.content }

// Tags returns a copy of the normalized tags.
func (d NoteDraft) Tags() []string {
	tags := make([]string, len(d.tags))
	copy(tags, d.tags)
	return tags
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
