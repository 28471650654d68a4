// Package feed holds the client-side view of the notes feed: the loaded note
// list, derived filter and sort views, optimistic likes, reports, posting and
// the admin report console.
package feed

import (
	"sort"
	"strings"

	"github.com/peernotes/peernotes/internal/notes"
)

// LoadState tracks a remote fetch. Failed is left by calling Load again.
type LoadState int

const (
	StateIdle LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SortOrder selects how the visible notes are ordered.
type SortOrder string

const (
	SortPopular SortOrder = "popular"
	SortNewest  SortOrder = "newest"
)

// ParseSortOrder accepts "popular" or "newest".
func ParseSortOrder(raw string) (SortOrder, bool) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case SortPopular:
		return SortPopular, true
	case SortNewest:
		return SortNewest, true
	default:
		return "", false
	}
}

// Filter is the user's current selection. Subject and Tag use notes.FilterAll
// to match everything.
type Filter struct {
	Subject string
	Tag     string
	Search  string
	Sort    SortOrder
}

// DefaultFilter shows every note, most liked first.
func DefaultFilter() Filter {
	return Filter{Subject: notes.FilterAll, Tag: notes.FilterAll, Sort: SortPopular}
}

// ApplyFilter returns the notes matching every criterion of filter. The input
// slice is not modified.
func ApplyFilter(all []notes.Note, filter Filter) []notes.Note {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]notes.Note, 0, len(all))
	for _, note := range all {
		if !matchesSelection(filter.Subject) && note.Subject != filter.Subject {
			continue
		}
		if !matchesSelection(filter.Tag) && !hasTag(note.Tags, filter.Tag) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(note.Title), search) &&
			!strings.Contains(strings.ToLower(note.Content), search) {
			continue
		}
		matched = append(matched, note)
	}
	return matched
}

// SortNotes orders list in place. Ties keep no particular order.
func SortNotes(list []notes.Note, order SortOrder) {
	switch order {
	case SortNewest:
		sort.Slice(list, func(i, j int) bool {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		})
	default:
		sort.Slice(list, func(i, j int) bool {
			return list[i].Likes > list[j].Likes
		})
	}
}

func matchesSelection(value string) bool {
	return value == "" || value == notes.FilterAll
}

func hasTag(tags []string, tag string) bool {
	for _, candidate := range tags {
		if candidate == tag {
			return true
		}
	}
	return false
}
