package notes

import (
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	databasePath := filepath.Join(t.TempDir(), "notes.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, clock func() time.Time) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDatabase(t)
	return NewService(ServiceConfig{Database: db, Clock: clock}), db
}

func mustDraft(t *testing.T, title, subject, content string, tags ...string) NoteDraft {
	t.Helper()
	draft, err := NewNoteDraft(title, subject, content, tags)
	if err != nil {
		t.Fatalf("unexpected draft error: %v", err)
	}
	return draft
}

func mustCreate(t *testing.T, service *Service, title, subject string) Note {
	t.Helper()
	note, err := service.Create(t.Context(), mustDraft(t, title, subject, "content of "+title))
	if err != nil {
		t.Fatalf("failed to create note: %v", err)
	}
	return note
}

// steppingClock returns successive seconds starting at base.
func steppingClock(base time.Time) func() time.Time {
	current := base
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}
