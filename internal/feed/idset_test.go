package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFilePersistsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	state, err := OpenStateFile(path)
	require.NoError(t, err)
	require.NoError(t, state.Liked().Add(3))
	require.NoError(t, state.Liked().Add(1))
	require.NoError(t, state.Reported().Add(7))
	require.NoError(t, state.Liked().Remove(3))

	reopened, err := OpenStateFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, reopened.Liked().IDs())
	assert.True(t, reopened.Reported().Has(7))
	assert.False(t, reopened.Reported().Has(1))
}

func TestStateFileRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := OpenStateFile(path)
	assert.Error(t, err)
}

func TestMemorySet(t *testing.T) {
	set := NewMemorySet(2)
	require.NoError(t, set.Add(1))
	assert.Equal(t, []int64{1, 2}, set.IDs())
	require.NoError(t, set.Remove(2))
	assert.False(t, set.Has(2))
}

func TestNotifierDismissesAfterTTL(t *testing.T) {
	scheduler := &manualScheduler{}
	var seen []string
	notifier := NewNotifier(NotifierConfig{
		Schedule: scheduler.schedule,
		OnToast:  func(toast Toast) { seen = append(seen, toast.Message) },
	})

	first := notifier.Notify(MessageNotePosted)
	notifier.Notify(MessageNoteReported)
	assert.Len(t, notifier.Active(), 2)
	assert.Equal(t, []string{MessageNotePosted, MessageNoteReported}, seen)

	notifier.Dismiss(first.ID)
	assert.Len(t, notifier.Active(), 1)

	scheduler.fire()
	assert.Empty(t, notifier.Active())
}
