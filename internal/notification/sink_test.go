package notification

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/orchd/internal/journal"
)

func TestJournalSinkNotifyPersists(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.Open(filepath.Join(dir, "journal.db"), journal.WithBatchInterval(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	sink := NewJournalSink(j)
	id, err := sink.Notify(Failure("trace-1", "step failed"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := j.GetNotification(id)
	require.NoError(t, err)
	assert.Equal(t, journal.NotificationError, got.Type)
	assert.Equal(t, "step failed", got.Message)
}
