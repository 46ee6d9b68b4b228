package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	dir := t.TempDir()
	j, err := Open(filepath.Join(dir, "journal.db"), WithBatchInterval(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestLogAndWaitForFlush(t *testing.T) {
	j := openTestJournal(t)

	j.Log("router", "request.routed.agent", "req-1", map[string]any{"agent_id": "senior-coder"}, "trace-1")
	j.WaitForFlush()

	events, err := j.ByTrace("trace-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "router", events[0].Actor)
	assert.Equal(t, "request.routed.agent", events[0].ActionType)
	assert.Equal(t, "senior-coder", events[0].Payload["agent_id"])
}

func TestByTraceOrdersByTimestampThenSeq(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 5; i++ {
		j.Log("engine", "step.completed", "step-x", map[string]any{"i": i}, "trace-2")
	}
	j.WaitForFlush()

	events, err := j.ByTrace("trace-2")
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, float64(i), ev.Payload["i"])
	}
}

func TestJournalAppendOnlyByteIdentical(t *testing.T) {
	j := openTestJournal(t)

	j.Log("router", "request.routed.flow", "req-2", map[string]any{"flow": "code-review"}, "trace-3")
	j.WaitForFlush()

	first, err := j.ByTrace("trace-3")
	require.NoError(t, err)

	second, err := j.ByTrace("trace-3")
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestNotificationDismissalIdempotent(t *testing.T) {
	j := openTestJournal(t)

	id, err := j.Notify(Notification{Type: NotificationError, Message: "flow failed"})
	require.NoError(t, err)

	require.NoError(t, j.Dismiss(id))
	first, err := j.GetNotification(id)
	require.NoError(t, err)
	require.NotNil(t, first.DismissedAt)
	firstDismiss := *first.DismissedAt

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, j.Dismiss(id))
	second, err := j.GetNotification(id)
	require.NoError(t, err)
	require.NotNil(t, second.DismissedAt)

	assert.True(t, firstDismiss.Equal(*second.DismissedAt))
}

func TestActiveNotificationsExcludesDismissed(t *testing.T) {
	j := openTestJournal(t)

	activeID, err := j.Notify(Notification{Type: NotificationInfo, Message: "active"})
	require.NoError(t, err)
	dismissedID, err := j.Notify(Notification{Type: NotificationInfo, Message: "dismissed"})
	require.NoError(t, err)
	require.NoError(t, j.Dismiss(dismissedID))

	active, err := j.ActiveNotifications()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, activeID, active[0].ID)
}

func TestWaitForFlushWithoutPriorLogReturnsImmediately(t *testing.T) {
	j := openTestJournal(t)
	j.WaitForFlush()
}

func TestBatchedWritesAcrossManyEvents(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 500; i++ {
		j.Log("engine", "step.completed", "s", map[string]any{"n": i}, "trace-batch")
	}
	j.WaitForFlush()

	events, err := j.ByTrace("trace-batch")
	require.NoError(t, err)
	assert.Len(t, events, 500)
}
