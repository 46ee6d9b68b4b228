package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyRoundTripsMetadataAndProposal(t *testing.T) {
	j := openTestJournal(t)

	id, err := j.Notify(Notification{
		Type:       NotificationPending,
		Message:    "proposal awaiting approval",
		ProposalID: "prop-7",
		TraceID:    "trace-9",
		Metadata:   map[string]any{"risk": "low"},
	})
	require.NoError(t, err)

	got, err := j.GetNotification(id)
	require.NoError(t, err)
	assert.Equal(t, NotificationPending, got.Type)
	assert.Equal(t, "prop-7", got.ProposalID)
	assert.Equal(t, "trace-9", got.TraceID)
	assert.Equal(t, "low", got.Metadata["risk"])
	assert.True(t, got.Active())
}

func TestGetNotificationMissingReturnsErrNotFound(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.GetNotification("does-not-exist")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestDismissUnknownIDIsNoop(t *testing.T) {
	j := openTestJournal(t)
	assert.NoError(t, j.Dismiss("nonexistent"))
}
