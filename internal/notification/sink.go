// Package notification defines the narrow sink interface components use to
// surface operator-facing notifications, decoupling callers from the
// concrete durable store.
package notification

import "github.com/c360studio/orchd/internal/journal"

// Sink is what a component (Router, PlanExecutor, FlowEngine) depends on to
// raise a notification, without knowing where it is ultimately persisted.
type Sink interface {
	Notify(n journal.Notification) (string, error)
}

// JournalSink adapts *journal.Journal to Sink. The notifications table is
// co-located with the activity journal in the same durable store, so the
// concrete implementation is the journal itself; this package only narrows
// the interface callers see.
type JournalSink struct {
	j *journal.Journal
}

// NewJournalSink wraps j as a Sink.
func NewJournalSink(j *journal.Journal) *JournalSink {
	return &JournalSink{j: j}
}

// Notify implements Sink.
func (s *JournalSink) Notify(n journal.Notification) (string, error) {
	return s.j.Notify(n)
}

// Failure builds an "error" notification for an actionable failure.
func Failure(traceID, message string) journal.Notification {
	return journal.Notification{
		Type:    journal.NotificationError,
		Message: message,
		TraceID: traceID,
	}
}
