package journal

import (
	"encoding/json"
	"fmt"
	"time"
)

// ByTrace returns all activity events for a trace id, in timestamp order
// (ties broken by the monotonic sequence counter). An empty traceID selects
// the events logged without a trace id, which are stored as NULL.
func (j *Journal) ByTrace(traceID string) ([]Event, error) {
	var traceArg any = traceID
	if traceID == "" {
		traceArg = nil
	}
	rows, err := j.readDB.Query(
		`SELECT id, actor, action_type, target, payload, trace_id, timestamp, seq
		 FROM activity WHERE trace_id IS ? ORDER BY timestamp ASC, seq ASC`, traceArg)
	if err != nil {
		return nil, fmt.Errorf("journal: query by trace: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var payload string
		var traceIDCol, tsCol string
		var seq uint64
		var traceIDNull *string
		if err := rows.Scan(&ev.ID, &ev.Actor, &ev.ActionType, &ev.Target, &payload, &traceIDNull, &tsCol, &seq); err != nil {
			return nil, fmt.Errorf("journal: scan row: %w", err)
		}
		if traceIDNull != nil {
			traceIDCol = *traceIDNull
		}
		ev.TraceID = traceIDCol
		ev.seq = seq

		if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
			return nil, fmt.Errorf("journal: unmarshal payload: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsCol)
		if err != nil {
			return nil, fmt.Errorf("journal: parse timestamp: %w", err)
		}
		ev.Timestamp = ts

		events = append(events, ev)
	}
	return events, rows.Err()
}
