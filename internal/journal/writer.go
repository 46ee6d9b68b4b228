package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// writeLoop is the single goroutine that owns the write connection. It
// drains up to batchSize events or batchInterval, whichever comes first,
// and commits them in one transaction.
func (j *Journal) writeLoop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.batchInterval)
	defer ticker.Stop()

	var batch []*Event
	var fences []chan struct{}

	flush := func() {
		if len(batch) > 0 {
			start := time.Now()
			if err := j.commitBatch(batch); err != nil {
				// One immediate retry before counting it as a write failure.
				if err := j.commitBatch(batch); err != nil {
					j.writeFailures.Add(1)
					if j.metrics != nil {
						j.metrics.WriteFailures.Inc()
					}
					j.logDegraded("journal batch commit failed: " + err.Error())
				}
			}
			if j.metrics != nil {
				j.metrics.BatchesFlushed.Inc()
				j.metrics.EventsEnqueued.Add(float64(len(batch)))
				j.metrics.FlushDuration.Observe(time.Since(start).Seconds())
			}
			batch = batch[:0]
		}
		for _, f := range fences {
			close(f)
		}
		fences = fences[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case req := <-j.enqueue:
			if req.event != nil {
				batch = append(batch, req.event)
				if len(batch) >= j.batchSize {
					flush()
				}
				continue
			}
			// Flush fence: guarantee everything enqueued before it is durable.
			fences = append(fences, req.done)
			flush()

		case <-ticker.C:
			flush()
		}
	}
}

// sortableTimestamp is RFC 3339 with a fixed nine-digit fraction, so the
// timestamp column sorts as text in time order (RFC3339Nano drops trailing
// zeros, which breaks text ordering within a second).
const sortableTimestamp = "2006-01-02T15:04:05.000000000Z07:00"

func (j *Journal) commitBatch(batch []*Event) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`INSERT INTO activity (id, actor, action_type, target, payload, trace_id, timestamp, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range batch {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return err
		}
		var traceID sql.NullString
		if ev.TraceID != "" {
			traceID = sql.NullString{String: ev.TraceID, Valid: true}
		}
		if _, err := stmt.Exec(ev.ID, ev.Actor, ev.ActionType, ev.Target, string(payload), traceID, ev.Timestamp.Format(sortableTimestamp), ev.seq); err != nil {
			return err
		}
	}

	return tx.Commit()
}
