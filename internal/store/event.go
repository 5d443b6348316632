package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const predictionTable = "prediction_events"

var predictionColumns = []string{
	"id", "sequence", "session_id", "timestamp", "model_path", "features",
	"prob_no_event", "prob_event", "high_risk", "success", "error_message",
}

// eventRepo implements EventRepo over the prediction_events table.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *eventRepo) AppendPrediction(ctx context.Context, data PredictionEventData) (int64, error) {
	feats, err := json.Marshal(data.Features)
	if err != nil {
		return 0, fmt.Errorf("marshal features: %w", err)
	}
	ts := data.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	query, args := builder().Insert(predictionTable).
		Columns(predictionColumns[1:]...).
		Values(seqNum, data.SessionID, ts.UnixNano(), data.ModelPath, string(feats),
			data.ProbNoEvent, data.ProbEvent, data.HighRisk, data.Success, data.ErrorMessage).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("save prediction event: %w", err)
	}
	return seqNum, nil
}

func (r *eventRepo) QueryPredictions(ctx context.Context, opts QueryOpts) ([]PredictionEvent, error) {
	sel := builder().Select(predictionColumns...).
		From(entsql.Table(predictionTable)).
		OrderBy(entsql.Desc("sequence"))
	if opts.SessionID != "" {
		sel.Where(entsql.EQ("session_id", opts.SessionID))
	}
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", opts.From.UnixNano()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("timestamp", opts.To.UnixNano()))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prediction events: %w", err)
	}
	defer rows.Close()

	var out []PredictionEvent
	for rows.Next() {
		var (
			e     PredictionEvent
			ts    int64
			feats string
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &e.SessionID, &ts, &e.ModelPath, &feats,
			&e.ProbNoEvent, &e.ProbEvent, &e.HighRisk, &e.Success, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan prediction event: %w", err)
		}
		e.Timestamp = time.Unix(0, ts)
		if err := json.Unmarshal([]byte(feats), &e.Features); err != nil {
			return nil, fmt.Errorf("decode features of event %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *eventRepo) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	query, args := builder().Delete(predictionTable).
		Where(entsql.EQ("session_id", sessionID)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete session events: %w", err)
	}
	return res.RowsAffected()
}

func (r *eventRepo) Prune(ctx context.Context, keep int) (int64, error) {
	// Find the sequence threshold: the keep-th most recent event.
	query, args := builder().Select("sequence").
		From(entsql.Table(predictionTable)).
		OrderBy(entsql.Desc("sequence")).
		Offset(keep).
		Limit(1).
		Query()
	var threshold int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&threshold)
	if err == sql.ErrNoRows {
		return 0, nil // fewer than keep events exist
	}
	if err != nil {
		return 0, fmt.Errorf("query events for prune: %w", err)
	}

	query, args = builder().Delete(predictionTable).
		Where(entsql.LTE("sequence", threshold)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

// sequenceCounter hands out a monotonic sequence number per event, stored
// in the database so ordering survives restarts and is independent of the
// wall clock. The mutex serializes within the process; the RETURNING clause
// makes the increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
