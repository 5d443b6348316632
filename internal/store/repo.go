package store

import (
	"context"
	"time"

	"github.com/abhisek/heartrisk/internal/features"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	SessionID string    // only this session ("" = all)
	Limit     int       // max results (0 = unlimited)
	After     int64     // sequence > After
	Before    int64     // sequence < Before
	From      time.Time // timestamp >= From
	To        time.Time // timestamp <= To
}

// PredictionEventData captures one prediction attempt.
type PredictionEventData struct {
	SessionID    string
	Timestamp    time.Time
	ModelPath    string
	Features     features.Record
	ProbNoEvent  float64
	ProbEvent    float64
	HighRisk     bool
	Success      bool
	ErrorMessage string
}

// PredictionEvent is a stored prediction attempt.
type PredictionEvent struct {
	ID       int64
	Sequence int64
	PredictionEventData
}

// EventRepo provides append and query access to prediction events.
type EventRepo interface {
	// AppendPrediction records a prediction attempt and returns its sequence.
	AppendPrediction(ctx context.Context, data PredictionEventData) (int64, error)

	// QueryPredictions returns events newest first.
	QueryPredictions(ctx context.Context, opts QueryOpts) ([]PredictionEvent, error)

	// DeleteSession removes every event of a session and returns how many
	// were deleted.
	DeleteSession(ctx context.Context, sessionID string) (int64, error)

	// Prune deletes all but the keep most recent events.
	Prune(ctx context.Context, keep int) (int64, error)
}
