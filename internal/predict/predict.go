// Package predict turns an assembled feature record into a heart-attack risk
// result using the loaded classifier.
package predict

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/model"
)

// Threshold is the event probability at or above which a patient is flagged
// high risk.
const Threshold = 0.5

// Risk labels shown with a result.
const (
	HighRiskLabel = "Patient has risk of Heart Attack"
	LowRiskLabel  = "Patient has low risk of Heart Attack"
)

// Result is the outcome of one prediction. ProbNoEvent and ProbEvent sum
// to one.
type Result struct {
	ProbNoEvent float64 `json:"prob_no_event"`
	ProbEvent   float64 `json:"prob_event"`
	HighRisk    bool    `json:"high_risk"`
}

// FromProbNoEvent derives a Result from the classifier's raw output, which
// is the probability of the trained positive class ("no heart disease").
// That class assignment has not been checked against the training labels.
func FromProbNoEvent(p float64) Result {
	event := 1 - p
	return Result{
		ProbNoEvent: p,
		ProbEvent:   event,
		HighRisk:    event >= Threshold,
	}
}

// RiskLabel returns the banner text for r.
func (r Result) RiskLabel() string {
	if r.HighRisk {
		return HighRiskLabel
	}
	return LowRiskLabel
}

// RiskPercent returns the event probability as a truncated whole percent.
func (r Result) RiskPercent() int {
	return int(r.ProbEvent * 100)
}

// Observer is notified after every prediction attempt.
type Observer interface {
	ObservePrediction(res Result, err error, elapsed time.Duration)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithObserver registers o to be told about each prediction.
func WithObserver(o Observer) Option {
	return func(a *Adapter) { a.observers = append(a.observers, o) }
}

// WithLogger sets the adapter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// Adapter runs single-row inference against an injected model source.
type Adapter struct {
	src       model.Source
	logger    *slog.Logger
	observers []Observer
	now       func() time.Time
}

// New returns an adapter that scores records with the model from src.
func New(src model.Source, opts ...Option) *Adapter {
	a := &Adapter{src: src, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Predict scores rec. It returns *ModelUnavailableError when the model could
// not be loaded and *InferenceError when scoring fails. Neither is retried.
func (a *Adapter) Predict(ctx context.Context, rec features.Record) (Result, error) {
	start := a.now()
	res, err := a.predict(ctx, rec)
	elapsed := a.now().Sub(start)

	if err != nil {
		a.logger.Warn("prediction failed", "error", err, "record", rec.String())
	} else {
		a.logger.Debug("prediction", "record", rec.String(), "prob_event", res.ProbEvent, "high_risk", res.HighRisk)
	}
	for _, o := range a.observers {
		o.ObservePrediction(res, err, elapsed)
	}
	return res, err
}

func (a *Adapter) predict(ctx context.Context, rec features.Record) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	booster, err := a.src.Get()
	if err != nil {
		return Result{}, &ModelUnavailableError{Path: a.src.Path(), Err: err}
	}

	out, err := infer(booster, rec.Vector())
	if err != nil {
		return Result{}, &InferenceError{Err: err}
	}
	if len(out) != 1 {
		return Result{}, &InferenceError{Err: fmt.Errorf("model returned %d outputs, want 1", len(out))}
	}
	p := out[0]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return Result{}, &InferenceError{Err: fmt.Errorf("model output %v is not a probability", p)}
	}
	return FromProbNoEvent(p), nil
}

// infer calls the booster, converting a panic into an error.
func infer(b model.Booster, row []float64) (out []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during inference: %v", r)
		}
	}()
	return b.Predict(row)
}
