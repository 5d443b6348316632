// Package model loads the pre-trained risk classifier and hands out a
// process-wide, load-once handle to it.
package model

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitryikh/leaves"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/xgb"
)

// ErrUnsupportedFormat reports a model path whose extension names no known
// artifact format.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// Booster scores single rows of features.
type Booster interface {
	// Predict returns the model outputs for one row, one value per output
	// group.
	Predict(row []float64) ([]float64, error)
	NumFeatures() int
}

// Loader opens the artifact at path.
type Loader func(path string) (Booster, error)

// LoadError reports a model artifact that is missing, unreadable or
// incompatible.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load opens the model at path. JSON artifacts are decoded and evaluated
// natively; legacy binary artifacts are walked by leaves. Both score a
// model identically.
func Load(path string) (Booster, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var (
		b   Booster
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		b, err = loadJSON(path)
	case ".bin", ".model":
		b, err = loadLegacy(path)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return b, nil
}

// treeBooster evaluates a decoded ensemble.
type treeBooster struct {
	m *xgb.Model
}

func loadJSON(path string) (Booster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := xgb.DecodeJSON(f)
	if err != nil {
		return nil, err
	}
	if len(m.FeatureNames) > 0 && !slices.Equal(m.FeatureNames, features.Columns()) {
		return nil, fmt.Errorf("feature names %v do not match %v", m.FeatureNames, features.Columns())
	}
	return &treeBooster{m: m}, nil
}

// NewTreeBooster wraps an already decoded ensemble.
func NewTreeBooster(m *xgb.Model) (Booster, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &treeBooster{m: m}, nil
}

func (b *treeBooster) Predict(row []float64) ([]float64, error) {
	p, err := b.m.Predict(row)
	if err != nil {
		return nil, err
	}
	return []float64{p}, nil
}

func (b *treeBooster) NumFeatures() int { return b.m.NumFeature }

// leavesBooster walks the trees of a legacy binary model with leaves and
// applies the bias and objective transform of the decoded header, so it
// scores exactly like the JSON form of the same model.
type leavesBooster struct {
	e *leaves.Ensemble
	m *xgb.Model
	// offset replaces the stored base_score leaves adds with the model's
	// base margin.
	offset float64
}

func loadLegacy(path string) (Booster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := xgb.ReadLegacy(f)
	if err != nil {
		return nil, err
	}
	stored, err := m.LegacyBaseScore()
	if err != nil {
		return nil, err
	}
	margin, err := m.BaseMargin()
	if err != nil {
		return nil, err
	}

	// Raw margins; the transform comes from m, since leaves only knows
	// binary:logistic.
	e, err := leaves.XGEnsembleFromFile(path, false)
	if err != nil {
		return nil, err
	}
	return &leavesBooster{e: e, m: m, offset: margin - float64(stored)}, nil
}

func (b *leavesBooster) Predict(row []float64) ([]float64, error) {
	n := b.e.NFeatures()
	if len(row) < n {
		return nil, fmt.Errorf("row has %d features, model needs %d", len(row), n)
	}
	// leaves sends fval <= threshold left where XGBoost tests
	// float32(fval) < threshold. Stepping each value to the next float32
	// up makes the two agree for every float32 threshold.
	shifted := make([]float64, len(row))
	for i, v := range row {
		shifted[i] = float64(math.Nextafter32(float32(v), float32(math.Inf(1))))
	}

	out := make([]float64, b.e.NOutputGroups())
	if err := b.e.Predict(shifted, 0, out); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return out, nil
	}
	p, err := b.m.Transform(out[0] + b.offset)
	if err != nil {
		return nil, err
	}
	return []float64{p}, nil
}

func (b *leavesBooster) NumFeatures() int { return b.e.NFeatures() }
