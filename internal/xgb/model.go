// Package xgb reads and writes gradient-boosted tree models in XGBoost's
// legacy binary format and its JSON format, and scores rows against them.
//
// Only single-output "gbtree" models are supported, which covers binary
// classifiers and plain regressors.
package xgb

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnsupported reports a model that is well-formed but uses a booster,
	// objective or layout this package does not handle.
	ErrUnsupported = errors.New("unsupported model")
	// ErrCorrupt reports a model whose structure is inconsistent.
	ErrCorrupt = errors.New("corrupt model")
)

// Version is an XGBoost release triple.
type Version [3]int

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d.%d", v[0], v[1], v[2])
}

// Objectives understood by Predict.
const (
	ObjBinaryLogistic = "binary:logistic"
	ObjBinaryLogitRaw = "binary:logitraw"
	ObjRegLogistic    = "reg:logistic"
	ObjRegSquared     = "reg:squarederror"
	ObjRegLinear      = "reg:linear"
)

// Model is a decoded tree ensemble.
type Model struct {
	// BaseScore is the global bias in output space (a probability for
	// logistic objectives). See LegacyBaseScore for the on-disk form of
	// pre-1.0 binaries.
	BaseScore    float32
	NumFeature   int
	NumClass     int
	Objective    string
	Booster      string
	Trees        []Tree
	TreeInfo     []int32
	Attributes   map[string]string
	FeatureNames []string
	// Version is the writer's release, when the file records one.
	Version Version
}

// Tree is one regression tree; node 0 is the root.
type Tree struct {
	NumFeature int
	Nodes      []Node
	Stats      []NodeStat
}

// Node is a split or a leaf. Leaves have Left == -1 and carry their output
// in Value; splits send rows with feature < Value to Left.
type Node struct {
	Parent      int32
	Left        int32
	Right       int32
	SplitIndex  uint32
	DefaultLeft bool
	Value       float32
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool { return n.Left == -1 }

// NodeStat holds the training statistics XGBoost keeps per node.
type NodeStat struct {
	LossChange   float32
	SumHessian   float32
	BaseWeight   float32
	LeafChildCnt int32
}

// Validate checks that the model can be scored without going out of bounds.
func (m *Model) Validate() error {
	if m.Booster != "gbtree" {
		return fmt.Errorf("%w: booster %q", ErrUnsupported, m.Booster)
	}
	if m.NumClass > 1 {
		return fmt.Errorf("%w: %d classes", ErrUnsupported, m.NumClass)
	}
	if _, _, err := objectiveFuncs(m.Objective); err != nil {
		return err
	}
	if len(m.TreeInfo) != 0 && len(m.TreeInfo) != len(m.Trees) {
		return fmt.Errorf("%w: %d tree_info entries for %d trees", ErrCorrupt, len(m.TreeInfo), len(m.Trees))
	}
	for ti, t := range m.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d has no nodes", ErrCorrupt, ti)
		}
		if len(t.Stats) != 0 && len(t.Stats) != len(t.Nodes) {
			return fmt.Errorf("%w: tree %d has %d stats for %d nodes", ErrCorrupt, ti, len(t.Stats), len(t.Nodes))
		}
		n := int32(len(t.Nodes))
		for ni, node := range t.Nodes {
			if node.IsLeaf() {
				continue
			}
			if node.Left <= int32(ni) || node.Left >= n || node.Right <= int32(ni) || node.Right >= n {
				return fmt.Errorf("%w: tree %d node %d has children %d/%d", ErrCorrupt, ti, ni, node.Left, node.Right)
			}
			if m.NumFeature > 0 && int(node.SplitIndex) >= m.NumFeature {
				return fmt.Errorf("%w: tree %d node %d splits on feature %d of %d", ErrCorrupt, ti, ni, node.SplitIndex, m.NumFeature)
			}
		}
	}
	return nil
}

// PredictMargin returns the untransformed score of row. Missing values are
// NaN and follow each split's default direction, as do features beyond the
// end of row.
func (m *Model) PredictMargin(row []float64) (float64, error) {
	toMargin, _, err := objectiveFuncs(m.Objective)
	if err != nil {
		return 0, err
	}
	var sum float32
	for i := range m.Trees {
		sum += m.Trees[i].leafValue(row)
	}
	return float64(sum) + toMargin(float64(m.BaseScore)), nil
}

// Predict returns the objective-transformed score of row; for logistic
// objectives that is the probability of the positive class.
func (m *Model) Predict(row []float64) (float64, error) {
	margin, err := m.PredictMargin(row)
	if err != nil {
		return 0, err
	}
	_, transform, _ := objectiveFuncs(m.Objective)
	return transform(margin), nil
}

// BaseMargin returns the base score moved into margin space.
func (m *Model) BaseMargin() (float64, error) {
	toMargin, _, err := objectiveFuncs(m.Objective)
	if err != nil {
		return 0, err
	}
	return toMargin(float64(m.BaseScore)), nil
}

// Transform maps a raw margin to the objective's output space.
func (m *Model) Transform(margin float64) (float64, error) {
	_, transform, err := objectiveFuncs(m.Objective)
	if err != nil {
		return 0, err
	}
	return transform(margin), nil
}

// LegacyBaseScore returns base_score as the legacy binary format stores it
// for m.Version: releases before 1.0 saved it already in margin space.
func (m *Model) LegacyBaseScore() (float32, error) {
	if m.Version[0] >= 1 {
		return m.BaseScore, nil
	}
	margin, err := m.BaseMargin()
	if err != nil {
		return 0, err
	}
	return float32(margin), nil
}

// baseFromMargin inverts the base-score-to-margin step of an objective.
func baseFromMargin(objective string, margin float64) (float64, error) {
	switch objective {
	case ObjBinaryLogistic, ObjRegLogistic, ObjBinaryLogitRaw:
		return sigmoid(margin), nil
	case ObjRegSquared, ObjRegLinear:
		return margin, nil
	default:
		return 0, fmt.Errorf("%w: objective %q", ErrUnsupported, objective)
	}
}

func (t *Tree) leafValue(row []float64) float32 {
	idx := int32(0)
	// Children always sit after their parent (checked by Validate), so the
	// walk ends within len(Nodes) steps.
	for steps := 0; steps <= len(t.Nodes); steps++ {
		n := t.Nodes[idx]
		if n.IsLeaf() {
			return n.Value
		}
		f := int(n.SplitIndex)
		if f >= len(row) || math.IsNaN(row[f]) {
			if n.DefaultLeft {
				idx = n.Left
			} else {
				idx = n.Right
			}
			continue
		}
		if float32(row[f]) < n.Value {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return 0
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func identity(x float64) float64 { return x }

// objectiveFuncs returns the base-score-to-margin and margin-to-output
// transforms of an objective.
func objectiveFuncs(objective string) (toMargin, transform func(float64) float64, err error) {
	switch objective {
	case ObjBinaryLogistic, ObjRegLogistic:
		return logit, sigmoid, nil
	case ObjBinaryLogitRaw:
		return logit, identity, nil
	case ObjRegSquared, ObjRegLinear:
		return identity, identity, nil
	default:
		return nil, nil, fmt.Errorf("%w: objective %q", ErrUnsupported, objective)
	}
}
