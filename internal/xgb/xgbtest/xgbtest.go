// Package xgbtest builds small tree ensembles over the heart-risk feature
// layout for tests.
package xgbtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/abhisek/heartrisk/internal/xgb"
)

// Margins HeartModel produces for the bundled low and high risk examples.
const (
	LowRiskMargin  = 1.8
	HighRiskMargin = -2.6
)

// HeartModel returns a two-tree binary:logistic ensemble over the seven
// assembled features (thall, caa, cp, oldpeak, exng, chol, thalachh).
//
// Tree 0 splits on caa < 0.5 (leaf +1.5), then thall < 2.5 (+0.5 / -2.0).
// Tree 1 splits on oldpeak < 2.0 (+0.3 / -0.6). With base_score 0.5 the
// model output is the probability of "no event", so healthy rows score high.
func HeartModel() *xgb.Model {
	return &xgb.Model{
		BaseScore:  0.5,
		NumFeature: 7,
		Objective:  xgb.ObjBinaryLogistic,
		Booster:    "gbtree",
		Version:    xgb.Version{1, 7, 0},
		Attributes: map[string]string{"best_iteration": "1"},
		TreeInfo:   []int32{0, 0},
		Trees: []xgb.Tree{
			{
				NumFeature: 7,
				Nodes: []xgb.Node{
					{Parent: -1, Left: 1, Right: 2, SplitIndex: 1, DefaultLeft: true, Value: 0.5},
					{Parent: 0, Left: -1, Right: -1, Value: 1.5},
					{Parent: 0, Left: 3, Right: 4, SplitIndex: 0, Value: 2.5},
					{Parent: 2, Left: -1, Right: -1, Value: 0.5},
					{Parent: 2, Left: -1, Right: -1, Value: -2.0},
				},
				Stats: stats(5),
			},
			{
				NumFeature: 7,
				Nodes: []xgb.Node{
					{Parent: -1, Left: 1, Right: 2, SplitIndex: 3, Value: 2.0},
					{Parent: 0, Left: -1, Right: -1, Value: 0.3},
					{Parent: 0, Left: -1, Right: -1, Value: -0.6},
				},
				Stats: stats(3),
			},
		},
	}
}

func stats(n int) []xgb.NodeStat {
	out := make([]xgb.NodeStat, n)
	for i := range out {
		out[i] = xgb.NodeStat{SumHessian: float32(n - i), BaseWeight: 0.1 * float32(i)}
	}
	return out
}

// WriteBinary writes m in the legacy binary format to name inside dir and
// returns the full path.
func WriteBinary(t testing.TB, dir, name string, m *xgb.Model) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, xgb.WriteLegacy(f, m))
	return path
}

// WriteJSON writes m in the JSON format to name inside dir and returns the
// full path.
func WriteJSON(t testing.TB, dir, name string, m *xgb.Model) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, xgb.EncodeJSON(f, m))
	return path
}
