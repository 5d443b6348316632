package xgb

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/abhisek/heartrisk/internal/schema"
)

// FormatVersion is the release recorded in JSON models written by EncodeJSON.
var FormatVersion = Version{1, 7, 0}

// minJSONVersion is the first release with the JSON model format.
const minJSONVersion = "v1.0.0"

// jsonRootParent marks the root's parent in JSON trees.
const jsonRootParent = int32(2147483647)

//go:embed model.schema.json
var modelSchema []byte

type jsonDoc struct {
	Learner jsonLearner `json:"learner"`
	Version []int       `json:"version"`
}

type jsonLearner struct {
	Attributes        map[string]string `json:"attributes"`
	FeatureNames      []string          `json:"feature_names"`
	FeatureTypes      []string          `json:"feature_types"`
	GradientBooster   jsonBooster       `json:"gradient_booster"`
	LearnerModelParam jsonLearnerParam  `json:"learner_model_param"`
	Objective         jsonObjective     `json:"objective"`
}

type jsonBooster struct {
	Model jsonGBTree `json:"model"`
	Name  string     `json:"name"`
}

type jsonGBTree struct {
	Param    jsonGBTreeParam `json:"gbtree_model_param"`
	TreeInfo []int32         `json:"tree_info"`
	Trees    []jsonTree      `json:"trees"`
}

type jsonGBTreeParam struct {
	NumParallelTree string `json:"num_parallel_tree"`
	NumTrees        string `json:"num_trees"`
}

type jsonLearnerParam struct {
	BaseScore        string `json:"base_score"`
	BoostFromAverage string `json:"boost_from_average,omitempty"`
	NumClass         string `json:"num_class"`
	NumFeature       string `json:"num_feature"`
	NumTarget        string `json:"num_target,omitempty"`
}

type jsonObjective struct {
	Name         string            `json:"name"`
	RegLossParam *jsonRegLossParam `json:"reg_loss_param,omitempty"`
}

type jsonRegLossParam struct {
	ScalePosWeight string `json:"scale_pos_weight"`
}

type jsonTree struct {
	BaseWeights        []float32     `json:"base_weights"`
	Categories         []int         `json:"categories"`
	CategoriesNodes    []int         `json:"categories_nodes"`
	CategoriesSegments []int64       `json:"categories_segments"`
	CategoriesSizes    []int64       `json:"categories_sizes"`
	DefaultLeft        flags         `json:"default_left"`
	ID                 int           `json:"id"`
	LeftChildren       []int32       `json:"left_children"`
	LossChanges        []float32     `json:"loss_changes"`
	Parents            []int32       `json:"parents"`
	RightChildren      []int32       `json:"right_children"`
	SplitConditions    []float32     `json:"split_conditions"`
	SplitIndices       []uint32      `json:"split_indices"`
	SplitType          []int         `json:"split_type"`
	SumHessian         []float32     `json:"sum_hessian"`
	TreeParam          jsonTreeParam `json:"tree_param"`
}

type jsonTreeParam struct {
	NumDeleted     string `json:"num_deleted"`
	NumFeature     string `json:"num_feature"`
	NumNodes       string `json:"num_nodes"`
	SizeLeafVector string `json:"size_leaf_vector"`
}

// flags is a per-node boolean array. XGBoost writes it as 0/1 integers;
// booleans are accepted on input.
type flags []bool

func (f flags) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(f))
	for i, b := range f {
		if b {
			ints[i] = 1
		}
	}
	return json.Marshal(ints)
}

func (f *flags) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(flags, len(raw))
	for i, r := range raw {
		switch s := strings.TrimSpace(string(r)); s {
		case "true", "1":
			out[i] = true
		case "false", "0":
		default:
			return fmt.Errorf("default_left[%d]: unexpected value %s", i, s)
		}
	}
	*f = out
	return nil
}

// EncodeJSON writes m in XGBoost's JSON model format. Map keys are sorted,
// so equal models encode to identical bytes.
func EncodeJSON(w io.Writer, m *Model) error {
	doc := jsonDoc{
		Learner: jsonLearner{
			Attributes:   map[string]string{},
			FeatureNames: []string{},
			FeatureTypes: []string{},
			GradientBooster: jsonBooster{
				Name: m.Booster,
				Model: jsonGBTree{
					Param: jsonGBTreeParam{
						NumParallelTree: "1",
						NumTrees:        strconv.Itoa(len(m.Trees)),
					},
					TreeInfo: make([]int32, len(m.Trees)),
					Trees:    make([]jsonTree, len(m.Trees)),
				},
			},
			LearnerModelParam: jsonLearnerParam{
				BaseScore:        strconv.FormatFloat(float64(m.BaseScore), 'E', -1, 32),
				BoostFromAverage: "1",
				NumClass:         strconv.Itoa(m.NumClass),
				NumFeature:       strconv.Itoa(m.NumFeature),
				NumTarget:        "1",
			},
			Objective: jsonObjective{
				Name:         m.Objective,
				RegLossParam: &jsonRegLossParam{ScalePosWeight: "1"},
			},
		},
		Version: FormatVersion[:],
	}
	for k, v := range m.Attributes {
		doc.Learner.Attributes[k] = v
	}
	if len(m.FeatureNames) > 0 {
		doc.Learner.FeatureNames = append(doc.Learner.FeatureNames, m.FeatureNames...)
		for range m.FeatureNames {
			doc.Learner.FeatureTypes = append(doc.Learner.FeatureTypes, "float")
		}
	}
	copy(doc.Learner.GradientBooster.Model.TreeInfo, m.TreeInfo)
	for i, t := range m.Trees {
		doc.Learner.GradientBooster.Model.Trees[i] = encodeTree(i, t)
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json model: %w", err)
	}
	return nil
}

func encodeTree(id int, t Tree) jsonTree {
	n := len(t.Nodes)
	jt := jsonTree{
		BaseWeights:        make([]float32, n),
		Categories:         []int{},
		CategoriesNodes:    []int{},
		CategoriesSegments: []int64{},
		CategoriesSizes:    []int64{},
		DefaultLeft:        make(flags, n),
		ID:                 id,
		LeftChildren:       make([]int32, n),
		LossChanges:        make([]float32, n),
		Parents:            make([]int32, n),
		RightChildren:      make([]int32, n),
		SplitConditions:    make([]float32, n),
		SplitIndices:       make([]uint32, n),
		SplitType:          make([]int, n),
		SumHessian:         make([]float32, n),
		TreeParam: jsonTreeParam{
			NumDeleted:     "0",
			NumFeature:     strconv.Itoa(t.NumFeature),
			NumNodes:       strconv.Itoa(n),
			SizeLeafVector: "0",
		},
	}
	for i, node := range t.Nodes {
		parent := node.Parent
		if parent < 0 {
			parent = jsonRootParent
		}
		jt.Parents[i] = parent
		jt.LeftChildren[i] = node.Left
		jt.RightChildren[i] = node.Right
		jt.SplitIndices[i] = node.SplitIndex
		jt.SplitConditions[i] = node.Value
		jt.DefaultLeft[i] = node.DefaultLeft
		if i < len(t.Stats) {
			jt.BaseWeights[i] = t.Stats[i].BaseWeight
			jt.LossChanges[i] = t.Stats[i].LossChange
			jt.SumHessian[i] = t.Stats[i].SumHessian
		}
	}
	return jt
}

// DecodeJSON reads a model in XGBoost's JSON format. Documents are checked
// against the embedded model schema, and models written before the JSON
// format existed are rejected.
func DecodeJSON(r io.Reader) (*Model, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json model: %w", err)
	}
	if err := schema.Validate("xgboost-model", modelSchema, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var doc jsonDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var v Version
	copy(v[:], doc.Version)
	if semver.Compare(v.String(), minJSONVersion) < 0 {
		return nil, fmt.Errorf("%w: json model version %s", ErrUnsupported, v)
	}

	lp := doc.Learner.LearnerModelParam
	base, err := parseBaseScore(lp.BaseScore)
	if err != nil {
		return nil, err
	}
	numFeature, err := parseIntParam("num_feature", lp.NumFeature)
	if err != nil {
		return nil, err
	}
	numClass, err := parseIntParam("num_class", lp.NumClass)
	if err != nil {
		return nil, err
	}

	gb := doc.Learner.GradientBooster
	m := &Model{
		BaseScore:    base,
		NumFeature:   numFeature,
		NumClass:     numClass,
		Objective:    doc.Learner.Objective.Name,
		Booster:      gb.Name,
		TreeInfo:     gb.Model.TreeInfo,
		FeatureNames: doc.Learner.FeatureNames,
		Version:      v,
	}
	if len(doc.Learner.Attributes) > 0 {
		m.Attributes = doc.Learner.Attributes
	}
	for i, jt := range gb.Model.Trees {
		t, err := decodeTree(jt)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.Trees = append(m.Trees, t)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeTree(jt jsonTree) (Tree, error) {
	n := len(jt.LeftChildren)
	for name, l := range map[string]int{
		"right_children":   len(jt.RightChildren),
		"parents":          len(jt.Parents),
		"split_indices":    len(jt.SplitIndices),
		"split_conditions": len(jt.SplitConditions),
		"default_left":     len(jt.DefaultLeft),
	} {
		if l != n {
			return Tree{}, fmt.Errorf("%w: %s has %d entries for %d nodes", ErrCorrupt, name, l, n)
		}
	}
	for _, st := range jt.SplitType {
		if st != 0 {
			return Tree{}, fmt.Errorf("%w: categorical splits", ErrUnsupported)
		}
	}
	numFeature, err := parseIntParam("tree num_feature", jt.TreeParam.NumFeature)
	if err != nil {
		return Tree{}, err
	}

	t := Tree{NumFeature: numFeature, Nodes: make([]Node, n)}
	for i := 0; i < n; i++ {
		parent := jt.Parents[i]
		if parent == jsonRootParent {
			parent = -1
		}
		t.Nodes[i] = Node{
			Parent:      parent,
			Left:        jt.LeftChildren[i],
			Right:       jt.RightChildren[i],
			SplitIndex:  jt.SplitIndices[i],
			DefaultLeft: jt.DefaultLeft[i],
			Value:       jt.SplitConditions[i],
		}
	}
	if len(jt.SumHessian) == n && len(jt.LossChanges) == n && len(jt.BaseWeights) == n {
		t.Stats = make([]NodeStat, n)
		for i := range t.Stats {
			t.Stats[i] = NodeStat{
				LossChange: jt.LossChanges[i],
				SumHessian: jt.SumHessian[i],
				BaseWeight: jt.BaseWeights[i],
			}
		}
	}
	return t, nil
}

// parseBaseScore accepts both "5E-1" and the bracketed "[5E-1]" newer
// releases write.
func parseBaseScore(s string) (float32, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "["), "]")
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: base_score %q", ErrCorrupt, s)
	}
	return float32(f), nil
}

func parseIntParam(name, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrCorrupt, name, s)
	}
	return n, nil
}
