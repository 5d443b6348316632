package xgb

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// legacyMagic optionally prefixes legacy binary files.
const legacyMagic = "binf"

// Upper bounds that keep a corrupt header from triggering huge allocations.
const (
	maxStringLen = 1 << 20
	maxTrees     = 1 << 20
	maxNodes     = 1 << 24
	maxAttrs     = 1 << 16
)

type learnerParam struct {
	BaseScore          float32
	NumFeature         uint32
	NumClass           int32
	ContainExtraAttrs  int32
	ContainEvalMetrics int32
	MajorVersion       uint32
	MinorVersion       uint32
	Reserved           [27]int32
}

type gbtreeParam struct {
	NumTrees       int32
	NumRoots       int32
	NumFeature     int32
	Pad            int32
	NumPbuffer     int64
	NumOutputGroup int32
	SizeLeafVector int32
	Reserved       [32]int32
}

type treeParam struct {
	NumRoots       int32
	NumNodes       int32
	NumDeleted     int32
	MaxDepth       int32
	NumFeature     int32
	SizeLeafVector int32
	Reserved       [31]int32
}

type rawNode struct {
	Parent int32
	Left   int32
	Right  int32
	SIndex uint32
	Info   float32
}

type rawStat struct {
	LossChg      float32
	SumHess      float32
	BaseWeight   float32
	LeafChildCnt int32
}

const (
	defaultLeftBit = uint32(1) << 31
	leftChildBit   = uint32(1) << 31
	indexMask      = uint32(1)<<31 - 1
)

// ReadLegacy decodes a model in XGBoost's legacy binary format. The
// returned BaseScore is in output space whatever release wrote the file.
func ReadLegacy(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(len(legacyMagic)); err == nil && string(magic) == legacyMagic {
		if _, err := br.Discard(len(legacyMagic)); err != nil {
			return nil, err
		}
	}

	lr := &legacyReader{r: br}

	var lp learnerParam
	lr.read(&lp)
	objective := lr.string()
	booster := lr.string()
	if lr.err != nil {
		return nil, lr.fail("header")
	}
	if booster != "gbtree" {
		return nil, fmt.Errorf("%w: booster %q", ErrUnsupported, booster)
	}

	var gp gbtreeParam
	lr.read(&gp)
	if lr.err != nil {
		return nil, lr.fail("gbtree header")
	}
	if gp.NumTrees < 0 || gp.NumTrees > maxTrees {
		return nil, fmt.Errorf("%w: %d trees", ErrCorrupt, gp.NumTrees)
	}
	if gp.NumRoots != 1 {
		return nil, fmt.Errorf("%w: %d roots per tree", ErrUnsupported, gp.NumRoots)
	}

	base := float64(lp.BaseScore)
	if lp.MajorVersion < 1 {
		var err error
		if base, err = baseFromMargin(objective, base); err != nil {
			return nil, err
		}
	}

	m := &Model{
		BaseScore:  float32(base),
		NumFeature: int(lp.NumFeature),
		NumClass:   int(lp.NumClass),
		Objective:  objective,
		Booster:    booster,
		Trees:      make([]Tree, 0, gp.NumTrees),
		Version:    Version{int(lp.MajorVersion), int(lp.MinorVersion), 0},
	}

	for i := int32(0); i < gp.NumTrees; i++ {
		t, err := lr.tree()
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.Trees = append(m.Trees, t)
	}

	if gp.NumTrees > 0 {
		m.TreeInfo = make([]int32, gp.NumTrees)
		lr.read(m.TreeInfo)
		if lr.err != nil {
			return nil, lr.fail("tree info")
		}
	}

	if lp.ContainExtraAttrs != 0 {
		n := lr.uint64()
		if lr.err == nil && n > maxAttrs {
			return nil, fmt.Errorf("%w: %d attributes", ErrCorrupt, n)
		}
		m.Attributes = make(map[string]string, n)
		for i := uint64(0); i < n && lr.err == nil; i++ {
			k := lr.string()
			v := lr.string()
			m.Attributes[k] = v
		}
		if lr.err != nil {
			return nil, lr.fail("attributes")
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteLegacy encodes m in XGBoost's legacy binary format, without the
// optional magic prefix. Attributes are written in key order.
func WriteLegacy(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	lw := &legacyWriter{w: bw}

	base, err := m.LegacyBaseScore()
	if err != nil {
		return err
	}
	lp := learnerParam{
		BaseScore:    base,
		NumFeature:   uint32(m.NumFeature),
		NumClass:     int32(m.NumClass),
		MajorVersion: uint32(m.Version[0]),
		MinorVersion: uint32(m.Version[1]),
	}
	if len(m.Attributes) > 0 {
		lp.ContainExtraAttrs = 1
	}
	lw.write(&lp)
	lw.string(m.Objective)
	lw.string(m.Booster)

	lw.write(&gbtreeParam{
		NumTrees:       int32(len(m.Trees)),
		NumRoots:       1,
		NumFeature:     int32(m.NumFeature),
		NumOutputGroup: 1,
	})

	for _, t := range m.Trees {
		lw.tree(t)
	}

	if len(m.Trees) > 0 {
		info := m.TreeInfo
		if len(info) == 0 {
			info = make([]int32, len(m.Trees))
		}
		lw.write(info)
	}

	if len(m.Attributes) > 0 {
		keys := make([]string, 0, len(m.Attributes))
		for k := range m.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lw.write(uint64(len(keys)))
		for _, k := range keys {
			lw.string(k)
			lw.string(m.Attributes[k])
		}
	}

	if lw.err != nil {
		return fmt.Errorf("write legacy model: %w", lw.err)
	}
	return bw.Flush()
}

type legacyReader struct {
	r   io.Reader
	err error
}

func (lr *legacyReader) read(v any) {
	if lr.err != nil {
		return
	}
	lr.err = binary.Read(lr.r, binary.LittleEndian, v)
}

func (lr *legacyReader) uint64() uint64 {
	var n uint64
	lr.read(&n)
	return n
}

func (lr *legacyReader) string() string {
	n := lr.uint64()
	if lr.err != nil {
		return ""
	}
	if n > maxStringLen {
		lr.err = fmt.Errorf("%w: string of %d bytes", ErrCorrupt, n)
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(lr.r, buf); err != nil {
		lr.err = err
		return ""
	}
	return string(buf)
}

func (lr *legacyReader) tree() (Tree, error) {
	var tp treeParam
	lr.read(&tp)
	if lr.err != nil {
		return Tree{}, lr.fail("tree header")
	}
	if tp.NumRoots != 1 {
		return Tree{}, fmt.Errorf("%w: %d roots", ErrUnsupported, tp.NumRoots)
	}
	if tp.NumNodes <= 0 || tp.NumNodes > maxNodes {
		return Tree{}, fmt.Errorf("%w: %d nodes", ErrCorrupt, tp.NumNodes)
	}
	if tp.SizeLeafVector != 0 {
		return Tree{}, fmt.Errorf("%w: leaf vectors", ErrUnsupported)
	}

	raw := make([]rawNode, tp.NumNodes)
	stats := make([]rawStat, tp.NumNodes)
	lr.read(raw)
	lr.read(stats)
	if lr.err != nil {
		return Tree{}, lr.fail("tree nodes")
	}

	t := Tree{
		NumFeature: int(tp.NumFeature),
		Nodes:      make([]Node, len(raw)),
		Stats:      make([]NodeStat, len(stats)),
	}
	for i, rn := range raw {
		parent := int32(-1)
		if rn.Parent != -1 {
			parent = int32(uint32(rn.Parent) & indexMask)
		}
		t.Nodes[i] = Node{
			Parent:      parent,
			Left:        rn.Left,
			Right:       rn.Right,
			SplitIndex:  rn.SIndex & indexMask,
			DefaultLeft: rn.SIndex&defaultLeftBit != 0,
			Value:       rn.Info,
		}
	}
	for i, rs := range stats {
		t.Stats[i] = NodeStat{
			LossChange:   rs.LossChg,
			SumHessian:   rs.SumHess,
			BaseWeight:   rs.BaseWeight,
			LeafChildCnt: rs.LeafChildCnt,
		}
	}
	return t, nil
}

// fail wraps the pending read error with the section being decoded.
func (lr *legacyReader) fail(section string) error {
	if errors.Is(lr.err, io.EOF) || errors.Is(lr.err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrCorrupt, section)
	}
	return fmt.Errorf("read %s: %w", section, lr.err)
}

type legacyWriter struct {
	w   io.Writer
	err error
}

func (lw *legacyWriter) write(v any) {
	if lw.err != nil {
		return
	}
	lw.err = binary.Write(lw.w, binary.LittleEndian, v)
}

func (lw *legacyWriter) string(s string) {
	lw.write(uint64(len(s)))
	if lw.err != nil {
		return
	}
	_, lw.err = io.WriteString(lw.w, s)
}

func (lw *legacyWriter) tree(t Tree) {
	lw.write(&treeParam{
		NumRoots:   1,
		NumNodes:   int32(len(t.Nodes)),
		NumFeature: int32(t.NumFeature),
	})

	raw := make([]rawNode, len(t.Nodes))
	for i, n := range t.Nodes {
		parent := int32(-1)
		if n.Parent >= 0 {
			p := uint32(n.Parent)
			if t.Nodes[n.Parent].Left == int32(i) {
				p |= leftChildBit
			}
			parent = int32(p)
		}
		sindex := n.SplitIndex & indexMask
		if n.DefaultLeft {
			sindex |= defaultLeftBit
		}
		raw[i] = rawNode{Parent: parent, Left: n.Left, Right: n.Right, SIndex: sindex, Info: n.Value}
	}
	lw.write(raw)

	stats := make([]rawStat, len(t.Nodes))
	for i := range stats {
		if i < len(t.Stats) {
			s := t.Stats[i]
			stats[i] = rawStat{LossChg: s.LossChange, SumHess: s.SumHessian, BaseWeight: s.BaseWeight, LeafChildCnt: s.LeafChildCnt}
		}
	}
	lw.write(stats)
}
