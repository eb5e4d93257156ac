// Package spatialtree implements a dimension-adaptive spatial index over a
// point set: a binary, quad, or oct tree depending on the declared dimension
// level of the data. The tree partitions point indices, not point storage,
// and is immutable once built.
package spatialtree

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/pointview/pointview/pointcloud"
)

// Default construction limits. A leaf holds at most DefaultMaxPointsPerNode
// indices unless DefaultMaxDepth stops the subdivision first.
const (
	DefaultMaxPointsPerNode = 1000
	DefaultMaxDepth         = 20
)

type nodeKind uint8

const (
	leafNode nodeKind = iota
	internalNode
)

// node is a tagged union: a leaf owns a contiguous range of the shared index
// arena, an internal node owns 2^d children.
type node struct {
	min, max r3.Vector
	kind     nodeKind

	// [start, start+count) into Tree.indices. Leaves own their range
	// directly; internal nodes cover the union of their children, which is
	// contiguous because leaves are emitted in depth-first order.
	start int32
	count int32

	// internal: child node ids, first childCount entries valid.
	children [8]NodeID
}

// NodeID addresses a node within the tree's arena.
type NodeID int32

// Tree is a spatial index over a PointSet. The shape of the tree depends on
// the dimension level: 1D data splits only along X, 2D along X and Y, 3D
// along all three axes. Axes that are not split inherit the parent's full
// range, which keeps culling correct for reduced-dimensional data.
type Tree struct {
	logger           golog.Logger
	dimensionLevel   int
	maxPointsPerNode int
	maxDepth         int
	pointCount       int
	bounds           pointcloud.Bounds
	nodes            []node
	indices          []uint32
	leafCount        int
}

// ClampDimensionLevel restricts a declared dimension level to the supported
// [1, 3] range.
func ClampDimensionLevel(d int) int {
	if d < 1 {
		return 1
	}
	if d > 3 {
		return 3
	}
	return d
}

// Build constructs the tree for ps at the given dimension level. It computes
// the padded bounds itself; use BuildWithBounds to share an already computed
// box.
func Build(ps *pointcloud.PointSet, dimensionLevel, maxPointsPerNode, maxDepth int, logger golog.Logger) (*Tree, error) {
	return BuildWithBounds(ps, pointcloud.CalculateBounds(ps), dimensionLevel, maxPointsPerNode, maxDepth, logger)
}

// BuildWithBounds constructs the tree using the supplied padded bounds.
func BuildWithBounds(ps *pointcloud.PointSet, bounds pointcloud.Bounds, dimensionLevel, maxPointsPerNode, maxDepth int, logger golog.Logger) (*Tree, error) {
	if ps == nil {
		return nil, errors.New("cannot build a spatial tree without a point set")
	}
	if maxPointsPerNode <= 0 {
		maxPointsPerNode = DefaultMaxPointsPerNode
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	n := ps.Size()
	t := &Tree{
		logger:           logger,
		dimensionLevel:   ClampDimensionLevel(dimensionLevel),
		maxPointsPerNode: maxPointsPerNode,
		maxDepth:         maxDepth,
		pointCount:       n,
		bounds:           bounds,
		nodes:            make([]node, 0, estimateNodeCount(n, maxPointsPerNode)),
		indices:          make([]uint32, 0, n),
	}

	all := make([]uint32, n)
	for i := range all {
		all[i] = uint32(i)
	}
	t.subdivide(ps, all, bounds.Min, bounds.Max, 0)

	if err := t.ValidatePointCount(); err != nil {
		return nil, err
	}
	return t, nil
}

func estimateNodeCount(n, maxPointsPerNode int) int {
	if n == 0 {
		return 1
	}
	// Leaves plus interior overhead.
	return 2*(n/maxPointsPerNode) + 8
}

// subdivide appends the subtree for idx to the arena and returns its root id.
func (t *Tree) subdivide(ps *pointcloud.PointSet, idx []uint32, minV, maxV r3.Vector, depth int) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{min: minV, max: maxV})

	if len(idx) <= t.maxPointsPerNode || depth >= t.maxDepth {
		start := int32(len(t.indices))
		t.indices = append(t.indices, idx...)
		t.nodes[id].kind = leafNode
		t.nodes[id].start = start
		t.nodes[id].count = int32(len(idx))
		t.leafCount++
		return id
	}

	d := t.dimensionLevel
	childCount := 1 << d
	mid := minV.Add(maxV).Mul(0.5)
	pos := ps.Positions()

	// Child of a point: one bit per split axis, compared against the
	// midpoint. Zero-extent axes place everything in one branch, which the
	// depth limit resolves.
	childOf := func(pi uint32) int {
		c := sideOf(float64(pos[pi*3]), mid.X)
		if d > 1 {
			c |= sideOf(float64(pos[pi*3+1]), mid.Y) << 1
		}
		if d > 2 {
			c |= sideOf(float64(pos[pi*3+2]), mid.Z) << 2
		}
		return c
	}

	// Two passes: size the buckets, then fill them, so no bucket ever
	// reallocates mid-distribution.
	var counts [8]int
	for _, pi := range idx {
		counts[childOf(pi)]++
	}
	var buckets [8][]uint32
	for c := 0; c < childCount; c++ {
		buckets[c] = make([]uint32, 0, counts[c])
	}
	for _, pi := range idx {
		c := childOf(pi)
		buckets[c] = append(buckets[c], pi)
	}

	t.nodes[id].kind = internalNode
	t.nodes[id].start = int32(len(t.indices))
	for c := 0; c < childCount; c++ {
		cMin, cMax := minV, maxV
		if c&1 == 0 {
			cMax.X = mid.X
		} else {
			cMin.X = mid.X
		}
		if d > 1 {
			if c&2 == 0 {
				cMax.Y = mid.Y
			} else {
				cMin.Y = mid.Y
			}
		}
		if d > 2 {
			if c&4 == 0 {
				cMax.Z = mid.Z
			} else {
				cMin.Z = mid.Z
			}
		}
		child := t.subdivide(ps, buckets[c], cMin, cMax, depth+1)
		t.nodes[id].children[c] = child
	}
	t.nodes[id].count = int32(len(t.indices)) - t.nodes[id].start
	return id
}

func sideOf(v, mid float64) int {
	if v >= mid {
		return 1
	}
	return 0
}

// ValidatePointCount checks the integrity of the index partition: the leaf
// counts must sum to the source point count. A mismatch indicates a
// construction bug and is not recoverable.
func (t *Tree) ValidatePointCount() error {
	total := 0
	for i := range t.nodes {
		if t.nodes[i].kind == leafNode {
			total += int(t.nodes[i].count)
		}
	}
	if total != t.pointCount {
		err := errors.Errorf("spatial tree holds %d points, source has %d", total, t.pointCount)
		if t.logger != nil {
			t.logger.Error(err)
		}
		return err
	}
	return nil
}

// Size returns the number of indexed points.
func (t *Tree) Size() int {
	return t.pointCount
}

// DimensionLevel returns the clamped dimension level the tree was built at.
func (t *Tree) DimensionLevel() int {
	return t.dimensionLevel
}

// Bounds returns the padded bounds the tree was built against.
func (t *Tree) Bounds() pointcloud.Bounds {
	return t.bounds
}

// NodeCount returns the total number of arena nodes.
func (t *Tree) NodeCount() int {
	return len(t.nodes)
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	return t.leafCount
}

// Root returns the id of the root node.
func (t *Tree) Root() NodeID {
	return 0
}

// IsLeaf reports whether id addresses a leaf.
func (t *Tree) IsLeaf(id NodeID) bool {
	return t.nodes[id].kind == leafNode
}

// NodeBounds returns the (split-axis partitioned) box of a node.
func (t *Tree) NodeBounds(id NodeID) (minV, maxV r3.Vector) {
	return t.nodes[id].min, t.nodes[id].max
}

// LeafIndices returns the original point indices owned by a leaf. The slice
// aliases the tree's arena and must not be modified.
func (t *Tree) LeafIndices(id NodeID) []uint32 {
	nd := &t.nodes[id]
	return t.indices[nd.start : nd.start+nd.count]
}

// NodeIndices returns all original point indices beneath a node, leaf or
// internal, as one contiguous arena slice. Must not be modified.
func (t *Tree) NodeIndices(id NodeID) []uint32 {
	nd := &t.nodes[id]
	return t.indices[nd.start : nd.start+nd.count]
}

// NodePointCount returns the number of points beneath a node.
func (t *Tree) NodePointCount(id NodeID) int {
	return int(t.nodes[id].count)
}

// Children returns the child ids of an internal node.
func (t *Tree) Children(id NodeID) []NodeID {
	return t.nodes[id].children[:1<<t.dimensionLevel]
}

// Walk visits every node depth-first, parents before children. Returning
// false from fn prunes the subtree below that node.
func (t *Tree) Walk(fn func(id NodeID) bool) {
	if len(t.nodes) == 0 {
		return
	}
	t.walk(0, fn)
}

func (t *Tree) walk(id NodeID, fn func(id NodeID) bool) {
	if !fn(id) {
		return
	}
	if t.nodes[id].kind == internalNode {
		for _, c := range t.Children(id) {
			t.walk(c, fn)
		}
	}
}
