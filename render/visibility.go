package render

import (
	"github.com/pointview/pointview/frustum"
	"github.com/pointview/pointview/spatialtree"
)

// collectVisibleNodes descends the tree against the frustum and appends the
// ids of nodes whose whole subtree is visible: fully inside nodes and
// visible leaves. Outside subtrees are pruned; partial internal nodes
// recurse. The resulting list covers each visible point exactly once.
func collectVisibleNodes(tree *spatialtree.Tree, f frustum.Frustum, id spatialtree.NodeID, out []spatialtree.NodeID) []spatialtree.NodeID {
	minV, maxV := tree.NodeBounds(id)
	switch f.Classify(minV, maxV) {
	case frustum.Outside:
		return out
	case frustum.Inside:
		return append(out, id)
	default:
		if tree.IsLeaf(id) {
			return append(out, id)
		}
		for _, c := range tree.Children(id) {
			out = collectVisibleNodes(tree, f, c, out)
		}
		return out
	}
}

// visiblePointCount sums the points beneath a visible node list.
func visiblePointCount(tree *spatialtree.Tree, nodes []spatialtree.NodeID) int {
	total := 0
	for _, id := range nodes {
		total += tree.NodePointCount(id)
	}
	return total
}

// nodeLevelIndices returns the level-local indices of a node's points for a
// reduced level, building and caching the attachment on first use. The side
// table keyed by (node, level) keeps the tree itself immutable.
func (idx *dimensionIndex) nodeLevelIndices(node spatialtree.NodeID, ordinal, n int) []uint32 {
	key := attachKey{node: node, ordinal: ordinal}
	if cached, ok := idx.attachments[key]; ok {
		return cached
	}
	localOf := idx.levelLocalIndex(ordinal, n)
	var locals []uint32
	for _, orig := range idx.tree.NodeIndices(node) {
		if local := localOf[orig]; local >= 0 {
			locals = append(locals, uint32(local))
		}
	}
	idx.attachments[key] = locals
	return locals
}

// emitIndices materializes the index buffer for a visible node list at a
// level. For the full-detail level the emitted indices are original point
// indices; for reduced levels they are level-local, ready for the backend's
// index draw against the level's geometry. The returned count is the number
// of visible candidate points; when buf comes back nil the caller should
// draw the whole candidate set.
func (idx *dimensionIndex) emitIndices(nodes []spatialtree.NodeID, ordinal, n int, drawAllFraction float64, buf []uint32) (out []uint32, visible int) {
	lv := &idx.levels[ordinal]

	if lv.IsFullDetail {
		visible = visiblePointCount(idx.tree, nodes)
		if float64(visible) > drawAllFraction*float64(n) {
			return nil, visible
		}
		out = buf
		for _, id := range nodes {
			out = append(out, idx.tree.NodeIndices(id)...)
		}
		return out, visible
	}

	for _, id := range nodes {
		visible += len(idx.nodeLevelIndices(id, ordinal, n))
	}
	if float64(visible) > drawAllFraction*float64(lv.PointCount) {
		return nil, visible
	}
	out = buf
	for _, id := range nodes {
		out = append(out, idx.nodeLevelIndices(id, ordinal, n)...)
	}
	return out, visible
}
