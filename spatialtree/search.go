package spatialtree

import (
	"github.com/golang/geo/r3"

	"github.com/pointview/pointview/pointcloud"
)

// RadiusSearch returns the original indices of every point within radius of
// center, pruning subtrees whose boxes are farther than radius.
func (t *Tree) RadiusSearch(ps *pointcloud.PointSet, center r3.Vector, radius float64) []uint32 {
	if radius <= 0 || len(t.nodes) == 0 {
		return nil
	}
	var out []uint32
	r2 := radius * radius
	t.radiusSearch(ps, 0, center, r2, &out)
	return out
}

func (t *Tree) radiusSearch(ps *pointcloud.PointSet, id NodeID, center r3.Vector, r2 float64, out *[]uint32) {
	nd := &t.nodes[id]
	if boxDistSq(nd.min, nd.max, center) > r2 {
		return
	}
	if nd.kind == internalNode {
		for _, c := range t.Children(id) {
			t.radiusSearch(ps, c, center, r2, out)
		}
		return
	}
	pos := ps.Positions()
	for _, pi := range t.LeafIndices(id) {
		dx := float64(pos[pi*3]) - center.X
		dy := float64(pos[pi*3+1]) - center.Y
		dz := float64(pos[pi*3+2]) - center.Z
		if dx*dx+dy*dy+dz*dz <= r2 {
			*out = append(*out, pi)
		}
	}
}

// boxDistSq is the squared distance from p to the closest point of the box.
func boxDistSq(minV, maxV, p r3.Vector) float64 {
	d := 0.0
	d += axisDistSq(p.X, minV.X, maxV.X)
	d += axisDistSq(p.Y, minV.Y, maxV.Y)
	d += axisDistSq(p.Z, minV.Z, maxV.Z)
	return d
}

func axisDistSq(v, lo, hi float64) float64 {
	if v < lo {
		return (lo - v) * (lo - v)
	}
	if v > hi {
		return (v - hi) * (v - hi)
	}
	return 0
}
