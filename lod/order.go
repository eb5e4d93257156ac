// Package lod derives multi-resolution detail levels from a spatial tree's
// point order and selects between them per frame.
//
// All reduced levels are prefixes of one hierarchical order, a permutation of
// the point indices sorted by bit-reversed space-filling code. Prefixes of
// that order are spatially uniform samples, so a coarser level is always a
// subset of a finer one and transitions never pop.
package lod

import (
	"math/bits"
	"sort"

	"github.com/pointview/pointview/pointcloud"
	"github.com/pointview/pointview/spatialtree"
)

// orderBitsPerAxis is the grid resolution used for the space-filling code.
const orderBitsPerAxis = 10

// BuildOrder computes the hierarchical order for the tree's point set: a
// permutation of [0, N) such that any prefix is a spatially well-distributed
// sample. It is computed once per (point set, dimension level) and cached by
// the caller.
func BuildOrder(tree *spatialtree.Tree, ps *pointcloud.PointSet) []uint32 {
	n := ps.Size()
	order := make([]uint32, n)
	if n == 0 {
		return order
	}

	d := tree.DimensionLevel()
	bounds := tree.Bounds()
	codeBits := uint(orderBitsPerAxis * d)
	ext := bounds.Extent()
	pos := ps.Positions()

	// Sorting by the bit-reversed code, rather than the code itself, is what
	// makes every prefix uniform: the reversal turns "nearby points share
	// high code bits" into "nearby points land far apart in the order".
	codes := make([]uint32, n)
	for i := 0; i < n; i++ {
		qx := quantize(float64(pos[i*3]), bounds.Min.X, ext.X)
		var code uint32
		switch d {
		case 1:
			code = qx
		case 2:
			qy := quantize(float64(pos[i*3+1]), bounds.Min.Y, ext.Y)
			code = expand2(qx) | expand2(qy)<<1
		default:
			qy := quantize(float64(pos[i*3+1]), bounds.Min.Y, ext.Y)
			qz := quantize(float64(pos[i*3+2]), bounds.Min.Z, ext.Z)
			code = expand3(qx) | expand3(qy)<<1 | expand3(qz)<<2
		}
		codes[i] = bits.Reverse32(code) >> (32 - codeBits)
		order[i] = uint32(i)
	}

	sort.Slice(order, func(a, b int) bool {
		ca, cb := codes[order[a]], codes[order[b]]
		if ca != cb {
			return ca < cb
		}
		return order[a] < order[b]
	})
	return order
}

// quantize maps v into the [0, 1023] grid relative to the axis range.
func quantize(v, lo, extent float64) uint32 {
	if extent <= 0 {
		return 0
	}
	q := int((v - lo) / extent * float64(1<<orderBitsPerAxis))
	if q < 0 {
		q = 0
	}
	if q > (1<<orderBitsPerAxis)-1 {
		q = (1 << orderBitsPerAxis) - 1
	}
	return uint32(q)
}

// expand2 spreads the low 10 bits of v apart by one zero bit each.
func expand2(v uint32) uint32 {
	v = (v | v<<8) & 0x00FF00FF
	v = (v | v<<4) & 0x0F0F0F0F
	v = (v | v<<2) & 0x33333333
	v = (v | v<<1) & 0x55555555
	return v
}

// expand3 spreads the low 10 bits of v apart by two zero bits each.
func expand3(v uint32) uint32 {
	v = (v | v<<16) & 0x030000FF
	v = (v | v<<8) & 0x0300F00F
	v = (v | v<<4) & 0x030C30C3
	v = (v | v<<2) & 0x09249249
	return v
}
