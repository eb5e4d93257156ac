// Package pointcloud holds the immutable point storage consumed by the
// spatial index and the renderer: a flat position buffer with three
// coordinates per point and an optional packed RGBA color buffer.
//
// Lower-dimensional data is stored in the same three-coordinate layout with
// the unused axes near-constant; the dimension level is declared separately
// by the loader and interpreted by the spatial tree.
package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PointSet is an immutable collection of points. It is replaced wholesale on
// reload, never mutated in place.
type PointSet struct {
	positions []float32
	colors    []uint32
}

// NewPointSet wraps a flat position buffer (x, y, z per point) and an
// optional packed RGBA color buffer. Pass nil colors for uncolored data.
func NewPointSet(positions []float32, colors []uint32) (*PointSet, error) {
	if len(positions)%3 != 0 {
		return nil, errors.Errorf("position buffer length %d is not a multiple of 3", len(positions))
	}
	n := len(positions) / 3
	if colors != nil && len(colors) != n {
		return nil, errors.Errorf("have %d colors for %d points", len(colors), n)
	}
	return &PointSet{positions: positions, colors: colors}, nil
}

// Size returns the number of points in the set.
func (ps *PointSet) Size() int {
	return len(ps.positions) / 3
}

// At returns the position of point i.
func (ps *PointSet) At(i int) r3.Vector {
	return r3.Vector{
		X: float64(ps.positions[i*3]),
		Y: float64(ps.positions[i*3+1]),
		Z: float64(ps.positions[i*3+2]),
	}
}

// Positions exposes the raw position buffer. Callers must not modify it.
func (ps *PointSet) Positions() []float32 {
	return ps.positions
}

// HasColor reports whether the set carries per-point colors.
func (ps *PointSet) HasColor() bool {
	return ps.colors != nil
}

// Color returns the packed RGBA color of point i, or zero if the set is
// uncolored.
func (ps *PointSet) Color(i int) uint32 {
	if ps.colors == nil {
		return 0
	}
	return ps.colors[i]
}

// Colors exposes the raw color buffer. Callers must not modify it.
func (ps *PointSet) Colors() []uint32 {
	return ps.colors
}

// PackRGBA packs four 8-bit channels into the on-wire color word.
func PackRGBA(r, g, b, a uint8) uint32 {
	return uint32(r) | uint32(g)<<8 | uint32(b)<<16 | uint32(a)<<24
}

// UnpackRGBA splits a packed color word back into its channels.
func UnpackRGBA(c uint32) (r, g, b, a uint8) {
	return uint8(c), uint8(c >> 8), uint8(c >> 16), uint8(c >> 24)
}
