package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// Padding policy. An axis whose extent is below flatAxisRatio of the largest
// axis extent is considered flat (lower-dimensional data embedded in three
// coordinates) and is padded far more aggressively so that frustum math stays
// numerically stable along it.
const (
	flatAxisRatio   = 0.01
	flatAxisPadding = 0.5
	normalPadding   = 0.001
)

// Bounds is a padded axis-aligned bounding box. Min and Max include the
// applied padding; Padding records the per-axis amount applied.
type Bounds struct {
	Min     r3.Vector
	Max     r3.Vector
	Padding r3.Vector
}

// CalculateBounds computes the padded bounding box of a point set in one
// pass. An empty set yields a unit box at the origin.
func CalculateBounds(ps *PointSet) Bounds {
	n := ps.Size()
	if n == 0 {
		return Bounds{
			Min: r3.Vector{X: -0.5, Y: -0.5, Z: -0.5},
			Max: r3.Vector{X: 0.5, Y: 0.5, Z: 0.5},
		}
	}

	pos := ps.Positions()
	minV := r3.Vector{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64}
	maxV := minV.Mul(-1)
	for i := 0; i < n; i++ {
		x := float64(pos[i*3])
		y := float64(pos[i*3+1])
		z := float64(pos[i*3+2])
		minV.X = math.Min(minV.X, x)
		minV.Y = math.Min(minV.Y, y)
		minV.Z = math.Min(minV.Z, z)
		maxV.X = math.Max(maxV.X, x)
		maxV.Y = math.Max(maxV.Y, y)
		maxV.Z = math.Max(maxV.Z, z)
	}

	extent := maxV.Sub(minV)
	largest := math.Max(extent.X, math.Max(extent.Y, extent.Z))
	if largest == 0 {
		// Single point, or all points coincident.
		largest = 1
	}

	pad := r3.Vector{
		X: axisPadding(extent.X, largest),
		Y: axisPadding(extent.Y, largest),
		Z: axisPadding(extent.Z, largest),
	}
	return Bounds{
		Min:     minV.Sub(pad),
		Max:     maxV.Add(pad),
		Padding: pad,
	}
}

func axisPadding(extent, largest float64) float64 {
	if extent < largest*flatAxisRatio {
		return largest * flatAxisPadding
	}
	return largest * normalPadding
}

// Center returns the midpoint of the padded box.
func (b Bounds) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extent returns the padded per-axis size of the box.
func (b Bounds) Extent() r3.Vector {
	return b.Max.Sub(b.Min)
}

// Contains reports whether p lies within the padded box.
func (b Bounds) Contains(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Diagonal returns the length of the data diagonal considering only the
// dimensionLevel largest axis extents, measured without padding. This makes
// scale normalization invariant to which physical axes carry the data.
func (b Bounds) Diagonal(dimensionLevel int) float64 {
	if dimensionLevel < 1 {
		dimensionLevel = 1
	}
	if dimensionLevel > 3 {
		dimensionLevel = 3
	}
	e := b.Extent().Sub(b.Padding.Mul(2))
	axes := []float64{e.X, e.Y, e.Z}
	// Largest first.
	if axes[0] < axes[1] {
		axes[0], axes[1] = axes[1], axes[0]
	}
	if axes[1] < axes[2] {
		axes[1], axes[2] = axes[2], axes[1]
	}
	if axes[0] < axes[1] {
		axes[0], axes[1] = axes[1], axes[0]
	}
	sum := 0.0
	for _, a := range axes[:dimensionLevel] {
		sum += a * a
	}
	return math.Sqrt(sum)
}
