// Package frustum extracts view frustum planes from an MVP matrix and
// classifies axis-aligned boxes against them.
package frustum

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"

	"github.com/pointview/pointview/pointcloud"
)

// Margin fractions of the scene diagonal applied when expanding the planes
// outward. They absorb floating-point edge cases at node boundaries without
// perceptibly enlarging the visible region. Near/far planes get a larger
// margin than the side planes because depth precision is worse there.
const (
	sideMarginFraction    = 0.005
	nearFarMarginFraction = 0.02
)

// Classification is the result of testing a box against the frustum.
type Classification int

const (
	// Outside means at least one plane fully excludes the box.
	Outside Classification = iota
	// Inside means every plane fully includes the box.
	Inside
	// Partial means the box straddles at least one plane.
	Partial
)

// Plane is a normalized half-space: Normal·p + Offset >= 0 on the visible
// side.
type Plane struct {
	Normal r3.Vector
	Offset float64
}

// DistanceTo returns the signed distance from p to the plane; positive is
// the visible side.
func (pl Plane) DistanceTo(p r3.Vector) float64 {
	return pl.Normal.Dot(p) + pl.Offset
}

// Frustum is the six clip planes of a view volume, in left, right, bottom,
// top, near, far order.
type Frustum [6]Plane

// Extract derives the six planes from an MVP matrix (Gribb/Hartmann row
// combinations), normalizes them, and expands each outward by a scene-scale
// margin derived from bounds.
func Extract(mvp mgl64.Mat4, bounds pointcloud.Bounds) Frustum {
	row := func(i int) [4]float64 {
		return [4]float64{mvp.At(i, 0), mvp.At(i, 1), mvp.At(i, 2), mvp.At(i, 3)}
	}
	r0, r1, r2, r3v := row(0), row(1), row(2), row(3)

	scale := bounds.Extent().Norm()
	sideMargin := scale * sideMarginFraction
	depthMargin := scale * nearFarMarginFraction

	var f Frustum
	f[0] = normalizePlane(add4(r3v, r0), sideMargin)  // left
	f[1] = normalizePlane(sub4(r3v, r0), sideMargin)  // right
	f[2] = normalizePlane(add4(r3v, r1), sideMargin)  // bottom
	f[3] = normalizePlane(sub4(r3v, r1), sideMargin)  // top
	f[4] = normalizePlane(add4(r3v, r2), depthMargin) // near
	f[5] = normalizePlane(sub4(r3v, r2), depthMargin) // far
	return f
}

func add4(a, b [4]float64) [4]float64 {
	return [4]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func sub4(a, b [4]float64) [4]float64 {
	return [4]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func normalizePlane(v [4]float64, margin float64) Plane {
	l := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l == 0 {
		return Plane{Normal: r3.Vector{X: 0, Y: 0, Z: 1}, Offset: math.MaxFloat64}
	}
	return Plane{
		Normal: r3.Vector{X: v[0] / l, Y: v[1] / l, Z: v[2] / l},
		Offset: v[3]/l + margin,
	}
}

// Classify tests an axis-aligned box against the frustum using the
// positive/negative-vertex trick.
func (f Frustum) Classify(minV, maxV r3.Vector) Classification {
	result := Inside
	for i := range f {
		pl := &f[i]
		pv, nv := boxVertices(minV, maxV, pl.Normal)
		if pl.DistanceTo(pv) < 0 {
			return Outside
		}
		if pl.DistanceTo(nv) < 0 {
			result = Partial
		}
	}
	return result
}

// boxVertices returns the box corner most aligned with n (positive vertex)
// and its opposite (negative vertex).
func boxVertices(minV, maxV, n r3.Vector) (pv, nv r3.Vector) {
	pv, nv = maxV, minV
	if n.X < 0 {
		pv.X, nv.X = minV.X, maxV.X
	}
	if n.Y < 0 {
		pv.Y, nv.Y = minV.Y, maxV.Y
	}
	if n.Z < 0 {
		pv.Z, nv.Z = minV.Z, maxV.Z
	}
	return pv, nv
}
