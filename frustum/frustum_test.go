package frustum

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/pointview/pointview/pointcloud"
)

func orthoMVP() mgl64.Mat4 {
	// Camera at the origin looking down -Z; visible volume is
	// x,y in [-1, 1], z in [-10, -0.1].
	proj := mgl64.Ortho(-1, 1, -1, 1, 0.1, 10)
	view := mgl64.LookAtV(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0})
	return proj.Mul4(view)
}

func smallBounds() pointcloud.Bounds {
	return pointcloud.Bounds{
		Min: r3.Vector{X: -1, Y: -1, Z: -1},
		Max: r3.Vector{X: 1, Y: 1, Z: 1},
	}
}

func TestClassify(t *testing.T) {
	f := Extract(orthoMVP(), smallBounds())

	t.Run("box fully inside the volume", func(t *testing.T) {
		got := f.Classify(r3.Vector{X: -0.5, Y: -0.5, Z: -5}, r3.Vector{X: 0.5, Y: 0.5, Z: -1})
		test.That(t, got, test.ShouldEqual, Inside)
	})

	t.Run("box fully outside one plane", func(t *testing.T) {
		got := f.Classify(r3.Vector{X: 2, Y: -0.5, Z: -5}, r3.Vector{X: 3, Y: 0.5, Z: -1})
		test.That(t, got, test.ShouldEqual, Outside)
	})

	t.Run("box behind the camera", func(t *testing.T) {
		got := f.Classify(r3.Vector{X: -0.5, Y: -0.5, Z: 1}, r3.Vector{X: 0.5, Y: 0.5, Z: 2})
		test.That(t, got, test.ShouldEqual, Outside)
	})

	t.Run("box straddling one side plane", func(t *testing.T) {
		got := f.Classify(r3.Vector{X: 0.5, Y: -0.5, Z: -5}, r3.Vector{X: 1.5, Y: 0.5, Z: -1})
		test.That(t, got, test.ShouldEqual, Partial)
	})
}

func TestClassifyPerspective(t *testing.T) {
	proj := mgl64.Perspective(mgl64.DegToRad(60), 1, 0.1, 100)
	view := mgl64.LookAtV(mgl64.Vec3{0.5, 0.5, 5}, mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0, 1, 0})
	f := Extract(proj.Mul4(view), smallBounds())

	t.Run("unit cube in front of camera is inside", func(t *testing.T) {
		got := f.Classify(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 1})
		test.That(t, got, test.ShouldEqual, Inside)
	})

	t.Run("distant off-axis box is outside", func(t *testing.T) {
		got := f.Classify(r3.Vector{X: 50, Y: 50, Z: 0}, r3.Vector{X: 51, Y: 51, Z: 1})
		test.That(t, got, test.ShouldEqual, Outside)
	})
}

func TestClassifyMarginAbsorbsBoundaryJitter(t *testing.T) {
	// A box exactly on a plane boundary, perturbed by float noise, must
	// never flip to Outside; the margin absorbs it.
	f := Extract(orthoMVP(), smallBounds())
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 200; i++ {
		eps := (r.Float64() - 0.5) * 1e-9
		got := f.Classify(
			r3.Vector{X: 1 + eps, Y: -0.5, Z: -5},
			r3.Vector{X: 1.5 + eps, Y: 0.5, Z: -1},
		)
		test.That(t, got, test.ShouldNotEqual, Outside)
	}
}

func TestFlatDataNeverSpuriouslyCulled(t *testing.T) {
	// Degenerate 2D data (all Z equal) gets a large Z padding; a frustum
	// aimed straight along Z must classify nodes spanning that padding as
	// visible.
	positions := make([]float32, 0, 300)
	r := rand.New(rand.NewSource(6))
	for i := 0; i < 100; i++ {
		positions = append(positions, r.Float32()*10, r.Float32()*10, 0)
	}
	ps, err := pointcloud.NewPointSet(positions, nil)
	test.That(t, err, test.ShouldBeNil)
	bounds := pointcloud.CalculateBounds(ps)
	test.That(t, bounds.Padding.Z, test.ShouldBeGreaterThanOrEqualTo, 4.5)

	proj := mgl64.Ortho(-7, 7, -7, 7, 0.1, 100)
	view := mgl64.LookAtV(mgl64.Vec3{5, 5, 20}, mgl64.Vec3{5, 5, 0}, mgl64.Vec3{0, 1, 0})
	f := Extract(proj.Mul4(view), bounds)

	got := f.Classify(bounds.Min, bounds.Max)
	test.That(t, got, test.ShouldNotEqual, Outside)
}
