package spatialtree

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestRadiusSearch(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ps := uniformPoints(t, 3000, 3, 11)
	tree, err := Build(ps, 3, 50, 20, logger)
	test.That(t, err, test.ShouldBeNil)

	center := r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}
	radius := 0.25

	got := tree.RadiusSearch(ps, center, radius)
	inSphere := make(map[uint32]bool, len(got))
	for _, i := range got {
		inSphere[i] = true
		test.That(t, ps.At(int(i)).Sub(center).Norm(), test.ShouldBeLessThanOrEqualTo, radius)
	}

	// Brute force agreement: no point in the sphere is missing.
	for i := 0; i < ps.Size(); i++ {
		if ps.At(i).Sub(center).Norm() <= radius {
			test.That(t, inSphere[uint32(i)], test.ShouldBeTrue)
		}
	}
}

func TestRadiusSearchDegenerateInputs(t *testing.T) {
	logger := golog.NewTestLogger(t)
	ps := uniformPoints(t, 100, 3, 12)
	tree, err := Build(ps, 3, 50, 20, logger)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, tree.RadiusSearch(ps, r3.Vector{}, 0), test.ShouldBeNil)
	test.That(t, tree.RadiusSearch(ps, r3.Vector{}, -1), test.ShouldBeNil)
	test.That(t, tree.RadiusSearch(ps, r3.Vector{X: 100, Y: 100, Z: 100}, 0.5), test.ShouldHaveLength, 0)
}
