package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNewPointSet(t *testing.T) {
	t.Run("rejects ragged position buffer", func(t *testing.T) {
		_, err := NewPointSet([]float32{1, 2, 3, 4}, nil)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("rejects color count mismatch", func(t *testing.T) {
		_, err := NewPointSet([]float32{1, 2, 3, 4, 5, 6}, []uint32{7})
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("positions and colors accessible by index", func(t *testing.T) {
		ps, err := NewPointSet([]float32{1, 2, 3, 4, 5, 6}, []uint32{10, 20})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ps.Size(), test.ShouldEqual, 2)
		test.That(t, ps.At(1), test.ShouldResemble, r3.Vector{X: 4, Y: 5, Z: 6})
		test.That(t, ps.HasColor(), test.ShouldBeTrue)
		test.That(t, ps.Color(0), test.ShouldEqual, 10)
	})

	t.Run("uncolored set reports zero colors", func(t *testing.T) {
		ps, err := NewPointSet([]float32{1, 2, 3}, nil)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ps.HasColor(), test.ShouldBeFalse)
		test.That(t, ps.Color(0), test.ShouldEqual, 0)
	})
}

func TestPackRGBA(t *testing.T) {
	c := PackRGBA(1, 2, 3, 255)
	r, g, b, a := UnpackRGBA(c)
	test.That(t, r, test.ShouldEqual, 1)
	test.That(t, g, test.ShouldEqual, 2)
	test.That(t, b, test.ShouldEqual, 3)
	test.That(t, a, test.ShouldEqual, 255)
}
