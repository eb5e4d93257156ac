package lod

import (
	"math/rand"
	"testing"

	"go.viam.com/test"

	"github.com/pointview/pointview/pointcloud"
)

func selectorBounds(t *testing.T) pointcloud.Bounds {
	t.Helper()
	ps := uniformPoints(t, 1000, 3, 3)
	return pointcloud.CalculateBounds(ps)
}

func TestSelectLevelHysteresisBound(t *testing.T) {
	// The selector is a one-step state machine: no distance input may ever
	// move the level by more than one from the previous level.
	bounds := selectorBounds(t)
	cfg := DefaultSelectorConfig()
	r := rand.New(rand.NewSource(21))
	const levelCount = 18
	for i := 0; i < 2000; i++ {
		prev := r.Intn(levelCount)
		distance := r.Float64() * 100
		got := SelectLevel(distance, 1080, prev, 3, bounds, levelCount, cfg)
		diff := got - prev
		if diff < 0 {
			diff = -diff
		}
		test.That(t, diff, test.ShouldBeLessThanOrEqualTo, 1)
	}
}

func TestSelectLevelConverges(t *testing.T) {
	bounds := selectorBounds(t)
	cfg := DefaultSelectorConfig()
	const levelCount = 18
	diag := bounds.Diagonal(3)

	t.Run("far camera walks to the coarsest level", func(t *testing.T) {
		level := levelCount - 1
		for i := 0; i < levelCount+5; i++ {
			level = SelectLevel(diag*10, 1080, level, 3, bounds, levelCount, cfg)
		}
		test.That(t, level, test.ShouldEqual, 0)
	})

	t.Run("near camera walks to full detail", func(t *testing.T) {
		level := 0
		for i := 0; i < levelCount+5; i++ {
			level = SelectLevel(diag*0.05, 1080, level, 3, bounds, levelCount, cfg)
		}
		test.That(t, level, test.ShouldEqual, levelCount-1)
	})
}

func TestSelectLevelDeadZoneHolds(t *testing.T) {
	// Once converged, small distance jitter must not toggle the level.
	bounds := selectorBounds(t)
	cfg := DefaultSelectorConfig()
	const levelCount = 18
	diag := bounds.Diagonal(3)

	level := 0
	base := diag * 1.0
	for i := 0; i < 40; i++ {
		level = SelectLevel(base, 1080, level, 3, bounds, levelCount, cfg)
	}
	settled := level
	r := rand.New(rand.NewSource(8))
	for i := 0; i < 200; i++ {
		jitter := 1 + (r.Float64()-0.5)*0.02
		level = SelectLevel(base*jitter, 1080, level, 3, bounds, levelCount, cfg)
		diff := level - settled
		if diff < 0 {
			diff = -diff
		}
		test.That(t, diff, test.ShouldBeLessThanOrEqualTo, 1)
	}
}

func TestSelectLevelEdgeCases(t *testing.T) {
	bounds := selectorBounds(t)
	cfg := DefaultSelectorConfig()

	t.Run("single level always selects zero", func(t *testing.T) {
		test.That(t, SelectLevel(5, 1080, 3, 3, bounds, 1, cfg), test.ShouldEqual, 0)
	})

	t.Run("previous level outside range is clamped", func(t *testing.T) {
		got := SelectLevel(1, 1080, 99, 3, bounds, 18, cfg)
		test.That(t, got, test.ShouldBeLessThanOrEqualTo, 17)
		got = SelectLevel(1, 1080, -5, 3, bounds, 18, cfg)
		test.That(t, got, test.ShouldBeGreaterThanOrEqualTo, 0)
	})

	t.Run("zero distance drives toward full detail", func(t *testing.T) {
		got := SelectLevel(0, 1080, 5, 3, bounds, 18, cfg)
		test.That(t, got, test.ShouldEqual, 6)
	})
}
