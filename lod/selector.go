package lod

import (
	"math"

	"github.com/pointview/pointview/pointcloud"
)

// SelectorConfig holds the tuned level-selection constants.
type SelectorConfig struct {
	// MinRatio and MaxRatio clamp the scale-normalized camera distance.
	MinRatio float64
	MaxRatio float64
	// DeadZone is the hysteresis band: the continuous target must differ
	// from the current level by more than this before a step is taken.
	DeadZone float64
	// ReferenceViewportHeight normalizes for viewport size; a larger
	// viewport resolves more detail at the same distance.
	ReferenceViewportHeight float64
}

// DefaultSelectorConfig returns the calibrated selection constants.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		MinRatio:                0.3,
		MaxRatio:                3.0,
		DeadZone:                0.7,
		ReferenceViewportHeight: 1080,
	}
}

// SelectLevel maps a camera distance to a discrete level ordinal with
// hysteresis. The distance is normalized by the data diagonal of the axes
// relevant to the dimension level, so selection is invariant to embedding
// scale and to which physical axes carry the data. The result never differs
// from previousLevel by more than one step.
func SelectLevel(distance, viewportHeight float64, previousLevel, dimensionLevel int, bounds pointcloud.Bounds, levelCount int, cfg SelectorConfig) int {
	if levelCount <= 1 {
		return 0
	}
	prev := clampLevel(previousLevel, levelCount)

	diag := bounds.Diagonal(dimensionLevel)
	if diag <= 0 || distance <= 0 {
		return stepToward(prev, float64(levelCount-1), cfg.DeadZone, levelCount)
	}
	ratio := distance / diag
	if viewportHeight > 0 && cfg.ReferenceViewportHeight > 0 {
		ratio *= cfg.ReferenceViewportHeight / viewportHeight
	}
	if ratio < cfg.MinRatio {
		ratio = cfg.MinRatio
	}
	if ratio > cfg.MaxRatio {
		ratio = cfg.MaxRatio
	}

	// Log interpolation: ratio at MaxRatio maps to the coarsest level 0,
	// ratio at MinRatio maps to full detail.
	t := (math.Log(cfg.MaxRatio) - math.Log(ratio)) / (math.Log(cfg.MaxRatio) - math.Log(cfg.MinRatio))
	target := t * float64(levelCount-1)
	return stepToward(prev, target, cfg.DeadZone, levelCount)
}

// stepToward moves at most one discrete level toward target, gated by the
// dead-zone, which keeps the level stable under small camera jitter.
func stepToward(current int, target, deadZone float64, levelCount int) int {
	diff := target - float64(current)
	switch {
	case diff > deadZone:
		return clampLevel(current+1, levelCount)
	case diff < -deadZone:
		return clampLevel(current-1, levelCount)
	default:
		return current
	}
}

func clampLevel(level, levelCount int) int {
	if level < 0 {
		return 0
	}
	if level >= levelCount {
		return levelCount - 1
	}
	return level
}
