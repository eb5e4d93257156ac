package lod

import (
	"math"

	"github.com/pointview/pointview/pointcloud"
)

// Config holds the empirically tuned level constants. The defaults come from
// visual calibration; treat them as configuration, not derived quantities.
type Config struct {
	// ReductionFactors is the descending sequence of point-count divisors,
	// one level per factor. The final factor must be 1 (full detail).
	ReductionFactors []float64
	// MinLevelPointCount floors every reduced level's target size.
	MinLevelPointCount int
	// SizeScale and SizeBias parameterize the per-level point size
	// multiplier: sqrt(factor)*SizeScale + SizeBias.
	SizeScale float64
	SizeBias  float64
}

// DefaultConfig returns the calibrated defaults: 18 levels stepping by x1.25
// down to full detail, floored at 1000 points per level.
func DefaultConfig() Config {
	factors := make([]float64, 18)
	f := 1.0
	for i := len(factors) - 1; i >= 0; i-- {
		factors[i] = f
		f *= 1.25
	}
	return Config{
		ReductionFactors:   factors,
		MinLevelPointCount: 1000,
		SizeScale:          0.2,
		SizeBias:           0.8,
	}
}

// Level is one detail level. Ordinal 0 is the coarsest; the last level is
// always full detail. Reduced levels carry fresh position/color copies in
// hierarchical order plus the mapping from their local vertex order back to
// original indices.
type Level struct {
	Ordinal        int
	PointCount     int
	IsFullDetail   bool
	Indices        []uint32
	Positions      []float32
	Colors         []uint32
	SizeMultiplier float64
}

// GenerateLevels builds every detail level from the hierarchical order. When
// the point count is at or below the floor, every level collapses to full
// detail and LOD becomes a no-op.
func GenerateLevels(ps *pointcloud.PointSet, order []uint32, cfg Config) []Level {
	n := ps.Size()
	levels := make([]Level, 0, len(cfg.ReductionFactors))
	for ord, factor := range cfg.ReductionFactors {
		lv := Level{Ordinal: ord}
		target := int(math.Ceil(float64(n) / factor))
		if target < cfg.MinLevelPointCount {
			target = cfg.MinLevelPointCount
		}
		if factor <= 1 || target >= n {
			lv.IsFullDetail = true
			lv.PointCount = n
			lv.Positions = ps.Positions()
			lv.Colors = ps.Colors()
			lv.SizeMultiplier = 1.0
			levels = append(levels, lv)
			continue
		}

		lv.PointCount = target
		lv.Indices = order[:target:target]
		lv.SizeMultiplier = math.Sqrt(factor)*cfg.SizeScale + cfg.SizeBias

		// The backend gets this buffer whole, so it is a real copy rather
		// than a strided view of the source.
		lv.Positions = make([]float32, target*3)
		src := ps.Positions()
		for li, oi := range lv.Indices {
			lv.Positions[li*3] = src[oi*3]
			lv.Positions[li*3+1] = src[oi*3+1]
			lv.Positions[li*3+2] = src[oi*3+2]
		}
		if ps.HasColor() {
			lv.Colors = make([]uint32, target)
			colors := ps.Colors()
			for li, oi := range lv.Indices {
				lv.Colors[li] = colors[oi]
			}
		}
		levels = append(levels, lv)
	}
	return levels
}
