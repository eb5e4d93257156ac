// Package render ties the spatial index, LOD hierarchy, and frustum culling
// together into a frame-driven engine serving several concurrent views. The
// engine decides, per camera and view, which subset of points to draw and at
// what density; uploading buffers and issuing draw calls is the rendering
// backend's concern.
//
// Everything runs synchronously on the calling goroutine. Trees and levels
// are built once per (point set, dimension level) and are read-only
// afterwards; per-view caches are owned by their view id.
package render

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/pointview/pointview/lod"
	"github.com/pointview/pointview/pointcloud"
	"github.com/pointview/pointview/spatialtree"
)

// Config collects the engine's tuned constants.
type Config struct {
	// MaxPointsPerNode and MaxDepth bound spatial tree construction.
	MaxPointsPerNode int
	MaxDepth         int
	// Levels and Selector hold the LOD generation and selection constants.
	Levels   lod.Config
	Selector lod.SelectorConfig
	// MVPChangeThreshold is the sum-of-squared-difference bound under which
	// a camera is considered unmoved.
	MVPChangeThreshold float64
	// DrawAllFraction short-circuits index-buffer building when at least
	// this fraction of the candidate set is visible.
	DrawAllFraction float64
}

// DefaultConfig returns the calibrated engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxPointsPerNode:   spatialtree.DefaultMaxPointsPerNode,
		MaxDepth:           spatialtree.DefaultMaxDepth,
		Levels:             lod.DefaultConfig(),
		Selector:           lod.DefaultSelectorConfig(),
		MVPChangeThreshold: 1e-6,
		DrawAllFraction:    0.98,
	}
}

// attachKey addresses the per-leaf level-index attachment side table.
type attachKey struct {
	node    spatialtree.NodeID
	ordinal int
}

// dimensionIndex is everything derived from (point set, dimension level):
// the tree, its hierarchical order, the LOD levels, and lazily built
// level-index attachments. Read-only once built, shared by all views at that
// dimension level.
type dimensionIndex struct {
	tree   *spatialtree.Tree
	order  []uint32
	levels []lod.Level

	// localOf[ordinal][original] is the level-local vertex index, or -1 when
	// the original point is not part of that level. Built lazily.
	localOf map[int][]int32

	// attachments caches, per (node, reduced level), the level-local indices
	// of the node's points, so the combined frustum+LOD pass emits
	// level-local indices directly.
	attachments map[attachKey][]uint32
}

// Engine is the spatial-index / LOD / visibility core.
type Engine struct {
	logger golog.Logger
	cfg    Config

	ps         *pointcloud.PointSet
	bounds     pointcloud.Bounds
	defaultDim int

	indexes map[int]*dimensionIndex
	views   map[ViewID]*viewState

	warnedEmptyVisibility bool
}

// NewEngine returns an engine with default configuration.
func NewEngine(logger golog.Logger) *Engine {
	return NewEngineWithConfig(DefaultConfig(), logger)
}

// NewEngineWithConfig returns an engine with the supplied configuration.
func NewEngineWithConfig(cfg Config, logger golog.Logger) *Engine {
	return &Engine{
		logger:  logger,
		cfg:     cfg,
		indexes: make(map[int]*dimensionIndex),
		views:   make(map[ViewID]*viewState),
	}
}

// LoadPoints replaces the engine's data wholesale: positions are a flat
// buffer of three coordinates per point, colors an optional packed RGBA
// buffer, dimensionLevel the loader's declared dimensionality (1-3). All
// derived indexes and all per-view state are discarded.
func (e *Engine) LoadPoints(positions []float32, colors []uint32, dimensionLevel int) error {
	ps, err := pointcloud.NewPointSet(positions, colors)
	if err != nil {
		return errors.Wrap(err, "loading points")
	}
	e.ps = ps
	e.bounds = pointcloud.CalculateBounds(ps)
	e.defaultDim = spatialtree.ClampDimensionLevel(dimensionLevel)
	e.indexes = make(map[int]*dimensionIndex)
	e.ClearViews()
	e.warnedEmptyVisibility = false
	return nil
}

// PointSet returns the currently loaded data, or nil.
func (e *Engine) PointSet() *pointcloud.PointSet {
	return e.ps
}

// Bounds returns the padded bounds of the loaded data.
func (e *Engine) Bounds() pointcloud.Bounds {
	return e.bounds
}

// ensureIndex builds (or returns the cached) tree + order + levels for one
// dimension level. This is the expensive once-per-dataset path; it never
// runs more than once per (point set, dimension level).
func (e *Engine) ensureIndex(dim int) (*dimensionIndex, error) {
	if e.ps == nil {
		return nil, errors.New("no point set loaded")
	}
	if dim == 0 {
		dim = e.defaultDim
	}
	dim = spatialtree.ClampDimensionLevel(dim)
	if idx, ok := e.indexes[dim]; ok {
		return idx, nil
	}

	tree, err := spatialtree.BuildWithBounds(e.ps, e.bounds, dim, e.cfg.MaxPointsPerNode, e.cfg.MaxDepth, e.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "building spatial tree at dimension level %d", dim)
	}
	order := lod.BuildOrder(tree, e.ps)
	idx := &dimensionIndex{
		tree:        tree,
		order:       order,
		levels:      lod.GenerateLevels(e.ps, order, e.cfg.Levels),
		localOf:     make(map[int][]int32),
		attachments: make(map[attachKey][]uint32),
	}
	e.indexes[dim] = idx
	if e.logger != nil {
		e.logger.Debugw("spatial index built",
			"dimension", dim,
			"points", e.ps.Size(),
			"nodes", tree.NodeCount(),
			"leaves", tree.LeafCount(),
			"levels", len(idx.levels),
		)
	}
	return idx, nil
}

// Levels returns the LOD levels for a dimension level (zero means the
// loader-declared default), building the index if needed.
func (e *Engine) Levels(dimensionLevel int) ([]lod.Level, error) {
	idx, err := e.ensureIndex(dimensionLevel)
	if err != nil {
		return nil, err
	}
	return idx.levels, nil
}

// Tree returns the spatial tree for a dimension level, building the index if
// needed. The tree is read-only.
func (e *Engine) Tree(dimensionLevel int) (*spatialtree.Tree, error) {
	idx, err := e.ensureIndex(dimensionLevel)
	if err != nil {
		return nil, err
	}
	return idx.tree, nil
}

// RadiusSearch returns the original indices of all points within radius of
// center, using the loader-declared dimension level's tree.
func (e *Engine) RadiusSearch(center r3.Vector, radius float64) ([]uint32, error) {
	idx, err := e.ensureIndex(e.defaultDim)
	if err != nil {
		return nil, err
	}
	return idx.tree.RadiusSearch(e.ps, center, radius), nil
}

// LevelHit pairs a level-local vertex index with its original point index.
type LevelHit struct {
	Local    uint32
	Original uint32
}

// RadiusSearchAtLevel restricts a radius query to the points present in one
// LOD level, returning level-local plus original index pairs. Hover and
// picking interfaces need the local index because the backend only holds the
// level's geometry.
func (e *Engine) RadiusSearchAtLevel(center r3.Vector, radius float64, levelOrdinal int) ([]LevelHit, error) {
	idx, err := e.ensureIndex(e.defaultDim)
	if err != nil {
		return nil, err
	}
	if levelOrdinal < 0 || levelOrdinal >= len(idx.levels) {
		return nil, errors.Errorf("level ordinal %d out of range [0, %d)", levelOrdinal, len(idx.levels))
	}
	hits := idx.tree.RadiusSearch(e.ps, center, radius)
	lv := &idx.levels[levelOrdinal]
	if lv.IsFullDetail {
		out := make([]LevelHit, len(hits))
		for i, h := range hits {
			out[i] = LevelHit{Local: h, Original: h}
		}
		return out, nil
	}
	localOf := idx.levelLocalIndex(levelOrdinal, e.ps.Size())
	out := make([]LevelHit, 0, len(hits))
	for _, h := range hits {
		if local := localOf[h]; local >= 0 {
			out = append(out, LevelHit{Local: uint32(local), Original: h})
		}
	}
	return out, nil
}

// levelLocalIndex returns (building lazily) the inverse permutation for a
// reduced level: original index to level-local index, -1 when absent.
func (idx *dimensionIndex) levelLocalIndex(ordinal, n int) []int32 {
	if localOf, ok := idx.localOf[ordinal]; ok {
		return localOf
	}
	localOf := make([]int32, n)
	for i := range localOf {
		localOf[i] = -1
	}
	for local, orig := range idx.levels[ordinal].Indices {
		localOf[orig] = int32(local)
	}
	idx.localOf[ordinal] = localOf
	return localOf
}

// Stats is a diagnostic snapshot of the engine's derived state.
type Stats struct {
	PointCount     int
	DimensionLevel int
	IndexedDims    int
	NodeCount      int
	LeafCount      int
	LevelCount     int
	ViewCount      int
}

// Stats reports on the loader-declared dimension level's index if built.
func (e *Engine) Stats() Stats {
	s := Stats{DimensionLevel: e.defaultDim, IndexedDims: len(e.indexes), ViewCount: len(e.views)}
	if e.ps != nil {
		s.PointCount = e.ps.Size()
	}
	if idx, ok := e.indexes[e.defaultDim]; ok {
		s.NodeCount = idx.tree.NodeCount()
		s.LeafCount = idx.tree.LeafCount()
		s.LevelCount = len(idx.levels)
	}
	return s
}
