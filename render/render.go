package render

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/pointview/pointview/frustum"
	"github.com/pointview/pointview/lod"
	"github.com/pointview/pointview/spatialtree"
)

// Params is one view's render request for the current frame.
type Params struct {
	ViewID ViewID
	// MVP is the model-view-projection matrix for this view.
	MVP mgl64.Mat4
	// CameraDistance is the distance from camera to data center. If zero,
	// it is derived from CameraPosition.
	CameraDistance float64
	CameraPosition r3.Vector
	ViewportHeight float64
	// DimensionLevel overrides the loader-declared dimensionality for this
	// view; zero keeps the default. Snapshot views may project 3D data to
	// 2D this way.
	DimensionLevel int
	// ForcedLevel pins a specific LOD level ordinal; nil selects by
	// hysteresis.
	ForcedLevel *int
}

// Result tells the rendering backend what to draw for one view.
type Result struct {
	// Level is the chosen detail level; its Positions/Colors are the
	// geometry to draw from.
	Level        *lod.Level
	LevelOrdinal int
	// DrawAll means draw the level's whole buffer; Indices is nil. When
	// false, Indices holds the visible subset (level-local for reduced
	// levels, original indices for full detail). The slice is owned by the
	// view's cache and is valid until that view renders again.
	DrawAll bool
	Indices []uint32
	// VisibleCount is the number of candidate points in the frustum.
	VisibleCount int
	// CandidateCount is the level's total point count, for backend budgets.
	CandidateCount int
	SizeMultiplier float64
	// FilterGeneration echoes the view's non-spatial visibility counter so
	// the backend can detect filter staleness independent of the camera.
	FilterGeneration uint64
}

// RenderForView resolves what one view should draw this frame: pick a level
// by hysteresis (or honor a forced one), cull against the frustum, and reuse
// the view's cached visibility wherever camera and level allow.
func (e *Engine) RenderForView(p Params) (Result, error) {
	if e.ps == nil {
		return Result{}, errors.New("no point set loaded")
	}
	if p.ViewID == "" {
		return Result{}, errors.New("render request without a view id")
	}

	dim := p.DimensionLevel
	if dim == 0 {
		dim = e.defaultDim
	}
	dim = spatialtree.ClampDimensionLevel(dim)

	idx, err := e.ensureIndex(dim)
	if err != nil {
		return Result{}, err
	}
	view := e.getOrCreateView(p.ViewID)

	distance := p.CameraDistance
	if distance == 0 {
		distance = p.CameraPosition.Sub(e.bounds.Center()).Norm()
	}

	var ordinal int
	if p.ForcedLevel != nil {
		ordinal = *p.ForcedLevel
	} else {
		ordinal = lod.SelectLevel(distance, p.ViewportHeight, view.lastLevel, dim, e.bounds, len(idx.levels), e.cfg.Selector)
	}
	if ordinal < 0 {
		ordinal = 0
	}
	if ordinal >= len(idx.levels) {
		ordinal = len(idx.levels) - 1
	}

	cameraUnchanged := e.cameraUnchanged(view, p.MVP, dim)

	// Fast path: same camera, same level, result still cached.
	if cameraUnchanged && view.hasResult && view.cachedOrdinal == ordinal {
		view.lastLevel = ordinal
		return e.resultFrom(view, idx, ordinal), nil
	}

	// The visible node list only depends on the camera, so a level change
	// within the same camera frame reuses it.
	if !cameraUnchanged || !view.hasNodes {
		f := frustum.Extract(p.MVP, e.bounds)
		nodes := collectVisibleNodes(idx.tree, f, idx.tree.Root(), view.scratch.nodeBuf())
		view.scratch.keepNodes(nodes)
		view.visibleNodes = nodes
		view.hasNodes = true
		view.lastMVP = p.MVP
		view.lastDim = dim
		view.hasMVP = true
	}

	n := e.ps.Size()
	if len(view.visibleNodes) == 0 {
		// A camera edge case emptied the visible set. Degrade to drawing
		// everything rather than drawing nothing.
		if !e.warnedEmptyVisibility && e.logger != nil {
			e.logger.Warnw("visibility resolution found no visible nodes, falling back to full draw", "view", view.id)
			e.warnedEmptyVisibility = true
		}
		view.hasResult = true
		view.cachedOrdinal = ordinal
		view.drawAll = true
		view.indexLen = 0
		view.visibleCount = idx.levels[ordinal].PointCount
		view.lastLevel = ordinal
		return e.resultFrom(view, idx, ordinal), nil
	}

	buf, visible := idx.emitIndices(view.visibleNodes, ordinal, n, e.cfg.DrawAllFraction, view.scratch.indexBuf(visiblePointCount(idx.tree, view.visibleNodes)))
	view.hasResult = true
	view.cachedOrdinal = ordinal
	view.visibleCount = visible
	if buf == nil {
		view.drawAll = true
		view.indexLen = 0
	} else {
		view.drawAll = false
		view.scratch.keepIndices(buf)
		view.indexBuf = buf
		view.indexLen = len(buf)
	}
	view.lastLevel = ordinal
	return e.resultFrom(view, idx, ordinal), nil
}

func (e *Engine) resultFrom(view *viewState, idx *dimensionIndex, ordinal int) Result {
	lv := &idx.levels[ordinal]
	res := Result{
		Level:            lv,
		LevelOrdinal:     ordinal,
		DrawAll:          view.drawAll,
		VisibleCount:     view.visibleCount,
		CandidateCount:   lv.PointCount,
		SizeMultiplier:   lv.SizeMultiplier,
		FilterGeneration: view.filterGeneration,
	}
	if !view.drawAll {
		res.Indices = view.indexBuf[:view.indexLen]
	}
	return res
}
