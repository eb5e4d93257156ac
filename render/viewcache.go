package render

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/pointview/pointview/spatialtree"
)

// ViewID identifies one concurrently rendered view. The live view and every
// snapshot view carry distinct ids so their caches never interfere.
type ViewID string

// NewViewID mints a fresh view identifier.
func NewViewID() ViewID {
	return ViewID(uuid.NewString())
}

// viewState is the per-view cache entry. Each entry is owned exclusively by
// its view id; nothing here is shared across views.
type viewState struct {
	id ViewID

	// Camera snapshot for change detection.
	hasMVP  bool
	lastMVP mgl64.Mat4
	lastDim int

	// Last selected level, both the hysteresis state and the report value.
	lastLevel int

	// Visible node list for the cached camera. Reusable across level
	// changes within the same camera frame.
	hasNodes     bool
	visibleNodes []spatialtree.NodeID

	// Emitted index buffer for (camera, level).
	hasResult     bool
	cachedOrdinal int
	drawAll       bool
	visibleCount  int
	indexBuf      []uint32
	indexLen      int

	// Bumped when non-spatial visibility inputs (filters, transparency)
	// change; decoupled from camera movement.
	filterGeneration uint64

	scratch scratchPool
}

func (v *viewState) invalidate() {
	v.hasMVP = false
	v.hasNodes = false
	v.hasResult = false
}

// scratchPool holds per-view reusable buffers. Buffers grow by doubling and
// never shrink, so steady-state frames allocate nothing.
type scratchPool struct {
	nodes   []spatialtree.NodeID
	indices []uint32
}

func (p *scratchPool) nodeBuf() []spatialtree.NodeID {
	return p.nodes[:0]
}

func (p *scratchPool) keepNodes(nodes []spatialtree.NodeID) {
	p.nodes = nodes
}

func (p *scratchPool) indexBuf(capHint int) []uint32 {
	if cap(p.indices) < capHint {
		newCap := cap(p.indices) * 2
		if newCap < capHint {
			newCap = capHint
		}
		p.indices = make([]uint32, 0, newCap)
	}
	return p.indices[:0]
}

func (p *scratchPool) keepIndices(idx []uint32) {
	p.indices = idx
}

// getOrCreateView returns the cache entry for id, creating it lazily on the
// first render request for that view.
func (e *Engine) getOrCreateView(id ViewID) *viewState {
	if v, ok := e.views[id]; ok {
		return v
	}
	v := &viewState{id: id, lastLevel: -1}
	e.views[id] = v
	return v
}

// RemoveView discards the cache entry for id, if any.
func (e *Engine) RemoveView(id ViewID) {
	delete(e.views, id)
}

// ClearViews discards every per-view cache entry.
func (e *Engine) ClearViews() {
	e.views = make(map[ViewID]*viewState)
}

// Invalidate clears the cached visibility state for one view, forcing full
// recomputation on its next render.
func (e *Engine) Invalidate(id ViewID) {
	if v, ok := e.views[id]; ok {
		v.invalidate()
	}
}

// InvalidateAll clears the cached visibility state of every view.
func (e *Engine) InvalidateAll() {
	for _, v := range e.views {
		v.invalidate()
	}
}

// BumpFilterGeneration marks a change to non-spatial visibility inputs
// (e.g. transparency) for one view. Consumers combining LOD visibility with
// filter visibility compare generations to detect staleness without
// involving the camera.
func (e *Engine) BumpFilterGeneration(id ViewID) {
	e.getOrCreateView(id).filterGeneration++
}

// FilterGeneration returns the current filter generation for a view; zero
// for unknown views.
func (e *Engine) FilterGeneration(id ViewID) uint64 {
	if v, ok := e.views[id]; ok {
		return v.filterGeneration
	}
	return 0
}

// IsCacheValid reports whether the cached visibility for a view can be
// reused for the given camera and dimension level: the MVP must differ from
// the cached one by less than the sum-of-squared-difference threshold and
// the dimension level must match.
func (e *Engine) IsCacheValid(mvp mgl64.Mat4, id ViewID, dimensionLevel int) bool {
	v, ok := e.views[id]
	if !ok {
		return false
	}
	return e.cameraUnchanged(v, mvp, spatialtree.ClampDimensionLevel(dimensionLevel))
}

func (e *Engine) cameraUnchanged(v *viewState, mvp mgl64.Mat4, dim int) bool {
	if !v.hasMVP || v.lastDim != dim {
		return false
	}
	ssd := 0.0
	for i := range mvp {
		d := mvp[i] - v.lastMVP[i]
		ssd += d * d
	}
	return ssd < e.cfg.MVPChangeThreshold
}
