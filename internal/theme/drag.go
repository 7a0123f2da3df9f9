package theme

import "math"

type DragPhase string

const (
	DragIdle     DragPhase = "idle"
	DragDragging DragPhase = "dragging"
)

// Point is a pointer position in layout coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DropCandidate is the rendered center of a section under the pointer.
type DropCandidate struct {
	SectionID string `json:"sectionId"`
	Center    Point  `json:"center"`
}

// DragState is the serializable state of a drag gesture.
type DragState struct {
	Phase       DragPhase `json:"phase"`
	ActiveID    string    `json:"activeId,omitempty"`
	StartIndex  int       `json:"startIndex"`
	TargetIndex int       `json:"targetIndex"`
	OffSurface  bool      `json:"offSurface,omitempty"`
}

type reorderer interface {
	IndexOf(id string) int
	Len() int
	MoveSection(id string, to int) (bool, error)
}

type editingGuard interface {
	EditingID() (string, bool)
}

// DragController turns a grab, hover, release gesture into at most one
// MoveSection call.
type DragController struct {
	model reorderer
	guard editingGuard
	state DragState
}

func NewDragController(model reorderer, guard editingGuard) *DragController {
	return &DragController{model: model, guard: guard, state: DragState{Phase: DragIdle}}
}

func (d *DragController) State() DragState { return d.state }

func (d *DragController) restore(s DragState) {
	if s.Phase != DragDragging || d.model.IndexOf(s.ActiveID) < 0 {
		d.state = DragState{Phase: DragIdle}
		return
	}
	d.state = s
}

// ActiveID returns the section being dragged, if any.
func (d *DragController) ActiveID() (string, bool) {
	if d.state.Phase != DragDragging {
		return "", false
	}
	return d.state.ActiveID, true
}

// Grab starts dragging id. A grab while another drag is in flight is
// ignored and reports false.
func (d *DragController) Grab(id string) (bool, error) {
	if d.state.Phase == DragDragging {
		return false, nil
	}
	idx := d.model.IndexOf(id)
	if idx < 0 {
		return false, notFound(id)
	}
	if d.guard != nil {
		if editing, ok := d.guard.EditingID(); ok && editing == id {
			return false, ErrInteractionConflict
		}
	}
	d.state = DragState{Phase: DragDragging, ActiveID: id, StartIndex: idx, TargetIndex: idx}
	return true, nil
}

// Hover resolves the drop target as the candidate whose center is closest
// to pointer, preferring the lower index on ties. It returns the proposed
// index.
func (d *DragController) Hover(pointer Point, candidates []DropCandidate) (int, bool) {
	if d.state.Phase != DragDragging {
		return -1, false
	}
	best, bestDist := -1, math.Inf(1)
	for _, c := range candidates {
		idx := d.model.IndexOf(c.SectionID)
		if idx < 0 {
			continue
		}
		dx, dy := c.Center.X-pointer.X, c.Center.Y-pointer.Y
		dist := dx*dx + dy*dy
		if dist < bestDist || (dist == bestDist && idx < best) {
			best, bestDist = idx, dist
		}
	}
	if best < 0 {
		d.state.OffSurface = true
		return d.state.TargetIndex, false
	}
	d.state.OffSurface = false
	d.state.TargetIndex = best
	return best, true
}

// Leave marks the pointer as outside every drop surface. A release in
// that state commits nothing.
func (d *DragController) Leave() {
	if d.state.Phase == DragDragging {
		d.state.OffSurface = true
	}
}

// Step moves the proposed target by delta positions, clamped to the list.
func (d *DragController) Step(delta int) (int, bool) {
	if d.state.Phase != DragDragging {
		return -1, false
	}
	t := d.state.TargetIndex + delta
	if t < 0 {
		t = 0
	}
	if last := d.model.Len() - 1; t > last {
		t = last
	}
	d.state.TargetIndex = t
	d.state.OffSurface = false
	return t, true
}

// Release ends the gesture. It commits a move only when the gesture
// proposed a target other than where the drag started.
func (d *DragController) Release() (bool, error) {
	s := d.state
	d.state = DragState{Phase: DragIdle}
	if s.Phase != DragDragging || s.OffSurface {
		return false, nil
	}
	current := d.model.IndexOf(s.ActiveID)
	if current < 0 {
		return false, notFound(s.ActiveID)
	}
	if s.TargetIndex == s.StartIndex {
		return false, nil
	}
	target := s.TargetIndex
	if last := d.model.Len() - 1; target > last {
		target = last
	}
	if target < 0 {
		target = 0
	}
	if current == target {
		return false, nil
	}
	return d.model.MoveSection(s.ActiveID, target)
}

// Cancel discards the gesture. It reports whether a drag was in flight.
func (d *DragController) Cancel() bool {
	wasDragging := d.state.Phase == DragDragging
	d.state = DragState{Phase: DragIdle}
	return wasDragging
}
