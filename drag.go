package blockpipe

import (
	"fmt"

	"github.com/google/uuid"
)

// Drag tracks one interactive drag of a block across the canvas. Every stage
// probed while hovering is finalized when the drag ends.
type Drag struct {
	ws      *Workspace
	dragged string
	pending []string
	preview string
	ended   bool
}

// BeginDrag picks a block up: a leaf is unplugged from its socket and a stage
// is cut from its predecessor, taking the rest of its chain along. The stage
// the leaf left is finalized with the rest when the drag ends.
func (w *Workspace) BeginDrag(id string) (*Drag, error) {
	b, ok := w.blocks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if b.Kind == KindPreview {
		return nil, fmt.Errorf("%w: %s", ErrNotDraggable, id)
	}
	d := &Drag{ws: w, dragged: id}
	d.markPending(b.Parent)
	if err := w.Detach(id); err != nil {
		return nil, err
	}
	if err := w.Unchain(id); err != nil {
		return nil, err
	}
	return d, nil
}

// Dragged returns the id of the block being dragged.
func (d *Drag) Dragged() string {
	return d.dragged
}

// Hover reports the connection point closest to the dragged block. The owning
// stage is probed and the preview marker moves to the hovered socket when it
// is free. It reports whether the probe opened a new socket.
func (d *Drag) Hover(conn Connection) bool {
	if d.ended {
		return false
	}
	if conn.Target == "" {
		conn.Target = d.dragged
	}
	d.clearPreview()

	h := d.ws.hooks(conn.BlockID)
	if h == nil {
		d.ws.logger.Debug("hover ignored", "workspace", d.ws.ID, "block", conn.BlockID)
		return false
	}
	inserted := h.ProbeConnection(conn)
	d.markPending(conn.BlockID)

	if conn.SocketID != "" && d.draggedIsLeaf() {
		b := d.ws.blocks[conn.BlockID]
		if s, ok := b.Socket(conn.SocketID); ok && s.Attached == nil {
			marker := d.ws.add(newPreview(uuid.NewString()))
			if err := d.ws.Attach(b.ID, s.ID, marker.ID); err != nil {
				d.ws.remove(marker.ID)
			} else {
				d.preview = marker.ID
			}
		}
	}
	return inserted
}

// End drops the dragged block on drop, or leaves it where it is when drop is
// nil. Pending stages are finalized whatever the outcome, and a second call
// does nothing.
func (d *Drag) End(drop *Connection) error {
	if d.ended {
		return nil
	}
	d.ended = true
	d.clearPreview()

	var err error
	if drop != nil {
		d.markPending(drop.BlockID)
		if drop.SocketID == "" {
			err = d.ws.Chain(drop.BlockID, d.dragged)
		} else {
			err = d.ws.Attach(drop.BlockID, drop.SocketID, d.dragged)
		}
	}
	removed := 0
	if len(d.pending) > 0 {
		removed = d.ws.Finalize(d.pending...)
	}
	d.ws.logger.Debug("drag ended", "workspace", d.ws.ID, "block", d.dragged, "trimmed", removed, "dropped", drop != nil && err == nil)
	if err != nil {
		return fmt.Errorf("blockpipe: drop %s: %w", d.dragged, err)
	}
	return nil
}

func (d *Drag) draggedIsLeaf() bool {
	b, ok := d.ws.blocks[d.dragged]
	return ok && b.Kind == KindArgument
}

func (d *Drag) markPending(id string) {
	if d.ws.hooks(id) == nil {
		return
	}
	for _, p := range d.pending {
		if p == id {
			return
		}
	}
	d.pending = append(d.pending, id)
}

func (d *Drag) clearPreview() {
	if d.preview == "" {
		return
	}
	if err := d.ws.Delete(d.preview); err != nil {
		d.ws.logger.Debug("preview already gone", "workspace", d.ws.ID, "block", d.preview)
	}
	d.preview = ""
}
