package blockpipe

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/meikuraledutech/blockpipe/internal/logging"
)

// Catalog resolves stage names to their declarations.
type Catalog interface {
	Lookup(name string) (StageDef, bool)
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger used for absorbed editing conditions.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithCatalog makes AddStage and Import resolve stage names through c.
func WithCatalog(c Catalog) Option {
	return func(w *Workspace) {
		w.catalog = c
	}
}

// Workspace owns every block on one canvas and the links between them.
// It is not safe for concurrent use; editor events are expected to be
// delivered one at a time.
type Workspace struct {
	ID string

	blocks  map[string]*Block
	order   []string
	catalog Catalog
	logger  *slog.Logger
}

// NewWorkspace creates an empty workspace. An empty id gets a fresh UUID.
func NewWorkspace(id string, opts ...Option) *Workspace {
	if id == "" {
		id = uuid.NewString()
	}
	w := &Workspace{
		ID:     id,
		blocks: make(map[string]*Block),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Block looks a block up by id.
func (w *Workspace) Block(id string) (*Block, bool) {
	b, ok := w.blocks[id]
	return b, ok
}

// Blocks returns every block in creation order.
func (w *Workspace) Blocks() []*Block {
	out := make([]*Block, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.blocks[id])
	}
	return out
}

// Stages returns the stage blocks in creation order.
func (w *Workspace) Stages() []*Block {
	var out []*Block
	for _, b := range w.Blocks() {
		if b.Kind == KindStage {
			out = append(out, b)
		}
	}
	return out
}

func (w *Workspace) add(b *Block) *Block {
	w.blocks[b.ID] = b
	w.order = append(w.order, b.ID)
	return b
}

func (w *Workspace) stage(id string) (*Block, error) {
	b, ok := w.blocks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if b.Kind != KindStage {
		return nil, fmt.Errorf("%w: %s", ErrNotStage, id)
	}
	return b, nil
}

// AddStage creates a stage block by name. With a catalog set, unknown names
// fail with ErrUnknownStage; without one the stage gets a single socket.
func (w *Workspace) AddStage(name string) (*Block, error) {
	def := StageDef{Name: name}
	if w.catalog != nil {
		d, ok := w.catalog.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
		}
		def = d
	}
	return w.AddStageDef(def), nil
}

// AddStageDef creates a stage block from an explicit declaration.
func (w *Workspace) AddStageDef(def StageDef) *Block {
	return w.add(NewStage(uuid.NewString(), def))
}

// AddArgument creates a free-floating argument leaf.
func (w *Workspace) AddArgument(key, value string) *Block {
	return w.add(NewArgument(uuid.NewString(), sanitizeKey(key), value))
}

// SetArgument edits a leaf's fields. The key loses all whitespace; the value
// is kept as typed.
func (w *Workspace) SetArgument(id, key, value string) error {
	b, ok := w.blocks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if b.Kind != KindArgument {
		return fmt.Errorf("%w: %s", ErrNotArgument, id)
	}
	b.Key = sanitizeKey(key)
	b.Value = value
	return nil
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, key)
}

// Attach plugs child into the given socket of parent. A block already in the
// socket is unplugged and left on the canvas as a top-level block.
func (w *Workspace) Attach(parentID, socketID, childID string) error {
	parent, err := w.stage(parentID)
	if err != nil {
		return err
	}
	child, ok := w.blocks[childID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, childID)
	}
	if child.Kind != KindArgument && child.Kind != KindPreview {
		return fmt.Errorf("%w: %s", ErrNotArgument, childID)
	}
	sock, ok := parent.Socket(socketID)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrSocketNotFound, socketID, parentID)
	}

	if err := w.Detach(childID); err != nil {
		return err
	}
	if sock.Attached != nil {
		if old, ok := w.blocks[sock.Attached.BlockID]; ok {
			old.Parent = ""
		}
	}
	sock.Attached = &Attachment{BlockID: child.ID, Preview: child.Kind == KindPreview}
	child.Parent = parent.ID
	return nil
}

// Detach unplugs child from whatever socket holds it.
func (w *Workspace) Detach(childID string) error {
	child, ok := w.blocks[childID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, childID)
	}
	if child.Parent == "" {
		return nil
	}
	if parent, ok := w.blocks[child.Parent]; ok {
		for _, s := range parent.Sockets {
			if s.Attached != nil && s.Attached.BlockID == childID {
				s.Attached = nil
			}
		}
	}
	child.Parent = ""
	return nil
}

// Chain makes next the successor stage of prev.
func (w *Workspace) Chain(prevID, nextID string) error {
	prev, err := w.stage(prevID)
	if err != nil {
		return err
	}
	next, err := w.stage(nextID)
	if err != nil {
		return err
	}
	if prev.SinkOnly || next.SourceOnly {
		return fmt.Errorf("%w: %s => %s", ErrChainForbidden, prev.Name, next.Name)
	}
	if prev.Next == next.ID {
		return nil
	}
	if prev.Next != "" || next.Prev != "" {
		return fmt.Errorf("%w: %s => %s", ErrChainOccupied, prev.Name, next.Name)
	}
	for cur := prev; cur != nil; cur = w.blocks[cur.Prev] {
		if cur.ID == next.ID {
			return ErrCycleDetected
		}
	}
	prev.Next = next.ID
	next.Prev = prev.ID
	return nil
}

// Unchain cuts the link between id and its predecessor.
func (w *Workspace) Unchain(id string) error {
	b, ok := w.blocks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if prev, ok := w.blocks[b.Prev]; ok && prev.Next == id {
		prev.Next = ""
	}
	b.Prev = ""
	return nil
}

// Delete removes a block and every reference to it. Its children stay on the
// canvas as top-level blocks; a preview marker goes with it.
func (w *Workspace) Delete(id string) error {
	b, ok := w.blocks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if err := w.Detach(id); err != nil {
		return err
	}
	if err := w.Unchain(id); err != nil {
		return err
	}
	if next, ok := w.blocks[b.Next]; ok {
		next.Prev = ""
	}
	for _, s := range b.Sockets {
		if s.Attached == nil {
			continue
		}
		if child, ok := w.blocks[s.Attached.BlockID]; ok {
			child.Parent = ""
			if child.Kind == KindPreview {
				w.remove(child.ID)
			}
		}
		s.Attached = nil
	}
	w.remove(id)
	return nil
}

func (w *Workspace) remove(id string) {
	delete(w.blocks, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// TopBlocks returns blocks that are neither plugged into a socket nor
// chained after another stage, in creation order. Preview markers are left out.
func (w *Workspace) TopBlocks() []*Block {
	var out []*Block
	for _, b := range w.Blocks() {
		if b.Parent == "" && b.Prev == "" && b.Kind != KindPreview {
			out = append(out, b)
		}
	}
	return out
}

// Successor returns the stage chained after b, or nil.
func (w *Workspace) Successor(b *Block) *Block {
	if b.Next == "" {
		return nil
	}
	return w.blocks[b.Next]
}

// Arguments returns the leaves plugged into b, in socket order.
func (w *Workspace) Arguments(b *Block) []*Block {
	var out []*Block
	for _, s := range b.Sockets {
		if !s.filled() {
			continue
		}
		if child, ok := w.blocks[s.Attached.BlockID]; ok && child.Kind == KindArgument {
			out = append(out, child)
		}
	}
	return out
}

// hooks returns the drag callbacks of a block, or nil when it has none.
func (w *Workspace) hooks(id string) ConnectionHooks {
	b, ok := w.blocks[id]
	if !ok || b.Kind != KindStage {
		return nil
	}
	return b
}

// Probe forwards a connection probe to the owning block. Probes against
// unknown blocks are ignored.
func (w *Workspace) Probe(conn Connection) bool {
	h := w.hooks(conn.BlockID)
	if h == nil {
		w.logger.Debug("probe ignored", "workspace", w.ID, "block", conn.BlockID, "socket", conn.SocketID)
		return false
	}
	inserted := h.ProbeConnection(conn)
	if inserted {
		w.logger.Debug("socket opened", "workspace", w.ID, "block", conn.BlockID, "after", conn.SocketID)
	}
	return inserted
}

// Finalize trims the dynamic sockets of the given stages, or of every stage
// when ids is empty. It returns the number of sockets removed.
func (w *Workspace) Finalize(ids ...string) int {
	if len(ids) == 0 {
		for _, b := range w.Stages() {
			ids = append(ids, b.ID)
		}
	}
	removed := 0
	for _, id := range ids {
		h := w.hooks(id)
		if h == nil {
			w.logger.Debug("finalize ignored", "workspace", w.ID, "block", id)
			continue
		}
		removed += h.Finalize()
	}
	return removed
}
