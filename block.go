package blockpipe

import "strconv"

// Kind tells the workspace what a block stands for.
type Kind int

const (
	// KindStage is a pipeline operation with argument sockets and a chain link.
	KindStage Kind = iota
	// KindArgument is a key = value leaf plugged into a stage socket.
	KindArgument
	// KindPreview is a transient insertion marker shown while dragging.
	// It is never persisted and never compiled.
	KindPreview
)

func (k Kind) String() string {
	switch k {
	case KindStage:
		return "stage"
	case KindArgument:
		return "argument"
	case KindPreview:
		return "preview"
	}
	return "unknown"
}

// StageDef describes one stage kind as the catalog declares it.
type StageDef struct {
	Name       string   `json:"name" yaml:"name"`
	Component  string   `json:"component,omitempty" yaml:"component,omitempty"`
	Args       []string `json:"args,omitempty" yaml:"args,omitempty"`
	SourceOnly bool     `json:"source_only,omitempty" yaml:"source_only,omitempty"`
	SinkOnly   bool     `json:"sink_only,omitempty" yaml:"sink_only,omitempty"`
}

// MinSockets is the number of permanent sockets a block of this kind starts with.
func (d StageDef) MinSockets() int {
	if len(d.Args) > 1 {
		return len(d.Args)
	}
	return 1
}

// Attachment is a weak reference from a socket to the block plugged into it.
type Attachment struct {
	BlockID string
	Preview bool
}

// Socket is one pluggable argument position on a stage block.
type Socket struct {
	ID       string
	Label    string
	Attached *Attachment
}

// filled reports whether a real, non-preview block sits in the socket.
func (s *Socket) filled() bool {
	return s.Attached != nil && !s.Attached.Preview
}

// Block is a node on the canvas. Stage blocks carry Name and Sockets,
// argument leaves carry Key and Value.
type Block struct {
	ID   string
	Kind Kind

	Name        string
	Sockets     []*Socket
	NameCounter int
	MinSockets  int
	SourceOnly  bool
	SinkOnly    bool

	Key   string
	Value string

	// Sequencing links between stages, by block id.
	Prev string
	Next string

	// Parent is the stage holding this block in one of its sockets.
	Parent string
}

// NewStage creates a stage block with the def's permanent sockets.
func NewStage(id string, def StageDef) *Block {
	b := &Block{
		ID:         id,
		Kind:       KindStage,
		Name:       def.Name,
		MinSockets: def.MinSockets(),
		SourceOnly: def.SourceOnly,
		SinkOnly:   def.SinkOnly,
	}
	b.resetSockets()
	return b
}

// NewArgument creates an argument leaf.
func NewArgument(id, key, value string) *Block {
	return &Block{ID: id, Kind: KindArgument, Key: key, Value: value}
}

func newPreview(id string) *Block {
	return &Block{ID: id, Kind: KindPreview}
}

// IsStage reports whether the block takes part in compilation.
func (b *Block) IsStage() bool {
	return b.Kind == KindStage && b.Name != ""
}

// SocketIDs returns the socket ids in order.
func (b *Block) SocketIDs() []string {
	ids := make([]string, len(b.Sockets))
	for i, s := range b.Sockets {
		ids[i] = s.ID
	}
	return ids
}

// Socket returns the socket with the given id.
func (b *Block) Socket(id string) (*Socket, bool) {
	i := b.socketIndex(id)
	if i < 0 {
		return nil, false
	}
	return b.Sockets[i], true
}

func (b *Block) socketIndex(id string) int {
	for i, s := range b.Sockets {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// resetSockets rebuilds the construction-time layout.
func (b *Block) resetSockets() {
	b.Sockets = make([]*Socket, 0, b.MinSockets)
	for i := 0; i < b.MinSockets; i++ {
		b.Sockets = append(b.Sockets, &Socket{ID: socketID(i)})
	}
	b.NameCounter = b.MinSockets
	b.labelFirst()
}

func (b *Block) labelFirst() {
	for i, s := range b.Sockets {
		if i == 0 {
			s.Label = b.Name
		} else {
			s.Label = ""
		}
	}
}

func (b *Block) mintSocket() *Socket {
	s := &Socket{ID: socketID(b.NameCounter)}
	b.NameCounter++
	return s
}

func socketID(n int) string {
	return "arg_" + strconv.Itoa(n)
}

// parseSocketID extracts n from "arg_<n>" or ".<n>".
func parseSocketID(id string) (int, bool) {
	var digits string
	switch {
	case len(id) > 4 && id[:4] == "arg_":
		digits = id[4:]
	case len(id) > 1 && id[0] == '.':
		digits = id[1:]
	default:
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
