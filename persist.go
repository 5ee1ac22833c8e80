package blockpipe

import (
	"encoding/json"
	"fmt"
)

// BlockState is the JSON stored in Node.Data.
type BlockState struct {
	Kind       string    `json:"kind"`
	Name       string    `json:"name,omitempty"`
	Key        string    `json:"key,omitempty"`
	Value      string    `json:"value,omitempty"`
	MinSockets int       `json:"min_sockets,omitempty"`
	SourceOnly bool      `json:"source_only,omitempty"`
	SinkOnly   bool      `json:"sink_only,omitempty"`
	Mutation   *Snapshot `json:"mutation,omitempty"`
}

// LinkState is the JSON stored in Edge.Data. An empty Socket is the chain link.
type LinkState struct {
	Socket string `json:"socket,omitempty"`
}

const chainEdge = "next"

// Export produces the persisted graph. Preview markers are not exported.
func (w *Workspace) Export() *Graph {
	g := &Graph{ID: w.ID, Nodes: []Node{}, Edges: []Edge{}}
	for _, b := range w.Blocks() {
		if b.Kind == KindPreview {
			continue
		}
		st := BlockState{Kind: b.Kind.String()}
		switch b.Kind {
		case KindStage:
			snap := Serialize(b)
			st.Name = b.Name
			st.MinSockets = b.MinSockets
			st.SourceOnly = b.SourceOnly
			st.SinkOnly = b.SinkOnly
			st.Mutation = &snap
		case KindArgument:
			st.Key = b.Key
			st.Value = b.Value
		}
		g.Nodes = append(g.Nodes, Node{ID: b.ID, Data: mustJSON(st)})

		for _, s := range b.Sockets {
			if s.filled() {
				g.Edges = append(g.Edges, Edge{
					ID:         b.ID + ":" + s.ID,
					FromNodeID: b.ID,
					ToNodeID:   s.Attached.BlockID,
					Data:       mustJSON(LinkState{Socket: s.ID}),
				})
			}
		}
		if b.Next != "" {
			g.Edges = append(g.Edges, Edge{
				ID:         b.ID + ":" + chainEdge,
				FromNodeID: b.ID,
				ToNodeID:   b.Next,
				Data:       mustJSON(LinkState{}),
			})
		}
	}
	return g
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("blockpipe: encode %T: %v", v, err))
	}
	return data
}

// Import rebuilds a workspace from a persisted graph. Stage sockets come back
// through Deserialize; links naming sockets that no longer exist are dropped.
func Import(g *Graph, opts ...Option) (*Workspace, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	w := NewWorkspace(g.ID, opts...)

	for _, n := range g.Nodes {
		var st BlockState
		if len(n.Data) > 0 {
			if err := json.Unmarshal(n.Data, &st); err != nil {
				return nil, fmt.Errorf("blockpipe: decode node %s: %w", n.ID, err)
			}
		}
		switch st.Kind {
		case "stage":
			w.add(w.restoreStage(n.ID, st))
		case "argument":
			w.add(NewArgument(n.ID, st.Key, st.Value))
		default:
			w.logger.Debug("node skipped", "workspace", w.ID, "node", n.ID, "kind", st.Kind)
		}
	}

	for _, e := range g.Edges {
		var ls LinkState
		if len(e.Data) > 0 {
			if err := json.Unmarshal(e.Data, &ls); err != nil {
				return nil, fmt.Errorf("blockpipe: decode edge %s: %w", e.ID, err)
			}
		}
		var err error
		if ls.Socket == "" {
			err = w.Chain(e.FromNodeID, e.ToNodeID)
		} else {
			err = w.Attach(e.FromNodeID, ls.Socket, e.ToNodeID)
		}
		if err != nil {
			w.logger.Debug("edge skipped", "workspace", w.ID, "edge", e.ID, "err", err)
		}
	}
	return w, nil
}

func (w *Workspace) restoreStage(id string, st BlockState) *Block {
	def := StageDef{Name: st.Name, SourceOnly: st.SourceOnly, SinkOnly: st.SinkOnly}
	known := false
	if w.catalog != nil {
		if d, ok := w.catalog.Lookup(st.Name); ok {
			def, known = d, true
		}
	}
	b := NewStage(id, def)
	if !known && st.MinSockets > 0 {
		b.MinSockets = st.MinSockets
		b.resetSockets()
	}
	if st.Mutation != nil {
		if skipped := Deserialize(b, *st.Mutation); skipped > 0 {
			w.logger.Debug("socket ids skipped", "workspace", w.ID, "block", id, "count", skipped)
		}
	}
	return b
}
