package blockpipe

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Graph is the persisted form of a workspace: one node per block and one
// edge per connection.
type Graph struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one block. Data holds the encoded BlockState.
// Ref is a temporary key used only while saving for edge wiring; it is never persisted.
type Node struct {
	ID   string          `json:"id,omitempty"`
	Ref  string          `json:"ref,omitempty"`
	Data json.RawMessage `json:"data"`
}

// Edge connects a parent stage to a child block. Data holds the encoded LinkState.
// FromNodeRef / ToNodeRef are temporary keys used only while saving; they are never persisted.
type Edge struct {
	ID          string          `json:"id,omitempty"`
	FromNodeID  string          `json:"from_node_id,omitempty"`
	ToNodeID    string          `json:"to_node_id,omitempty"`
	FromNodeRef string          `json:"from_node_ref,omitempty"`
	ToNodeRef   string          `json:"to_node_ref,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// ResolveRefs gives every node and edge an id and rewrites edge refs to
// node ids. Refs are cleared afterwards.
func (g *Graph) ResolveRefs() error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	refMap := make(map[string]string)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.Ref != "" {
			refMap[n.Ref] = n.ID
		}
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.FromNodeRef != "" {
			id, ok := refMap[e.FromNodeRef]
			if !ok {
				return fmt.Errorf("%w: from_node_ref %q", ErrUnknownRef, e.FromNodeRef)
			}
			e.FromNodeID = id
		}
		if e.ToNodeRef != "" {
			id, ok := refMap[e.ToNodeRef]
			if !ok {
				return fmt.Errorf("%w: to_node_ref %q", ErrUnknownRef, e.ToNodeRef)
			}
			e.ToNodeID = id
		}
	}

	for i := range g.Nodes {
		g.Nodes[i].Ref = ""
	}
	for i := range g.Edges {
		g.Edges[i].FromNodeRef = ""
		g.Edges[i].ToNodeRef = ""
	}
	return nil
}

// Validate checks that the chain links don't form a cycle.
func (g *Graph) Validate() error {
	return validateAcyclic(g.Edges)
}

// Prepare resolves refs and validates; stores call it before writing.
func (g *Graph) Prepare() error {
	if err := g.ResolveRefs(); err != nil {
		return err
	}
	return g.Validate()
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	c := &Graph{ID: g.ID}
	c.Nodes = make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		n.Data = append(json.RawMessage(nil), n.Data...)
		c.Nodes[i] = n
	}
	c.Edges = make([]Edge, len(g.Edges))
	for i, e := range g.Edges {
		e.Data = append(json.RawMessage(nil), e.Data...)
		c.Edges[i] = e
	}
	return c
}

// validateAcyclic rejects documents whose chain links loop. Socket links end
// at argument leaves, which link nowhere, so they cannot close a cycle.
func validateAcyclic(edges []Edge) error {
	next := make(map[string][]string)
	for _, e := range edges {
		if socketLink(e) {
			continue
		}
		next[e.FromNodeID] = append(next[e.FromNodeID], e.ToNodeID)
	}

	const (
		onPath = 1
		done   = 2
	)
	state := make(map[string]int, len(next))
	var loops func(id string) bool
	loops = func(id string) bool {
		switch state[id] {
		case onPath:
			return true
		case done:
			return false
		}
		state[id] = onPath
		for _, to := range next[id] {
			if loops(to) {
				return true
			}
		}
		state[id] = done
		return false
	}

	for _, e := range edges {
		if loops(e.FromNodeID) {
			return ErrCycleDetected
		}
	}
	return nil
}

// socketLink reports whether e plugs a block into a socket. Edges whose data
// does not decode count as chain links.
func socketLink(e Edge) bool {
	if len(e.Data) == 0 {
		return false
	}
	var ls LinkState
	return json.Unmarshal(e.Data, &ls) == nil && ls.Socket != ""
}
