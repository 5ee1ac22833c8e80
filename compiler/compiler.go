// Package compiler turns a workspace of chained stage blocks into pipeline
// script text.
//
// A program is one line (or space separated chunk, in compact mode) per
// top-level stage chain:
//
//	tcp =>
//	xor("secret")
package compiler

import (
	"strconv"
	"strings"

	"github.com/meikuraledutech/blockpipe"
)

// Mode selects the output layout.
type Mode int

const (
	Pretty Mode = iota
	Compact
)

func (m Mode) String() string {
	if m == Compact {
		return "compact"
	}
	return "pretty"
}

type separators struct {
	chain   string
	arg     string
	program string
	assign  string
}

func (m Mode) seps() separators {
	if m == Compact {
		return separators{chain: "=>", arg: ",", program: " ", assign: "="}
	}
	return separators{chain: " =>\n", arg: ", ", program: "\n", assign: " = "}
}

// Graph is the traversal a compilation needs. *blockpipe.Workspace
// implements it.
type Graph interface {
	TopBlocks() []*blockpipe.Block
	Successor(b *blockpipe.Block) *blockpipe.Block
	Arguments(b *blockpipe.Block) []*blockpipe.Block
}

var _ Graph = (*blockpipe.Workspace)(nil)

// Compile renders every top-level stage chain of g. Blocks that are not
// stages produce nothing.
func Compile(g Graph, mode Mode) string {
	c := &compilation{g: g, seps: mode.seps()}
	for _, top := range g.TopBlocks() {
		if !top.IsStage() {
			continue
		}
		c.chain(top)
		c.sb.WriteString(c.seps.program)
	}
	return c.sb.String()
}

type compilation struct {
	g    Graph
	seps separators
	sb   strings.Builder
}

func (c *compilation) chain(head *blockpipe.Block) {
	seen := make(map[string]bool)
	for b := head; b != nil && b.IsStage() && !seen[b.ID]; b = c.g.Successor(b) {
		if b != head {
			c.sb.WriteString(c.seps.chain)
		}
		seen[b.ID] = true
		c.stage(b)
	}
}

func (c *compilation) stage(b *blockpipe.Block) {
	var args []string
	for _, leaf := range c.g.Arguments(b) {
		if tok, ok := argument(leaf.Key, leaf.Value, c.seps.assign); ok {
			args = append(args, tok)
		}
	}
	c.sb.WriteString(b.Name)
	if len(args) > 0 {
		c.sb.WriteByte('(')
		c.sb.WriteString(strings.Join(args, c.seps.arg))
		c.sb.WriteByte(')')
	}
}

// Argument renders one key = value leaf. It reports false when the leaf has
// neither key nor value.
func Argument(key, value string, mode Mode) (string, bool) {
	return argument(key, value, mode.seps().assign)
}

func argument(key, value, assign string) (string, bool) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if !quoted(value) {
		if value == "" {
			return key, key != ""
		}
		value = literal(value)
	}
	if key == "" {
		return value, true
	}
	return key + assign + value, true
}

func quoted(v string) bool {
	return len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"'
}

// literal is the canonical integer text of v, or v in quotes. Only whole
// base-10 integers count: "3.5" and "12abc" are quoted, not truncated.
func literal(v string) string {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if n, err := strconv.ParseUint(v, 10, 64); err == nil {
		return strconv.FormatUint(n, 10)
	}
	return `"` + v + `"`
}
