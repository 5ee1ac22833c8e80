// Package storetest holds the behaviour every blockpipe.Store must share.
package storetest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/meikuraledutech/blockpipe"
	"github.com/meikuraledutech/blockpipe/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract exercises a fresh store. It creates the schema and leaves
// it in place.
func RunStoreContract(t *testing.T, store blockpipe.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateSchema(ctx))

	t.Run("SaveAndGet", func(t *testing.T) {
		ws := blockpipe.NewWorkspace("")
		tcp := ws.AddStageDef(blockpipe.StageDef{Name: "tcp"})
		xor := ws.AddStageDef(blockpipe.StageDef{Name: "xor", Args: []string{"key"}})
		secret := ws.AddArgument("", "secret")
		require.NoError(t, ws.Chain(tcp.ID, xor.ID))
		require.NoError(t, ws.Attach(xor.ID, "arg_0", secret.ID))
		xor.ProbeConnection(blockpipe.Connection{BlockID: xor.ID, SocketID: "arg_0", Target: "x"})

		saved, err := store.SaveGraph(ctx, ws.Export())
		require.NoError(t, err)
		assert.Equal(t, ws.ID, saved.ID)

		got, err := store.GetGraph(ctx, ws.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Nodes, 3)
		assert.Equal(t, []string{tcp.ID, xor.ID, secret.ID}, nodeIDs(got))
		assert.Len(t, got.Edges, 2)

		restored, err := blockpipe.Import(got)
		require.NoError(t, err)
		assert.Equal(t, "tcp =>\nxor(\"secret\")\n", compiler.Compile(restored, compiler.Pretty))

		rx, ok := restored.Block(xor.ID)
		require.True(t, ok)
		assert.Equal(t, []string{"arg_0", "arg_1"}, rx.SocketIDs())
		assert.Equal(t, 2, rx.NameCounter)

		ids, err := store.ListGraphs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, ws.ID)

		require.NoError(t, store.DeleteGraph(ctx, ws.ID))
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		ws := blockpipe.NewWorkspace("")
		a := ws.AddStageDef(blockpipe.StageDef{Name: "stdin"})
		b := ws.AddStageDef(blockpipe.StageDef{Name: "stdout"})
		require.NoError(t, ws.Chain(a.ID, b.ID))
		_, err := store.SaveGraph(ctx, ws.Export())
		require.NoError(t, err)

		require.NoError(t, ws.Delete(b.ID))
		_, err = store.SaveGraph(ctx, ws.Export())
		require.NoError(t, err)

		got, err := store.GetGraph(ctx, ws.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []string{a.ID}, nodeIDs(got))
		assert.Empty(t, got.Edges)

		require.NoError(t, store.DeleteGraph(ctx, ws.ID))
	})

	t.Run("Refs", func(t *testing.T) {
		g := &blockpipe.Graph{
			ID: uuid.NewString(),
			Nodes: []blockpipe.Node{
				{Ref: "s", Data: json.RawMessage(`{"kind":"stage","name":"udp"}`)},
				{Ref: "a", Data: json.RawMessage(`{"kind":"argument","key":"port","value":"53"}`)},
			},
			Edges: []blockpipe.Edge{
				{FromNodeRef: "s", ToNodeRef: "a", Data: json.RawMessage(`{"socket":"arg_0"}`)},
			},
		}
		saved, err := store.SaveGraph(ctx, g)
		require.NoError(t, err)
		for _, n := range saved.Nodes {
			assert.NotEmpty(t, n.ID)
			assert.Empty(t, n.Ref)
		}

		got, err := store.GetGraph(ctx, g.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Edges, 1)
		assert.Equal(t, saved.Nodes[0].ID, got.Edges[0].FromNodeID)
		assert.Equal(t, saved.Nodes[1].ID, got.Edges[0].ToNodeID)

		ws, err := blockpipe.Import(got)
		require.NoError(t, err)
		assert.Equal(t, "udp(port=53) ", compiler.Compile(ws, compiler.Compact))

		require.NoError(t, store.DeleteGraph(ctx, g.ID))
	})

	t.Run("UnknownRef", func(t *testing.T) {
		g := &blockpipe.Graph{
			ID:    uuid.NewString(),
			Nodes: []blockpipe.Node{{Ref: "s", Data: json.RawMessage(`{"kind":"stage","name":"udp"}`)}},
			Edges: []blockpipe.Edge{{FromNodeRef: "s", ToNodeRef: "ghost", Data: json.RawMessage(`{}`)}},
		}
		_, err := store.SaveGraph(ctx, g)
		assert.Error(t, err)
	})

	t.Run("Cycle", func(t *testing.T) {
		g := &blockpipe.Graph{
			ID: uuid.NewString(),
			Nodes: []blockpipe.Node{
				{Ref: "a", Data: json.RawMessage(`{"kind":"stage","name":"tee"}`)},
				{Ref: "b", Data: json.RawMessage(`{"kind":"stage","name":"tee"}`)},
			},
			Edges: []blockpipe.Edge{
				{FromNodeRef: "a", ToNodeRef: "b", Data: json.RawMessage(`{}`)},
				{FromNodeRef: "b", ToNodeRef: "a", Data: json.RawMessage(`{}`)},
			},
		}
		_, err := store.SaveGraph(ctx, g)
		assert.ErrorIs(t, err, blockpipe.ErrCycleDetected)

		got, err := store.GetGraph(ctx, g.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("EmptyGraph", func(t *testing.T) {
		ws := blockpipe.NewWorkspace("")
		_, err := store.SaveGraph(ctx, ws.Export())
		require.NoError(t, err)

		got, err := store.GetGraph(ctx, ws.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, ws.ID, got.ID)
		assert.Empty(t, got.Nodes)
		assert.Empty(t, got.Edges)

		ids, err := store.ListGraphs(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, ws.ID)

		restored, err := blockpipe.Import(got)
		require.NoError(t, err)
		restored.AddStageDef(blockpipe.StageDef{Name: "tcp"})
		_, err = store.SaveGraph(ctx, restored.Export())
		require.NoError(t, err)
		got, err = store.GetGraph(ctx, ws.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Len(t, got.Nodes, 1)

		require.NoError(t, store.DeleteGraph(ctx, ws.ID))
		got, err = store.GetGraph(ctx, ws.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("SharedNodeIDs", func(t *testing.T) {
		doc := func(id, port string) *blockpipe.Graph {
			return &blockpipe.Graph{
				ID: id,
				Nodes: []blockpipe.Node{
					{ID: "udp", Data: json.RawMessage(`{"kind":"stage","name":"udp"}`)},
					{ID: "port", Data: json.RawMessage(`{"kind":"argument","key":"port","value":"` + port + `"}`)},
				},
				Edges: []blockpipe.Edge{
					{ID: "udp:arg_0", FromNodeID: "udp", ToNodeID: "port", Data: json.RawMessage(`{"socket":"arg_0"}`)},
				},
			}
		}
		first, second := uuid.NewString(), uuid.NewString()
		_, err := store.SaveGraph(ctx, doc(first, "53"))
		require.NoError(t, err)
		_, err = store.SaveGraph(ctx, doc(second, "5353"))
		require.NoError(t, err)

		for id, want := range map[string]string{first: "udp(port=53) ", second: "udp(port=5353) "} {
			got, err := store.GetGraph(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, got)
			ws, err := blockpipe.Import(got)
			require.NoError(t, err)
			assert.Equal(t, want, compiler.Compile(ws, compiler.Compact))
		}

		require.NoError(t, store.DeleteGraph(ctx, first))
		got, err := store.GetGraph(ctx, second)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Len(t, got.Nodes, 2)
		assert.Len(t, got.Edges, 1)

		require.NoError(t, store.DeleteGraph(ctx, second))
	})

	t.Run("Missing", func(t *testing.T) {
		got, err := store.GetGraph(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)

		assert.NoError(t, store.DeleteGraph(ctx, uuid.NewString()))
	})
}

func nodeIDs(g *blockpipe.Graph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}
