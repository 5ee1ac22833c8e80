package blockpipe

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStage(args ...string) *Block {
	return NewStage("s", StageDef{Name: "stage", Args: args})
}

func probeAt(b *Block, socket string) bool {
	return b.ProbeConnection(Connection{BlockID: b.ID, SocketID: socket, Target: "dragged"})
}

func plug(b *Block, socket, child string) {
	s, _ := b.Socket(socket)
	s.Attached = &Attachment{BlockID: child}
}

func assertSockets(t *testing.T, b *Block, want ...string) {
	t.Helper()
	if diff := cmp.Diff(want, b.SocketIDs()); diff != "" {
		t.Errorf("sockets mismatch (-want +got):\n%s", diff)
	}
}

func TestNewStageSockets(t *testing.T) {
	b := newTestStage()
	assertSockets(t, b, "arg_0")
	assert.Equal(t, 1, b.MinSockets)
	assert.Equal(t, 1, b.NameCounter)
	assert.Equal(t, "stage", b.Sockets[0].Label)

	b = newTestStage("key", "salt")
	assertSockets(t, b, "arg_0", "arg_1")
	assert.Equal(t, 2, b.NameCounter)
	assert.Empty(t, b.Sockets[1].Label)
}

func TestProbeAppendsAtTail(t *testing.T) {
	b := newTestStage()

	assert.True(t, probeAt(b, "arg_0"))
	assertSockets(t, b, "arg_0", "arg_1")
	assert.Equal(t, 2, b.NameCounter)

	// Same gap again: arg_0 is no longer last and arg_1 is empty.
	assert.False(t, probeAt(b, "arg_0"))
	assertSockets(t, b, "arg_0", "arg_1")

	// Hovering the new tail keeps growing it.
	assert.True(t, probeAt(b, "arg_1"))
	assertSockets(t, b, "arg_0", "arg_1", "arg_2")
}

func TestProbeInsertsBeforeFilledSocket(t *testing.T) {
	b := newTestStage()
	require.True(t, probeAt(b, "arg_0"))
	require.True(t, probeAt(b, "arg_1"))
	assertSockets(t, b, "arg_0", "arg_1", "arg_2")

	plug(b, "arg_2", "leaf")
	assert.True(t, probeAt(b, "arg_1"))
	assertSockets(t, b, "arg_0", "arg_1", "arg_3", "arg_2")

	// The gap is now in front of the empty arg_3.
	assert.False(t, probeAt(b, "arg_1"))
	assertSockets(t, b, "arg_0", "arg_1", "arg_3", "arg_2")
}

func TestProbeMiddleWithoutFilledNeighbour(t *testing.T) {
	b := newTestStage("a", "b", "c")
	assert.False(t, probeAt(b, "arg_1"))
	assertSockets(t, b, "arg_0", "arg_1", "arg_2")
	assert.Equal(t, 3, b.NameCounter)
}

func TestProbeIgnoresPreviewNeighbour(t *testing.T) {
	b := newTestStage("a", "b")
	s, _ := b.Socket("arg_1")
	s.Attached = &Attachment{BlockID: "ghost", Preview: true}

	assert.False(t, probeAt(b, "arg_0"))
	assertSockets(t, b, "arg_0", "arg_1")

	s.Attached.Preview = false
	assert.True(t, probeAt(b, "arg_0"))
	assertSockets(t, b, "arg_0", "arg_2", "arg_1")
}

func TestProbeNoOps(t *testing.T) {
	tests := []struct {
		name string
		conn Connection
	}{
		{"no target", Connection{BlockID: "s", SocketID: "arg_0"}},
		{"other block", Connection{BlockID: "other", SocketID: "arg_0", Target: "x"}},
		{"chain link", Connection{BlockID: "s", Target: "x"}},
		{"unknown socket", Connection{BlockID: "s", SocketID: "arg_9", Target: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestStage()
			assert.False(t, b.ProbeConnection(tt.conn))
			assertSockets(t, b, "arg_0")
			assert.Equal(t, 1, b.NameCounter)
		})
	}
}

func TestFinalize(t *testing.T) {
	b := newTestStage()
	require.True(t, probeAt(b, "arg_0"))
	require.True(t, probeAt(b, "arg_1"))
	plug(b, "arg_1", "leaf")

	assert.Equal(t, 1, b.Finalize())
	assertSockets(t, b, "arg_0", "arg_1")
	assert.Equal(t, 0, b.Finalize())
	assertSockets(t, b, "arg_0", "arg_1")
	assert.Equal(t, 3, b.NameCounter)
}

func TestFinalizeKeepsPermanentSockets(t *testing.T) {
	b := newTestStage("key", "salt")
	require.True(t, probeAt(b, "arg_1"))
	assertSockets(t, b, "arg_0", "arg_1", "arg_2")

	assert.Equal(t, 1, b.Finalize())
	assertSockets(t, b, "arg_0", "arg_1")
}

func TestFinalizeKeepsPreviewedSocket(t *testing.T) {
	b := newTestStage()
	require.True(t, probeAt(b, "arg_0"))
	s, _ := b.Socket("arg_1")
	s.Attached = &Attachment{BlockID: "ghost", Preview: true}

	assert.Equal(t, 0, b.Finalize())
	assertSockets(t, b, "arg_0", "arg_1")
}

func TestSocketIDsStayUnique(t *testing.T) {
	b := newTestStage()
	seen := map[string]bool{"arg_0": true}
	for round := 0; round < 5; round++ {
		require.True(t, probeAt(b, b.Sockets[len(b.Sockets)-1].ID))
		id := b.Sockets[len(b.Sockets)-1].ID
		assert.False(t, seen[id], "id %s minted twice", id)
		seen[id] = true
		b.Finalize()
	}
	assertSockets(t, b, "arg_0")
	assert.Equal(t, 6, b.NameCounter)
}
