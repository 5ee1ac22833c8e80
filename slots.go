package blockpipe

// Connection identifies a connection point on a block as seen during a drag.
type Connection struct {
	// BlockID owns the connection point.
	BlockID string `json:"block"`
	// SocketID names an argument socket. Empty means the chain link.
	SocketID string `json:"socket,omitempty"`
	// Target is the block currently pending on this point. Empty when
	// nothing is trying to attach.
	Target string `json:"target,omitempty"`
}

// ConnectionHooks is the contract a drag session calls into. Both methods
// must tolerate repeated delivery of the same event.
type ConnectionHooks interface {
	ProbeConnection(conn Connection) bool
	Finalize() int
}

var _ ConnectionHooks = (*Block)(nil)

// noIndex means the probe opens no socket. Any index past the last socket
// means the new socket stays at the tail.
const noIndex = -1

// insertIndex decides where a probe on conn should open a new socket.
func (b *Block) insertIndex(conn Connection) int {
	if conn.Target == "" {
		return noIndex
	}
	if conn.BlockID != "" && conn.BlockID != b.ID {
		return noIndex
	}
	i := b.socketIndex(conn.SocketID)
	if conn.SocketID == "" || i < 0 {
		return noIndex
	}
	if i == len(b.Sockets)-1 {
		return len(b.Sockets) + 1
	}
	if b.Sockets[i+1].filled() {
		return i + 1
	}
	return noIndex
}

// ProbeConnection opens a fresh socket next to the probed one when the user
// hovers the tail or a gap in front of a filled socket. It reports whether a
// socket was added.
func (b *Block) ProbeConnection(conn Connection) bool {
	at := b.insertIndex(conn)
	if at == noIndex {
		return false
	}
	b.Sockets = append(b.Sockets, b.mintSocket())
	last := len(b.Sockets) - 1
	if at < last {
		s := b.Sockets[last]
		copy(b.Sockets[at+1:], b.Sockets[at:last])
		b.Sockets[at] = s
	}
	return true
}

// Finalize drops every empty socket past the permanent prefix and returns
// how many were removed.
func (b *Block) Finalize() int {
	kept := b.Sockets[:0]
	removed := 0
	for i, s := range b.Sockets {
		if i >= b.MinSockets && s.Attached == nil {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(b.Sockets); i++ {
		b.Sockets[i] = nil
	}
	b.Sockets = kept
	return removed
}
