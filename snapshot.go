package blockpipe

import (
	"strconv"
	"strings"
)

const socketIDSep = ","

// Snapshot is the persisted form of a stage block's socket layout. It holds
// socket identity only; attachments travel as graph edges.
type Snapshot struct {
	InputNames   string `json:"inputNames,omitempty" yaml:"inputNames,omitempty"`
	InputCounter string `json:"inputCounter,omitempty" yaml:"inputCounter,omitempty"`
}

// Serialize captures the block's socket ids and naming counter.
func Serialize(b *Block) Snapshot {
	return Snapshot{
		InputNames:   strings.Join(b.SocketIDs(), socketIDSep),
		InputCounter: strconv.Itoa(b.NameCounter),
	}
}

// Deserialize rebuilds the block's sockets from snap. Attachments are
// dropped; the caller re-plugs children by socket id. Empty and duplicate
// ids are skipped, and when nothing usable remains the current layout is
// kept. The counter never ends up below an id already in use. It returns
// the number of ids it had to skip.
func Deserialize(b *Block, snap Snapshot) int {
	skipped := 0
	if snap.InputNames != "" {
		seen := make(map[string]bool)
		var sockets []*Socket
		for _, id := range strings.Split(snap.InputNames, socketIDSep) {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				skipped++
				continue
			}
			seen[id] = true
			sockets = append(sockets, &Socket{ID: id})
		}
		if len(sockets) > 0 {
			b.Sockets = sockets
			b.labelFirst()
		}
	}

	counter, err := strconv.Atoi(strings.TrimSpace(snap.InputCounter))
	if err != nil || counter < 0 {
		counter = 0
	}
	b.NameCounter = max(counter, nextFreeCounter(b.Sockets))
	return skipped
}

// nextFreeCounter is the lowest counter that cannot mint an id already
// present in sockets.
func nextFreeCounter(sockets []*Socket) int {
	next := 0
	for _, s := range sockets {
		if n, ok := parseSocketID(s.ID); ok && n+1 > next {
			next = n + 1
		}
	}
	return next
}
