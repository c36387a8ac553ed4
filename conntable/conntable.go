// Package conntable maps destination connection IDs (and, before a
// connection ID is known, peer addresses) to endpoint connections.
package conntable

import (
	"net"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/quicfec/qfec/internal/protocol"
)

// Connection is the subset of connection behavior the table needs to
// hold a reference and eventually tear one down, mirroring the
// teacher's packetHandler interface (quic-go-quic-go/interface.go).
type Connection interface {
	Close() error
}

// closedCacheSize bounds the recently-closed-CID cache; a stray packet
// arriving for a connection ID beyond that window is treated as
// belonging to an unknown connection rather than draining forever.
const closedCacheSize = 4096

// Table looks up connections by destination connection ID, adapted from
// quic-go-quic-go's packetHandlerMap. Two additions the teacher's map
// doesn't need: a peer-address index for packets that arrive with a
// zero-length destination CID (short-header connections that negotiated
// one), and an LRU-bounded record of recently closed CIDs so a
// straggling packet for a torn-down connection is recognized instead of
// silently spawning a phantom new one.
type Table struct {
	mu sync.RWMutex

	byCID  map[string]Connection
	byAddr map[string]Connection

	closed *lru.Cache

	deleteClosedAfter time.Duration
}

// New builds an empty table. deleteClosedAfter is how long a closed
// connection ID keeps mapping to nil in byCID (so its slot is
// recognized as "was open, now gone" instead of falling straight
// through to the recently-closed cache) before being dropped.
func New(deleteClosedAfter time.Duration) *Table {
	cache, err := lru.New(closedCacheSize)
	if err != nil {
		// only fails for a non-positive size, which closedCacheSize never is
		panic(err)
	}
	return &Table{
		byCID:             make(map[string]Connection),
		byAddr:            make(map[string]Connection),
		closed:            cache,
		deleteClosedAfter: deleteClosedAfter,
	}
}

// Lookup resolves a connection by destination connection ID, falling
// back to the peer address for zero-length CIDs. It also reports
// whether the CID belongs to a connection that was recently closed, so
// the caller can distinguish "unknown, might be a new Initial" from
// "known, already torn down".
func (t *Table) Lookup(cid protocol.ConnectionID, addr net.Addr) (conn Connection, recentlyClosed bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(cid) > 0 {
		if c, ok := t.byCID[string(cid)]; ok {
			return c, c == nil
		}
		if _, ok := t.closed.Get(string(cid)); ok {
			return nil, true
		}
		return nil, false
	}
	if addr != nil {
		if c, ok := t.byAddr[addr.String()]; ok {
			return c, false
		}
	}
	return nil, false
}

// Add registers conn under cid, and additionally under addr if addr is
// non-nil (used for the zero-length-CID lookup path).
func (t *Table) Add(cid protocol.ConnectionID, addr net.Addr, conn Connection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byCID[string(cid)] = conn
	if addr != nil {
		t.byAddr[addr.String()] = conn
	}
}

// Remove tears down the CID -> connection mapping, records the CID in
// the closed cache, and schedules the entry's removal from byCID.
func (t *Table) Remove(cid protocol.ConnectionID, addr net.Addr) {
	t.mu.Lock()
	t.byCID[string(cid)] = nil
	t.closed.Add(string(cid), struct{}{})
	if addr != nil {
		delete(t.byAddr, addr.String())
	}
	t.mu.Unlock()

	time.AfterFunc(t.deleteClosedAfter, func() {
		t.mu.Lock()
		delete(t.byCID, string(cid))
		t.mu.Unlock()
	})
}

// Close shuts down every tracked connection concurrently and waits for
// them all to finish, mirroring packetHandlerMap.Close.
func (t *Table) Close() {
	t.mu.RLock()
	conns := make([]Connection, 0, len(t.byCID))
	for _, c := range t.byCID {
		if c != nil {
			conns = append(conns, c)
		}
	}
	t.mu.RUnlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c Connection) {
			defer wg.Done()
			_ = c.Close()
		}(c)
	}
	wg.Wait()
}

// Len reports the number of connection-ID entries, including removed
// ones still mapped to nil until their delayed cleanup, for tests and
// diagnostics.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byCID)
}
