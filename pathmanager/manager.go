package pathmanager

import (
	"net"
	"sync"

	"github.com/quicfec/qfec/internal/protocol"
)

// Manager owns the set of Paths for one connection and resolves which
// Path an incoming segment belongs to, adapted from the selection logic
// spread across vuva-MAppLE's path_manager.go and session.go (there
// entangled with congestion-controller setup, which this module drops).
type Manager struct {
	mu    sync.RWMutex
	paths []*Path
}

// NewManager builds an empty path set.
func NewManager() *Manager {
	return &Manager{}
}

// Resolve finds the Path matching addrFrom and destCID, creating one via
// newPath if none exists. Selection order: an exact peer-address match
// first (multipath keeps one Path per active peer address), then a
// matching local connection ID for a peer whose address just changed.
func (m *Manager) Resolve(addrFrom net.Addr, destCID protocol.ConnectionID, newPath func() *Path) *Path {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.paths {
		if sameAddr(p.PeerAddr, addrFrom) {
			return p
		}
	}
	for _, p := range m.paths {
		if len(destCID) > 0 && p.LocalCID.Equal(destCID) {
			return p
		}
	}
	if newPath == nil {
		return nil
	}
	p := newPath()
	m.paths = append(m.paths, p)
	return p
}

// Paths returns a snapshot of the tracked paths.
func (m *Manager) Paths() []*Path {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Path, len(m.paths))
	copy(out, m.paths)
	return out
}

// Remove drops p from the tracked set.
func (m *Manager) Remove(p *Path) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cand := range m.paths {
		if cand == p {
			m.paths = append(m.paths[:i], m.paths[i+1:]...)
			return
		}
	}
}
