//go:build !linux

package pathmanager

import (
	"net"
	"time"
)

// pollInterval mirrors the 500ms poll period vuva-MAppLE's generic
// watcher uses when netlink isn't available.
const pollInterval = 500 * time.Millisecond

// GenericWatcher polls net.Interfaces() for address churn, adapted from
// net_watcher_generic.go for platforms with no netlink-equivalent
// library in the dependency pack.
type GenericWatcher struct {
	done   chan struct{}
	cached map[string][]net.IP
}

var _ Watcher = &GenericWatcher{}

// NewGenericWatcher builds an idle watcher; call Run to start polling.
func NewGenericWatcher() *GenericWatcher {
	return &GenericWatcher{
		done:   make(chan struct{}),
		cached: make(map[string][]net.IP),
	}
}

func (w *GenericWatcher) Run(obs LocalAddrObserver) error {
	if err := w.poll(obs); err != nil {
		return err
	}
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-w.done:
				return
			case <-ticker.C:
				_ = w.poll(obs)
			}
		}
	}()
	return nil
}

func (w *GenericWatcher) poll(obs LocalAddrObserver) error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return err
	}
	seen := make(map[string]map[string]net.IP)
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || notValidIfaceName(iface.Name) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			return err
		}
		current := make(map[string]net.IP)
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil || !ipNet.IP.IsGlobalUnicast() {
				continue
			}
			current[ipNet.IP.String()] = ipNet.IP
			if !containsIP(w.cached[iface.Name], ipNet.IP) {
				obs.LocalAddrAdded(ipNet.IP, iface.Index, iface.Name)
			}
		}
		seen[iface.Name] = current
		for _, old := range w.cached[iface.Name] {
			if _, ok := current[old.String()]; !ok {
				obs.LocalAddrRemoved(old, iface.Index)
			}
		}
		next := make([]net.IP, 0, len(current))
		for _, ip := range current {
			next = append(next, ip)
		}
		w.cached[iface.Name] = next
	}
	return nil
}

func containsIP(ips []net.IP, ip net.IP) bool {
	for _, i := range ips {
		if i.Equal(ip) {
			return true
		}
	}
	return false
}

func (w *GenericWatcher) Close() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}
