package pathmanager

import "net"

// LocalAddrObserver is notified as local interface addresses come and
// go, so the endpoint can open or retire receive sockets for multipath
// incoming-path selection.
type LocalAddrObserver interface {
	LocalAddrAdded(ip net.IP, ifIndex int, ifName string)
	LocalAddrRemoved(ip net.IP, ifIndex int)
}

// Watcher discovers local interface addresses and reports changes to a
// LocalAddrObserver, adapted from vuva-MAppLE's NetWatcherI (net_watcher.go).
type Watcher interface {
	Run(obs LocalAddrObserver) error
	Close()
}

func notValidIfaceName(name string) bool {
	for _, bad := range []string{"docker", "tap", "tun", "lo"} {
		if len(name) >= len(bad) && name[:len(bad)] == bad {
			return true
		}
	}
	return false
}
