//go:build linux

package pathmanager

import (
	"github.com/vishvananda/netlink"
)

// LinuxWatcher subscribes to NETLINK address/link events, adapted from
// vuva-MAppLE's net_watcher_linux.go. Unlike the teacher, which opens a
// UDP socket per discovered address itself, this watcher only reports
// address churn to obs; opening receive sockets is the endpoint's job.
type LinuxWatcher struct {
	handle      *netlink.Handle
	addrUpdates chan netlink.AddrUpdate
	linkUpdates chan netlink.LinkUpdate
	done        chan struct{}
}

var _ Watcher = &LinuxWatcher{}

// NewLinuxWatcher opens a netlink handle. Call Run to start delivering
// events.
func NewLinuxWatcher() (*LinuxWatcher, error) {
	handle, err := netlink.NewHandle()
	if err != nil {
		return nil, err
	}
	return &LinuxWatcher{
		handle:      handle,
		addrUpdates: make(chan netlink.AddrUpdate, 16),
		linkUpdates: make(chan netlink.LinkUpdate, 16),
		done:        make(chan struct{}),
	}, nil
}

func (w *LinuxWatcher) Run(obs LocalAddrObserver) error {
	links, err := w.handle.LinkList()
	if err != nil {
		return err
	}
	names := make(map[int]string)
	for _, l := range links {
		attrs := l.Attrs()
		if attrs.HardwareAddr == nil || notValidIfaceName(attrs.Name) {
			continue
		}
		names[attrs.Index] = attrs.Name
		addrs, err := netlink.AddrList(l, 0)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if a.IP == nil || a.IP.To4() == nil {
				continue
			}
			obs.LocalAddrAdded(a.IP, attrs.Index, attrs.Name)
		}
	}

	if err := netlink.AddrSubscribe(w.addrUpdates, w.done); err != nil {
		return err
	}
	if err := netlink.LinkSubscribe(w.linkUpdates, w.done); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-w.done:
				return
			case au, ok := <-w.addrUpdates:
				if !ok {
					return
				}
				ip := au.LinkAddress.IP
				if ip.To4() == nil {
					continue
				}
				if au.NewAddr {
					obs.LocalAddrAdded(ip, au.LinkIndex, names[au.LinkIndex])
				} else {
					obs.LocalAddrRemoved(ip, au.LinkIndex)
				}
			case lu, ok := <-w.linkUpdates:
				if !ok {
					return
				}
				names[int(lu.Index)] = lu.Attrs().Name
			}
		}
	}()
	return nil
}

func (w *LinuxWatcher) Close() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}
