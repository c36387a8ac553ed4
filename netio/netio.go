// Package netio is the thin UDP transport the example endpoint listens
// on. It wraps golang.org/x/net/ipv4 and ipv6's PacketConn so every
// read reports the datagram's destination address and arrival
// interface — IncomingPacket's addrTo/ifIndex parameters (§6) — which a
// bare net.PacketConn cannot supply without ancillary control messages.
package netio

import (
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// Listener reads and writes UDP datagrams, surfacing per-packet
// destination address and interface index via OOB control messages.
type Listener struct {
	conn *net.UDPConn
	p4   *ipv4.PacketConn
	p6   *ipv6.PacketConn
}

// Listen opens a UDP socket at addr ("host:port") and enables the
// control messages this package's ReadFrom needs.
func Listen(addr string) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	l := &Listener{conn: conn}
	if udpAddr.IP == nil || udpAddr.IP.To4() != nil {
		l.p4 = ipv4.NewPacketConn(conn)
		if err := l.p4.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
			conn.Close()
			return nil, err
		}
	} else {
		l.p6 = ipv6.NewPacketConn(conn)
		if err := l.p6.SetControlMessage(ipv6.FlagDst|ipv6.FlagInterface, true); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return l, nil
}

// ReadFrom reads one datagram into buf, reporting the peer address, the
// local address it arrived on, and the receiving interface index.
func (l *Listener) ReadFrom(buf []byte) (n int, addrFrom net.Addr, addrTo net.Addr, ifIndex int, err error) {
	if l.p4 != nil {
		var cm *ipv4.ControlMessage
		n, cm, addrFrom, err = l.p4.ReadFrom(buf)
		if cm != nil {
			addrTo = &net.UDPAddr{IP: cm.Dst}
			ifIndex = cm.IfIndex
		}
		return
	}
	var cm *ipv6.ControlMessage
	n, cm, addrFrom, err = l.p6.ReadFrom(buf)
	if cm != nil {
		addrTo = &net.UDPAddr{IP: cm.Dst}
		ifIndex = cm.IfIndex
	}
	return
}

// WriteTo sends b to addr.
func (l *Listener) WriteTo(b []byte, addr net.Addr) (int, error) {
	return l.conn.WriteTo(b, addr)
}

// LocalAddr reports the socket's bound address.
func (l *Listener) LocalAddr() net.Addr { return l.conn.LocalAddr() }

// Close shuts down the socket.
func (l *Listener) Close() error { return l.conn.Close() }
