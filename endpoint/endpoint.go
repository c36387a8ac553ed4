package endpoint

import (
	"crypto/rand"
	"errors"
	"net"
	"time"

	"github.com/quicfec/qfec/conntable"
	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/internal/wire"
	"github.com/quicfec/qfec/pathmanager"
	"github.com/quicfec/qfec/qerr"
	"github.com/quicfec/qfec/statelessresponder"
)

// qerrSilent reports whether err's disposition (§7) is to drop the
// segment without failing the surrounding datagram.
func qerrSilent(err error) bool {
	var te *qerr.TransportError
	if errors.As(err, &te) {
		return qerr.Silent(te.Kind)
	}
	return false
}

// Status is the coarse result IncomingPacket reports (§6: "Status is 0
// or -1; specific error kinds are available via the logger interface").
type Status int

const (
	StatusOK    Status = 0
	StatusError Status = -1
)

// Datagram is one outbound stateless response (Version Negotiation,
// Stateless Reset, or Retry) the dispatcher wants sent.
type Datagram struct {
	To   net.Addr
	Data []byte
}

// Sink receives outbound stateless-response datagrams; the caller
// wires this to whatever transport (netio.Listener, a test buffer) actually
// writes bytes.
type Sink func(Datagram)

// Endpoint bundles the collaborators §6 lists: the connection table,
// stateless responder, header/frame/TLS collaborators, and the config
// governing version and retry-token policy.
type Endpoint struct {
	Config    *Config
	Table     *conntable.Table
	Responder *statelessresponder.Responder

	FrameDecoder FrameDecoder
	TLS          TLSDriver
	HeaderObs    HeaderObserver
	PathObs      pathmanager.Observer

	// NewConnection builds a fresh Connection for an accepted Initial (or
	// a client-initiated connection); the caller supplies it so
	// connection construction can wire FECState with the scheme/coder of
	// its choosing.
	NewConnection func(clientMode bool, initialCID protocol.ConnectionID) *Connection

	Send Sink
}

// New builds an Endpoint. deleteClosedAfter bounds how long a torn-down
// connection ID is remembered as "recently closed" (conntable.New).
func New(cfg *Config, deleteClosedAfter time.Duration) (*Endpoint, error) {
	responder, err := statelessresponder.New()
	if err != nil {
		return nil, err
	}
	return &Endpoint{
		Config:    cfg,
		Table:     conntable.New(deleteClosedAfter),
		Responder: responder,
	}, nil
}

func (e *Endpoint) headerConfig() wire.Config {
	return wire.Config{SupportedVersions: e.Config.SupportedVersions, LocalCIDLength: e.Config.LocalCIDLength}
}

// IncomingPacket is the §6 entry point: it splits datagram into
// coalesced segments and dispatches each one.
func IncomingPacket(e *Endpoint, datagram []byte, addrFrom, addrTo net.Addr, ifIndex int, now time.Time) (Status, bool) {
	return e.ProcessDatagram(datagram, addrFrom, addrTo, ifIndex, now)
}

// ProcessDatagram implements §4.4's processDatagram: it consumes
// coalesced segments front to back, dispatching each independently.
// Segment destination CIDs are not compared with each other; per §9's
// resolved open question, a later segment's differing destCID is
// accepted (multipath tolerance), not rejected.
func (e *Endpoint) ProcessDatagram(datagram []byte, addrFrom, addrTo net.Addr, ifIndex int, now time.Time) (Status, bool) {
	offset := 0
	newContextCreated := false
	first := true

	for offset < len(datagram) {
		segment := datagram[offset:]
		hdr, err := wire.ParseHeader(segment, e.headerConfig())
		if err != nil {
			if first {
				return StatusError, newContextCreated
			}
			break
		}

		segLen := hdr.Offset + hdr.PayloadLength
		if segLen <= 0 || segLen > len(segment) {
			segLen = len(segment)
		}

		// A later segment's destCID differing from the first segment's is
		// accepted rather than rejected (§9: multipath tolerance).
		created, procErr := e.processSegment(segment[:segLen], hdr, addrFrom, addrTo, ifIndex, now)
		if created {
			newContextCreated = true
		}
		if procErr != nil && first && !qerrSilent(procErr) {
			return StatusError, newContextCreated
		}

		first = false
		offset += segLen
		if segLen == 0 {
			break
		}
	}
	return StatusOK, newContextCreated
}

func peerIP(addr net.Addr) net.IP {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.IP
	}
	return nil
}

func randomCID(length int) protocol.ConnectionID {
	cid := make(protocol.ConnectionID, length)
	_, _ = rand.Read(cid)
	return cid
}
