// Package pathmanager implements per-destination Path state (§3 Path)
// and the subset of PathManager behavior in scope here: incoming-path
// selection, peer-address migration, and receive-rate estimation.
// Congestion control, RTO, and the multipath scheduler are out of scope
// (§1) and are not carried forward from the teacher's path.go.
package pathmanager

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"time"

	"github.com/quicfec/qfec/internal/protocol"
)

// PacketContextState is the per-packet-context bookkeeping a Path keeps
// (§3 Path.pktCtx): its own packet-number space, SACK set, and whether
// an ACK is owed.
type PacketContextState struct {
	SendSequence protocol.PacketNumber
	Sack         SACK
	AckNeeded    bool
}

// Observer receives path-lifecycle notifications, mirroring the
// callback the teacher's session hands down to path.go (p.sess.callback)
// but scoped to just the events this package raises.
type Observer interface {
	PeerAddressChanged(p *Path, old, new net.Addr)
}

// Path is per-destination receive-path state (§3 Path).
type Path struct {
	PeerAddr  net.Addr
	LocalAddr net.Addr
	IfIndex   int

	RemoteCID protocol.ConnectionID
	LocalCID  protocol.ConnectionID

	PktCtx [protocol.NumPacketContexts]PacketContextState

	Challenge             uint64
	ChallengeVerified     bool
	ChallengeTime         time.Time
	ChallengeRepeatCount  int
	RetransmitTimer       time.Duration

	Received        protocol.ByteCount
	ReceivedPrior   protocol.ByteCount
	ReceiveRateEpoch time.Time
	ReceiveRateEstimate float64
	ReceiveRateMax      float64
	SmoothedRtt         time.Duration

	// spin-bit edge detector observables, connection-scoped in the spec
	// but tracked here since each incoming segment resolves to one path
	// before dispatch reaches the connection.
	currentSpin bool
	havePrevSpin bool
	spinVec     int
}

// NewPath builds a Path anchored on the peer/local addresses of the
// segment that first resolved it.
func NewPath(peerAddr, localAddr net.Addr, ifIndex int, remoteCID, localCID protocol.ConnectionID) *Path {
	return &Path{
		PeerAddr:        peerAddr,
		LocalAddr:       localAddr,
		IfIndex:         ifIndex,
		RemoteCID:       remoteCID,
		LocalCID:        localCID,
		RetransmitTimer: 200 * time.Millisecond,
	}
}

// MaybeMigrate implements §4.6's peer-address change handling: if
// addrFrom differs from the path's recorded peer address (and isn't the
// zero address), adopt it, issue a fresh random challenge, and notify
// obs.
func (p *Path) MaybeMigrate(addrFrom net.Addr, now time.Time, obs Observer) error {
	if addrFrom == nil || isZeroAddr(addrFrom) || sameAddr(addrFrom, p.PeerAddr) {
		return nil
	}
	old := p.PeerAddr
	p.PeerAddr = addrFrom

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return err
	}
	p.Challenge = binary.BigEndian.Uint64(buf[:])
	p.ChallengeVerified = false
	p.ChallengeTime = now.Add(p.RetransmitTimer)
	p.ChallengeRepeatCount = 0

	if obs != nil {
		obs.PeerAddressChanged(p, old, addrFrom)
	}
	return nil
}

func isZeroAddr(addr net.Addr) bool {
	udp, ok := addr.(*net.UDPAddr)
	return ok && (udp.IP == nil || udp.IP.IsUnspecified())
}

func sameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// RecordReceived implements §4.6's receive-rate estimation: bytes
// accumulate into Received; once an epoch is anchored and the elapsed
// time exceeds max(smoothedRtt, BANDWIDTH_TIME_INTERVAL_MIN), a new
// rate estimate (bytes/sec) is computed and the epoch re-anchored.
func (p *Path) RecordReceived(n protocol.ByteCount, now time.Time) {
	p.Received += n
	if p.ReceiveRateEpoch.IsZero() {
		p.ReceiveRateEpoch = now
		p.ReceivedPrior = p.Received
		return
	}
	minInterval := time.Duration(protocol.BandwidthTimeIntervalMinMicros) * time.Microsecond
	interval := p.SmoothedRtt
	if interval < minInterval {
		interval = minInterval
	}
	elapsed := now.Sub(p.ReceiveRateEpoch)
	if elapsed <= interval {
		return
	}
	deltaBytes := float64(p.Received - p.ReceivedPrior)
	estimate := deltaBytes * 1e6 / float64(elapsed.Microseconds())
	p.ReceiveRateEstimate = estimate
	if estimate > p.ReceiveRateMax {
		p.ReceiveRateMax = estimate
	}
	p.ReceiveRateEpoch = now
	p.ReceivedPrior = p.Received
}

// UpdateSpinEdge implements §4.6's spin-bit edge detector: only runs
// when pn64 advances the packet-context's high-water mark, and
// increments a saturating (max 3) edge counter whenever the observed
// spin value flips.
func (p *Path) UpdateSpinEdge(pc protocol.PacketContext, pn64 protocol.PacketNumber, spin, clientMode bool) {
	if pn64 <= p.PktCtx[pc].Sack.EndOfSackRange() {
		return
	}
	observed := spin != clientMode
	if !p.havePrevSpin {
		p.currentSpin = observed
		p.havePrevSpin = true
		return
	}
	if observed != p.currentSpin {
		p.currentSpin = observed
		if p.spinVec < 3 {
			p.spinVec++
		}
	}
}

// SpinVector reports the saturating spin-edge counter.
func (p *Path) SpinVector() int { return p.spinVec }
