package fecframework

import (
	"fmt"

	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/internal/protocol"
)

// Sender is the capability set both scheme variants (BlockSender,
// WindowSender) implement (§4.8's shared framework interface,
// generalized per §9's "opaque runtime polymorphism" redesign flag into
// a Go interface with two variants instead of a string-keyed dispatch
// table).
type Sender interface {
	NextSFPID() protocol.SourceFPID
	ProtectSourceSymbol(data []byte) (protocol.SourceFPID, []*fec.RepairSymbol, error)
	FlushRepairSymbols() ([]*fec.RepairSymbol, error)
}

// FrameworkReceiver is the receive-side counterpart of Sender. Only one
// concrete type (Receiver) exists so far, and CreateFrameworks pairs it
// with both sender variants. Receiver always splits an sfpid with
// DecodeBlockSFPID; it has no separate mapping for the window sender's
// monotonic-counter sfpids.
type FrameworkReceiver interface {
	HandleSourceSymbol(sfpid protocol.SourceFPID, data []byte) error
	HandleRepairSymbol(rs *fec.RepairSymbol) error
}

var _ Sender = (*BlockSender)(nil)
var _ Sender = (*WindowSender)(nil)
var _ FrameworkReceiver = (*Receiver)(nil)

// Scheme names a coding-scheme/framework-variant pair, decided at
// connection setup (§4.8's "two framework variants").
type Scheme string

const (
	SchemeXORBlock    Scheme = "xor-block"
	SchemeRSBlock     Scheme = "rs-block"
	SchemeRSWindow    Scheme = "rs-window"
	SchemeXORWindow   Scheme = "xor-window"
)

// CreateFrameworks builds a matched sender/receiver pair for scheme,
// atomically: either both are returned or neither is (§4.8
// createFrameworks's "atomically succeed or free both" contract — since
// neither constructor here can fail once the scheme name is valid,
// atomicity reduces to the single error check below).
func CreateFrameworks(scheme Scheme, controller fec.RedundancyController, ringSize int, obs EvictionObserver, reinject Reinjector) (Sender, FrameworkReceiver, error) {
	switch scheme {
	case SchemeXORBlock:
		coder := fec.XORCoder{}
		return NewBlockSender(coder, controller), NewReceiver(coder, NewBlockRing(ringSize, obs), reinject), nil
	case SchemeRSBlock:
		coder := fec.NewReedSolomonCoder()
		return NewBlockSender(coder, controller), NewReceiver(coder, NewBlockRing(ringSize, obs), reinject), nil
	case SchemeXORWindow:
		coder := fec.XORCoder{}
		return NewWindowSender(coder, controller), NewReceiver(coder, NewBlockRing(ringSize, obs), reinject), nil
	case SchemeRSWindow:
		coder := fec.NewReedSolomonCoder()
		return NewWindowSender(coder, controller), NewReceiver(coder, NewBlockRing(ringSize, obs), reinject), nil
	default:
		return nil, nil, fmt.Errorf("fecframework: unknown scheme %q", scheme)
	}
}
