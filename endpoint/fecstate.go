package endpoint

import (
	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/fecframework"
	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/internal/wire"
)

// FECState is a connection's FEC bookkeeping (§3 FECState): the
// framework sender/receiver pair plus the per-outgoing-packet fields
// that track whatever SourceFPID/FEC frame is currently attached to the
// packet under construction.
type FECState struct {
	Sender   fecframework.Sender
	Receiver fecframework.FrameworkReceiver

	currentSfpidFrame              *wire.SourceFPIDFrame
	currentPacketContainsFecFrame  bool
	currentPacketContainsFpidFrame bool
	sfpidReserved                  bool
}

// NewFECState builds the FEC state for a connection, wiring a matched
// sender/receiver pair for scheme.
func NewFECState(scheme fecframework.Scheme, controller fec.RedundancyController, ringSize int, obs fecframework.EvictionObserver, reinject fecframework.Reinjector) (*FECState, error) {
	sender, receiver, err := fecframework.CreateFrameworks(scheme, controller, ringSize, obs, reinject)
	if err != nil {
		return nil, err
	}
	return &FECState{Sender: sender, Receiver: receiver}, nil
}

// PreparePacketReady reserves the next sfpid for the packet under
// construction, implementing the "sfpidReserved" half of §4.8's sender
// bookkeeping invariant: between this call and FinalizeAndProtect,
// exactly one of AttachFECFrame/AttachSourceFPIDFrame may be called.
func (f *FECState) PreparePacketReady() protocol.SourceFPID {
	f.sfpidReserved = true
	sfpid := f.Sender.NextSFPID()
	f.currentSfpidFrame = &wire.SourceFPIDFrame{SFPID: sfpid}
	return sfpid
}

// AttachSourceFPIDFrame marks the packet under construction as carrying
// a SourceFPID frame; it is invalid to also call AttachFECFrame for the
// same packet.
func (f *FECState) AttachSourceFPIDFrame() (wire.SourceFPIDFrame, bool) {
	if f.currentSfpidFrame == nil || f.currentPacketContainsFecFrame {
		return wire.SourceFPIDFrame{}, false
	}
	f.currentPacketContainsFpidFrame = true
	return *f.currentSfpidFrame, true
}

// AttachFECFrame marks the packet under construction as carrying a
// standalone FEC (repair) frame instead of a SourceFPID frame.
func (f *FECState) AttachFECFrame() bool {
	if f.currentPacketContainsFpidFrame {
		return false
	}
	f.currentPacketContainsFecFrame = true
	return true
}

// FinalizeAndProtect protects payload under the sfpid reserved by the
// most recent PreparePacketReady call (§4.8 protectSourceSymbol) and
// clears the per-packet bookkeeping, enforcing that sfpidReserved never
// survives finalization.
func (f *FECState) FinalizeAndProtect(payload []byte) ([]*fec.RepairSymbol, error) {
	_, repair, err := f.Sender.ProtectSourceSymbol(payload)
	f.currentSfpidFrame = nil
	f.currentPacketContainsFecFrame = false
	f.currentPacketContainsFpidFrame = false
	f.sfpidReserved = false
	return repair, err
}
