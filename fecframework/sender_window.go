package fecframework

import "github.com/quicfec/qfec/fec"
import "github.com/quicfec/qfec/internal/protocol"

// WindowSender implements the sliding-window scheme's sender side
// (§4.8): source symbols slide through a window of at most
// RECEIVE_BUFFER_MAX_LENGTH live slots, keyed by a monotonically
// increasing sfpid rather than a block-relative index. Repair symbols
// are generated over whichever symbols are still live in the window,
// tagged with a window generation number that plays the RFPID role the
// block scheme's block number plays. Grounded on vuva-MAppLE's
// fec_framework_sender_convolutional.go window-selection idiom.
type WindowSender struct {
	scheme     fec.Coder
	controller fec.RedundancyController

	slots             []*fec.SourceSymbol
	nextSFPID         protocol.SourceFPID
	smallestInTransit protocol.SourceFPID
	highestInTransit  protocol.SourceFPID
	sinceLastRepair   int
	nextGeneration    protocol.FECBlockNumber
}

// NewWindowSender builds a window sender whose live-symbol capacity is
// protocol.ReceiveBufferMaxLength.
func NewWindowSender(scheme fec.Coder, controller fec.RedundancyController) *WindowSender {
	return &WindowSender{
		scheme:     scheme,
		controller: controller,
		slots:      make([]*fec.SourceSymbol, protocol.ReceiveBufferMaxLength),
	}
}

// NextSFPID reports the sfpid the next ProtectSourceSymbol call will
// assign.
func (s *WindowSender) NextSFPID() protocol.SourceFPID { return s.nextSFPID }

func (s *WindowSender) slotIndex(sfpid protocol.SourceFPID) int {
	return int(uint32(sfpid)) % len(s.slots)
}

// ProtectSourceSymbol slides data into the window under the next sfpid,
// generating a batch of repair symbols once the controller's target
// source-symbol count has slid through since the last batch.
func (s *WindowSender) ProtectSourceSymbol(data []byte) (protocol.SourceFPID, []*fec.RepairSymbol, error) {
	sfpid := s.nextSFPID
	s.slots[s.slotIndex(sfpid)] = &fec.SourceSymbol{SFPID: sfpid, Data: data}
	s.highestInTransit = sfpid
	s.nextSFPID++
	s.sinceLastRepair++

	if s.sinceLastRepair < s.controller.NumberOfSourceSymbols() {
		return sfpid, nil, nil
	}
	repair, err := s.emitRepair()
	return sfpid, repair, err
}

// FlushRepairSymbols forces a repair batch over whatever has slid
// through the window since the last one, even if short of the
// controller's target count.
func (s *WindowSender) FlushRepairSymbols() ([]*fec.RepairSymbol, error) {
	if s.sinceLastRepair == 0 {
		return nil, nil
	}
	return s.emitRepair()
}

// selectSymbolsToProtect gathers every slot in
// [smallestInTransit, highestInTransit] whose occupant's sfpid still
// matches the slot index it would hash to — the sliding-window
// counterpart of the block ring's weak-read check.
func (s *WindowSender) selectSymbolsToProtect() []*fec.SourceSymbol {
	var live []*fec.SourceSymbol
	for sfpid := s.smallestInTransit; sfpid <= s.highestInTransit; sfpid++ {
		if ss := s.slots[s.slotIndex(sfpid)]; ss != nil && ss.SFPID == sfpid {
			live = append(live, ss)
		}
		if sfpid == s.highestInTransit {
			break
		}
	}
	return live
}

func (s *WindowSender) emitRepair() ([]*fec.RepairSymbol, error) {
	live := s.selectSymbolsToProtect()
	data := make([][]byte, len(live))
	for i, ss := range live {
		data[i] = ss.Data
	}

	repairCount := s.controller.NumberOfRepairSymbols()
	if repairCount > len(data) {
		repairCount = len(data)
	}

	shards, err := s.scheme.RepairSymbols(data, repairCount)
	if err != nil {
		return nil, err
	}

	generation := s.nextGeneration
	repair := make([]*fec.RepairSymbol, len(shards))
	for i, d := range shards {
		repair[i] = &fec.RepairSymbol{
			RFPID:                 EncodeBlockRFPID(generation, uint8(i)),
			FECBlockNumber:        generation,
			SymbolNumber:          uint8(i),
			Data:                  d,
			NumberOfSourceSymbols: len(data),
			NumberOfRepairSymbols: len(shards),
		}
	}

	s.nextGeneration++
	s.sinceLastRepair = 0
	if s.highestInTransit-s.smallestInTransit >= protocol.SourceFPID(len(s.slots)-1) {
		s.smallestInTransit = s.highestInTransit - protocol.SourceFPID(len(s.slots)-1)
	}
	return repair, nil
}
