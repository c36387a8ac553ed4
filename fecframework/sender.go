package fecframework

import (
	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/internal/protocol"
)

// BlockSender implements the block-scheme sender side of §4.8's shared
// framework interface: a fixed-`(n,k)` block closes once it holds `k`
// source symbols (RedundancyController.NumberOfSourceSymbols), emitting
// `min(n-k, currentSourceSymbols)` repair symbols, where `n-k` is
// RedundancyController.NumberOfRepairSymbols. Grounded on
// vuva-MAppLE's FECFrameworkSender / fecScheduler.GetNextFECGroup
// pairing, collapsed into one type since this module's block scheduler
// has exactly one block in flight at a time (no multipath fan-out).
type BlockSender struct {
	scheme     fec.Coder
	controller fec.RedundancyController

	nextBlockNumber protocol.FECBlockNumber
	current         *fec.Block
	currentData     [][]byte
}

// NewBlockSender builds a sender starting at block 0.
func NewBlockSender(scheme fec.Coder, controller fec.RedundancyController) *BlockSender {
	s := &BlockSender{scheme: scheme, controller: controller}
	s.current = fec.NewBlock(0)
	return s
}

// NextSFPID reports the wire SFPID the next call to ProtectSourceSymbol
// will assign, without consuming it.
func (s *BlockSender) NextSFPID() protocol.SourceFPID {
	return EncodeBlockSFPID(s.nextBlockNumber, uint8(len(s.currentData)))
}

// ProtectSourceSymbol records data as the next source symbol of the
// active block, and closes the block (generating repair symbols) once
// it reaches the controller's target source-symbol count.
func (s *BlockSender) ProtectSourceSymbol(data []byte) (protocol.SourceFPID, []*fec.RepairSymbol, error) {
	index := uint8(len(s.currentData))
	sfpid := EncodeBlockSFPID(s.nextBlockNumber, index)
	s.currentData = append(s.currentData, data)

	if len(s.currentData) < s.controller.NumberOfSourceSymbols() {
		return sfpid, nil, nil
	}
	repair, err := s.closeBlock()
	return sfpid, repair, err
}

// FlushRepairSymbols forces the active block closed even if it hasn't
// reached its target source-symbol count, so the sender never leaves a
// partial block permanently unprotected.
func (s *BlockSender) FlushRepairSymbols() ([]*fec.RepairSymbol, error) {
	if len(s.currentData) == 0 {
		return nil, nil
	}
	return s.closeBlock()
}

func (s *BlockSender) closeBlock() ([]*fec.RepairSymbol, error) {
	blockNumber := s.nextBlockNumber
	n := len(s.currentData)
	repairCount := s.controller.NumberOfRepairSymbols()
	if repairCount > n {
		repairCount = n
	}

	shards, err := s.scheme.RepairSymbols(s.currentData, repairCount)
	if err != nil {
		return nil, err
	}
	repair := make([]*fec.RepairSymbol, len(shards))
	for i, data := range shards {
		repair[i] = &fec.RepairSymbol{
			RFPID:                 EncodeBlockRFPID(blockNumber, uint8(i)),
			FECBlockNumber:        blockNumber,
			SymbolNumber:          uint8(i),
			Data:                  data,
			NumberOfSourceSymbols: n,
			NumberOfRepairSymbols: len(shards),
		}
	}

	s.nextBlockNumber++
	s.current = fec.NewBlock(s.nextBlockNumber)
	s.currentData = nil
	return repair, nil
}
