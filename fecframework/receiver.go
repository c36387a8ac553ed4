package fecframework

import (
	"encoding/binary"

	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/internal/protocol"
)

// Reinjector hands a recovered source symbol's payload back to the frame
// decoder as if it had arrived on the wire (§4.8 Recovery: "a recovered
// symbol is handed to the same frame-decoding path as a received
// packet"). Only called for symbols whose payload is long enough to
// carry a packet number (§4.8's MinDecodedSymbolToParse guard); shorter
// symbols are recovered into the block but never reinjected.
type Reinjector func(blockNumber protocol.FECBlockNumber, packetNumber uint64, payload []byte)

// Receiver is the block-scheme receiver side of §4.8's shared framework
// interface: it feeds arriving source and repair symbols into a
// BlockRing, and whenever a block becomes decodable it recovers the
// missing source symbols and hands them to Reinject. Grounded on
// vuva-MAppLE's fec_framework_receiver.go
// (updateStateForSomeFECGroup/handleRepairSymbol/parseAndSendRecoveredPacket).
type Receiver struct {
	scheme   fec.Coder
	ring     *BlockRing
	reinject Reinjector
}

// NewReceiver builds a receiver over ring, using scheme to recover
// blocks and reinject to deliver recovered payloads.
func NewReceiver(scheme fec.Coder, ring *BlockRing, reinject Reinjector) *Receiver {
	return &Receiver{scheme: scheme, ring: ring, reinject: reinject}
}

// HandleSourceSymbol records a source symbol carried by a SourceFPID
// frame (§4.8 wire frames), then attempts recovery if its block just
// became decodable.
func (r *Receiver) HandleSourceSymbol(sfpid protocol.SourceFPID, data []byte) error {
	blockNumber, index := DecodeBlockSFPID(sfpid)
	block := r.ring.GetOrCreate(blockNumber)
	block.AddSourceSymbol(&fec.SourceSymbol{SFPID: protocol.SourceFPID(index), Data: data})
	return r.maybeRecover(block)
}

// HandleRepairSymbol records a repair symbol carried by an FEC frame,
// then attempts recovery if its block just became decodable.
func (r *Receiver) HandleRepairSymbol(rs *fec.RepairSymbol) error {
	block := r.ring.GetOrCreate(rs.FECBlockNumber)
	block.AddRepairSymbol(rs)
	return r.maybeRecover(block)
}

func (r *Receiver) maybeRecover(block *fec.Block) error {
	if !block.Decodable() {
		return nil
	}

	sourceData := make([][]byte, block.TotalSourceSymbols)
	for i, ss := range block.SourceSymbols() {
		if ss != nil {
			sourceData[i] = ss.Data
		}
	}

	recovered, err := r.scheme.Recover(sourceData, block.RepairSymbols(), block.TotalSourceSymbols)
	if err != nil {
		return err
	}

	count := 0
	for index, payload := range recovered {
		if count >= protocol.MaxRecoveredInOneRow {
			break
		}
		count++

		block.AddSourceSymbol(&fec.SourceSymbol{SFPID: protocol.SourceFPID(index), Data: payload})
		r.ring.NotifyRecovered(block.FECBlockNumber)

		// §4.8 Recovery only reinjects a symbol whose payload is long
		// enough to carry a packet number; shorter ones are dropped
		// rather than handed to the frame decoder with a fabricated pn=0.
		if len(payload) > protocol.MinDecodedSymbolToParse && r.reinject != nil {
			pn := binary.BigEndian.Uint64(payload[1:9])
			r.reinject(block.FECBlockNumber, pn, payload)
		}
	}

	r.ring.Free(block.FECBlockNumber)
	return nil
}
