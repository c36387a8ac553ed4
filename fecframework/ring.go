// Package fecframework implements the two FEC framework variants of
// §4.8 (block-based and sliding-window), sharing one sender/receiver
// interface, plus the receive-side ring of in-flight blocks. Grounded
// on vuva-MAppLE's fec_framework_sender.go, fec_framework_receiver.go,
// and internal/utils/ring_buffer.go's FIFO-eviction ring, generalized
// from that file's slice-of-packets shape to a slice-of-*fec.Block
// shape indexed by block number modulo the ring size.
package fecframework

import (
	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/internal/protocol"
)

// EvictionObserver is notified when the ring drops a not-yet-completed
// block to make room for a new one (§4.8's "losing unrecovered data is
// acceptable and reported as a counter", supplemented per §4.8's
// eviction-counter addition).
type EvictionObserver interface {
	FECBlockEvicted(blockNumber protocol.FECBlockNumber)
	FECPacketRecovered(blockNumber protocol.FECBlockNumber)
}

// BlockRing is the receive-side ring `fec_blocks[MAX_FEC_BLOCKS]`,
// indexed by `blockNumber mod MAX_FEC_BLOCKS` (§3 FECState, §4.8).
type BlockRing struct {
	slots []*fec.Block
	obs   EvictionObserver
}

// NewBlockRing builds a ring of the given size (protocol.MaxFECBlocks
// if size is 0).
func NewBlockRing(size int, obs EvictionObserver) *BlockRing {
	if size <= 0 {
		size = protocol.MaxFECBlocks
	}
	return &BlockRing{slots: make([]*fec.Block, size), obs: obs}
}

func (r *BlockRing) index(blockNumber protocol.FECBlockNumber) int {
	return int(blockNumber) % len(r.slots)
}

// Get performs a "weak read": the slot is only returned if it is
// occupied by exactly the requested block number, since the ring may
// have wrapped and now holds an unrelated block at the same slot
// (supplemented safety check applied to the sliding window's slots
// too, §4.8/§9).
func (r *BlockRing) Get(blockNumber protocol.FECBlockNumber) *fec.Block {
	b := r.slots[r.index(blockNumber)]
	if b == nil || b.FECBlockNumber != blockNumber {
		return nil
	}
	return b
}

// GetOrCreate returns the block for blockNumber, creating (and
// installing) a fresh one if the slot is empty or holds a different
// block — evicting that older block first (FIFO by block number, since
// the ring is indexed by blockNumber mod size). The observer hears
// about the eviction only if the older block was not yet complete.
func (r *BlockRing) GetOrCreate(blockNumber protocol.FECBlockNumber) *fec.Block {
	idx := r.index(blockNumber)
	existing := r.slots[idx]
	if existing != nil {
		if existing.FECBlockNumber == blockNumber {
			return existing
		}
		if !existing.Complete() && r.obs != nil {
			r.obs.FECBlockEvicted(existing.FECBlockNumber)
		}
	}
	fresh := fec.NewBlock(blockNumber)
	r.slots[idx] = fresh
	return fresh
}

// NotifyRecovered reports that one symbol within blockNumber was
// recovered, mirroring picoquic's nb_packets_recovered counter
// (SUPPLEMENTED FEATURE #4).
func (r *BlockRing) NotifyRecovered(blockNumber protocol.FECBlockNumber) {
	if r.obs != nil {
		r.obs.FECPacketRecovered(blockNumber)
	}
}

// Free removes blockNumber's block from the ring once it has been
// fully processed (decoded or exhausted).
func (r *BlockRing) Free(blockNumber protocol.FECBlockNumber) {
	idx := r.index(blockNumber)
	if b := r.slots[idx]; b != nil && b.FECBlockNumber == blockNumber {
		r.slots[idx] = nil
	}
}
