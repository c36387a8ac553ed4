package fec

import "github.com/quicfec/qfec/internal/protocol"

// Block is a fixed-`(n,k)` FEC block: `totalSourceSymbols` source slots
// indexed by their block-relative offset, plus whatever repair symbols
// have arrived (§3 FECBlock). A slot is either empty or holds a symbol
// whose SFPID equals its index — the invariant the ring's "weak read"
// check (§9) exists to enforce.
type Block struct {
	FECBlockNumber       protocol.FECBlockNumber
	TotalSourceSymbols   int
	TotalRepairSymbols   int
	sourceSymbols        []*SourceSymbol
	repairSymbols        []*RepairSymbol
	currentSourceSymbols int
}

// NewBlock allocates an empty block. TotalSourceSymbols/TotalRepairSymbols
// may be filled in later, once a repair symbol declaring them arrives.
func NewBlock(number protocol.FECBlockNumber) *Block {
	return &Block{FECBlockNumber: number}
}

// AddSourceSymbol places ss in its block-relative slot, growing the slice
// as needed. Adding the same offset twice is a no-op.
func (b *Block) AddSourceSymbol(ss *SourceSymbol) {
	idx := int(ss.SFPID)
	if idx >= len(b.sourceSymbols) {
		grown := make([]*SourceSymbol, idx+1)
		copy(grown, b.sourceSymbols)
		b.sourceSymbols = grown
	}
	if b.sourceSymbols[idx] != nil {
		return
	}
	b.sourceSymbols[idx] = ss
	b.currentSourceSymbols++
}

// AddRepairSymbol appends rs to the block's repair set.
func (b *Block) AddRepairSymbol(rs *RepairSymbol) {
	b.repairSymbols = append(b.repairSymbols, rs)
	if rs.NumberOfSourceSymbols > 0 {
		b.TotalSourceSymbols = rs.NumberOfSourceSymbols
	}
	if rs.NumberOfRepairSymbols > 0 {
		b.TotalRepairSymbols = rs.NumberOfRepairSymbols
	}
}

// CurrentSourceSymbols returns the number of non-nil source slots.
func (b *Block) CurrentSourceSymbols() int { return b.currentSourceSymbols }

// SourceSymbols returns the block-relative slot array; missing slots are
// nil.
func (b *Block) SourceSymbols() []*SourceSymbol { return b.sourceSymbols }

// RepairSymbols returns the repair symbols received so far.
func (b *Block) RepairSymbols() []*RepairSymbol { return b.repairSymbols }

// Decodable reports whether the count of present source+repair symbols
// meets totalSourceSymbols (§3 FECBlock: "A block is decodable when...").
func (b *Block) Decodable() bool {
	if b.TotalSourceSymbols == 0 {
		return false
	}
	if b.currentSourceSymbols >= b.TotalSourceSymbols {
		return false // nothing missing, nothing to recover
	}
	return b.currentSourceSymbols+len(b.repairSymbols) >= b.TotalSourceSymbols
}

// Complete reports whether every source slot is already filled, meaning
// the block carries nothing left to recover.
func (b *Block) Complete() bool {
	return b.TotalSourceSymbols > 0 && b.currentSourceSymbols >= b.TotalSourceSymbols
}
