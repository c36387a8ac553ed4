// Package fec implements the coding engines that sit behind the FEC
// framework of §4.8: the wire-level symbol types (§3), the block
// structure they're organized into, and the pluggable coding schemes
// (XOR, Reed-Solomon) that generate repair data and recover lost source
// symbols from it.
package fec

import "github.com/quicfec/qfec/internal/protocol"

// SourceSymbol is one protected packet's payload, prefixed on the wire
// with a type tag and 64-bit packet number (§3 SourceSymbol).
type SourceSymbol struct {
	SFPID protocol.SourceFPID
	Data  []byte
}

// RepairSymbol is redundancy data produced by a coding scheme, carrying
// enough information to reconstruct missing source symbols of its block
// (§3 RepairSymbol).
type RepairSymbol struct {
	RFPID          protocol.RepairFPID
	FECBlockNumber protocol.FECBlockNumber
	SymbolNumber   uint8
	Data           []byte

	NumberOfSourceSymbols int
	NumberOfRepairSymbols int
}
