package fecframework

import "github.com/quicfec/qfec/internal/protocol"

// EncodeBlockSFPID packs a block-scheme SFPID as the 24-bit block
// number in the high bits and the 8-bit in-block index in the low
// byte, mirroring the (fecBlockNumber, offset) pair the teacher's
// protocol.NewBlockSourceFECPayloadID builds, folded into the single
// u32 SFPID this framework's wire frame carries (§3 SourceSymbol,
// §4.8 SourceFPID frame).
func EncodeBlockSFPID(blockNumber protocol.FECBlockNumber, index uint8) protocol.SourceFPID {
	return protocol.SourceFPID(uint32(blockNumber)<<8 | uint32(index))
}

// DecodeBlockSFPID reverses EncodeBlockSFPID.
func DecodeBlockSFPID(sfpid protocol.SourceFPID) (protocol.FECBlockNumber, uint8) {
	return protocol.FECBlockNumber(uint32(sfpid) >> 8), uint8(uint32(sfpid) & 0xff)
}

// EncodeBlockRFPID packs a block-scheme RFPID the same way as its
// SFPID counterpart, keyed by the repair symbol's index within the
// block's repair set rather than the source set.
func EncodeBlockRFPID(blockNumber protocol.FECBlockNumber, repairIndex uint8) protocol.RepairFPID {
	return protocol.RepairFPID(uint32(blockNumber)<<8 | uint32(repairIndex))
}
