// Package pnrecovery reconstructs the 64-bit packet number carried,
// truncated, in a protected header (§4.2 PNRecovery).
package pnrecovery

import "github.com/quicfec/qfec/internal/protocol"

// abs64 returns the absolute value of a possibly-negative int64 difference.
func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// DecodePacketNumber reconstructs pn64 from the truncated wire value.
// mask is a prefix of ones covering the bits that were NOT transmitted
// (e.g. 0xFFFFFFFFFFFFFF00 for a 1-byte truncated packet number); pn
// holds the low bits that were actually on the wire, already positioned
// at bit 0.
//
// Among the candidates (expected&mask)|pn and that value shifted by
// ±(^mask+1), it returns the one closest to expected. A tie is broken
// toward the earlier candidate only when that candidate's masked-out
// high bits are non-zero, matching §4.2's formal contract.
func DecodePacketNumber(expected protocol.PacketNumber, mask uint64, pn uint32) protocol.PacketNumber {
	base := (uint64(expected) & mask) | uint64(pn)
	step := ^mask + 1

	candidates := [3]uint64{base, base + step, base - step}
	best := candidates[0]
	bestDist := abs64(int64(best) - int64(expected))

	for _, c := range candidates[1:] {
		d := abs64(int64(c) - int64(expected))
		switch {
		case d < bestDist:
			best, bestDist = c, d
		case d == bestDist && c < uint64(expected) && (c&mask) > 0:
			best, bestDist = c, d
		case d == bestDist && best < uint64(expected) && (best&mask) == 0:
			best, bestDist = c, d
		}
	}
	return protocol.PacketNumber(best)
}

// MaskForLength returns the pnMask matching a truncated packet number of
// pnLength bytes (1..4), i.e. all bits from bit (8*pnLength) upward set.
func MaskForLength(pnLength int) uint64 {
	if pnLength <= 0 {
		return ^uint64(0)
	}
	if pnLength >= 8 {
		return 0
	}
	return ^uint64(0) << uint(8*pnLength)
}
