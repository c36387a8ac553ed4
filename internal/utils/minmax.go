package utils

// Min returns the smaller of two ints.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of two ints.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// MinInt64 and MaxInt64 operate over the protocol.PacketNumber
// type without importing protocol, avoiding an import cycle: both packages
// are plain int64-ish, so callers pass them pre-cast.
func MinInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func MaxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
