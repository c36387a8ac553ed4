package pathmanager

import (
	"sort"

	"github.com/quicfec/qfec/internal/protocol"
)

// sackRange is a closed interval [Low, High] of packet numbers already
// seen for one packet-number space. Adapted from the interval-list
// idiom in ackhandler's received_packet_history (vuva-MAppLE/src/ackhandler),
// simplified to what the receive path needs: membership tests and a
// monotone high-water mark, not an outgoing ACK frame builder.
type sackRange struct {
	Low, High protocol.PacketNumber
}

// SACK tracks which packet numbers have been seen in one packet-number
// space (§3 Path.pktCtx.firstSackItem), and reports whether a newly
// observed packet number is a duplicate.
type SACK struct {
	ranges []sackRange
}

// EndOfSackRange is the high end of the highest tracked range, i.e. the
// largest packet number recorded so far (`firstSackItem.endOfSackRange`
// in the spec's terms).
func (s *SACK) EndOfSackRange() protocol.PacketNumber {
	if len(s.ranges) == 0 {
		return protocol.InvalidPacketNumber
	}
	return s.ranges[len(s.ranges)-1].High
}

// Contains reports whether pn has already been recorded.
func (s *SACK) Contains(pn protocol.PacketNumber) bool {
	for _, r := range s.ranges {
		if pn >= r.Low && pn <= r.High {
			return true
		}
	}
	return false
}

// Record adds pn to the tracked set, merging with adjacent/overlapping
// ranges, and reports whether pn was new.
func (s *SACK) Record(pn protocol.PacketNumber) bool {
	if s.Contains(pn) {
		return false
	}
	s.ranges = append(s.ranges, sackRange{Low: pn, High: pn})
	sort.Slice(s.ranges, func(i, j int) bool { return s.ranges[i].Low < s.ranges[j].Low })

	merged := s.ranges[:1]
	for _, r := range s.ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Low <= last.High+1 {
			if r.High > last.High {
				last.High = r.High
			}
			continue
		}
		merged = append(merged, r)
	}
	s.ranges = merged
	return true
}
