package pathmanager_test

import (
	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/pathmanager"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SACK", func() {
	It("reports InvalidPacketNumber for EndOfSackRange before anything is recorded", func() {
		var s pathmanager.SACK
		Expect(s.EndOfSackRange()).To(Equal(protocol.InvalidPacketNumber))
	})

	It("reports a duplicate on the second Record of the same packet number", func() {
		var s pathmanager.SACK
		Expect(s.Record(10)).To(BeTrue())
		Expect(s.Record(10)).To(BeFalse())
		Expect(s.Contains(10)).To(BeTrue())
	})

	It("merges adjacent ranges", func() {
		var s pathmanager.SACK
		s.Record(5)
		s.Record(6)
		s.Record(4)
		Expect(s.EndOfSackRange()).To(Equal(protocol.PacketNumber(6)))
	})

	It("keeps disjoint ranges separate until the gap is filled", func() {
		var s pathmanager.SACK
		s.Record(1)
		s.Record(10)
		Expect(s.EndOfSackRange()).To(Equal(protocol.PacketNumber(10)), "10 is the highest packet number recorded")
		Expect(s.Contains(5)).To(BeFalse())

		for pn := protocol.PacketNumber(2); pn < 10; pn++ {
			s.Record(pn)
		}
		Expect(s.EndOfSackRange()).To(Equal(protocol.PacketNumber(10)))
	})

	It("accepts packet numbers recorded out of order", func() {
		var s pathmanager.SACK
		for _, pn := range []protocol.PacketNumber{3, 1, 2} {
			s.Record(pn)
		}
		Expect(s.EndOfSackRange()).To(Equal(protocol.PacketNumber(3)))
	})
})
