package fec_test

import (
	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/internal/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Block", func() {
	It("becomes decodable once enough symbols are present", func() {
		b := fec.NewBlock(protocol.FECBlockNumber(1))
		b.AddSourceSymbol(&fec.SourceSymbol{SFPID: 0, Data: []byte("a")})
		Expect(b.Decodable()).To(BeFalse(), "no repair symbols and total unknown yet")

		b.AddRepairSymbol(&fec.RepairSymbol{NumberOfSourceSymbols: 2, NumberOfRepairSymbols: 1})
		Expect(b.TotalSourceSymbols).To(Equal(2))
		Expect(b.Decodable()).To(BeTrue())
	})

	It("reports Complete once every source slot is filled", func() {
		b := fec.NewBlock(protocol.FECBlockNumber(2))
		b.AddRepairSymbol(&fec.RepairSymbol{NumberOfSourceSymbols: 2})
		b.AddSourceSymbol(&fec.SourceSymbol{SFPID: 0, Data: []byte("x")})
		Expect(b.Complete()).To(BeFalse())
		b.AddSourceSymbol(&fec.SourceSymbol{SFPID: 1, Data: []byte("y")})
		Expect(b.Complete()).To(BeTrue())
		Expect(b.Decodable()).To(BeFalse(), "nothing missing means nothing to recover")
	})

	It("ignores a duplicate source symbol at the same offset", func() {
		b := fec.NewBlock(protocol.FECBlockNumber(3))
		b.AddSourceSymbol(&fec.SourceSymbol{SFPID: 0, Data: []byte("first")})
		b.AddSourceSymbol(&fec.SourceSymbol{SFPID: 0, Data: []byte("second")})
		Expect(b.CurrentSourceSymbols()).To(Equal(1))
		Expect(b.SourceSymbols()[0].Data).To(Equal([]byte("first")))
	})
})
