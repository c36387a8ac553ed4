package fecframework_test

import (
	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/fecframework"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BlockSender", func() {
	It("stays quiet until the controller's source-symbol target is reached", func() {
		controller := fec.ConstantController{SourceSymbols: 3, RepairSymbols: 1}
		sender := fecframework.NewBlockSender(fec.XORCoder{}, controller)

		_, repair, err := sender.ProtectSourceSymbol([]byte("a"))
		Expect(err).NotTo(HaveOccurred())
		Expect(repair).To(BeNil())

		_, repair, err = sender.ProtectSourceSymbol([]byte("b"))
		Expect(err).NotTo(HaveOccurred())
		Expect(repair).To(BeNil())

		_, repair, err = sender.ProtectSourceSymbol([]byte("c"))
		Expect(err).NotTo(HaveOccurred())
		Expect(repair).To(HaveLen(1))
	})

	It("assigns sfpids that encode a monotonically increasing block index", func() {
		controller := fec.ConstantController{SourceSymbols: 2, RepairSymbols: 1}
		sender := fecframework.NewBlockSender(fec.XORCoder{}, controller)

		first := sender.NextSFPID()
		sfpid1, _, _ := sender.ProtectSourceSymbol([]byte("a"))
		Expect(sfpid1).To(Equal(first))

		second := sender.NextSFPID()
		sfpid2, _, _ := sender.ProtectSourceSymbol([]byte("b"))
		Expect(sfpid2).To(Equal(second))

		block1, idx1 := fecframework.DecodeBlockSFPID(sfpid1)
		block2, idx2 := fecframework.DecodeBlockSFPID(sfpid2)
		Expect(block1).To(Equal(block2))
		Expect(idx2).To(Equal(idx1 + 1))

		// The block closed on the second symbol; the next one starts a new block.
		sfpid3, _, _ := sender.ProtectSourceSymbol([]byte("c"))
		block3, idx3 := fecframework.DecodeBlockSFPID(sfpid3)
		Expect(block3).To(Equal(block1 + 1))
		Expect(idx3).To(Equal(uint8(0)))
	})

	It("flushes a partial block on demand", func() {
		controller := fec.ConstantController{SourceSymbols: 10, RepairSymbols: 2}
		sender := fecframework.NewBlockSender(fec.XORCoder{}, controller)
		sender.ProtectSourceSymbol([]byte("only one so far"))

		repair, err := sender.FlushRepairSymbols()
		Expect(err).NotTo(HaveOccurred())
		Expect(repair).To(HaveLen(1), "XOR of a single symbol still yields one repair symbol")
	})

	It("no-ops FlushRepairSymbols when nothing is pending", func() {
		controller := fec.ConstantController{SourceSymbols: 10, RepairSymbols: 2}
		sender := fecframework.NewBlockSender(fec.XORCoder{}, controller)
		repair, err := sender.FlushRepairSymbols()
		Expect(err).NotTo(HaveOccurred())
		Expect(repair).To(BeNil())
	})
})
