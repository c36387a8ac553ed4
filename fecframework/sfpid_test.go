package fecframework_test

import (
	"github.com/quicfec/qfec/fecframework"
	"github.com/quicfec/qfec/internal/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("block SFPID/RFPID encoding", func() {
	It("round-trips block number and in-block index through SFPID", func() {
		sfpid := fecframework.EncodeBlockSFPID(protocol.FECBlockNumber(0xABCDEF), 0x42)
		block, index := fecframework.DecodeBlockSFPID(sfpid)
		Expect(block).To(Equal(protocol.FECBlockNumber(0xABCDEF)))
		Expect(index).To(Equal(uint8(0x42)))
	})

	It("keeps distinct blocks from colliding at index 0", func() {
		a := fecframework.EncodeBlockSFPID(1, 0)
		b := fecframework.EncodeBlockSFPID(2, 0)
		Expect(a).NotTo(Equal(b))
	})

	It("packs RFPID the same way as SFPID", func() {
		rfpid := fecframework.EncodeBlockRFPID(7, 3)
		Expect(rfpid).To(Equal(protocol.RepairFPID(7<<8 | 3)))
	})
})
