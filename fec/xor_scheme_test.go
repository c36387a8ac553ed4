package fec_test

import (
	"github.com/quicfec/qfec/fec"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("XORCoder", func() {
	var coder fec.XORCoder

	It("recovers a single missing source symbol", func() {
		packets := [][]byte{
			{0xDE, 0xAD, 0xBE, 0xEF},
			{0xCA, 0xFE},
			{0x01, 0x23, 0x45, 0x67, 0x89},
		}
		repair, err := coder.RepairSymbols(packets, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(repair).To(HaveLen(1))

		withHole := [][]byte{packets[0], nil, packets[2]}
		recovered, err := coder.Recover(withHole, []*fec.RepairSymbol{{Data: repair[0]}}, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(recovered).To(HaveLen(1))
		Expect(recovered[1][:len(packets[1])]).To(Equal(packets[1]))
	})

	It("refuses to recover more than one hole", func() {
		packets := [][]byte{{0x01}, {0x02}, {0x03}}
		repair, _ := coder.RepairSymbols(packets, 1)
		withHoles := [][]byte{nil, nil, packets[2]}
		_, err := coder.Recover(withHoles, []*fec.RepairSymbol{{Data: repair[0]}}, 3)
		Expect(err).To(MatchError(fec.ErrCannotRecover))
	})

	It("rejects an empty block", func() {
		_, err := coder.RepairSymbols(nil, 1)
		Expect(err).To(MatchError(fec.ErrNoSymbols))
	})
})
