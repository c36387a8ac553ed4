package fec_test

import (
	"github.com/quicfec/qfec/fec"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ConstantController", func() {
	It("always reports the configured counts regardless of feedback", func() {
		c := fec.ConstantController{SourceSymbols: 10, RepairSymbols: 3}
		Expect(c.NumberOfSourceSymbols()).To(Equal(10))
		Expect(c.NumberOfRepairSymbols()).To(Equal(3))

		c.OnPacketSent(1, true)
		c.OnPacketLost(2)
		c.OnPacketReceived(3, true)
		Expect(c.NumberOfSourceSymbols()).To(Equal(10))
		Expect(c.NumberOfRepairSymbols()).To(Equal(3))
	})
})

var _ = Describe("DelaySensitiveController", func() {
	It("clamps source symbols to the configured maximum before any loss is observed", func() {
		c := fec.NewDelaySensitiveController(20, 5)
		Expect(c.NumberOfSourceSymbols()).To(BeNumerically("<=", 20))
		Expect(c.NumberOfRepairSymbols()).To(Equal(1), "falls back to a single repair symbol with no distribution yet")
	})

	It("keeps the repair-symbol count within bounds once losses are reported", func() {
		c := fec.NewDelaySensitiveController(50, 10)
		for _, pn := range []int64{10, 20, 30, 40, 50} {
			c.OnPacketLost(pn)
		}
		Expect(c.NumberOfRepairSymbols()).To(BeNumerically(">=", 1))
		Expect(c.NumberOfRepairSymbols()).To(BeNumerically("<=", 10))
	})
})
