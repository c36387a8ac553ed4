package fecframework_test

import (
	"encoding/binary"

	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/fecframework"
	"github.com/quicfec/qfec/internal/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Receiver", func() {
	It("recovers a missing source symbol once its block becomes decodable", func() {
		controller := fec.ConstantController{SourceSymbols: 3, RepairSymbols: 1}
		coder := fec.XORCoder{}
		sender := fecframework.NewBlockSender(coder, controller)

		// Long enough to clear MinDecodedSymbolToParse so recovery also
		// reinjects, not just fills the block.
		symbolA := make([]byte, 60)
		copy(symbolA, "aaaa")
		symbolB := make([]byte, 60)
		copy(symbolB, "bbbb")
		symbolC := make([]byte, 60)
		copy(symbolC, "cccc")

		sfpidA, _, err := sender.ProtectSourceSymbol(symbolA)
		Expect(err).NotTo(HaveOccurred())
		sfpidB, _, err := sender.ProtectSourceSymbol(symbolB)
		Expect(err).NotTo(HaveOccurred())
		sfpidC, repair, err := sender.ProtectSourceSymbol(symbolC)
		Expect(err).NotTo(HaveOccurred())
		Expect(repair).To(HaveLen(1))

		var recoveredPayload []byte
		var recoveredBlock protocol.FECBlockNumber
		reinject := func(blockNumber protocol.FECBlockNumber, packetNumber uint64, payload []byte) {
			recoveredBlock = blockNumber
			recoveredPayload = payload
		}
		obs := &recordingObserver{}
		ring := fecframework.NewBlockRing(4, obs)
		receiver := fecframework.NewReceiver(coder, ring, reinject)

		Expect(receiver.HandleSourceSymbol(sfpidA, symbolA)).To(Succeed())
		// sfpidB's symbol is lost in transit; only the repair symbol arrives.
		Expect(receiver.HandleRepairSymbol(repair[0])).To(Succeed())
		Expect(receiver.HandleSourceSymbol(sfpidC, symbolC)).To(Succeed())

		Expect(recoveredPayload).NotTo(BeNil())
		blockNumber, _ := fecframework.DecodeBlockSFPID(sfpidB)
		Expect(recoveredBlock).To(Equal(blockNumber))
		Expect(obs.recovered).To(Equal([]protocol.FECBlockNumber{blockNumber}))
	})

	It("does not reinject a recovered symbol too short to carry a packet number", func() {
		controller := fec.ConstantController{SourceSymbols: 2, RepairSymbols: 1}
		coder := fec.XORCoder{}
		sender := fecframework.NewBlockSender(coder, controller)

		sfpidA, _, err := sender.ProtectSourceSymbol([]byte("aaaa"))
		Expect(err).NotTo(HaveOccurred())
		sfpidB, repair, err := sender.ProtectSourceSymbol([]byte("bbbb"))
		Expect(err).NotTo(HaveOccurred())
		_ = sfpidB

		reinjected := false
		reinject := func(protocol.FECBlockNumber, uint64, []byte) { reinjected = true }
		ring := fecframework.NewBlockRing(4, nil)
		receiver := fecframework.NewReceiver(coder, ring, reinject)

		Expect(receiver.HandleRepairSymbol(repair[0])).To(Succeed())
		Expect(receiver.HandleSourceSymbol(sfpidA, []byte("aaaa"))).To(Succeed())

		Expect(reinjected).To(BeFalse())
	})

	It("extracts the packet number from a recovered payload long enough to carry one", func() {
		controller := fec.ConstantController{SourceSymbols: 2, RepairSymbols: 1}
		coder := fec.XORCoder{}
		sender := fecframework.NewBlockSender(coder, controller)

		payload := make([]byte, 60)
		binary.BigEndian.PutUint64(payload[1:9], 0x1122334455667788)
		sfpidA, _, err := sender.ProtectSourceSymbol(payload)
		Expect(err).NotTo(HaveOccurred())
		sfpidB, repair, err := sender.ProtectSourceSymbol(make([]byte, 60))
		Expect(err).NotTo(HaveOccurred())
		_ = sfpidB

		var gotPN uint64
		reinject := func(blockNumber protocol.FECBlockNumber, packetNumber uint64, p []byte) {
			gotPN = packetNumber
		}
		ring := fecframework.NewBlockRing(4, nil)
		receiver := fecframework.NewReceiver(coder, ring, reinject)
		Expect(receiver.HandleRepairSymbol(repair[0])).To(Succeed())
		Expect(receiver.HandleSourceSymbol(sfpidB, make([]byte, 60))).To(Succeed())
		_ = sfpidA

		Expect(gotPN).To(Equal(uint64(0x1122334455667788)))
	})
})
