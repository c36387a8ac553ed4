package fecframework_test

import (
	"github.com/quicfec/qfec/fec"
	"github.com/quicfec/qfec/fecframework"
	"github.com/quicfec/qfec/internal/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingObserver struct {
	evicted   []protocol.FECBlockNumber
	recovered []protocol.FECBlockNumber
}

func (o *recordingObserver) FECBlockEvicted(n protocol.FECBlockNumber)   { o.evicted = append(o.evicted, n) }
func (o *recordingObserver) FECPacketRecovered(n protocol.FECBlockNumber) { o.recovered = append(o.recovered, n) }

var _ = Describe("BlockRing", func() {
	It("performs a weak read that rejects a slot holding a different block number", func() {
		ring := fecframework.NewBlockRing(2, nil)
		first := ring.GetOrCreate(protocol.FECBlockNumber(0))
		Expect(first).NotTo(BeNil())
		Expect(ring.Get(protocol.FECBlockNumber(0))).To(BeIdenticalTo(first))

		// block 2 hashes to the same slot as block 0 in a ring of size 2.
		ring.GetOrCreate(protocol.FECBlockNumber(2))
		Expect(ring.Get(protocol.FECBlockNumber(0))).To(BeNil(), "the old block was evicted from its slot")
	})

	It("reports eviction only for incomplete blocks", func() {
		obs := &recordingObserver{}
		ring := fecframework.NewBlockRing(1, obs)
		incomplete := ring.GetOrCreate(protocol.FECBlockNumber(0))
		incomplete.AddRepairSymbol(&fec.RepairSymbol{NumberOfSourceSymbols: 5})

		ring.GetOrCreate(protocol.FECBlockNumber(1))
		Expect(obs.evicted).To(ConsistOf(protocol.FECBlockNumber(0)))
	})

	It("does not report eviction for a completed block", func() {
		obs := &recordingObserver{}
		ring := fecframework.NewBlockRing(1, obs)
		complete := ring.GetOrCreate(protocol.FECBlockNumber(0))
		complete.AddRepairSymbol(&fec.RepairSymbol{NumberOfSourceSymbols: 1})
		complete.AddSourceSymbol(&fec.SourceSymbol{SFPID: 0, Data: []byte("x")})

		ring.GetOrCreate(protocol.FECBlockNumber(1))
		Expect(obs.evicted).To(BeEmpty())
	})

	It("frees a slot so a later Get reports it empty", func() {
		ring := fecframework.NewBlockRing(4, nil)
		ring.GetOrCreate(protocol.FECBlockNumber(3))
		ring.Free(protocol.FECBlockNumber(3))
		Expect(ring.Get(protocol.FECBlockNumber(3))).To(BeNil())
	})

	It("defaults to protocol.MaxFECBlocks when given a non-positive size", func() {
		ring := fecframework.NewBlockRing(0, nil)
		ring.GetOrCreate(protocol.FECBlockNumber(protocol.MaxFECBlocks - 1))
		Expect(ring.Get(protocol.FECBlockNumber(protocol.MaxFECBlocks - 1))).NotTo(BeNil())
	})
})
