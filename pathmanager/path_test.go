package pathmanager_test

import (
	"net"
	"time"

	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/pathmanager"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingPathObserver struct {
	calls int
	old   net.Addr
	new   net.Addr
}

func (o *recordingPathObserver) PeerAddressChanged(p *pathmanager.Path, old, n net.Addr) {
	o.calls++
	o.old, o.new = old, n
}

var _ = Describe("Path", func() {
	var (
		peer  = &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1000}
		local = &net.UDPAddr{IP: net.ParseIP("192.0.2.2"), Port: 4433}
	)

	Describe("MaybeMigrate", func() {
		It("adopts a new peer address and issues a fresh challenge", func() {
			p := pathmanager.NewPath(peer, local, 0, nil, nil)
			obs := &recordingPathObserver{}
			newPeer := &net.UDPAddr{IP: net.ParseIP("192.0.2.99"), Port: 2000}

			Expect(p.MaybeMigrate(newPeer, time.Now(), obs)).To(Succeed())
			Expect(p.PeerAddr).To(Equal(newPeer))
			Expect(p.ChallengeVerified).To(BeFalse())
			Expect(obs.calls).To(Equal(1))
		})

		It("does nothing when the address is unchanged", func() {
			p := pathmanager.NewPath(peer, local, 0, nil, nil)
			obs := &recordingPathObserver{}
			Expect(p.MaybeMigrate(peer, time.Now(), obs)).To(Succeed())
			Expect(obs.calls).To(Equal(0))
		})

		It("ignores an unspecified address", func() {
			p := pathmanager.NewPath(peer, local, 0, nil, nil)
			obs := &recordingPathObserver{}
			zero := &net.UDPAddr{IP: net.IPv4zero, Port: 0}
			Expect(p.MaybeMigrate(zero, time.Now(), obs)).To(Succeed())
			Expect(obs.calls).To(Equal(0))
			Expect(p.PeerAddr).To(Equal(peer))
		})
	})

	Describe("RecordReceived", func() {
		It("anchors an epoch on the first call without estimating a rate", func() {
			p := pathmanager.NewPath(peer, local, 0, nil, nil)
			now := time.Now()
			p.RecordReceived(protocol.ByteCount(100), now)
			Expect(p.Received).To(Equal(protocol.ByteCount(100)))
			Expect(p.ReceiveRateEstimate).To(Equal(0.0))
		})

		It("computes a rate once the minimum interval has elapsed", func() {
			p := pathmanager.NewPath(peer, local, 0, nil, nil)
			start := time.Now()
			p.RecordReceived(protocol.ByteCount(1000), start)
			later := start.Add(50 * time.Millisecond)
			p.RecordReceived(protocol.ByteCount(1000), later)
			Expect(p.ReceiveRateEstimate).To(BeNumerically(">", 0))
			Expect(p.ReceiveRateMax).To(Equal(p.ReceiveRateEstimate))
		})
	})

	Describe("UpdateSpinEdge", func() {
		It("ignores a packet number that does not advance the high-water mark", func() {
			p := pathmanager.NewPath(peer, local, 0, nil, nil)
			p.PktCtx[protocol.ContextApplication].Sack.Record(5)
			p.UpdateSpinEdge(protocol.ContextApplication, protocol.PacketNumber(3), true, false)
			Expect(p.SpinVector()).To(Equal(0))
		})

		It("counts a saturating number of spin flips, capped at 3", func() {
			p := pathmanager.NewPath(peer, local, 0, nil, nil)
			pn := protocol.PacketNumber(1)
			spin := false
			for i := 0; i < 6; i++ {
				p.UpdateSpinEdge(protocol.ContextApplication, pn, spin, false)
				p.PktCtx[protocol.ContextApplication].Sack.Record(pn)
				pn++
				spin = !spin
			}
			Expect(p.SpinVector()).To(Equal(3))
		})
	})
})
