package statelessresponder_test

import (
	"net"

	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/internal/wire"
	"github.com/quicfec/qfec/statelessresponder"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Responder retry tokens", func() {
	var (
		r    *statelessresponder.Responder
		peer = net.ParseIP("203.0.113.5")
	)

	BeforeEach(func() {
		var err error
		r, err = statelessresponder.New()
		Expect(err).NotTo(HaveOccurred())
	})

	It("validates a freshly issued token for the right peer, once", func() {
		token := r.RetryToken(peer)
		Expect(r.ValidateRetryToken(token[:], peer)).To(BeTrue())
		Expect(r.ValidateRetryToken(token[:], peer)).To(BeFalse(), "the token was already redeemed")
	})

	It("rejects a token issued for a different peer", func() {
		token := r.RetryToken(peer)
		other := net.ParseIP("203.0.113.9")
		Expect(r.ValidateRetryToken(token[:], other)).To(BeFalse())
	})

	It("rejects a malformed token length", func() {
		Expect(r.ValidateRetryToken([]byte{1, 2, 3}, peer)).To(BeFalse())
	})

	It("still honors a token from the previous key for one rotation", func() {
		token := r.RetryToken(peer)
		Expect(r.RotateRetryKey()).To(Succeed())
		Expect(r.ValidateRetryToken(token[:], peer)).To(BeTrue())
	})

	It("rejects a token from two rotations ago", func() {
		token := r.RetryToken(peer)
		Expect(r.RotateRetryKey()).To(Succeed())
		Expect(r.RotateRetryKey()).To(Succeed())
		Expect(r.ValidateRetryToken(token[:], peer)).To(BeFalse())
	})
})

var _ = Describe("ResetToken", func() {
	It("is deterministic for a given connection ID", func() {
		r, err := statelessresponder.New()
		Expect(err).NotTo(HaveOccurred())
		cid := protocol.ConnectionID{1, 2, 3, 4}
		Expect(r.ResetToken(cid)).To(Equal(r.ResetToken(cid)))
	})

	It("differs across connection IDs", func() {
		r, err := statelessresponder.New()
		Expect(err).NotTo(HaveOccurred())
		a := r.ResetToken(protocol.ConnectionID{1})
		b := r.ResetToken(protocol.ConnectionID{2})
		Expect(a).NotTo(Equal(b))
	})
})

var _ = Describe("BuildVersionNegotiation", func() {
	It("swaps the incoming CIDs and lists every supported version", func() {
		hdr := &wire.PacketHeader{
			DestCID: protocol.ConnectionID{1, 2},
			SrceCID: protocol.ConnectionID{3, 4, 5},
		}
		supported := []protocol.VersionNumber{0xff00001d, 0x00000001}
		buf, err := statelessresponder.BuildVersionNegotiation(hdr, supported)
		Expect(err).NotTo(HaveOccurred())

		Expect(buf[0] & 0x80).NotTo(BeZero(), "long header bit must be set")
		version, err := wire.ReadUint32(buf[1:5])
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint32(0)))

		off := 5
		destLen := int(buf[off])
		off++
		Expect(buf[off : off+destLen]).To(Equal([]byte(hdr.SrceCID)), "the response's destCID is the incoming srceCID")
		off += destLen
		srceLen := int(buf[off])
		off++
		Expect(buf[off : off+srceLen]).To(Equal([]byte(hdr.DestCID)))
		off += srceLen

		Expect(len(buf) - off).To(Equal(4 * len(supported)))
	})
})

var _ = Describe("BuildRetry", func() {
	It("packs the original destination CID length into the low nibble", func() {
		incoming := &wire.PacketHeader{
			DestCID: protocol.ConnectionID{1, 2, 3, 4, 5},
			SrceCID: protocol.ConnectionID{9, 9},
		}
		newSrceCID := protocol.ConnectionID{7, 7, 7, 7}
		token := []byte("retrytokenbytes!")

		buf, err := statelessresponder.BuildRetry(protocol.VersionNumber(0xff00001d), incoming, newSrceCID, token)
		Expect(err).NotTo(HaveOccurred())

		Expect(buf[0] & 0xc0).To(Equal(byte(0xc0)), "fixed bit and long-header bit must both be set")
		Expect((buf[0] >> 4) & 0x3).To(Equal(byte(0x3)), "type bits must select Retry")

		off := 5
		srceLen := int(buf[off])
		off++
		Expect(buf[off : off+srceLen]).To(Equal([]byte(incoming.SrceCID)))
		off += srceLen
		destLen := int(buf[off])
		off++
		Expect(buf[off : off+destLen]).To(Equal([]byte(newSrceCID)))
		off += destLen

		nibble := buf[off]
		off++
		Expect(int(nibble & 0x0f)).To(Equal(len(incoming.DestCID)))
		Expect(buf[off : off+len(incoming.DestCID)]).To(Equal([]byte(incoming.DestCID)))
		off += len(incoming.DestCID)
		Expect(buf[off:]).To(Equal(token))
	})
})

var _ = Describe("BuildStatelessReset", func() {
	It("draws the random prefix uniformly within [20, totalLength-17] and ends with the peer's reset token", func() {
		r, err := statelessresponder.New()
		Expect(err).NotTo(HaveOccurred())
		cid := protocol.ConnectionID{1, 2, 3}
		buf, err := r.BuildStatelessReset(cid, 200, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(buf)).To(BeNumerically("<=", 200))
		Expect(len(buf)).To(BeNumerically(">=", 1+20+16))
		Expect(buf[0]).To(Equal(byte(0x30)))

		token := r.ResetToken(cid)
		Expect(buf[len(buf)-16:]).To(Equal(token[:]))
	})

	It("sets byte0 to 0x70 for a phase-1 short header trigger", func() {
		r, err := statelessresponder.New()
		Expect(err).NotTo(HaveOccurred())
		buf, err := r.BuildStatelessReset(protocol.ConnectionID{1, 2, 3}, 200, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(buf[0]).To(Equal(byte(0x70)))
	})

	It("enforces the minimum reset packet size even for a tiny trigger datagram", func() {
		r, err := statelessresponder.New()
		Expect(err).NotTo(HaveOccurred())
		buf, err := r.BuildStatelessReset(protocol.ConnectionID{1}, 5, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(buf)).To(BeNumerically(">=", protocol.ResetPacketMinSize))
		Expect(len(buf) - 17).To(BeNumerically(">=", 20))
	})

	It("never draws fewer than 20 random padding bytes even when totalLength leaves little room", func() {
		r, err := statelessresponder.New()
		Expect(err).NotTo(HaveOccurred())
		buf, err := r.BuildStatelessReset(protocol.ConnectionID{1}, protocol.ResetPacketMinSize, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(buf) - 1 - 16).To(Equal(20))
	})
})
