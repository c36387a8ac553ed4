package pathmanager_test

import (
	"net"

	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/pathmanager"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Manager", func() {
	It("creates a new path on first Resolve and reuses it by peer address", func() {
		m := pathmanager.NewManager()
		addr := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1}
		var built int
		newPath := func() *pathmanager.Path {
			built++
			return pathmanager.NewPath(addr, nil, 0, nil, nil)
		}

		p1 := m.Resolve(addr, nil, newPath)
		Expect(p1).NotTo(BeNil())
		Expect(built).To(Equal(1))

		p2 := m.Resolve(addr, nil, newPath)
		Expect(p2).To(BeIdenticalTo(p1))
		Expect(built).To(Equal(1), "second Resolve for the same address must not build a new path")
	})

	It("falls back to matching local CID when the peer address is new", func() {
		m := pathmanager.NewManager()
		oldAddr := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1}
		cid := protocol.ConnectionID{1, 2, 3, 4}
		p := pathmanager.NewPath(oldAddr, nil, 0, nil, cid)
		m.Resolve(oldAddr, nil, func() *pathmanager.Path { return p })

		newAddr := &net.UDPAddr{IP: net.ParseIP("192.0.2.2"), Port: 2}
		resolved := m.Resolve(newAddr, cid, func() *pathmanager.Path {
			Fail("should have matched by local CID instead of building a new path")
			return nil
		})
		Expect(resolved).To(BeIdenticalTo(p))
	})

	It("returns nil when no path matches and newPath is nil", func() {
		m := pathmanager.NewManager()
		addr := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1}
		Expect(m.Resolve(addr, nil, nil)).To(BeNil())
	})

	It("removes a path from the tracked set", func() {
		m := pathmanager.NewManager()
		addr := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1}
		p := m.Resolve(addr, nil, func() *pathmanager.Path { return pathmanager.NewPath(addr, nil, 0, nil, nil) })
		Expect(m.Paths()).To(HaveLen(1))
		m.Remove(p)
		Expect(m.Paths()).To(BeEmpty())
	})
})
