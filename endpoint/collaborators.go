package endpoint

import (
	"net"
	"time"

	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/pathmanager"
)

// Event is a callback event delivered to the application (§6:
// "Callback (cnx, streamId, bytes, len, event, ctx, extra)").
type Event int

const (
	EventReady Event = iota
	EventStatelessReset
	EventClosed
)

// Callback is the user-supplied application hook, invoked on the
// connection-lifecycle events this module raises.
type Callback func(cnx *Connection, event Event)

// FrameDecoder is the out-of-scope QUIC frame encoder/decoder (§1, §6):
// it consumes a decrypted payload and, on the FEC recovery path, a
// synthetic reconstructed one.
type FrameDecoder interface {
	Decode(cnx *Connection, payload []byte, epoch protocol.Epoch, now time.Time, path *pathmanager.Path) error
	DecodeClosing(cnx *Connection, payload []byte) (closingReceived bool, err error)
}

// TLSDriver is the out-of-scope TLS handshake driver (§1, §6).
type TLSDriver interface {
	StreamProcess(cnx *Connection) error
	IsHandshakeComplete(cnx *Connection) bool
}

// HeaderObserver mirrors the §6 "Collaborators exposed" observer list.
type HeaderObserver interface {
	HeaderParsed(cnx *Connection, consumed int)
	ReceivedPacket(cnx *Connection, addr net.Addr)
}
