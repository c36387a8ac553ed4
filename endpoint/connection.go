package endpoint

import (
	"time"

	"github.com/quicfec/qfec/cryptoctx"
	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/pathmanager"
)

// Connection is per-endpoint state keyed by local/remote connection IDs
// (§3 Connection). Created by the server on a valid Initial, or
// explicitly by the client; destroyed on fatal error, stateless reset,
// or application close.
type Connection struct {
	State      protocol.ConnectionState
	ClientMode bool

	VersionIndex int
	Version      protocol.VersionNumber

	InitialCID protocol.ConnectionID
	LocalCID   protocol.ConnectionID
	RemoteCID  protocol.ConnectionID

	// CryptoContexts is indexed by protocol.Epoch.
	CryptoContexts [4]*cryptoctx.Context

	Paths *pathmanager.Manager

	RetryToken []byte

	// Spin-bit fields named after §3's connection-scoped observables. The
	// receive path does not write them: the spin-edge detector state is
	// kept per path by pathmanager.Path.UpdateSpinEdge (read back through
	// Path.SpinVector), which dispatch calls with this connection's
	// clientMode.
	CurrentSpin bool
	PrevSpin    bool
	SpinEdge    time.Time
	SpinVec     int

	HandshakeDone                bool
	ProcessedTransportParameter bool

	// PeerResetSecret is the stateless_reset_token the peer registered for
	// this connection during the (out-of-scope) TLS transport parameter
	// exchange. When set, a 1-RTT-looking packet that fails AEAD is
	// checked against it before being dropped as AeadCheck (§4.7, §8
	// Scenario 4).
	PeerResetSecret    [protocol.ResetSecretSize]byte
	HasPeerResetSecret bool

	Callback Callback

	FEC *FECState

	config *Config

	closed bool
}

// NewConnection builds a fresh Connection in its initial state for
// clientMode.
func NewConnection(cfg *Config, clientMode bool, initialCID protocol.ConnectionID) *Connection {
	state := protocol.StateServerInit
	if clientMode {
		state = protocol.StateClientInit
	}
	return &Connection{
		State:      state,
		ClientMode: clientMode,
		InitialCID: initialCID,
		LocalCID:   initialCID,
		Paths:      pathmanager.NewManager(),
		config:     cfg,
	}
}

// Close tears down the connection; it satisfies conntable.Connection so
// a *Connection can be stored directly in a conntable.Table.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.State = protocol.StateDisconnected
	if c.Callback != nil {
		c.Callback(c, EventClosed)
	}
	return nil
}

// AdoptOrCheckRemoteCID implements the Connection invariant of §3: the
// first segment that establishes a remote CID is accepted
// unconditionally; afterward, any differing srceCID is rejected.
func (c *Connection) AdoptOrCheckRemoteCID(srceCID protocol.ConnectionID) bool {
	if len(c.RemoteCID) == 0 {
		c.RemoteCID = srceCID
		return true
	}
	return c.RemoteCID.Equal(srceCID)
}

// TransitionOnHandshakeReceived implements §4.7's
// "ClientInitSent on Handshake received: -> ClientHandshakeStart
// (before processing frames)".
func (c *Connection) TransitionOnHandshakeReceived() {
	if c.ClientMode && c.State == protocol.StateClientInitSent {
		c.State = protocol.StateClientHandshakeStart
	}
}

// MarkReady implements §4.7's "ServerReady on completed TLS finished
// frame: set handshakeDone, fire Ready callback", generalized to fire
// for the client's own ready transition too.
func (c *Connection) MarkReady() {
	c.HandshakeDone = true
	if !c.ClientMode {
		c.State = protocol.StateServerReady
	} else {
		c.State = protocol.StateClientReady
	}
	if c.Callback != nil {
		c.Callback(c, EventReady)
	}
}

// ResetOnStatelessReset implements §4.7's "Stateless reset valid: any ->
// Disconnected, fire StatelessReset callback".
func (c *Connection) ResetOnStatelessReset() {
	c.State = protocol.StateDisconnected
	if c.Callback != nil {
		c.Callback(c, EventStatelessReset)
	}
}

// CloseOnProtocolViolation implements §7's "ProtocolViolation ->
// connection error (close)": the connection moves to Closing so a
// CONNECTION_CLOSE goes out on the next flight, and the application is
// notified once.
func (c *Connection) CloseOnProtocolViolation() {
	if c.State >= protocol.StateClosing {
		return
	}
	c.State = protocol.StateClosing
	if c.Callback != nil {
		c.Callback(c, EventClosed)
	}
}

// SetPeerResetSecret records the stateless_reset_token the peer
// registered for this connection, so a later decrypt-failed 1-RTT
// packet can be recognized as a genuine stateless reset rather than
// dropped as AeadCheck.
func (c *Connection) SetPeerResetSecret(secret []byte) {
	copy(c.PeerResetSecret[:], secret)
	c.HasPeerResetSecret = true
}

// ResetToVersion implements §4.7's "VN on ClientInitSent: call
// reset-version, stay in same logical phase with new version": it
// records the newly chosen version index and number without otherwise
// changing state; nothing is sent from here.
func (c *Connection) ResetToVersion(idx int, version protocol.VersionNumber) {
	c.VersionIndex = idx
	c.Version = version
}

// IsClosingOrBeyond reports whether the connection has entered the
// terminal chain (§4.6: "if state >= ClosingReceived").
func (c *Connection) IsClosingOrBeyond() bool {
	return c.State >= protocol.StateClosingReceived
}
