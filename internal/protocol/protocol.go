// Package protocol holds the version-independent value types shared by the
// receive path and the FEC sublayer: connection identifiers, packet
// numbers, epochs and the wire constants both sides agree on.
package protocol

import "fmt"

// ConnectionID is a QUIC connection identifier, 0..20 bytes.
type ConnectionID []byte

// MaxConnectionIDLength is the largest length draft-29 allows for a CID.
const MaxConnectionIDLength = 20

func (c ConnectionID) String() string {
	if len(c) == 0 {
		return "(empty)"
	}
	return fmt.Sprintf("%x", []byte(c))
}

// Equal reports whether two connection IDs carry the same bytes.
func (c ConnectionID) Equal(other ConnectionID) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// PacketNumber is the 64-bit reconstructed packet number of a segment.
type PacketNumber int64

// InvalidPacketNumber is used for a header whose packet number could not
// be recovered (header-protection sample didn't fit the segment).
const InvalidPacketNumber PacketNumber = -1

// MaxPacketContextWindow bounds how far behind a packet context's SACK
// high-water mark a recovered packet number may fall before CryptoGate
// rejects it as too old to bother spending an AEAD call on.
const MaxPacketContextWindow PacketNumber = 1 << 20

// VersionNumber is the 32-bit wire version field of a long header.
type VersionNumber uint32

// VersionNegotiation is the reserved "version" that marks a Version
// Negotiation packet.
const VersionNegotiation VersionNumber = 0

// ByteCount counts bytes of wire data.
type ByteCount int64

// PacketType is the decoded type of one wire segment.
type PacketType uint8

const (
	PacketTypeVersionNegotiation PacketType = iota
	PacketTypeInitial
	PacketType0RTT
	PacketTypeHandshake
	PacketTypeRetry
	PacketTypeOneRTTPhase0
	PacketTypeOneRTTPhase1
	PacketTypeError
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeVersionNegotiation:
		return "VersionNegotiation"
	case PacketTypeInitial:
		return "Initial"
	case PacketType0RTT:
		return "0-RTT"
	case PacketTypeHandshake:
		return "Handshake"
	case PacketTypeRetry:
		return "Retry"
	case PacketTypeOneRTTPhase0:
		return "1-RTT(phase 0)"
	case PacketTypeOneRTTPhase1:
		return "1-RTT(phase 1)"
	default:
		return "Error"
	}
}

// Epoch is the key-schedule level a packet was protected under.
type Epoch uint8

const (
	EpochInitial Epoch = iota
	Epoch0RTT
	EpochHandshake
	Epoch1RTT
)

func (e Epoch) String() string {
	switch e {
	case EpochInitial:
		return "initial"
	case Epoch0RTT:
		return "0-rtt"
	case EpochHandshake:
		return "handshake"
	case Epoch1RTT:
		return "1-rtt"
	default:
		return "unknown"
	}
}

// PacketContext groups packet numbers and SACK state into the three
// independent number spaces QUIC keeps.
type PacketContext uint8

const (
	ContextInitial PacketContext = iota
	ContextHandshake
	ContextApplication
	numPacketContexts
)

func (pc PacketContext) String() string {
	switch pc {
	case ContextInitial:
		return "initial"
	case ContextHandshake:
		return "handshake"
	case ContextApplication:
		return "application"
	default:
		return "unknown"
	}
}

// NumPacketContexts is the number of independent packet-number spaces.
const NumPacketContexts = int(numPacketContexts)

// ConnectionState is the coarse connection lifecycle of §4.7.
type ConnectionState uint8

const (
	StateClientInit ConnectionState = iota
	StateClientInitSent
	StateClientInitResent
	StateClientHandshakeStart
	StateClientHandshakeProgress
	StateClientAlmostReady
	StateClientReady
	StateServerInit
	StateServerHandshake
	StateServerAlmostReady
	StateServerReady
	StateClosingReceived
	StateClosing
	StateDraining
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateClientInit:
		return "client_init"
	case StateClientInitSent:
		return "client_init_sent"
	case StateClientInitResent:
		return "client_init_resent"
	case StateClientHandshakeStart:
		return "client_handshake_start"
	case StateClientHandshakeProgress:
		return "client_handshake_progress"
	case StateClientAlmostReady:
		return "client_almost_ready"
	case StateClientReady:
		return "client_ready"
	case StateServerInit:
		return "server_init"
	case StateServerHandshake:
		return "server_handshake"
	case StateServerAlmostReady:
		return "server_almost_ready"
	case StateServerReady:
		return "server_ready"
	case StateClosingReceived:
		return "closing_received"
	case StateClosing:
		return "closing"
	case StateDraining:
		return "draining"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Constants named directly in spec §6.
const (
	MaxFECBlocks                     = 64
	ReceiveBufferMaxLength           = 256
	MaxRecoveredInOneRow             = 5
	MinDecodedSymbolToParse          = 50
	EnforcedInitialMTU               = 1200
	BandwidthTimeIntervalMinMicros   = 25_000
	ResetSecretSize                  = 16
	ResetPacketMinSize               = 17 + ResetSecretSize
	RecoveredPacketPrefixLength      = 9 // 1-byte type tag + 8-byte packet number
	MaxRetryTokenLength              = 256
)
