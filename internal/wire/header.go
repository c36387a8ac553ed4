// Package wire implements the version-aware QUIC header codec (§4.1),
// packet-number masking helpers, and the wire frames the FEC sublayer
// adds to the QUIC frame space (§4.8).
package wire

import (
	"errors"

	"github.com/quicfec/qfec/internal/protocol"
)

// ErrMalformedHeader is returned for any length underrun or length
// mismatch while parsing a header (§4.1, §7 MalformedHeader).
var ErrMalformedHeader = errors.New("wire: malformed packet header")

// VersionClass names the header-encoding family a version resolves to.
// The core only understands one class today; new classes are added as
// new variants, not by runtime dispatch (§9).
type VersionClass uint8

const (
	// VersionClassUnsupported marks a version this endpoint cannot parse
	// past the invariant long-header prefix.
	VersionClassUnsupported VersionClass = iota
	// VersionClassDraft29 is picoquic_version_header_29: 2-bit long-header
	// type discriminator, varint token/payload lengths.
	VersionClassDraft29
)

// VersionInfo pairs a supported wire version with its header-encoding
// class, resolved once at endpoint construction (§9: variant selection at
// construction time, not late-bound dispatch).
type VersionInfo struct {
	Version protocol.VersionNumber
	Class   VersionClass
}

// Config is the subset of endpoint configuration the header parser
// consults: the set of versions it understands, and the connection-id
// length short headers on this endpoint carry (0 means "not yet known",
// forcing callers to resolve by peer address instead, per §4.1).
type Config struct {
	SupportedVersions []VersionInfo
	LocalCIDLength    int
}

func (c Config) versionIndex(v protocol.VersionNumber) (int, VersionClass) {
	for i, vi := range c.SupportedVersions {
		if vi.Version == v {
			return i, vi.Class
		}
	}
	return -1, VersionClassUnsupported
}

// PacketHeader is the parsed, stack-scoped view of one wire segment
// (§3 PacketHeader). It never owns the underlying bytes.
type PacketHeader struct {
	Type          protocol.PacketType
	Version       protocol.VersionNumber
	VersionIndex  int
	DestCID       protocol.ConnectionID
	SrceCID       protocol.ConnectionID
	Offset        int
	PNOffset      int
	TokenOffset   int
	TokenLength   int
	PayloadLength int
	PN            uint32
	PNMask        uint64
	PN64          protocol.PacketNumber
	Epoch         protocol.Epoch
	PacketContext protocol.PacketContext
	HasSpinBit    bool
	Spin          bool

	// FECFlag and FECPayloadID are slots for the SourceFPID/FEC frame
	// information carried in the payload (§4.8). The header parser never
	// reads past the packet-number field and leaves them zero, and no
	// package in this module sets or reads them.
	FECFlag       bool
	FECPayloadID  uint32

	// SupportedVersions is populated only for VersionNegotiation packets.
	SupportedVersions []protocol.VersionNumber
}

// ParseHeader implements HeaderParser (§4.1). The length of a short
// header's destination CID comes from cfg.LocalCIDLength; 0 means
// unknown (caller must resolve the connection by peer address).
func ParseHeader(data []byte, cfg Config) (*PacketHeader, error) {
	if len(data) == 0 {
		return nil, ErrMalformedHeader
	}
	byte0 := data[0]
	if byte0&0x40 == 0 {
		// Fixed bit unset: not a valid long or short header (§4.1).
		return &PacketHeader{Type: protocol.PacketTypeError, Offset: len(data)}, nil
	}
	if byte0&0x80 != 0 {
		return parseLongHeader(data, cfg)
	}
	return parseShortHeader(data, cfg)
}

func parseLongHeader(data []byte, cfg Config) (*PacketHeader, error) {
	if len(data) < 7 {
		return nil, ErrMalformedHeader
	}
	byte0 := data[0]
	version, err := ReadUint32(data[1:5])
	if err != nil {
		return nil, ErrMalformedHeader
	}
	off := 5

	destLen := int(data[off])
	off++
	if len(data) < off+destLen {
		return nil, ErrMalformedHeader
	}
	destCID := protocol.ConnectionID(data[off : off+destLen])
	off += destLen

	if len(data) < off+1 {
		return nil, ErrMalformedHeader
	}
	srceLen := int(data[off])
	off++
	if len(data) < off+srceLen {
		return nil, ErrMalformedHeader
	}
	srceCID := protocol.ConnectionID(data[off : off+srceLen])
	off += srceLen

	h := &PacketHeader{
		Version: protocol.VersionNumber(version),
		DestCID: destCID,
		SrceCID: srceCID,
	}

	if version == 0 {
		h.Type = protocol.PacketTypeVersionNegotiation
		h.PacketContext = protocol.ContextInitial
		h.VersionIndex = -1
		remaining := data[off:]
		h.SupportedVersions = make([]protocol.VersionNumber, 0, len(remaining)/4)
		for len(remaining) >= 4 {
			v, _ := ReadUint32(remaining[:4])
			h.SupportedVersions = append(h.SupportedVersions, protocol.VersionNumber(v))
			remaining = remaining[4:]
		}
		h.Offset = len(data)
		return h, nil
	}

	idx, class := cfg.versionIndex(protocol.VersionNumber(version))
	h.VersionIndex = idx
	if class != VersionClassDraft29 {
		// Unsupported version: only the invariant prefix is meaningful.
		h.Type = protocol.PacketTypeError
		h.Offset = off
		return h, nil
	}

	typeBits := (byte0 >> 4) & 0x3
	switch typeBits {
	case 0x0:
		h.Type = protocol.PacketTypeInitial
		h.Epoch = protocol.EpochInitial
		h.PacketContext = protocol.ContextInitial
	case 0x1:
		h.Type = protocol.PacketType0RTT
		h.Epoch = protocol.Epoch0RTT
		h.PacketContext = protocol.ContextApplication
	case 0x2:
		h.Type = protocol.PacketTypeHandshake
		h.Epoch = protocol.EpochHandshake
		h.PacketContext = protocol.ContextHandshake
	case 0x3:
		h.Type = protocol.PacketTypeRetry
		h.Epoch = protocol.EpochInitial
		h.PacketContext = protocol.ContextInitial
	}

	if h.Type == protocol.PacketTypeInitial {
		tokenLen, n, verr := ReadVarInt(data[off:])
		if verr != nil {
			return nil, ErrMalformedHeader
		}
		off += n
		h.TokenOffset = off
		h.TokenLength = int(tokenLen)
		if len(data) < off+int(tokenLen) {
			return nil, ErrMalformedHeader
		}
		off += int(tokenLen)
	}

	if h.Type == protocol.PacketTypeRetry {
		h.Offset = off
		h.PayloadLength = len(data) - off
		return h, nil
	}

	payloadLen, n, verr := ReadVarInt(data[off:])
	if verr != nil {
		return nil, ErrMalformedHeader
	}
	off += n
	if off+int(payloadLen) > len(data) {
		return nil, ErrMalformedHeader
	}
	h.Offset = off
	h.PNOffset = off
	h.PayloadLength = int(payloadLen)
	return h, nil
}

func parseShortHeader(data []byte, cfg Config) (*PacketHeader, error) {
	if cfg.LocalCIDLength < 0 || cfg.LocalCIDLength > protocol.MaxConnectionIDLength {
		return nil, ErrMalformedHeader
	}
	cidLen := cfg.LocalCIDLength
	if len(data) < 1+cidLen {
		return nil, ErrMalformedHeader
	}
	h := &PacketHeader{
		PacketContext: protocol.ContextApplication,
		Epoch:         protocol.Epoch1RTT,
		DestCID:       protocol.ConnectionID(data[1 : 1+cidLen]),
		HasSpinBit:    true,
		Spin:          data[0]&0x20 != 0,
		Type:          protocol.PacketTypeOneRTTPhase0,
	}
	off := 1 + cidLen
	h.Offset = off
	h.PNOffset = off
	h.PayloadLength = len(data) - off
	h.VersionIndex = 0
	return h, nil
}
