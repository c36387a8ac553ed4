// Package cryptoctx implements the CryptoGate of §4.3 — header-protection
// removal and AEAD decryption against the collaborator interfaces the TLS
// key schedule (out of scope, §1) is expected to supply per epoch — plus
// one concrete implementation of those interfaces (AESGCMContext, backed
// by golang.org/x/crypto) for tests.
package cryptoctx

import (
	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/internal/wire"
	"github.com/quicfec/qfec/qerr"
)

// HeaderProtector produces the 5-byte header-protection mask from a
// ciphertext sample (§4.3 step 1).
type HeaderProtector interface {
	SampleSize() int
	Mask(sample []byte) ([5]byte, error)
}

// AEAD opens (decrypts+authenticates) or seals one packet's payload
// (§4.3 step 2).
type AEAD interface {
	Open(dst, ciphertext []byte, pn protocol.PacketNumber, aad []byte) ([]byte, error)
	Seal(dst, plaintext []byte, pn protocol.PacketNumber, aad []byte) []byte
}

// Context bundles the four collaborator objects one epoch needs
// (§3 Connection.CryptoContext).
type Context struct {
	AEADDecrypt AEAD
	AEADEncrypt AEAD
	HPDecrypt   HeaderProtector
	HPEncrypt   HeaderProtector
}

func isLongHeaderType(t protocol.PacketType) bool {
	switch t {
	case protocol.PacketTypeInitial, protocol.PacketType0RTT, protocol.PacketTypeHandshake, protocol.PacketTypeRetry:
		return true
	default:
		return false
	}
}

// pnSentinel is used when the ciphertext sample doesn't fit the segment;
// the packet is left to fail AEAD rather than rejected up front (§4.3).
const pnSentinel uint32 = 0xFFFFFFFF

// RemoveHeaderProtection performs §4.3 step 1 in place on buf, updating
// hdr's Offset/PayloadLength/PNMask/PN and (for short headers) refining
// Type to the key-phase-specific variant.
func RemoveHeaderProtection(buf []byte, hdr *wire.PacketHeader, hp HeaderProtector) error {
	sampleOffset := hdr.PNOffset + 4
	sampleSize := hp.SampleSize()
	if sampleOffset+sampleSize > len(buf) {
		hdr.PN = pnSentinel
		var allOnes uint64 = ^uint64(0)
		hdr.PNMask = allOnes << 32
		return nil
	}

	mask, err := hp.Mask(buf[sampleOffset : sampleOffset+sampleSize])
	if err != nil {
		return err
	}

	long := isLongHeaderType(hdr.Type)
	var bits byte = 0x1f
	if long {
		bits = 0x0f
	}
	buf[0] ^= mask[0] & bits

	pnLength := int(buf[0]&0x3) + 1
	if hdr.PNOffset+pnLength > len(buf) {
		return qerr.ErrMalformedHeader
	}
	var pn uint32
	for i := 0; i < pnLength; i++ {
		buf[hdr.PNOffset+i] ^= mask[1+i]
		pn = pn<<8 | uint32(buf[hdr.PNOffset+i])
	}
	hdr.PN = pn
	hdr.Offset = hdr.PNOffset + pnLength
	hdr.PayloadLength -= pnLength
	hdr.PNMask = ^uint64(0) << uint(8*pnLength)

	if !long {
		if buf[0]&0x4 != 0 {
			hdr.Type = protocol.PacketTypeOneRTTPhase1
		} else {
			hdr.Type = protocol.PacketTypeOneRTTPhase0
		}
	}
	return nil
}

// Decrypt performs §4.3 step 2: AEAD-open the payload in place, with
// associated data equal to the header bytes preceding the payload.
//
// highWater is the packet context's current SACK high-water mark
// (protocol.InvalidPacketNumber if nothing has been recorded yet). A pn64
// that falls more than protocol.MaxPacketContextWindow behind it is
// rejected with ErrTooOld before the AEAD call is made, mirroring the
// original implementation's pre-AEAD staleness check.
func Decrypt(buf []byte, hdr *wire.PacketHeader, pn64, highWater protocol.PacketNumber, aead AEAD) ([]byte, error) {
	if hdr.PayloadLength < 0 || hdr.Offset+hdr.PayloadLength > len(buf) {
		return nil, qerr.ErrMalformedHeader
	}
	if highWater != protocol.InvalidPacketNumber && pn64+protocol.MaxPacketContextWindow < highWater {
		return nil, qerr.ErrTooOld
	}
	aad := buf[:hdr.Offset]
	ciphertext := buf[hdr.Offset : hdr.Offset+hdr.PayloadLength]
	plaintext, err := aead.Open(ciphertext[:0:0], ciphertext, pn64, aad)
	if err != nil {
		return nil, qerr.ErrAeadCheck
	}
	return plaintext, nil
}
