// Package statelessresponder builds the three packet types an endpoint
// can send without any per-connection state: Version Negotiation,
// Stateless Reset, and Retry, and validates the retry tokens it hands
// out. Grounded on quic-go-quic-go's conn_id_generator.go (default
// stateless-reset-token derivation shape) and picoquic's
// picoquic_incoming_segment retry/reset builders from original_source/.
package statelessresponder

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"math/big"
	"net"

	lru "github.com/hashicorp/golang-lru"

	"github.com/quicfec/qfec/internal/protocol"
	"github.com/quicfec/qfec/internal/wire"
)

const tokenReplayCacheSize = 8192

// Responder builds stateless responses and validates retry tokens. It
// holds two secrets for HMAC derivation (reset tokens, retry tokens)
// and rotates the retry-token secret so tokens issued just before a
// rotation are still honored for one generation.
type Responder struct {
	resetKey []byte

	currentRetryKey  []byte
	previousRetryKey []byte

	seenTokens *lru.Cache
}

// New builds a Responder from freshly generated random secrets.
func New() (*Responder, error) {
	resetKey := make([]byte, 32)
	if _, err := rand.Read(resetKey); err != nil {
		return nil, err
	}
	retryKey := make([]byte, 32)
	if _, err := rand.Read(retryKey); err != nil {
		return nil, err
	}
	cache, err := lru.New(tokenReplayCacheSize)
	if err != nil {
		return nil, err
	}
	return &Responder{
		resetKey:        resetKey,
		currentRetryKey: retryKey,
		seenTokens:      cache,
	}, nil
}

// RotateRetryKey replaces the current retry-token secret, keeping the
// previous one alive for one more generation so tokens issued right
// before rotation still validate.
func (r *Responder) RotateRetryKey() error {
	next := make([]byte, 32)
	if _, err := rand.Read(next); err != nil {
		return err
	}
	r.previousRetryKey = r.currentRetryKey
	r.currentRetryKey = next
	return nil
}

func keyedHash16(key []byte, parts ...[]byte) [16]byte {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	sum := mac.Sum(nil)
	var out [16]byte
	copy(out[:], sum[:16])
	return out
}

func addrBytes(addr net.IP) []byte {
	if v4 := addr.To4(); v4 != nil {
		return v4
	}
	return addr.To16()
}

// RetryToken computes the expected 16-byte retry token for peer, using
// the current secret (§4.4: "keyed hash of the peer IP bytes").
func (r *Responder) RetryToken(peer net.IP) [16]byte {
	return keyedHash16(r.currentRetryKey, addrBytes(peer))
}

// ValidateRetryToken reports whether token matches peer under the
// current or previous secret, and rejects tokens already redeemed once
// the replay cache has seen them.
func (r *Responder) ValidateRetryToken(token []byte, peer net.IP) bool {
	if len(token) != 16 {
		return false
	}
	if _, seen := r.seenTokens.Get(string(token)); seen {
		return false
	}
	want := r.RetryToken(peer)
	if subtle.ConstantTimeCompare(token, want[:]) == 1 {
		r.seenTokens.Add(string(token), struct{}{})
		return true
	}
	if r.previousRetryKey != nil {
		prev := keyedHash16(r.previousRetryKey, addrBytes(peer))
		if subtle.ConstantTimeCompare(token, prev[:]) == 1 {
			r.seenTokens.Add(string(token), struct{}{})
			return true
		}
	}
	return false
}

// ResetToken derives the 16-byte stateless reset token for destCID
// deterministically, so the same CID always produces the same token
// without any stored per-connection state.
func (r *Responder) ResetToken(destCID protocol.ConnectionID) [16]byte {
	return keyedHash16(r.resetKey, destCID)
}

// BuildVersionNegotiation builds a VN packet per §4.5: random byte0 with
// the high bit forced on, zero version, CIDs swapped relative to hdr,
// payload is the concatenation of the supported version numbers.
func BuildVersionNegotiation(hdr *wire.PacketHeader, supported []protocol.VersionNumber) ([]byte, error) {
	var byte0 [1]byte
	if _, err := rand.Read(byte0[:]); err != nil {
		return nil, err
	}
	byte0[0] |= 0x80

	buf := make([]byte, 0, 7+len(hdr.SrceCID)+len(hdr.DestCID)+4*len(supported))
	buf = append(buf, byte0[0])
	buf = append(buf, 0, 0, 0, 0) // version = 0
	buf = append(buf, byte(len(hdr.SrceCID)))
	buf = append(buf, hdr.SrceCID...)
	buf = append(buf, byte(len(hdr.DestCID)))
	buf = append(buf, hdr.DestCID...)
	for _, v := range supported {
		buf = wire.AppendUint32(buf, uint32(v))
	}
	return buf, nil
}

// minStatelessResetRandom bounds the uniform random padding preceding
// the reset token (§4.5: "≥20 random bytes (uniform random between 20
// and length-17)").
const minStatelessResetRandom = 20

// uniformRandom draws a uniform value in [0, n) using crypto/rand,
// mirroring picoquic_public_uniform_random's role in sizing the reset
// packet's random padding. n must be positive.
func uniformRandom(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// BuildStatelessReset builds a stateless reset packet targeting the
// connection identified by destCID. totalLength is the size of the
// datagram that triggered the reset; the random padding is drawn
// uniformly between 20 bytes and totalLength-17 (the type byte and the
// 16-byte token are not part of the random span), matching
// picoquic_process_unexpected_cnxid. When totalLength leaves no room for
// the ≥20-byte floor, the padding is fixed at 20 and the reset packet
// ends up longer than totalLength rather than short of the floor.
func (r *Responder) BuildStatelessReset(destCID protocol.ConnectionID, totalLength int, shortHeaderPhase1 bool) ([]byte, error) {
	length := totalLength
	if length < protocol.ResetPacketMinSize {
		length = protocol.ResetPacketMinSize
	}

	padLen := length - 17
	if padLen > minStatelessResetRandom {
		span, err := uniformRandom(padLen - minStatelessResetRandom + 1)
		if err != nil {
			return nil, err
		}
		padLen = span + minStatelessResetRandom
	} else {
		padLen = minStatelessResetRandom
	}

	buf := make([]byte, 1+padLen+16)
	if _, err := rand.Read(buf[1 : 1+padLen]); err != nil {
		return nil, err
	}
	if shortHeaderPhase1 {
		buf[0] = 0x70
	} else {
		buf[0] = 0x30
	}
	token := r.ResetToken(destCID)
	copy(buf[1+padLen:], token[:])
	return buf, nil
}

// BuildRetry builds a Retry packet per §4.5 and §4.4: destCID = incoming
// srceCID, a fresh rotated srceCID, one byte packing odcil (the length
// of the *original* destCID, i.e. the incoming packet's destCID) in the
// low nibble with a random high nibble, the original destCID bytes,
// then the token.
func BuildRetry(version protocol.VersionNumber, incoming *wire.PacketHeader, newSrceCID protocol.ConnectionID, token []byte) ([]byte, error) {
	var nibble [1]byte
	if _, err := rand.Read(nibble[:]); err != nil {
		return nil, err
	}
	nibble[0] = (nibble[0] & 0xf0) | byte(len(incoming.DestCID)&0x0f)

	// byte0: fixed bit + long-header bit + the 2-bit Retry type
	// discriminator (0x3) in bits 4-5, per parseLongHeader's decoding.
	buf := make([]byte, 0, 32+len(token))
	buf = append(buf, 0xc0|(0x3<<4))
	buf = wire.AppendUint32(buf, uint32(version))
	buf = append(buf, byte(len(incoming.SrceCID)))
	buf = append(buf, incoming.SrceCID...)
	buf = append(buf, byte(len(newSrceCID)))
	buf = append(buf, newSrceCID...)
	buf = append(buf, nibble[0])
	buf = append(buf, incoming.DestCID...)
	buf = append(buf, token...)
	return buf, nil
}
