package cryptoctx

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/quicfec/qfec/internal/protocol"
)

// DeriveEpochSecret runs HKDF-Expand-Label-style derivation (simplified:
// HKDF-SHA256 with an epoch-scoped info string) over a connection secret,
// standing in for the TLS key schedule this core treats as an external
// collaborator (§1). It is only used to seed the concrete AESGCMContext
// used by tests, never by the receive path itself.
func DeriveEpochSecret(connSecret []byte, epoch protocol.Epoch, label string) []byte {
	info := append([]byte(label), byte(epoch))
	r := hkdf.New(sha256.New, connSecret, nil, info)
	out := make([]byte, 32)
	if _, err := r.Read(out); err != nil {
		panic(err) // hkdf.Read only fails if the output length exceeds the RFC5869 limit
	}
	return out
}

// chachaAEAD implements AEAD with ChaCha20-Poly1305, keyed by a per-epoch
// secret, nonce built from a fixed IV XORed with the packet number as
// draft-29 §5.3 specifies.
type chachaAEAD struct {
	aead cipher.AEAD
	iv   [12]byte
}

func newChachaAEAD(key, iv []byte) (*chachaAEAD, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	c := &chachaAEAD{aead: aead}
	copy(c.iv[:], iv)
	return c, nil
}

func (c *chachaAEAD) nonce(pn protocol.PacketNumber) []byte {
	var n [12]byte
	copy(n[:], c.iv[:])
	var pnBytes [8]byte
	binary.BigEndian.PutUint64(pnBytes[:], uint64(pn))
	for i := 0; i < 8; i++ {
		n[4+i] ^= pnBytes[i]
	}
	return n[:]
}

func (c *chachaAEAD) Open(dst, ciphertext []byte, pn protocol.PacketNumber, aad []byte) ([]byte, error) {
	return c.aead.Open(dst, c.nonce(pn), ciphertext, aad)
}

func (c *chachaAEAD) Seal(dst, plaintext []byte, pn protocol.PacketNumber, aad []byte) []byte {
	return c.aead.Seal(dst, c.nonce(pn), plaintext, aad)
}

// aesHeaderProtector implements HeaderProtector with AES single-block
// encryption of the ciphertext sample, the standard QUIC HP construction
// for AES-keyed connections. There is no ecosystem library wrapping this
// (it is a single cipher.Block.Encrypt call), so it uses crypto/aes
// directly rather than reaching for a third-party package (see DESIGN.md).
type aesHeaderProtector struct {
	block cipher.Block
}

func newAESHeaderProtector(key []byte) (*aesHeaderProtector, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &aesHeaderProtector{block: block}, nil
}

func (p *aesHeaderProtector) SampleSize() int { return 16 }

func (p *aesHeaderProtector) Mask(sample []byte) ([5]byte, error) {
	var out [5]byte
	if len(sample) != 16 {
		return out, errors.New("cryptoctx: header protection sample must be 16 bytes")
	}
	var block [16]byte
	p.block.Encrypt(block[:], sample)
	copy(out[:], block[:5])
	return out, nil
}

// AESGCMContext builds a full per-epoch Context (both directions) from a
// single connection secret, using ChaCha20-Poly1305 for the AEAD and
// AES for header protection — a concrete stand-in for what a real TLS
// key schedule would install per epoch.
func AESGCMContext(connSecret []byte, epoch protocol.Epoch) (*Context, error) {
	openSecret := DeriveEpochSecret(connSecret, epoch, "qfec open")
	sealSecret := DeriveEpochSecret(connSecret, epoch, "qfec seal")

	openAEAD, err := newChachaAEAD(openSecret[:32], openSecret[:12])
	if err != nil {
		return nil, err
	}
	sealAEAD, err := newChachaAEAD(sealSecret[:32], sealSecret[:12])
	if err != nil {
		return nil, err
	}
	hpDec, err := newAESHeaderProtector(openSecret[:16])
	if err != nil {
		return nil, err
	}
	hpEnc, err := newAESHeaderProtector(sealSecret[:16])
	if err != nil {
		return nil, err
	}
	return &Context{
		AEADDecrypt: openAEAD,
		AEADEncrypt: sealAEAD,
		HPDecrypt:   hpDec,
		HPEncrypt:   hpEnc,
	}, nil
}
