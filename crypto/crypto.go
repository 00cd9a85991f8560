// Package crypto implements the symmetric crypto layer (spec §4.4):
// AES-256-GCM content encryption, AES-KWP header wrapping, and SHA3-256
// hashing, plus the TemporalKey/SnapshotKey derivation used throughout
// the private node codec.
//
// AES-GCM and AES-KWP are built directly on crypto/aes + crypto/cipher
// from the standard library: no package in the retrieved example pack
// provides an AEAD or an SP 800-38F key-wrap-with-padding
// implementation (the pack's crypto is hash/ratchet-shaped —
// ericlagergren-dr, the *BMT/stacktrie hashers in other_examples/ —
// none of it AEAD or key-wrap shaped), and Go's own cipher.NewGCM is
// itself the construction third-party AEAD wrappers in the wider
// ecosystem build on, so this is the "no suitable library" exception
// recorded in DESIGN.md.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	golog "github.com/ipfs/go-log/v2"
	"golang.org/x/crypto/sha3"
)

var log = golog.Logger("crypto")

// HashOutput is the fixed-width digest used as block/revision-name
// addresses throughout the module (spec §3).
type HashOutput [32]byte

// Hash computes SHA3-256 over arbitrary bytes (spec §4.4).
func Hash(data []byte) HashOutput {
	return HashOutput(sha3.Sum256(data))
}

var (
	// ErrDecrypt is returned on any AEAD tag mismatch or malformed
	// ciphertext (spec §7 "Cryptographic" errors).
	ErrDecrypt = errors.New("crypto: decryption failed")
	// ErrEncrypt wraps unexpected failures from the underlying cipher.
	ErrEncrypt = errors.New("crypto: encryption failed")
)

const nonceSize = 12

// EncryptContent seals plaintext under key using AES-256-GCM with a
// fresh random 12-byte nonce prepended to the ciphertext (spec §6 wire
// format: "nonce (12 bytes) || ciphertext || 16-byte tag").
func EncryptContent(key [32]byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: generating nonce: %v", ErrEncrypt, err)
	}
	out := gcm.Seal(nonce, nonce, plaintext, nil)
	return out, nil
}

// DecryptContent opens a block produced by EncryptContent. A tag
// mismatch or truncated input returns ErrDecrypt; this must never panic
// and never partially populate a result, since a failed decrypt on one
// sibling of a multi-valued revision must not abort others (spec §7).
func DecryptContent(key [32]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", ErrDecrypt)
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

// kwpICV is the default initial value used by RFC 5649 AES key-wrap-with-
// padding (SP 800-38F), distinguishing it from plain AES-KW's ICV.
var kwpICV = [4]byte{0xA6, 0x59, 0x59, 0xA6}

// WrapKey implements AES-KWP (SP 800-38F key wrap with padding):
// deterministic and authenticated, producing output 8 bytes longer than
// the next multiple of 8 of len(plaintext) (spec §4.4/§6). An empty
// plaintext is padded to one zero semiblock, so it wraps to 16 bytes.
func WrapKey(key [32]byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncrypt, err)
	}

	mli := len(plaintext)
	padded := make([]byte, 8+max(roundUp8(mli), 8))
	copy(padded[8:], plaintext)

	copy(padded[0:4], kwpICV[:])
	binary.BigEndian.PutUint32(padded[4:8], uint32(mli))

	if len(padded) == 16 {
		// Single 64-bit block: encrypt directly, no wrap rounds (RFC
		// 5649 §4.1 special case).
		out := make([]byte, 16)
		block.Encrypt(out, padded)
		return out, nil
	}
	return wrap(block, padded), nil
}

// UnwrapKey is the inverse of WrapKey, failing with ErrDecrypt if the
// integrity check value or recovered length is inconsistent with the
// unwrapped data.
func UnwrapKey(key [32]byte, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 16 || len(wrapped)%8 != 0 {
		return nil, fmt.Errorf("%w: invalid wrapped length", ErrDecrypt)
	}
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	var padded []byte
	if len(wrapped) == 16 {
		padded = make([]byte, 16)
		block.Decrypt(padded, wrapped)
	} else {
		padded = unwrap(block, wrapped)
	}

	var icv [4]byte
	copy(icv[:], padded[0:4])
	if icv != kwpICV {
		return nil, fmt.Errorf("%w: bad key-wrap ICV", ErrDecrypt)
	}
	mli := int(binary.BigEndian.Uint32(padded[4:8]))
	rest := padded[8:]
	if mli < 0 || mli > len(rest) || max(roundUp8(mli), 8) != len(rest) {
		return nil, fmt.Errorf("%w: bad key-wrap length", ErrDecrypt)
	}
	for _, b := range rest[mli:] {
		if b != 0 {
			return nil, fmt.Errorf("%w: non-zero key-wrap padding", ErrDecrypt)
		}
	}
	return rest[:mli], nil
}

func roundUp8(n int) int {
	if n%8 == 0 {
		return n
	}
	return n + (8 - n%8)
}

// wrap implements the RFC 3394 wrapping transform used by AES-KWP once
// the padded input is more than one 64-bit block, operating over the
// 8-byte semiblocks of padded.
func wrap(block cipher.Block, padded []byte) []byte {
	n := len(padded)/8 - 1
	a := append([]byte{}, padded[0:8]...)
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = append([]byte{}, padded[8*(i+1):8*(i+2)]...)
	}

	buf := make([]byte, 16)
	for j := 0; j <= 5; j++ {
		for i := 0; i < n; i++ {
			copy(buf[0:8], a)
			copy(buf[8:16], r[i])
			block.Encrypt(buf, buf)
			t := uint64(n*j + i + 1)
			var tBytes [8]byte
			binary.BigEndian.PutUint64(tBytes[:], t)
			a = xor8(buf[0:8], tBytes[:])
			r[i] = append([]byte{}, buf[8:16]...)
		}
	}

	out := make([]byte, 0, len(padded))
	out = append(out, a...)
	for i := 0; i < n; i++ {
		out = append(out, r[i]...)
	}
	return out
}

func unwrap(block cipher.Block, wrapped []byte) []byte {
	n := len(wrapped)/8 - 1
	a := append([]byte{}, wrapped[0:8]...)
	r := make([][]byte, n)
	for i := 0; i < n; i++ {
		r[i] = append([]byte{}, wrapped[8*(i+1):8*(i+2)]...)
	}

	buf := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n - 1; i >= 0; i-- {
			t := uint64(n*j + i + 1)
			var tBytes [8]byte
			binary.BigEndian.PutUint64(tBytes[:], t)
			xored := xor8(a, tBytes[:])
			copy(buf[0:8], xored)
			copy(buf[8:16], r[i])
			block.Decrypt(buf, buf)
			a = append([]byte{}, buf[0:8]...)
			r[i] = append([]byte{}, buf[8:16]...)
		}
	}

	out := make([]byte, 0, len(wrapped))
	out = append(out, a...)
	for i := 0; i < n; i++ {
		out = append(out, r[i]...)
	}
	return out
}

func xor8(a, b []byte) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// TemporalKey grants read access to this revision and every later one
// derivable from the same ratchet (spec §4.4).
type TemporalKey [32]byte

// SnapshotKey grants read access to exactly this revision.
type SnapshotKey [32]byte

// DeriveTemporalKey turns a ratchet-derived digest into a TemporalKey:
// TemporalKey = Hash(ratchet.derive_key()).
func DeriveTemporalKey(ratchetDerivedKey [32]byte) TemporalKey {
	return TemporalKey(Hash(ratchetDerivedKey[:]))
}

// DeriveSnapshotKey computes SnapshotKey = Hash(TemporalKey).
func (tk TemporalKey) DeriveSnapshotKey() SnapshotKey {
	return SnapshotKey(Hash(tk[:]))
}

// WrapHeader wraps CBOR-encoded header bytes under this temporal key.
func (tk TemporalKey) WrapHeader(headerCBOR []byte) ([]byte, error) {
	return WrapKey([32]byte(tk), headerCBOR)
}

// UnwrapHeader reverses WrapHeader.
func (tk TemporalKey) UnwrapHeader(wrapped []byte) ([]byte, error) {
	return UnwrapKey([32]byte(tk), wrapped)
}

// Encrypt seals content under this snapshot key (spec §4.8 content
// block: AES-256-GCM keyed with SnapshotKey).
func (sk SnapshotKey) Encrypt(plaintext []byte) ([]byte, error) {
	return EncryptContent([32]byte(sk), plaintext)
}

// Decrypt opens content sealed with Encrypt.
func (sk SnapshotKey) Decrypt(ciphertext []byte) ([]byte, error) {
	return DecryptContent([32]byte(sk), ciphertext)
}
