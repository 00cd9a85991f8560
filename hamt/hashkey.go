// Package hamt implements a persistent, content-addressed Hash Array
// Mapped Trie: the index structure backing the private forest.
package hamt

import (
	"fmt"

	golog "github.com/ipfs/go-log/v2"
)

var log = golog.Logger("hamt")

// HashOutput is the fixed-width digest used to address HAMT branches and
// to name blocks throughout the module.
type HashOutput [32]byte

// MaxCursorDepth bounds how many nibbles of a HashOutput can be consumed
// before two distinct keys are considered a fatal collision.
const MaxCursorDepth = 64

// Hasher produces the HashOutput used to place a key within the trie.
// Implementations must be deterministic: the same key always hashes to
// the same output.
type Hasher[K any] interface {
	Hash(key K) HashOutput
}

// HashKey carries a HashOutput alongside a nibble cursor, so that a
// partial prefix (as produced mid-diff) can be represented without
// re-slicing the underlying digest.
type HashKey struct {
	digest HashOutput
	length uint8 // number of valid nibbles, 0..64
}

// NewHashKey wraps a full 32-byte digest as a 64-nibble HashKey.
func NewHashKey(digest HashOutput) HashKey {
	return HashKey{digest: digest, length: MaxCursorDepth}
}

// Digest returns the underlying 32-byte buffer. Only the first Len()
// nibbles are meaningful.
func (k HashKey) Digest() HashOutput { return k.digest }

// Len reports how many nibbles of the digest are valid.
func (k HashKey) Len() uint8 { return k.length }

// Nibble returns the 4-bit value at nibble index i (0 = most significant
// nibble of byte 0). Panics if i is out of bounds for the digest size;
// callers are expected to bound i by MaxCursorDepth themselves.
func (k HashKey) Nibble(i uint8) uint8 {
	b := k.digest[i/2]
	if i%2 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

// Equal compares only the first k.length nibbles of each key.
func (k HashKey) Equal(other HashKey) bool {
	if k.length != other.length {
		return false
	}
	for i := uint8(0); i < k.length; i++ {
		if k.Nibble(i) != other.Nibble(i) {
			return false
		}
	}
	return true
}

// cursor walks the nibbles of a HashOutput from a starting depth,
// grounded on the teacher's ordered-prefix bolt.Cursor walk in
// fs.go:walkdir, generalized from byte path segments to 4-bit nibbles.
type cursor struct {
	digest *HashOutput
	pos    uint8
}

func newCursor(digest *HashOutput) *cursor {
	return &cursor{digest: digest, pos: 0}
}

func withCursor(digest *HashOutput, pos uint8) *cursor {
	return &cursor{digest: digest, pos: pos}
}

// next returns the next nibble and advances the cursor, or an error once
// MaxCursorDepth nibbles have been consumed.
func (c *cursor) next() (uint8, error) {
	if c.pos >= MaxCursorDepth {
		return 0, fmt.Errorf("%w: exhausted %d nibbles", ErrCursorOutOfBounds, MaxCursorDepth)
	}
	b := c.digest[c.pos/2]
	var n uint8
	if c.pos%2 == 0 {
		n = b >> 4
	} else {
		n = b & 0x0F
	}
	c.pos++
	return n, nil
}

func (c *cursor) pushed() uint8 { return c.pos }
