// Package nameaccumulator implements the private-name scheme: a
// deterministic, unlinkable commitment to a node's path (spec §4.3).
// The spec treats the accumulator as an abstract commitment scheme and
// relies on exactly three properties (deterministic in the unordered
// segment set, binding, hiding); no group-arithmetic / RSA-accumulator
// library is present anywhere in the retrieved example pack, so this
// package builds the commitment from the SHA3-256 primitive the pack
// does carry (golang.org/x/crypto/sha3), rather than reaching for an
// out-of-pack cryptographic accumulator library — see DESIGN.md.
package nameaccumulator

import (
	"crypto/rand"
	"io"
	"sort"

	golog "github.com/ipfs/go-log/v2"
	"golang.org/x/crypto/sha3"
)

var log = golog.Logger("nameaccumulator")

// NameSegment is 32 bytes drawn uniformly (spec §4.3).
type NameSegment [32]byte

// NewNameSegment draws a fresh random segment from r (the module's
// random source, spec §6), used e.g. as a node's inumber.
func NewNameSegment(r io.Reader) (NameSegment, error) {
	var seg NameSegment
	if r == nil {
		r = rand.Reader
	}
	_, err := io.ReadFull(r, seg[:])
	return seg, err
}

// FromDigest derives a segment deterministically from a 32-byte digest,
// used to turn a ratchet-derived key into the revision segment appended
// to a node's name (spec §4.7 derive_revision_segment).
func FromDigest(digest [32]byte) NameSegment {
	return NameSegment(digest)
}

// Setup is the public parameter the accumulator commitment is keyed
// under — an abstraction of the name-accumulator cryptosystem's public
// setup (e.g. an RSA-2048 modulus in the original scheme), opaque here.
type Setup struct {
	key [32]byte
}

// NewSetup derives a fresh public setup from r. All nodes sharing a
// forest must share the same Setup for their accumulators to be
// comparable.
func NewSetup(r io.Reader) (Setup, error) {
	var s Setup
	if r == nil {
		r = rand.Reader
	}
	_, err := io.ReadFull(r, s.key[:])
	return s, err
}

// Accumulator is the commitment value produced by Name.AsAccumulator:
// deterministic in the unordered set of segments, binding, and hiding
// (spec §4.3). Two nodes at different paths must disagree here with
// overwhelming probability; the core treats this value as opaque.
type Accumulator [32]byte

// Equals reports whether two accumulators commit to the same segment
// set under the same setup.
func (a Accumulator) Equals(b Accumulator) bool { return a == b }

// Name is a base accumulator plus the segments appended since, mirroring
// spec §4.3's Name = (base, [segments]).
type Name struct {
	base     Accumulator
	setup    Setup
	segments []NameSegment
}

// Empty returns the root name for a forest under the given setup: no
// segments, base accumulator of the empty set.
func Empty(setup Setup) Name {
	return Name{base: commit(setup, nil), setup: setup}
}

// WithSegmentsAdded returns a new Name with the given segments appended
// to the unordered segment set; the receiver is left unchanged.
func (n Name) WithSegmentsAdded(segments ...NameSegment) Name {
	next := Name{
		base:     n.base,
		setup:    n.setup,
		segments: append(append([]NameSegment{}, n.segments...), segments...),
	}
	return next
}

// AsAccumulator computes the commitment for this name under its setup.
func (n Name) AsAccumulator() Accumulator {
	return commit(n.setup, n.allSegments())
}

func (n Name) allSegments() []NameSegment {
	return n.segments
}

// commit implements the abstract accumulator as a keyed, order-independent
// hash: segments are sorted so the result depends only on the set (not
// the sequence) they were added in, then folded through SHA3-256 keyed
// by Setup — deterministic, binding (SHA3 is collision resistant), and
// hiding (the digest reveals nothing about its preimage).
func commit(setup Setup, segments []NameSegment) Accumulator {
	sorted := append([]NameSegment{}, segments...)
	sort.Slice(sorted, func(i, j int) bool {
		return lessBytes(sorted[i][:], sorted[j][:])
	})

	h := sha3.New256()
	h.Write(setup.key[:])
	for _, seg := range sorted {
		h.Write(seg[:])
	}
	var out Accumulator
	copy(out[:], h.Sum(nil))
	return out
}

func lessBytes(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
