package private

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	cbor "github.com/fxamacker/cbor/v2"
	cid "github.com/ipfs/go-cid"

	wnfscrypto "github.com/fission-suite/rs-wnfs/crypto"
	"github.com/fission-suite/rs-wnfs/nameaccumulator"
	"github.com/fission-suite/rs-wnfs/ratchet"
	"github.com/fission-suite/rs-wnfs/store"
)

// revisionSegmentDomain domain-separates the ratchet-derived key used
// to produce a node's per-revision name segment (spec §4.7).
const revisionSegmentDomain = "WNFS revision segment"

// PrivateNodeHeader is the (inumber, ratchet, name) triple identifying
// one node across its whole revision history (spec §3/§4.7). It is
// unique and immutable except for Ratchet (advanced every mutation) and
// Name (rewritten on move).
type PrivateNodeHeader struct {
	INumber nameaccumulator.NameSegment
	Ratchet *ratchet.Ratchet
	Name    nameaccumulator.Name
}

// NewHeader creates a fresh header as a child of parentName: a random
// inumber, a random ratchet seed, and name = parentName + inumber
// (spec §4.7 new()).
func NewHeader(parentName nameaccumulator.Name, rng io.Reader) (*PrivateNodeHeader, error) {
	if rng == nil {
		rng = rand.Reader
	}
	inumber, err := nameaccumulator.NewNameSegment(rng)
	if err != nil {
		return nil, fmt.Errorf("private: generating inumber: %w", err)
	}
	var seed [32]byte
	if _, err := io.ReadFull(rng, seed[:]); err != nil {
		return nil, fmt.Errorf("private: generating ratchet seed: %w", err)
	}
	return WithSeed(parentName, seed, inumber), nil
}

// WithSeed deterministically constructs a header from a given seed and
// inumber, used by tests that need replayable headers (spec §4.7
// with_seed).
func WithSeed(parentName nameaccumulator.Name, seed [32]byte, inumber nameaccumulator.NameSegment) *PrivateNodeHeader {
	return &PrivateNodeHeader{
		INumber: inumber,
		Ratchet: ratchet.NewFromSeed(seed),
		Name:    parentName.WithSegmentsAdded(inumber),
	}
}

// AdvanceRatchet advances this header's ratchet by exactly one step,
// marking the start of a new revision.
func (h *PrivateNodeHeader) AdvanceRatchet() {
	h.Ratchet.Inc()
}

// UpdateName rebuilds this header's name as a child of parentName,
// used when a node is moved to a new location in the tree (spec §4.9
// update_ancestry).
func (h *PrivateNodeHeader) UpdateName(parentName nameaccumulator.Name) {
	h.Name = parentName.WithSegmentsAdded(h.INumber)
}

// DeriveTemporalKey derives this revision's TemporalKey from the
// ratchet state.
func (h *PrivateNodeHeader) DeriveTemporalKey() wnfscrypto.TemporalKey {
	return wnfscrypto.DeriveTemporalKey(h.Ratchet.DeriveKey("content"))
}

// DeriveSnapshotKey derives this revision's SnapshotKey.
func (h *PrivateNodeHeader) DeriveSnapshotKey() wnfscrypto.SnapshotKey {
	return h.DeriveTemporalKey().DeriveSnapshotKey()
}

// DeriveRevisionSegment computes the unique, deterministic segment
// appended to this node's name to form its revision-name (spec §4.7).
func (h *PrivateNodeHeader) DeriveRevisionSegment() nameaccumulator.NameSegment {
	digest := h.Ratchet.DeriveKey(revisionSegmentDomain)
	return nameaccumulator.FromDigest(digest)
}

// GetRevisionName returns this node's name with the current revision
// segment appended.
func (h *PrivateNodeHeader) GetRevisionName() nameaccumulator.Name {
	return h.Name.WithSegmentsAdded(h.DeriveRevisionSegment())
}

// GetRevisionNameHash computes SHA3-256 over the revision name's
// accumulator, the key under which this revision is indexed in the
// forest (spec §4.7 get_revision_name_hash).
func (h *PrivateNodeHeader) GetRevisionNameHash() wnfscrypto.HashOutput {
	acc := h.GetRevisionName().AsAccumulator()
	return wnfscrypto.Hash(acc[:])
}

// DeriveRevisionRef bundles this header's forest label with the key
// needed to decrypt whatever is stored there (spec §4.7
// derive_revision_ref).
func (h *PrivateNodeHeader) DeriveRevisionRef() RevisionRef {
	return RevisionRef{RevisionNameHash: h.GetRevisionNameHash(), TemporalKey: h.DeriveTemporalKey()}
}

// wireHeader is the CBOR-serializable projection stored inside the
// encrypted header block (spec §6 PrivateNodeHeaderSerializable).
type wireHeader struct {
	INumber [32]byte        `cbor:"inumber"`
	Ratchet *ratchet.Ratchet `cbor:"ratchet"`
	Name    [32]byte        `cbor:"name"`
}

// Store encrypts this header (CBOR, then AES-KWP-wrapped under its own
// TemporalKey) and persists it as a Raw block, returning its CID (spec
// §4.7 store()).
func (h *PrivateNodeHeader) Store(ctx context.Context, bs store.BlockStore) (cid.Cid, error) {
	acc := h.Name.AsAccumulator()

	w := wireHeader{INumber: h.INumber, Ratchet: h.Ratchet, Name: acc}
	cborBytes, err := cbor.Marshal(w)
	if err != nil {
		return cid.Undef, fmt.Errorf("private: marshaling header: %w", err)
	}

	tk := h.DeriveTemporalKey()
	wrapped, err := tk.WrapHeader(cborBytes)
	if err != nil {
		return cid.Undef, fmt.Errorf("private: wrapping header: %w", err)
	}
	return bs.PutBlock(ctx, wrapped, store.CodecRaw)
}

// LoadHeader decrypts and decodes a header block at cid using
// temporalKey. If parentName is non-nil, the recomputed accumulator
// for parentName+inumber must match the block's stored name, or
// ErrMountPointMismatch is returned — this is what stops a compromised
// forest entry from rebinding a node under a different path (spec
// §4.7 load()).
func LoadHeader(ctx context.Context, c cid.Cid, temporalKey wnfscrypto.TemporalKey, bs store.BlockStore, parentName *nameaccumulator.Name) (*PrivateNodeHeader, error) {
	ciphertext, err := bs.GetBlock(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("private: loading header block: %w", err)
	}
	cborBytes, err := temporalKey.UnwrapHeader(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("private: %w", err)
	}
	var w wireHeader
	if err := cbor.Unmarshal(cborBytes, &w); err != nil {
		return nil, fmt.Errorf("private: decoding header: %w", err)
	}

	header := &PrivateNodeHeader{INumber: w.INumber, Ratchet: w.Ratchet}
	if parentName != nil {
		name := parentName.WithSegmentsAdded(w.INumber)
		mounted := name.AsAccumulator()
		if mounted != w.Name {
			return nil, fmt.Errorf("private: %w", ErrMountPointMismatch)
		}
		header.Name = name
	} else {
		header.Name = nameaccumulator.Name{} // accumulator-only; unusable for further WithSegmentsAdded without a parent
	}
	return header, nil
}
