package private

import (
	"context"
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
	cid "github.com/ipfs/go-cid"
	golog "github.com/ipfs/go-log/v2"

	wnfscrypto "github.com/fission-suite/rs-wnfs/crypto"
	"github.com/fission-suite/rs-wnfs/hamt"
	"github.com/fission-suite/rs-wnfs/store"
)

var log = golog.Logger("private")

// revisionHasher places forest keys directly: revision-name-hashes are
// already 32-byte digests (spec §4.6 get_revision_name_hash), so no
// further hashing happens before descending the trie.
type revisionHasher struct{}

func (revisionHasher) Hash(key wnfscrypto.HashOutput) hamt.HashOutput {
	return hamt.HashOutput(key)
}

// CIDSet is the forest's value type: every CID published under one
// revision-name-hash. Named (rather than a bare []cid.Cid) so it can
// satisfy hamt.ValueEqual for diffing and equality checks.
type CIDSet []cid.Cid

// Equal reports whether two sets contain the same CIDs, order
// irrelevant.
func (s CIDSet) Equal(other CIDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for _, c := range s {
		found := false
		for _, oc := range other {
			if c.Equals(oc) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Forest indexes revision-name-hash -> the set of CIDs published under
// that label (spec §4.6). A label can carry more than one CID because
// independent writers sharing write access may publish concurrently;
// Forest keeps every one; Put and Merge only add CIDs, never drop them.
type Forest struct {
	root  *hamt.Node[wnfscrypto.HashOutput, CIDSet]
	Store store.BlockStore
}

// NewForest returns an empty forest backed by bs.
func NewForest(bs store.BlockStore) *Forest {
	return &Forest{root: hamt.NewNode[wnfscrypto.HashOutput, CIDSet](), Store: bs}
}

func (f *Forest) hamtStore() hamt.Store { return newHamtStore(f.Store) }

// Put adds c to the CID set stored under nameHash, without discarding
// any CID already there (spec §4.6 put).
func (f *Forest) Put(ctx context.Context, nameHash wnfscrypto.HashOutput, c cid.Cid) error {
	existing, _, err := hamt.Get(ctx, f.root, nameHash, revisionHasher{}, f.hamtStore())
	if err != nil {
		return fmt.Errorf("private: forest get: %w", err)
	}
	for _, have := range existing {
		if have.Equals(c) {
			return nil
		}
	}
	next := append(append(CIDSet{}, existing...), c)
	root, err := hamt.Set(ctx, f.root, nameHash, next, revisionHasher{}, f.hamtStore())
	if err != nil {
		return fmt.Errorf("private: forest put: %w", err)
	}
	f.root = root
	log.Debugw("forest put", "nameHash", nameHash, "cid", c, "concurrentWriters", len(next))
	return nil
}

// Get returns the first CID stored under nameHash, for callers that
// have already resolved any concurrent-write conflict (spec §4.6 get).
func (f *Forest) Get(ctx context.Context, nameHash wnfscrypto.HashOutput) (cid.Cid, bool, error) {
	all, ok, err := f.GetMultivalue(ctx, nameHash)
	if err != nil || !ok || len(all) == 0 {
		return cid.Undef, false, err
	}
	return all[0], true, nil
}

// GetMultivalue returns every CID stored under nameHash (spec §4.6
// get_multivalue), surfacing concurrent-write conflicts instead of
// silently picking a winner.
func (f *Forest) GetMultivalue(ctx context.Context, nameHash wnfscrypto.HashOutput) (CIDSet, bool, error) {
	cids, ok, err := hamt.Get(ctx, f.root, nameHash, revisionHasher{}, f.hamtStore())
	if err != nil {
		return nil, false, fmt.Errorf("private: forest get_multivalue: %w", err)
	}
	return cids, ok, nil
}

// Has reports whether any CID is recorded under nameHash.
func (f *Forest) Has(ctx context.Context, nameHash wnfscrypto.HashOutput) (bool, error) {
	_, ok, err := f.GetMultivalue(ctx, nameHash)
	return ok, err
}

// Merge unions every CID set from other into f, used when two forests
// derived from a shared history need reconciling.
func (f *Forest) Merge(ctx context.Context, other *Forest) error {
	changes, err := hamt.Diff(ctx, f.root, other.root, revisionHasher{}, f.hamtStore(), hamt.MaxCursorDepth)
	if err != nil {
		return fmt.Errorf("private: forest merge diff: %w", err)
	}
	log.Debugw("forest merge", "changedLabels", len(changes))
	for _, ch := range changes {
		cids, ok, err := hamt.Get(ctx, other.root, ch.Key, revisionHasher{}, f.hamtStore())
		if err != nil {
			return fmt.Errorf("private: forest merge get: %w", err)
		}
		if !ok {
			continue
		}
		for _, c := range cids {
			if err := f.Put(ctx, ch.Key, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// forestRootEnvelope is the spec §6-normative "Forest root CBOR": a map
// naming the structure and wire version, wrapping the root HAMT node's
// own tuple-shaped CBOR inline rather than addressing it by CID.
type forestRootEnvelope struct {
	Structure string          `cbor:"structure"`
	Version   string          `cbor:"version"`
	Root      cbor.RawMessage `cbor:"root"`
}

// Flush persists every unflushed HAMT node reachable from the forest's
// root, then wraps the root itself in a forestRootEnvelope and stores
// that, returning the envelope's CID: the durable handle callers pass
// across process restarts (spec §6 "Forest root CBOR").
func (f *Forest) Flush(ctx context.Context) (cid.Cid, error) {
	if err := hamt.FlushChildren(ctx, f.root, f.hamtStore()); err != nil {
		return cid.Undef, fmt.Errorf("private: forest flush: %w", err)
	}
	rootCBOR, err := f.root.MarshalCBOR()
	if err != nil {
		return cid.Undef, fmt.Errorf("private: marshaling forest root: %w", err)
	}
	c, err := store.PutSerializable(ctx, f.Store, forestRootEnvelope{
		Structure: "hamt",
		Version:   hamt.Version,
		Root:      rootCBOR,
	})
	if err != nil {
		return cid.Undef, fmt.Errorf("private: storing forest root envelope: %w", err)
	}
	return c, nil
}

// LoadRoot replaces the forest's in-memory HAMT with the one addressed
// by rootCID, a CID previously returned by Flush. It validates the
// envelope's structure/version tag before trusting its embedded root
// node, rejecting a block that isn't the forest-root shape this forest
// understands.
func (f *Forest) LoadRoot(ctx context.Context, rootCID cid.Cid) error {
	var env forestRootEnvelope
	if err := store.GetDeserializable(ctx, f.Store, rootCID, &env); err != nil {
		return fmt.Errorf("private: loading forest root: %w", err)
	}
	if env.Structure != "hamt" {
		return fmt.Errorf("private: forest root %s has unknown structure %q", rootCID, env.Structure)
	}
	if env.Version != hamt.Version {
		return fmt.Errorf("private: forest root %s has unsupported version %q", rootCID, env.Version)
	}
	root := hamt.NewNode[wnfscrypto.HashOutput, CIDSet]()
	if err := root.UnmarshalCBOR(env.Root); err != nil {
		return fmt.Errorf("private: decoding forest root node: %w", err)
	}
	f.root = root
	return nil
}
