package private

import (
	"context"

	"github.com/fission-suite/rs-wnfs/nameaccumulator"
)

// SearchLatest seeks ahead along node's ratchet to the most recent
// revision recorded in forest, returning whichever concurrent write at
// that revision loads first (spec §4.7 search_latest). Ties among
// concurrent writers are broken arbitrarily; callers that need every
// concurrent version should call SearchLatestNodes directly.
func SearchLatest(ctx context.Context, node Node, parentName nameaccumulator.Name, forest *Forest) (Node, error) {
	nodes, err := SearchLatestNodes(ctx, node, parentName, forest)
	if err != nil {
		return Node{}, err
	}
	if len(nodes) == 0 {
		return Node{}, ErrNotFound
	}
	return nodes[0], nil
}

// SearchLatestNodes seeks ahead along node's ratchet, returning every
// node published concurrently at the latest revision the forest knows
// about (spec §4.7 search_latest_nodes). If the forest has never heard
// of even node's own current revision, node is returned unchanged.
//
// The ratchet only exposes Seek(n) from its own current position, so
// the search below explores candidate offsets from node's starting
// ratchet: first doubling outward until an absent revision is found
// (exponential search), then bisecting between the last-present and
// first-absent offsets, grounded on original_source's
// RatchetSeeker/JumpSize exponential-then-binary search over
// forest.has() checks.
func SearchLatestNodes(ctx context.Context, node Node, parentName nameaccumulator.Name, forest *Forest) ([]Node, error) {
	header := node.Header()

	present, err := forest.Has(ctx, header.GetRevisionNameHash())
	if err != nil {
		return nil, err
	}
	if !present {
		return []Node{node}, nil
	}

	headerAt := func(offset uint64) *PrivateNodeHeader {
		r := header.Ratchet.Clone()
		r.Seek(offset)
		return &PrivateNodeHeader{INumber: header.INumber, Ratchet: r, Name: header.Name}
	}
	hasOffset := func(offset uint64) (bool, error) {
		return forest.Has(ctx, headerAt(offset).GetRevisionNameHash())
	}

	var lastPresent uint64
	var firstAbsent uint64
	offset := uint64(1)
	for {
		ok, err := hasOffset(offset)
		if err != nil {
			return nil, err
		}
		if !ok {
			firstAbsent = offset
			break
		}
		lastPresent = offset
		if offset > (1<<63)/2 {
			// Exhausted any realistic ratchet distance; treat this
			// offset as the latest known revision.
			firstAbsent = offset + 1
			break
		}
		offset *= 2
	}

	lo, hi := lastPresent, firstAbsent
	for lo+1 < hi {
		mid := lo + (hi-lo)/2
		ok, err := hasOffset(mid)
		if err != nil {
			return nil, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}

	ref := headerAt(lo).DeriveRevisionRef()
	cids, ok, err := forest.GetMultivalue(ctx, ref.RevisionNameHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	nodes := make([]Node, 0, len(cids))
	for _, c := range cids {
		n, err := forest.LoadNode(ctx, PrivateRef{ContentCID: c, TemporalKey: ref.TemporalKey}, parentName)
		if err != nil {
			// A revision that fails to decode (e.g. a stale
			// concurrent write under a rotated key) is skipped
			// rather than failing the whole search.
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
