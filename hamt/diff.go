package hamt

import (
	"context"
)

// ChangeType classifies one entry of a HAMT diff.
type ChangeType int

const (
	// Add means the key exists only in the "main" side.
	Add ChangeType = iota
	// Remove means the key exists only in the "other" side.
	Remove
	// Modify means the key exists on both sides with different values.
	Modify
)

func (t ChangeType) String() string {
	switch t {
	case Add:
		return "Add"
	case Remove:
		return "Remove"
	case Modify:
		return "Modify"
	default:
		return "Unknown"
	}
}

// Change is one key-level difference between two HAMT roots.
type Change[K comparable] struct {
	Type ChangeType
	Key  K
}

// ValueEqual compares two values for the purposes of classifying a
// shared key as unchanged or Modify. Most callers' V is itself a CID or
// other comparable, content-addressed handle, so a plain Equal method
// keeps this generic over value types that aren't `comparable`.
type ValueEqual[V any] interface {
	Equal(other V) bool
}

// Diff walks two HAMT roots branch by branch and reports every Add,
// Remove, and Modify between them, short-circuiting whenever both
// sides' persisted CIDs agree (spec §4.5). depth bounds recursion; pass
// -1 for unbounded.
func Diff[K comparable, V ValueEqual[V]](ctx context.Context, main, other *Node[K, V], hasher Hasher[K], store Store, depth int) ([]Change[K], error) {
	return diffNodes(ctx, main, other, hasher, store, depth)
}

func diffNodes[K comparable, V ValueEqual[V]](ctx context.Context, main, other *Node[K, V], hasher Hasher[K], store Store, depth int) ([]Change[K], error) {
	if main == other {
		return nil, nil
	}
	if depth == 0 {
		return nil, nil
	}
	nextDepth := depth
	if depth > 0 {
		nextDepth = depth - 1
	}

	var changes []Change[K]
	for nib := uint8(0); nib < 16; nib++ {
		mainSet := bitSet(main.Bitmask, nib)
		otherSet := bitSet(other.Bitmask, nib)

		switch {
		case mainSet && !otherSet:
			leaves, err := collectLeaves(ctx, main.Pointers[rank(main.Bitmask, nib)], store)
			if err != nil {
				return nil, err
			}
			for _, k := range leaves {
				changes = append(changes, Change[K]{Type: Add, Key: k})
			}

		case !mainSet && otherSet:
			leaves, err := collectLeaves(ctx, other.Pointers[rank(other.Bitmask, nib)], store)
			if err != nil {
				return nil, err
			}
			for _, k := range leaves {
				changes = append(changes, Change[K]{Type: Remove, Key: k})
			}

		case mainSet && otherSet:
			mainPtr := main.Pointers[rank(main.Bitmask, nib)]
			otherPtr := other.Pointers[rank(other.Bitmask, nib)]
			sub, err := diffBranch(ctx, mainPtr, otherPtr, hasher, store, nextDepth)
			if err != nil {
				return nil, err
			}
			changes = append(changes, sub...)
		}
	}
	return changes, nil
}

func diffBranch[K comparable, V ValueEqual[V]](ctx context.Context, mainPtr, otherPtr Pointer[K, V], hasher Hasher[K], store Store, depth int) ([]Change[K], error) {
	switch {
	case !mainPtr.isLink() && !otherPtr.isLink():
		return diffBuckets(mainPtr.Values, otherPtr.Values), nil

	case mainPtr.isLink() && otherPtr.isLink():
		if mc, ok := mainPtr.Link.CID(); ok {
			if oc, ok2 := otherPtr.Link.CID(); ok2 && mc.Equals(oc) {
				return nil, nil // short-circuit: identical subtree
			}
		}
		mainChild, err := mainPtr.Link.resolve(ctx, store)
		if err != nil {
			return nil, err
		}
		otherChild, err := otherPtr.Link.resolve(ctx, store)
		if err != nil {
			return nil, err
		}
		return diffNodes(ctx, mainChild, otherChild, hasher, store, depth)

	case !mainPtr.isLink() && otherPtr.isLink():
		// A bucket can never hold more than MaxBucket entries while the
		// sibling side has split into a child node; rehydrate by
		// collecting every leaf pair under the link and diffing flatly.
		otherPairs, err := collectLeafPairs(ctx, otherPtr, store)
		if err != nil {
			return nil, err
		}
		return diffBuckets(mainPtr.Values, otherPairs), nil

	default: // mainPtr is link, otherPtr is bucket
		mainPairs, err := collectLeafPairs(ctx, mainPtr, store)
		if err != nil {
			return nil, err
		}
		return diffBuckets(mainPairs, otherPtr.Values), nil
	}
}

// collectLeafPairs walks a pointer (bucket or link subtree) fully and
// returns every (key, value) pair beneath it, used to rehydrate one
// side of a bucket-vs-link comparison in diffBranch.
func collectLeafPairs[K comparable, V ValueEqual[V]](ctx context.Context, ptr Pointer[K, V], store Store) ([]Pair[K, V], error) {
	if !ptr.isLink() {
		return ptr.Values, nil
	}
	child, err := ptr.Link.resolve(ctx, store)
	if err != nil {
		return nil, err
	}
	var all []Pair[K, V]
	for _, p := range child.Pointers {
		sub, err := collectLeafPairs[K, V](ctx, p, store)
		if err != nil {
			return nil, err
		}
		all = append(all, sub...)
	}
	return all, nil
}

func diffBuckets[K comparable, V ValueEqual[V]](main, other []Pair[K, V]) []Change[K] {
	var changes []Change[K]
	otherByKey := make(map[K]V, len(other))
	for _, p := range other {
		otherByKey[p.Key] = p.Value
	}
	seen := make(map[K]bool, len(main))
	for _, p := range main {
		seen[p.Key] = true
		ov, ok := otherByKey[p.Key]
		if !ok {
			changes = append(changes, Change[K]{Type: Add, Key: p.Key})
			continue
		}
		if !p.Value.Equal(ov) {
			changes = append(changes, Change[K]{Type: Modify, Key: p.Key})
		}
	}
	for _, p := range other {
		if !seen[p.Key] {
			changes = append(changes, Change[K]{Type: Remove, Key: p.Key})
		}
	}
	return changes
}

// collectLeaves walks a one-sided subtree (a branch present on only one
// side of the diff) and returns every key beneath it: the bucket's own
// keys, or, for a Link, every key of the whole subtree, resolved all the
// way down since V's content (the forest's CID sets) is cheap to read
// in full.
func collectLeaves[K comparable, V ValueEqual[V]](ctx context.Context, ptr Pointer[K, V], store Store) ([]K, error) {
	if !ptr.isLink() {
		keys := make([]K, len(ptr.Values))
		for i, p := range ptr.Values {
			keys[i] = p.Key
		}
		return keys, nil
	}
	child, err := ptr.Link.resolve(ctx, store)
	if err != nil {
		return nil, err
	}
	var keys []K
	for _, p := range child.Pointers {
		sub, err := collectLeaves[K, V](ctx, p, store)
		if err != nil {
			return nil, err
		}
		keys = append(keys, sub...)
	}
	return keys, nil
}
