package hamt

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	cid "github.com/ipfs/go-cid"
)

// MaxBucket is the largest number of entries a single bucket may hold
// before it is split into a child node, pinned per spec §9 ("not
// expressed as a single constant in all source copies; pinned here").
const MaxBucket = 3

// Store is the minimal persistence capability the HAMT needs to resolve
// a Link pointer that has been flushed to a CID and to flush new nodes.
// It is intentionally narrower than the full external BlockStore (spec
// §6) so this package has no dependency on the forest or codec layers.
type Store interface {
	PutDagCBOR(ctx context.Context, v any) (cid.Cid, error)
	GetDagCBOR(ctx context.Context, c cid.Cid, v any) error
}

// Pair is one key/value entry inside a bucket.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// Link is a pointer to a child Node, either already resident in memory
// or addressed by CID and lazily resolved through a Store. Per spec
// §3's Merkle-equivalence invariant, two Links with equal CIDs are
// treated as pointing to structurally equal subtrees.
type Link[K comparable, V any] struct {
	cid  *cid.Cid
	node *Node[K, V]
}

// LinkToNode wraps an in-memory node that has not (yet) been persisted.
func LinkToNode[K comparable, V any](n *Node[K, V]) *Link[K, V] {
	return &Link[K, V]{node: n}
}

// LinkToCID wraps a CID reference whose node has not been loaded yet.
func LinkToCID[K comparable, V any](c cid.Cid) *Link[K, V] {
	return &Link[K, V]{cid: &c}
}

func (l *Link[K, V]) resolve(ctx context.Context, store Store) (*Node[K, V], error) {
	if l.node != nil {
		return l.node, nil
	}
	if l.cid == nil {
		return nil, fmt.Errorf("hamt: empty link: %w", ErrUnexpectedNodeType)
	}
	n := &Node[K, V]{}
	if err := store.GetDagCBOR(ctx, *l.cid, n); err != nil {
		return nil, fmt.Errorf("hamt: loading linked node %s: %w: %w", *l.cid, ErrNotFound, err)
	}
	l.node = n
	return n, nil
}

// CID reports the persisted address of this link, if it has been
// flushed. Two links with equal, non-nil CIDs are Merkle-equivalent.
func (l *Link[K, V]) CID() (cid.Cid, bool) {
	if l.cid == nil {
		return cid.Undef, false
	}
	return *l.cid, true
}

// Pointer is one slot of a Node: either a small ordered Values bucket or
// a Link to a child Node, never both (spec §3).
type Pointer[K comparable, V any] struct {
	Values []Pair[K, V]
	Link   *Link[K, V]
}

func bucketPointer[K comparable, V any](pairs ...Pair[K, V]) Pointer[K, V] {
	return Pointer[K, V]{Values: pairs}
}

func linkPointer[K comparable, V any](l *Link[K, V]) Pointer[K, V] {
	return Pointer[K, V]{Link: l}
}

func (p Pointer[K, V]) isLink() bool { return p.Link != nil }

// Node is one trie level of the persistent HAMT. Mutation never modifies
// a Node in place; every operation that changes content returns a new
// Node, sharing unchanged Pointers with the original (copy-on-write),
// grounded on the teacher's layerfs.cow rebuild-without-mutating-the-old
// pattern generalized from a single bolt bucket to an in-memory trie.
type Node[K comparable, V any] struct {
	Bitmask  uint16
	Pointers []Pointer[K, V]
}

// NewNode returns an empty trie node.
func NewNode[K comparable, V any]() *Node[K, V] {
	return &Node[K, V]{}
}

func rank(bitmask uint16, position uint8) int {
	return bits.OnesCount16(bitmask & ((1 << position) - 1))
}

func bitSet(bitmask uint16, position uint8) bool {
	return bitmask&(1<<position) != 0
}

// clone returns a shallow copy of n suitable as the basis for a
// copy-on-write mutation: the Pointers slice is fresh, but individual
// Pointer values (and hence unrelated buckets/links) are shared until
// the caller overwrites the one slot it is changing.
func (n *Node[K, V]) clone() *Node[K, V] {
	cp := &Node[K, V]{Bitmask: n.Bitmask, Pointers: make([]Pointer[K, V], len(n.Pointers))}
	copy(cp.Pointers, n.Pointers)
	return cp
}

func insertPointer[K comparable, V any](pointers []Pointer[K, V], idx int, p Pointer[K, V]) []Pointer[K, V] {
	out := make([]Pointer[K, V], 0, len(pointers)+1)
	out = append(out, pointers[:idx]...)
	out = append(out, p)
	out = append(out, pointers[idx:]...)
	return out
}

func removePointer[K comparable, V any](pointers []Pointer[K, V], idx int) []Pointer[K, V] {
	out := make([]Pointer[K, V], 0, len(pointers)-1)
	out = append(out, pointers[:idx]...)
	out = append(out, pointers[idx+1:]...)
	return out
}

// Get looks up key in the trie rooted at n using hasher to place it,
// descending level by level while the corresponding branch bit is set.
func Get[K comparable, V any](ctx context.Context, n *Node[K, V], key K, hasher Hasher[K], store Store) (V, bool, error) {
	var zero V
	digest := hasher.Hash(key)
	c := newCursor(&digest)
	cur := n
	for {
		nib, err := c.next()
		if err != nil {
			return zero, false, err
		}
		if !bitSet(cur.Bitmask, nib) {
			return zero, false, nil
		}
		ptr := cur.Pointers[rank(cur.Bitmask, nib)]
		if ptr.isLink() {
			child, err := ptr.Link.resolve(ctx, store)
			if err != nil {
				return zero, false, err
			}
			cur = child
			continue
		}
		for _, pair := range ptr.Values {
			if pair.Key == key {
				return pair.Value, true, nil
			}
		}
		return zero, false, nil
	}
}

// Set inserts or replaces key -> value, returning a new root that
// shares unchanged branches with n. See spec §4.5: if the branch is
// empty a 1-entry bucket is installed; if occupied the bucket is
// replaced/appended in place, or split into a child node once it would
// exceed MaxBucket.
func Set[K comparable, V any](ctx context.Context, n *Node[K, V], key K, value V, hasher Hasher[K], store Store) (*Node[K, V], error) {
	digest := hasher.Hash(key)
	return setAt(ctx, n, newCursor(&digest), key, value, hasher, store)
}

func setAt[K comparable, V any](ctx context.Context, n *Node[K, V], c *cursor, key K, value V, hasher Hasher[K], store Store) (*Node[K, V], error) {
	nib, err := c.next()
	if err != nil {
		return nil, err
	}
	out := n.clone()
	idx := rank(out.Bitmask, nib)

	if !bitSet(out.Bitmask, nib) {
		out.Bitmask |= 1 << nib
		out.Pointers = insertPointer(out.Pointers, idx, bucketPointer(Pair[K, V]{Key: key, Value: value}))
		return out, nil
	}

	ptr := out.Pointers[idx]
	if ptr.isLink() {
		child, err := ptr.Link.resolve(ctx, store)
		if err != nil {
			return nil, err
		}
		newChild, err := setAt(ctx, child, c, key, value, hasher, store)
		if err != nil {
			return nil, err
		}
		out.Pointers[idx] = linkPointer(LinkToNode[K, V](newChild))
		return out, nil
	}

	// Bucket: replace in place, append, or split.
	bucket := ptr.Values
	for i, pair := range bucket {
		if pair.Key == key {
			newBucket := append([]Pair[K, V]{}, bucket...)
			newBucket[i] = Pair[K, V]{Key: key, Value: value}
			out.Pointers[idx] = bucketPointer(newBucket...)
			return out, nil
		}
	}

	if len(bucket)+1 <= MaxBucket {
		newBucket := append(append([]Pair[K, V]{}, bucket...), Pair[K, V]{Key: key, Value: value})
		out.Pointers[idx] = bucketPointer(newBucket...)
		return out, nil
	}

	// Split: allocate a child node at depth+1 and redistribute every
	// entry (including the new one) by its next nibble.
	child := NewNode[K, V]()
	all := append(append([]Pair[K, V]{}, bucket...), Pair[K, V]{Key: key, Value: value})
	depth := c.pushed()
	for _, pair := range all {
		digest := hasher.Hash(pair.Key)
		childCursor := withCursor(&digest, depth)
		var splitErr error
		child, splitErr = setAt(ctx, child, childCursor, pair.Key, pair.Value, hasher, store)
		if splitErr != nil {
			if errors.Is(splitErr, ErrCursorOutOfBounds) {
				return nil, fmt.Errorf("hamt: %w", ErrHashCollision)
			}
			return nil, splitErr
		}
	}
	out.Pointers[idx] = linkPointer(LinkToNode[K, V](child))
	return out, nil
}

// Remove deletes key from the trie, returning the new root and the
// removed value (if any). Deleting the last entry of a bucket clears
// the branch bit; when that leaves a child node with no Link children
// and at most MaxBucket entries in total, the child collapses into its
// parent's bucket so a set-then-remove round trip is structurally
// identical to never having set the key (spec §4.5).
func Remove[K comparable, V any](ctx context.Context, n *Node[K, V], key K, hasher Hasher[K], store Store) (*Node[K, V], V, bool, error) {
	digest := hasher.Hash(key)
	return removeAt(ctx, n, newCursor(&digest), key, store)
}

func removeAt[K comparable, V any](ctx context.Context, n *Node[K, V], c *cursor, key K, store Store) (*Node[K, V], V, bool, error) {
	var zero V
	nib, err := c.next()
	if err != nil {
		return nil, zero, false, err
	}
	if !bitSet(n.Bitmask, nib) {
		return n, zero, false, nil
	}
	idx := rank(n.Bitmask, nib)
	ptr := n.Pointers[idx]

	if ptr.isLink() {
		child, err := ptr.Link.resolve(ctx, store)
		if err != nil {
			return nil, zero, false, err
		}
		newChild, removed, ok, err := removeAt(ctx, child, c, key, store)
		if err != nil {
			return nil, zero, false, err
		}
		if !ok {
			return n, zero, false, nil
		}
		out := n.clone()
		if collapsed, fits := collapsible(newChild); fits {
			out.Pointers[idx] = bucketPointer(collapsed...)
		} else {
			out.Pointers[idx] = linkPointer(LinkToNode[K, V](newChild))
		}
		return out, removed, true, nil
	}

	for i, pair := range ptr.Values {
		if pair.Key != key {
			continue
		}
		out := n.clone()
		remaining := make([]Pair[K, V], 0, len(ptr.Values)-1)
		remaining = append(remaining, ptr.Values[:i]...)
		remaining = append(remaining, ptr.Values[i+1:]...)
		if len(remaining) == 0 {
			out.Bitmask &^= 1 << nib
			out.Pointers = removePointer(out.Pointers, idx)
		} else {
			out.Pointers[idx] = bucketPointer(remaining...)
		}
		return out, pair.Value, true, nil
	}

	return n, zero, false, nil
}

// collapsible reports whether a child node can be flattened back into a
// single bucket of its parent: it must itself have no further Link
// children and its total entry count must fit within MaxBucket.
func collapsible[K comparable, V any](n *Node[K, V]) ([]Pair[K, V], bool) {
	var all []Pair[K, V]
	for _, ptr := range n.Pointers {
		if ptr.isLink() {
			return nil, false
		}
		all = append(all, ptr.Values...)
	}
	if len(all) == 0 || len(all) > MaxBucket {
		return nil, false
	}
	return all, true
}
