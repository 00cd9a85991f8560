package hamt

import (
	"context"

	cid "github.com/ipfs/go-cid"
)

// Flush persists every unflushed child link reachable from n (bottom-up)
// and then n itself, returning n's CID. Already-flushed subtrees (a Link
// that already carries a CID) are left untouched and not re-written,
// which is what gives two forest roots with a shared unchanged subtree
// equal CIDs for that subtree (spec §3's Merkle-equivalence invariant).
func Flush[K comparable, V any](ctx context.Context, n *Node[K, V], store Store) (cid.Cid, error) {
	for i, ptr := range n.Pointers {
		if !ptr.isLink() {
			continue
		}
		if _, ok := ptr.Link.CID(); ok {
			continue // already persisted; nothing to do
		}
		child, err := ptr.Link.resolve(ctx, store)
		if err != nil {
			return cid.Undef, err
		}
		childCID, err := Flush(ctx, child, store)
		if err != nil {
			return cid.Undef, err
		}
		n.Pointers[i] = linkPointer(&Link[K, V]{cid: &childCID, node: child})
	}
	return store.PutDagCBOR(ctx, n)
}

// FlushChildren persists every unflushed descendant of n, same as
// Flush, but leaves n itself unstored: used by a caller that wants to
// embed n's own CBOR inline in a larger structure (spec §6's forest
// root envelope) rather than address it by CID.
func FlushChildren[K comparable, V any](ctx context.Context, n *Node[K, V], store Store) error {
	for i, ptr := range n.Pointers {
		if !ptr.isLink() {
			continue
		}
		if _, ok := ptr.Link.CID(); ok {
			continue
		}
		child, err := ptr.Link.resolve(ctx, store)
		if err != nil {
			return err
		}
		childCID, err := Flush(ctx, child, store)
		if err != nil {
			return err
		}
		n.Pointers[i] = linkPointer(&Link[K, V]{cid: &childCID, node: child})
	}
	return nil
}
