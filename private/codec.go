package private

import (
	"context"
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
	cid "github.com/ipfs/go-cid"

	wnfscrypto "github.com/fission-suite/rs-wnfs/crypto"
	"github.com/fission-suite/rs-wnfs/nameaccumulator"
	"github.com/fission-suite/rs-wnfs/store"
)

// wireNode is the encrypted node codec's CBOR projection (spec §6
// PrivateNodeSerializable): one shape covers both directories and
// files, discriminated by IsFile. The header (including this
// revision's ratchet state) is stored as its own block (header.go);
// wireNode only points at it.
type wireNode struct {
	HeaderCID cid.Cid  `cbor:"header"`
	IsFile    bool     `cbor:"is_file"`
	Mode      uint32   `cbor:"mode"`
	Created   int64    `cbor:"created"`
	Modified  int64    `cbor:"modified"`

	// Directory entries, and the previous-revision pointers of either
	// node kind.
	Entries  map[string]wirePrivateRef `cbor:"entries,omitempty"`
	Previous []wirePreviousPointer     `cbor:"previous,omitempty"`

	// File fields.
	Content []byte    `cbor:"content,omitempty"`
	Chunks  []cid.Cid `cbor:"chunks,omitempty"`
}

type wirePrivateRef struct {
	ContentCID  cid.Cid `cbor:"content_cid"`
	TemporalKey [32]byte `cbor:"temporal_key"`
}

type wirePreviousPointer struct {
	Generation uint64  `cbor:"generation"`
	ContentCID cid.Cid `cbor:"content_cid"`
}

func toWireRef(r PrivateRef) wirePrivateRef {
	return wirePrivateRef{ContentCID: r.ContentCID, TemporalKey: [32]byte(r.TemporalKey)}
}

func fromWireRef(w wirePrivateRef) PrivateRef {
	return PrivateRef{ContentCID: w.ContentCID, TemporalKey: wnfscrypto.TemporalKey(w.TemporalKey)}
}

func toWirePrevious(previous []PreviousPointer) []wirePreviousPointer {
	w := make([]wirePreviousPointer, len(previous))
	for i, p := range previous {
		w[i] = wirePreviousPointer{Generation: p.Generation, ContentCID: p.ContentCID}
	}
	return w
}

func fromWirePrevious(w []wirePreviousPointer) []PreviousPointer {
	previous := make([]PreviousPointer, len(w))
	for i, wp := range w {
		previous[i] = PreviousPointer{Generation: wp.Generation, ContentCID: wp.ContentCID}
	}
	return previous
}

// recordPrevious looks up whatever content header's current (pre-
// mutation) revision was last stored under, and if found, appends it as
// a PreviousPointer (spec §4.8: "one for the prior revision, the
// standard case"). Must be called before any mutation of header
// (ratchet advance or name update), since both change the
// revision-name-hash this lookup depends on. If the current revision
// was never persisted (e.g. a node created and mutated before its
// first StoreNode), there is nothing to point back to and previous is
// returned unchanged.
func (f *Forest) recordPrevious(ctx context.Context, header *PrivateNodeHeader, previous []PreviousPointer) ([]PreviousPointer, error) {
	c, ok, err := f.Get(ctx, header.GetRevisionNameHash())
	if err != nil {
		return nil, fmt.Errorf("private: recording previous revision: %w", err)
	}
	if !ok {
		return previous, nil
	}
	return append(append([]PreviousPointer{}, previous...), PreviousPointer{
		Generation: uint64(len(previous)),
		ContentCID: c,
	}), nil
}

// StoreNode encrypts and persists n: its header as its own block (spec
// §4.7 store), its content (entries, or inline/chunked file bytes) as a
// SnapshotKey-sealed Raw block, and an index entry in the forest's
// HAMT keyed by the node's current revision-name-hash (spec §4.6/§4.8
// PrivateForest::put). Returns the PrivateRef capability for this
// exact revision.
func (f *Forest) StoreNode(ctx context.Context, n Node) (PrivateRef, error) {
	header := n.Header()
	headerCID, err := header.Store(ctx, f.Store)
	if err != nil {
		return PrivateRef{}, fmt.Errorf("private: storing header: %w", err)
	}

	w := wireNode{HeaderCID: headerCID}
	meta := n.Metadata()
	w.Mode, w.Created, w.Modified = meta.Mode, meta.Created, meta.Modified

	if n.IsFile() {
		w.IsFile = true
		w.Content = n.File.Content
		w.Chunks = n.File.Chunks
		w.Previous = toWirePrevious(n.File.Previous)
	} else {
		w.Entries = make(map[string]wirePrivateRef, len(n.Dir.Entries))
		for name, ref := range n.Dir.Entries {
			w.Entries[name] = toWireRef(ref)
		}
		w.Previous = toWirePrevious(n.Dir.Previous)
	}

	plaintext, err := cbor.Marshal(w)
	if err != nil {
		return PrivateRef{}, fmt.Errorf("private: marshaling node: %w", err)
	}

	sk := header.DeriveSnapshotKey()
	ciphertext, err := sk.Encrypt(plaintext)
	if err != nil {
		return PrivateRef{}, fmt.Errorf("private: encrypting node: %w", err)
	}

	contentCID, err := f.Store.PutBlock(ctx, ciphertext, store.CodecRaw)
	if err != nil {
		return PrivateRef{}, fmt.Errorf("private: storing node block: %w", err)
	}

	if err := f.Put(ctx, header.GetRevisionNameHash(), contentCID); err != nil {
		return PrivateRef{}, fmt.Errorf("private: indexing revision: %w", err)
	}

	return PrivateRef{ContentCID: contentCID, TemporalKey: header.DeriveTemporalKey()}, nil
}

// LoadNode decrypts and decodes the node addressed by ref. parentName
// is always passed through to the header load, so a rebinding of this node under a different path is caught as
// ErrMountPointMismatch rather than silently trusted (spec §4.7 load).
func (f *Forest) LoadNode(ctx context.Context, ref PrivateRef, parentName nameaccumulator.Name) (Node, error) {
	ciphertext, err := f.Store.GetBlock(ctx, ref.ContentCID)
	if err != nil {
		return Node{}, fmt.Errorf("private: loading node block: %w", err)
	}

	sk := ref.TemporalKey.DeriveSnapshotKey()
	plaintext, err := sk.Decrypt(ciphertext)
	if err != nil {
		return Node{}, fmt.Errorf("private: decrypting node: %w", err)
	}

	var w wireNode
	if err := cbor.Unmarshal(plaintext, &w); err != nil {
		return Node{}, fmt.Errorf("private: decoding node: %w", err)
	}

	header, err := LoadHeader(ctx, w.HeaderCID, ref.TemporalKey, f.Store, &parentName)
	if err != nil {
		return Node{}, err
	}
	meta := Metadata{Mode: w.Mode, Created: w.Created, Modified: w.Modified}

	if w.IsFile {
		return FromFile(&File{
			Header:   header,
			Metadata: meta,
			Content:  w.Content,
			Chunks:   w.Chunks,
			Previous: fromWirePrevious(w.Previous),
		}), nil
	}

	entries := make(map[string]PrivateRef, len(w.Entries))
	for name, wr := range w.Entries {
		entries[name] = fromWireRef(wr)
	}
	return FromDir(&Directory{
		Header:   header,
		Metadata: meta,
		Entries:  entries,
		Previous: fromWirePrevious(w.Previous),
	}), nil
}
