package hamt

import (
	"encoding/binary"
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
	cid "github.com/ipfs/go-cid"
)

// cidLinkTag is the CBOR tag DAG-CBOR uses to mark a CID: the tag
// content is a byte string holding the CID's binary form prefixed by a
// single 0x00 (identity multibase) byte, per spec §6 "link = CBOR-
// tagged CID" and the encoding qri-io/wnfs-go's cidFromCBORTag reads
// back (other_examples/.../private.go).
const cidLinkTag = 42

// Version is the semver stamped into a forest-root envelope's
// "version" field (spec §6 "Forest root CBOR ... HAMT_VERSION =
// \"0.1.0\"").
const Version = "0.1.0"

// wireNode is the spec §6-normative on-wire shape: the 2-tuple
// [bitmask, pointers], not a keyed map. The `toarray` marker field
// tells fxamacker/cbor to encode/decode this struct positionally.
// Bitmask is a big-endian 2-byte string ("u16-as-bytes"), not a native
// CBOR integer. Each pointer is itself either a bucket (plain array of
// [key,value] pairs) or a link (a CBOR-tagged CID); since Go's cbor
// library has no "one of two shapes" field type, pointers are kept as
// raw CBOR and the two shapes are told apart at decode time by
// attempting the tag first.
type wireNode struct {
	_        struct{} `cbor:",toarray"`
	Bitmask  [2]byte
	Pointers []cbor.RawMessage
}

// MarshalCBOR implements cbor.Marshaler so a *Node can be stored
// directly as a DagCbor block by a Store/BlockStore.
func (n *Node[K, V]) MarshalCBOR() ([]byte, error) {
	w := wireNode{Pointers: make([]cbor.RawMessage, len(n.Pointers))}
	binary.BigEndian.PutUint16(w.Bitmask[:], n.Bitmask)

	for i, ptr := range n.Pointers {
		raw, err := marshalPointer(ptr)
		if err != nil {
			return nil, err
		}
		w.Pointers[i] = raw
	}
	return cbor.Marshal(w)
}

func marshalPointer[K comparable, V any](ptr Pointer[K, V]) (cbor.RawMessage, error) {
	if ptr.isLink() {
		c, ok := ptr.Link.CID()
		if !ok {
			// An unflushed in-memory link cannot be serialized;
			// callers must flush children before the parent.
			return nil, errUnflushedLink
		}
		return cbor.Marshal(cbor.Tag{Number: cidLinkTag, Content: append([]byte{0x00}, c.Bytes()...)})
	}

	pairs := make([][2]cbor.RawMessage, len(ptr.Values))
	for i, pair := range ptr.Values {
		key, err := cbor.Marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		value, err := cbor.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		pairs[i] = [2]cbor.RawMessage{key, value}
	}
	return cbor.Marshal(pairs)
}

// UnmarshalCBOR implements cbor.Unmarshaler, rebuilding a Node with all
// child links left as lazy CID references (resolved on demand via
// Store.GetDagCBOR).
func (n *Node[K, V]) UnmarshalCBOR(data []byte) error {
	var w wireNode
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	n.Bitmask = binary.BigEndian.Uint16(w.Bitmask[:])
	n.Pointers = make([]Pointer[K, V], len(w.Pointers))
	for i, raw := range w.Pointers {
		ptr, err := unmarshalPointer[K, V](raw)
		if err != nil {
			return err
		}
		n.Pointers[i] = ptr
	}
	return nil
}

func unmarshalPointer[K comparable, V any](raw cbor.RawMessage) (Pointer[K, V], error) {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(raw, &tag); err == nil {
		if tag.Number != cidLinkTag {
			return Pointer[K, V]{}, fmt.Errorf("hamt: unexpected CBOR tag %d for pointer", tag.Number)
		}
		var content []byte
		if err := cbor.Unmarshal(tag.Content, &content); err != nil {
			return Pointer[K, V]{}, fmt.Errorf("hamt: decoding link tag content: %w", err)
		}
		if len(content) == 0 || content[0] != 0x00 {
			return Pointer[K, V]{}, fmt.Errorf("hamt: malformed CID link content")
		}
		c, err := cid.Cast(content[1:])
		if err != nil {
			return Pointer[K, V]{}, fmt.Errorf("hamt: casting link CID: %w", err)
		}
		return linkPointer(LinkToCID[K, V](c)), nil
	}

	var pairs [][2]cbor.RawMessage
	if err := cbor.Unmarshal(raw, &pairs); err != nil {
		return Pointer[K, V]{}, fmt.Errorf("hamt: decoding bucket pointer: %w", err)
	}
	values := make([]Pair[K, V], len(pairs))
	for i, pair := range pairs {
		var key K
		if err := cbor.Unmarshal(pair[0], &key); err != nil {
			return Pointer[K, V]{}, fmt.Errorf("hamt: decoding bucket key: %w", err)
		}
		var value V
		if err := cbor.Unmarshal(pair[1], &value); err != nil {
			return Pointer[K, V]{}, fmt.Errorf("hamt: decoding bucket value: %w", err)
		}
		values[i] = Pair[K, V]{Key: key, Value: value}
	}
	return bucketPointer(values...), nil
}

var errUnflushedLink = unflushedLinkError{}

type unflushedLinkError struct{}

func (unflushedLinkError) Error() string {
	return "hamt: cannot serialize a node with an unflushed in-memory child link"
}
