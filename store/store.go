// Package store implements the BlockStore external interface (spec §6):
// an opaque, content-addressed byte store the core depends on but does
// not own. Two implementations ship: an in-memory MemStore for tests
// and embedding, and a BoltStore that repurposes the teacher's own
// boltdb-backed persistence layer from path-keyed file records to
// CID-keyed opaque blocks.
package store

import (
	"context"
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	golog "github.com/ipfs/go-log/v2"
	mh "github.com/multiformats/go-multihash"
)

var log = golog.Logger("store")

// Block codecs used on the wire (spec §6).
const (
	CodecRaw     = 0x55 // encrypted blobs
	CodecDagCBOR = 0x71 // forest HAMT nodes
)

// ErrNotFound is returned by GetBlock when the CID is absent.
var ErrNotFound = fmt.Errorf("store: block not found")

// BlockStore is the capability the core requires from its environment:
// content-addressed, deterministic put, fallible get. Implementations
// must be safe for concurrent use by multiple independent filesystem
// handles (spec §5).
type BlockStore interface {
	// PutBlock stores opaque bytes and returns their address. Must be
	// deterministic on (data, codec): the same input always yields the
	// same CID.
	PutBlock(ctx context.Context, data []byte, codec uint64) (cid.Cid, error)
	// GetBlock fetches previously stored bytes, or ErrNotFound.
	GetBlock(ctx context.Context, c cid.Cid) ([]byte, error)
}

// PutSerializable CBOR-encodes v as a DagCbor block and stores it.
func PutSerializable(ctx context.Context, bs BlockStore, v any) (cid.Cid, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return cid.Undef, fmt.Errorf("store: marshaling: %w", err)
	}
	return bs.PutBlock(ctx, data, CodecDagCBOR)
}

// GetDeserializable fetches a block and CBOR-decodes it into v.
func GetDeserializable(ctx context.Context, bs BlockStore, c cid.Cid, v any) error {
	data, err := bs.GetBlock(ctx, c)
	if err != nil {
		return err
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: unmarshaling %s: %w", c, err)
	}
	return nil
}

// sum mints a CID for data under the given IPLD codec, using SHA3-256
// (spec §6 "Hash function: SHA3-256 for all content-hashing") wrapped
// as a multihash so the result is a standards-shaped CIDv1.
func sum(data []byte, codec uint64) (cid.Cid, error) {
	digest, err := mh.Sum(data, mh.SHA3_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("store: hashing: %w", err)
	}
	return cid.NewCidV1(codec, digest), nil
}

// toBlock wraps data as a go-block-format Block, validating its CID.
func toBlock(data []byte, codec uint64) (blocks.Block, error) {
	c, err := sum(data, codec)
	if err != nil {
		return nil, err
	}
	return blocks.NewBlockWithCid(data, c)
}
