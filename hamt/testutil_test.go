package hamt

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	cbor "github.com/fxamacker/cbor/v2"
	cid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// stringHasher places string keys using SHA-256, matching the "hash of
// arbitrary bytes" contract the rest of the module fulfils with SHA3.
type stringHasher struct{}

func (stringHasher) Hash(key string) HashOutput {
	return sha256.Sum256([]byte(key))
}

// intValue wraps an int so it satisfies ValueEqual for the diff tests.
type intValue int

func (v intValue) Equal(other intValue) bool { return v == other }

// memStore is a minimal in-memory Store used only by this package's own
// tests; the module's real, externally-visible block store lives in
// package store.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) PutDagCBOR(_ context.Context, v any) (cid.Cid, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return cid.Undef, err
	}
	sum, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	c := cid.NewCidV1(cid.DagCBOR, sum)
	m.mu.Lock()
	m.data[c.KeyString()] = data
	m.mu.Unlock()
	return c, nil
}

func (m *memStore) GetDagCBOR(_ context.Context, c cid.Cid, v any) error {
	m.mu.Lock()
	data, ok := m.data[c.KeyString()]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("not found: %s", c)
	}
	return cbor.Unmarshal(data, v)
}
