package private

import (
	"context"

	cid "github.com/ipfs/go-cid"

	"github.com/fission-suite/rs-wnfs/store"
)

// hamtStoreAdapter narrows the module's external BlockStore (spec §6)
// down to the small Store interface the generic hamt package needs,
// routing through the CBOR convenience helpers in package store.
type hamtStoreAdapter struct {
	bs store.BlockStore
}

func newHamtStore(bs store.BlockStore) hamtStoreAdapter {
	return hamtStoreAdapter{bs: bs}
}

func (s hamtStoreAdapter) PutDagCBOR(ctx context.Context, v any) (cid.Cid, error) {
	return store.PutSerializable(ctx, s.bs, v)
}

func (s hamtStoreAdapter) GetDagCBOR(ctx context.Context, c cid.Cid, v any) error {
	return store.GetDeserializable(ctx, s.bs, c, v)
}
