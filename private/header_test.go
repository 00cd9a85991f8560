package private

import (
	"context"
	"testing"

	"github.com/fission-suite/rs-wnfs/store"
)

func TestHeaderStoreLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	bs := store.NewMemStore()
	parent := testRootName()

	h, err := NewHeader(parent, testRNG())
	if err != nil {
		t.Fatal(err)
	}

	c, err := h.Store(ctx, bs)
	if err != nil {
		t.Fatal(err)
	}

	tk := h.DeriveTemporalKey()
	loaded, err := LoadHeader(ctx, c, tk, bs, &parent)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.INumber != h.INumber {
		t.Fatalf("inumber mismatch after round trip")
	}
	if !loaded.Ratchet.Equal(h.Ratchet) {
		t.Fatalf("ratchet mismatch after round trip")
	}
	if loaded.Name.AsAccumulator() != h.Name.AsAccumulator() {
		t.Fatalf("name mismatch after round trip")
	}
}

func TestHeaderLoadDetectsMountPointMismatch(t *testing.T) {
	ctx := context.Background()
	bs := store.NewMemStore()
	parent := testRootName()

	h, err := NewHeader(parent, testRNG())
	if err != nil {
		t.Fatal(err)
	}
	c, err := h.Store(ctx, bs)
	if err != nil {
		t.Fatal(err)
	}

	wrongParent := testRootName() // independently derived, different setup
	tk := h.DeriveTemporalKey()
	if _, err := LoadHeader(ctx, c, tk, bs, &wrongParent); err == nil {
		t.Fatalf("expected ErrMountPointMismatch, got nil")
	}
}

func TestAdvanceRatchetChangesRevisionNameHash(t *testing.T) {
	h, err := NewHeader(testRootName(), testRNG())
	if err != nil {
		t.Fatal(err)
	}
	before := h.GetRevisionNameHash()
	h.AdvanceRatchet()
	after := h.GetRevisionNameHash()
	if before == after {
		t.Fatalf("expected revision-name-hash to change after AdvanceRatchet")
	}
}
