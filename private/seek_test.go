package private

import (
	"context"
	"testing"

	"github.com/fission-suite/rs-wnfs/store"
)

func TestSearchLatestReturnsSelfWhenNeverPublished(t *testing.T) {
	ctx := context.Background()
	forest := NewForest(store.NewMemStore())
	parent := testRootName()
	d, err := NewDirectory(parent, testNow(), testRNG())
	if err != nil {
		t.Fatal(err)
	}

	got, err := SearchLatest(ctx, FromDir(d), parent, forest)
	if err != nil {
		t.Fatal(err)
	}
	if got.Dir.Header.INumber != d.Header.INumber {
		t.Fatalf("expected to get back the same node when nothing was published")
	}
}

func TestSearchLatestFindsAdvancedRevision(t *testing.T) {
	ctx := context.Background()
	forest := NewForest(store.NewMemStore())
	parent := testRootName()
	d, err := NewDirectory(parent, testNow(), testRNG())
	if err != nil {
		t.Fatal(err)
	}

	// Publish the initial revision, then several more down the ratchet,
	// simulating a node that has been mutated many times since the
	// caller's stale reference.
	stale := d.clone()
	current := d
	for i := 0; i < 10; i++ {
		if _, err := forest.StoreNode(ctx, FromDir(current)); err != nil {
			t.Fatal(err)
		}
		current = current.clone()
		current.Header.AdvanceRatchet()
	}
	if _, err := forest.StoreNode(ctx, FromDir(current)); err != nil {
		t.Fatal(err)
	}

	latest, err := SearchLatest(ctx, FromDir(stale), parent, forest)
	if err != nil {
		t.Fatal(err)
	}
	if !latest.Dir.Header.Ratchet.Equal(current.Header.Ratchet) {
		t.Fatalf("expected search_latest to land on the most recently published revision")
	}
}
