package private

import (
	"context"
	"testing"

	"github.com/fission-suite/rs-wnfs/store"
)

func TestStoreLoadNodeDirectoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	forest := NewForest(store.NewMemStore())
	parent := testRootName()

	d, err := NewDirectory(parent, testNow(), testRNG())
	if err != nil {
		t.Fatal(err)
	}
	ref, err := forest.StoreNode(ctx, FromDir(d))
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := forest.LoadNode(ctx, ref, parent)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.IsDir() {
		t.Fatalf("expected loaded node to be a directory")
	}
	if loaded.Dir.Header.INumber != d.Header.INumber {
		t.Fatalf("inumber mismatch after round trip")
	}
}

func TestStoreLoadNodeFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	forest := NewForest(store.NewMemStore())
	parent := testRootName()

	f, err := NewFile(parent, testNow(), testRNG())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetContent(ctx, []byte("payload"), testNow(), forest.Store, testRNG()); err != nil {
		t.Fatal(err)
	}
	ref, err := forest.StoreNode(ctx, FromFile(f))
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := forest.LoadNode(ctx, ref, parent)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.IsFile() {
		t.Fatalf("expected loaded node to be a file")
	}
	content, err := loaded.File.ReadContent(ctx, forest.Store)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "payload" {
		t.Fatalf("got %q, want %q", content, "payload")
	}
}

func TestStoreNodeIndexesRevisionInForest(t *testing.T) {
	ctx := context.Background()
	forest := NewForest(store.NewMemStore())
	d, err := NewDirectory(testRootName(), testNow(), testRNG())
	if err != nil {
		t.Fatal(err)
	}
	ref, err := forest.StoreNode(ctx, FromDir(d))
	if err != nil {
		t.Fatal(err)
	}

	has, err := forest.Has(ctx, d.Header.GetRevisionNameHash())
	if err != nil {
		t.Fatal(err)
	}
	if !has {
		t.Fatalf("expected forest to index the stored revision")
	}
	got, ok, err := forest.Get(ctx, d.Header.GetRevisionNameHash())
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !got.Equals(ref.ContentCID) {
		t.Fatalf("forest entry does not point at the stored content CID")
	}
}
