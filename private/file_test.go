package private

import (
	"bytes"
	"context"
	"testing"

	"github.com/fission-suite/rs-wnfs/store"
)

func TestFileInlineContentRoundTrip(t *testing.T) {
	ctx := context.Background()
	bs := store.NewMemStore()
	f, err := NewFile(testRootName(), testNow(), testRNG())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetContent(ctx, []byte("Hello, World!"), testNow(), bs, testRNG()); err != nil {
		t.Fatal(err)
	}
	if f.Chunks != nil {
		t.Fatalf("expected small content to stay inline, got %d chunks", len(f.Chunks))
	}

	got, err := f.ReadContent(ctx, bs)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Hello, World!" {
		t.Fatalf("got %q, want %q", got, "Hello, World!")
	}
}

func TestFileLargeContentIsChunkedAndReassembles(t *testing.T) {
	ctx := context.Background()
	bs := store.NewMemStore()
	f, err := NewFile(testRootName(), testNow(), testRNG())
	if err != nil {
		t.Fatal(err)
	}

	content := bytes.Repeat([]byte("0123456789abcdef"), 200000) // > inlineLimit
	if err := f.SetContent(ctx, content, testNow(), bs, testRNG()); err != nil {
		t.Fatal(err)
	}
	if len(f.Chunks) == 0 {
		t.Fatalf("expected large content to be split into external chunks")
	}
	if f.Content != nil {
		t.Fatalf("expected inline content to be cleared once chunked")
	}

	got, err := f.ReadContent(ctx, bs)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("reassembled content does not match original (%d vs %d bytes)", len(got), len(content))
	}
}
