package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/boltdb/bolt"
)

func TestMemStorePutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	c, err := s.PutBlock(ctx, []byte("hello"), CodecRaw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetBlock(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestMemStorePutIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	a, err := s.PutBlock(ctx, []byte("same bytes"), CodecRaw)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.PutBlock(ctx, []byte("same bytes"), CodecRaw)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equals(b) {
		t.Fatalf("PutBlock(data) produced different CIDs for identical input: %s != %s", a, b)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 distinct block, got %d", s.Len())
	}
}

func TestMemStoreMissingBlock(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	c, err := s.PutBlock(ctx, []byte("x"), CodecRaw)
	if err != nil {
		t.Fatal(err)
	}
	// Remove by constructing a fresh store and asking for an address
	// that was never written there.
	other := NewMemStore()
	if _, err := other.GetBlock(ctx, c); err == nil {
		t.Fatalf("expected ErrNotFound")
	}
}

func TestBoltStorePutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := bolt.Open(filepath.Join(dir, "blocks.db"), 0o600, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s, err := NewBoltStore(db)
	if err != nil {
		t.Fatal(err)
	}

	c, err := s.PutBlock(ctx, []byte("persisted"), CodecRaw)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetBlock(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "persisted" {
		t.Fatalf("got %q, want %q", got, "persisted")
	}
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "blocks.db")

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewBoltStore(db)
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.PutBlock(ctx, []byte("durable"), CodecRaw)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db2, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()
	s2, err := NewBoltStore(db2)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s2.GetBlock(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "durable" {
		t.Fatalf("got %q, want %q", got, "durable")
	}
}

