package wnfs

import (
	"context"
	"testing"

	"github.com/fission-suite/rs-wnfs/store"
)

func TestNewPrivateFSMkdirWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewPrivateFS(store.NewMemStore(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := fs.Mkdir(ctx, []string{"docs"}); err != nil {
		t.Fatal(err)
	}
	if err := fs.Write(ctx, []string{"docs", "hello.txt"}, []byte("hello")); err != nil {
		t.Fatal(err)
	}

	content, err := fs.Read(ctx, []string{"docs", "hello.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "hello" {
		t.Fatalf("got %q, want %q", content, "hello")
	}

	entries, err := fs.Ls(ctx, []string{"docs"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "hello.txt" {
		t.Fatalf("unexpected ls result: %+v", entries)
	}
}

func TestPrivateFSMvThenRm(t *testing.T) {
	ctx := context.Background()
	fs, err := NewPrivateFS(store.NewMemStore(), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := fs.Write(ctx, []string{"a.txt"}, []byte("moved")); err != nil {
		t.Fatal(err)
	}
	if err := fs.Mv(ctx, []string{"a.txt"}, []string{"b.txt"}); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Read(ctx, []string{"a.txt"}); err == nil {
		t.Fatal("expected source path to be gone")
	}
	if err := fs.Rm(ctx, []string{"b.txt"}); err != nil {
		t.Fatal(err)
	}
	if err := fs.Rm(ctx, []string{"b.txt"}); err == nil {
		t.Fatal("expected second rm of the same path to fail")
	}
}

func TestCheckpointThenMountPrivateFS(t *testing.T) {
	ctx := context.Background()
	bs := store.NewMemStore()
	fs, err := NewPrivateFS(bs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.Write(ctx, []string{"hello.txt"}, []byte("persisted")); err != nil {
		t.Fatal(err)
	}

	ref, err := fs.Checkpoint(ctx)
	if err != nil {
		t.Fatal(err)
	}

	remounted, err := MountPrivateFS(ctx, bs, fs.Setup, ref, nil)
	if err != nil {
		t.Fatal(err)
	}
	content, err := remounted.Read(ctx, []string{"hello.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "persisted" {
		t.Fatalf("got %q, want %q", content, "persisted")
	}
}
