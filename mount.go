// Package wnfs is the module's top-level mount API: a PrivateFS handle
// bundles a Forest with the one root directory an application walks
// paths against, adapted from the teacher's (*FileSystem) handle type
// in fs.go — same "long-lived handle wrapping a store, thin
// path-validated methods that wrap bolt-backed helpers" shape, now
// wrapping the private package's HAMT-forest / skip-ratchet tree
// instead of the teacher's flat bolt-keyed path records.
package wnfs

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	golog "github.com/ipfs/go-log/v2"

	"github.com/fission-suite/rs-wnfs/nameaccumulator"
	"github.com/fission-suite/rs-wnfs/private"
	"github.com/fission-suite/rs-wnfs/store"
)

var log = golog.Logger("wnfs")

// PrivateFS is a mounted private filesystem: one forest plus the
// current root directory, the state an application carries across a
// session of path operations (spec §5 "Mount a filesystem").
type PrivateFS struct {
	Forest *private.Forest
	Root   *private.Directory
	Setup  nameaccumulator.Setup
	rng    io.Reader
}

// NewPrivateFS mounts a brand-new, empty private filesystem backed by
// bs: a fresh random accumulator Setup and an empty root directory. If
// rng is nil, crypto/rand.Reader is used (spec §6 "Random source").
func NewPrivateFS(bs store.BlockStore, rng io.Reader) (*PrivateFS, error) {
	if rng == nil {
		rng = rand.Reader
	}
	setup, err := nameaccumulator.NewSetup(rng)
	if err != nil {
		return nil, err
	}
	root, err := private.NewDirectory(nameaccumulator.Empty(setup), time.Now(), rng)
	if err != nil {
		return nil, err
	}
	log.Debugw("mounted new private filesystem", "inumber", root.Header.INumber)
	return &PrivateFS{Forest: private.NewForest(bs), Root: root, Setup: setup, rng: rng}, nil
}

// MountPrivateFS reattaches to a previously checkpointed filesystem,
// given the PrivateRef its root was last stored under (spec §4.7
// PrivateRef "out-of-band capability").
func MountPrivateFS(ctx context.Context, bs store.BlockStore, setup nameaccumulator.Setup, ref private.PrivateRef, rng io.Reader) (*PrivateFS, error) {
	if rng == nil {
		rng = rand.Reader
	}
	forest := private.NewForest(bs)
	node, err := forest.LoadNode(ctx, ref, nameaccumulator.Empty(setup))
	if err != nil {
		return nil, err
	}
	root, err := node.AsDir()
	if err != nil {
		return nil, err
	}
	log.Debugw("remounted private filesystem", "inumber", root.Header.INumber)
	return &PrivateFS{Forest: forest, Root: root, Setup: setup, rng: rng}, nil
}

// Mkdir creates every missing directory along segments.
func (fs *PrivateFS) Mkdir(ctx context.Context, segments []string) error {
	root, err := private.Mkdir(ctx, fs.Root, segments, time.Now(), fs.Forest, fs.rng)
	if err != nil {
		return wrapOp("mkdir", segments, err)
	}
	fs.Root = root
	return nil
}

// Ls lists the immediate children of the directory at segments.
func (fs *PrivateFS) Ls(ctx context.Context, segments []string) ([]private.DirEntry, error) {
	entries, err := private.Ls(ctx, fs.Root, segments, fs.Forest)
	if err != nil {
		return nil, wrapOp("ls", segments, err)
	}
	return entries, nil
}

// Read returns the full content of the file at segments.
func (fs *PrivateFS) Read(ctx context.Context, segments []string) ([]byte, error) {
	content, err := private.Read(ctx, fs.Root, segments, fs.Forest)
	if err != nil {
		return nil, wrapOp("read", segments, err)
	}
	return content, nil
}

// Write creates or overwrites the file at segments with content.
func (fs *PrivateFS) Write(ctx context.Context, segments []string, content []byte) error {
	root, err := private.Write(ctx, fs.Root, segments, time.Now(), content, fs.Forest, fs.rng)
	if err != nil {
		return wrapOp("write", segments, err)
	}
	fs.Root = root
	return nil
}

// Rm removes the node at segments.
func (fs *PrivateFS) Rm(ctx context.Context, segments []string) error {
	_, root, err := private.Rm(ctx, fs.Root, segments, fs.Forest, fs.rng)
	if err != nil {
		return wrapOp("rm", segments, err)
	}
	fs.Root = root
	return nil
}

// Mv moves the node at from to to.
func (fs *PrivateFS) Mv(ctx context.Context, from, to []string) error {
	root, err := private.BasicMv(ctx, fs.Root, from, to, time.Now(), fs.Forest, fs.rng)
	if err != nil {
		return wrapOp("mv", from, err)
	}
	fs.Root = root
	return nil
}

// Checkpoint flushes the forest's HAMT to bs and stores the current
// root revision, returning the PrivateRef capability needed to
// re-mount this exact state later via MountPrivateFS.
func (fs *PrivateFS) Checkpoint(ctx context.Context) (private.PrivateRef, error) {
	if _, err := fs.Forest.Flush(ctx); err != nil {
		return private.PrivateRef{}, err
	}
	ref, err := fs.Forest.StoreNode(ctx, private.FromDir(fs.Root))
	if err != nil {
		return private.PrivateRef{}, err
	}
	log.Debugw("checkpointed private filesystem", "contentCID", ref.ContentCID)
	return ref, nil
}

func wrapOp(op string, segments []string, err error) error {
	return &private.WnfsError{Op: op, Path: private.Path(segments), Err: err}
}
