package wnfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fission-suite/rs-wnfs/store"
)

// TestScenarioNestedMkdirWriteMoveAndCheckpoint exercises a full
// session against a single mount: build out a small tree, move a file
// between directories, checkpoint it, then remount from the returned
// PrivateRef and confirm the remounted tree matches.
func TestScenarioNestedMkdirWriteMoveAndCheckpoint(t *testing.T) {
	ctx := context.Background()
	bs := store.NewMemStore()

	fs, err := NewPrivateFS(bs, nil)
	require.NoError(t, err)

	require.NoError(t, fs.Mkdir(ctx, []string{"tamedun", "pictures"}))
	require.NoError(t, fs.Write(ctx, []string{"tamedun", "pictures", "puppy.jpg"}, []byte("woof")))
	require.NoError(t, fs.Mkdir(ctx, []string{"tamedun", "videos"}))

	require.NoError(t, fs.Mv(ctx,
		[]string{"tamedun", "pictures", "puppy.jpg"},
		[]string{"tamedun", "videos", "puppy.jpg"},
	))

	_, err = fs.Read(ctx, []string{"tamedun", "pictures", "puppy.jpg"})
	require.Error(t, err)

	content, err := fs.Read(ctx, []string{"tamedun", "videos", "puppy.jpg"})
	require.NoError(t, err)
	require.Equal(t, "woof", string(content))

	ref, err := fs.Checkpoint(ctx)
	require.NoError(t, err)

	remounted, err := MountPrivateFS(ctx, bs, fs.Setup, ref, nil)
	require.NoError(t, err)

	entries, err := remounted.Ls(ctx, []string{"tamedun"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "pictures", entries[0].Name)
	require.Equal(t, "videos", entries[1].Name)

	content, err = remounted.Read(ctx, []string{"tamedun", "videos", "puppy.jpg"})
	require.NoError(t, err)
	require.Equal(t, "woof", string(content))
}
