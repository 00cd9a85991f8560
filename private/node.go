package private

import (
	"context"
	"fmt"
	"sort"
	"time"

	cid "github.com/ipfs/go-cid"

	wnfscrypto "github.com/fission-suite/rs-wnfs/crypto"
	"github.com/fission-suite/rs-wnfs/nameaccumulator"
)

// PrivateRef is the out-of-band capability needed to load one specific
// revision of a node: the address of its encrypted content block, plus
// the temporal key that decrypts its header and content (spec §4.8).
// Anyone holding a PrivateRef can read this revision and derive every
// later one; they cannot derive earlier revisions (forward secrecy).
type PrivateRef struct {
	ContentCID  cid.Cid
	TemporalKey wnfscrypto.TemporalKey
}

// RevisionRef identifies a forest label plus the key needed to decrypt
// whatever content is stored there (spec §4.7 derive_revision_ref).
type RevisionRef struct {
	RevisionNameHash wnfscrypto.HashOutput
	TemporalKey      wnfscrypto.TemporalKey
}

// Node is a sum type over *File and *Directory (spec §3 PrivateNode).
// Exactly one of File or Dir is set.
type Node struct {
	File *File
	Dir  *Directory
}

// FromFile wraps a file as a Node.
func FromFile(f *File) Node { return Node{File: f} }

// FromDir wraps a directory as a Node.
func FromDir(d *Directory) Node { return Node{Dir: d} }

// IsFile reports whether this node is a file.
func (n Node) IsFile() bool { return n.File != nil }

// IsDir reports whether this node is a directory.
func (n Node) IsDir() bool { return n.Dir != nil }

// AsFile returns the underlying file, or ErrNotAFile.
func (n Node) AsFile() (*File, error) {
	if n.File == nil {
		return nil, ErrNotAFile
	}
	return n.File, nil
}

// AsDir returns the underlying directory, or ErrNotADirectory.
func (n Node) AsDir() (*Directory, error) {
	if n.Dir == nil {
		return nil, ErrNotADirectory
	}
	return n.Dir, nil
}

// Header returns the header shared by both node kinds.
func (n Node) Header() *PrivateNodeHeader {
	if n.File != nil {
		return n.File.Header
	}
	return n.Dir.Header
}

// Metadata returns the metadata shared by both node kinds.
func (n Node) Metadata() Metadata {
	if n.File != nil {
		return n.File.Metadata
	}
	return n.Dir.Metadata
}

// UpsertMtime returns a copy of n with its modification time updated
// (spec §4.9 upsert_mtime).
func (n Node) UpsertMtime(now time.Time) Node {
	if n.File != nil {
		f := n.File.clone()
		f.Metadata.Touch(now)
		return FromFile(f)
	}
	d := n.Dir.clone()
	d.Metadata.Touch(now)
	return FromDir(d)
}

// updateAncestry rewrites this node's (and every descendant's) name to
// hang off parentName, advancing each ratchet along the way (spec §4.9
// update_ancestry) — used when a subtree is moved to a new path.
func updateAncestry(ctx context.Context, n Node, parentName nameaccumulator.Name, forest *Forest) (Node, error) {
	if n.File != nil {
		f := n.File.clone()
		previous, err := forest.recordPrevious(ctx, f.Header, f.Previous)
		if err != nil {
			return Node{}, err
		}
		f.Previous = previous
		// Chunks are sealed under the current snapshot key: read them
		// back before the ratchet advances and reseal them afterwards.
		var content []byte
		if f.Chunks != nil {
			if content, err = f.ReadContent(ctx, forest.Store); err != nil {
				return Node{}, err
			}
		}
		f.Header.UpdateName(parentName)
		f.Header.AdvanceRatchet()
		if f.Chunks != nil {
			if f.Chunks, err = chunkContent(ctx, content, f.Header.DeriveSnapshotKey(), forest.Store); err != nil {
				return Node{}, err
			}
		}
		return FromFile(f), nil
	}

	d := n.Dir.clone()
	previous, err := forest.recordPrevious(ctx, d.Header, d.Previous)
	if err != nil {
		return Node{}, err
	}
	d.Previous = previous
	oldName := d.Header.Name
	d.Header.UpdateName(parentName)
	for name, ref := range d.Entries {
		child, err := forest.LoadNode(ctx, ref, oldName)
		if err != nil {
			return Node{}, fmt.Errorf("private: update_ancestry loading %q: %w", name, err)
		}
		updated, err := updateAncestry(ctx, child, d.Header.Name, forest)
		if err != nil {
			return Node{}, err
		}
		newRef, err := forest.StoreNode(ctx, updated)
		if err != nil {
			return Node{}, err
		}
		d.Entries[name] = newRef
	}
	d.Header.AdvanceRatchet()
	return FromDir(d), nil
}

// sortedEntryNames returns a directory's child names in lexical order,
// matching the teacher's ordered-iteration ls behavior.
func sortedEntryNames(entries map[string]PrivateRef) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
