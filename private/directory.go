package private

import (
	"context"
	"io"
	"time"

	cid "github.com/ipfs/go-cid"

	"github.com/fission-suite/rs-wnfs/nameaccumulator"
)

// PreviousPointer records one content CID that this revision supersedes,
// recovered from original_source's `previous: BTreeSet<(usize,
// Encrypted<Cid>)>` (spec §3) and simplified to a plain, unencrypted
// CID: the pointer only says "this replaces that". Decrypting the
// replaced revision still takes that revision's own temporal key, which
// this revision's key does not yield.
type PreviousPointer struct {
	Generation uint64
	ContentCID cid.Cid
}

// Directory is a private directory node (spec §3/§4.9).
type Directory struct {
	Header   *PrivateNodeHeader
	Metadata Metadata
	Entries  map[string]PrivateRef
	Previous []PreviousPointer
}

// NewDirectory creates a fresh, empty directory as a child of
// parentName.
func NewDirectory(parentName nameaccumulator.Name, now time.Time, rng io.Reader) (*Directory, error) {
	header, err := NewHeader(parentName, rng)
	if err != nil {
		return nil, err
	}
	return &Directory{
		Header:   header,
		Metadata: NewDirMetadata(now),
		Entries:  map[string]PrivateRef{},
	}, nil
}

func (d *Directory) clone() *Directory {
	cp := &Directory{
		Metadata: d.Metadata,
		Entries:  make(map[string]PrivateRef, len(d.Entries)),
		Previous: append([]PreviousPointer{}, d.Previous...),
	}
	for k, v := range d.Entries {
		cp.Entries[k] = v
	}
	headerCopy := *d.Header
	headerCopy.Ratchet = d.Header.Ratchet.Clone()
	cp.Header = &headerCopy
	return cp
}

// LookupNode resolves one path segment against this directory's
// entries, returning (nil Node, false) if absent (spec §4.9
// lookup_node).
func (d *Directory) LookupNode(ctx context.Context, segment string, forest *Forest) (Node, bool, error) {
	ref, ok := d.Entries[segment]
	if !ok {
		return Node{}, false, nil
	}
	n, err := forest.LoadNode(ctx, ref, d.Header.Name)
	if err != nil {
		return Node{}, false, err
	}
	return n, true, nil
}

type pathNodeStatus int

const (
	pathComplete pathNodeStatus = iota
	pathMissingLink
	pathNotADirectory
)

// pathStep pairs a directory with the entry name under which the next
// step of a path resolution is (or will be) stored.
type pathStep struct {
	dir     *Directory
	segment string
}

type pathNodes struct {
	path []pathStep
	tail *Directory
}

// getPathNodes walks segments from d, stopping at the first missing
// link or non-directory entry (spec §4.9 get_path_nodes).
func getPathNodes(ctx context.Context, d *Directory, segments []string, forest *Forest) (pathNodes, pathNodeStatus, string, error) {
	working := d
	var path []pathStep
	for _, seg := range segments {
		node, ok, err := working.LookupNode(ctx, seg, forest)
		if err != nil {
			return pathNodes{}, 0, "", err
		}
		if !ok {
			return pathNodes{path: path, tail: working}, pathMissingLink, seg, nil
		}
		if !node.IsDir() {
			return pathNodes{path: path, tail: working}, pathNotADirectory, seg, nil
		}
		path = append(path, pathStep{dir: working, segment: seg})
		working = node.Dir
	}
	return pathNodes{path: path, tail: working}, pathComplete, "", nil
}

// getOrCreatePathNodes is getPathNodes but creates every missing
// directory along the way (spec §4.9 get_or_create_path_nodes): each
// remaining segment gets one fresh directory, chained parent to child,
// with the last one becoming the new tail.
func getOrCreatePathNodes(ctx context.Context, d *Directory, segments []string, now time.Time, forest *Forest, rng io.Reader) (pathNodes, error) {
	pn, status, _, err := getPathNodes(ctx, d, segments, forest)
	if err != nil {
		return pathNodes{}, err
	}
	switch status {
	case pathComplete:
		return pn, nil
	case pathNotADirectory:
		return pathNodes{}, ErrNotADirectory
	}

	remaining := segments[len(pn.path):]
	anchor := pn.tail
	path := append([]pathStep{}, pn.path...)

	parentName := anchor.Header.Name
	newDirs := make([]*Directory, len(remaining))
	for i, seg := range remaining {
		nd, err := NewDirectory(parentName, now, rng)
		if err != nil {
			return pathNodes{}, err
		}
		newDirs[i] = nd
		parentName = nd.Header.Name

		parentDir := anchor
		if i > 0 {
			parentDir = newDirs[i-1]
		}
		path = append(path, pathStep{dir: parentDir, segment: seg})
	}
	return pathNodes{path: path, tail: newDirs[len(newDirs)-1]}, nil
}

// fixUpPathNodes rebuilds every ancestor in pn bottom-up: the tail's
// ratchet advances, it is stored into the forest, its PrivateRef is
// installed into its parent's entries, and so on up to the root (spec
// §4.9 fix_up_path_nodes). Returns the new root directory.
func fixUpPathNodes(ctx context.Context, pn pathNodes, forest *Forest, rng io.Reader) (*Directory, error) {
	workingChild := pn.tail.clone()
	previous, err := forest.recordPrevious(ctx, workingChild.Header, workingChild.Previous)
	if err != nil {
		return nil, err
	}
	workingChild.Previous = previous
	workingChild.Header.AdvanceRatchet()

	for i := len(pn.path) - 1; i >= 0; i-- {
		childRef, err := forest.StoreNode(ctx, FromDir(workingChild))
		if err != nil {
			return nil, err
		}
		parent := pn.path[i].dir.clone()
		parentPrevious, err := forest.recordPrevious(ctx, parent.Header, parent.Previous)
		if err != nil {
			return nil, err
		}
		parent.Previous = parentPrevious
		parent.Header.AdvanceRatchet()
		parent.Entries[pn.path[i].segment] = childRef
		workingChild = parent
	}

	if _, err := forest.StoreNode(ctx, FromDir(workingChild)); err != nil {
		return nil, err
	}
	return workingChild, nil
}

// GetNode follows segments from d and returns the node at the end, or
// ErrNotFound (spec §4.9 get_node).
func GetNode(ctx context.Context, d *Directory, segments []string, forest *Forest) (Node, error) {
	if len(segments) == 0 {
		return FromDir(d), nil
	}
	parent, last := segments[:len(segments)-1], segments[len(segments)-1]
	pn, status, _, err := getPathNodes(ctx, d, parent, forest)
	if err != nil {
		return Node{}, err
	}
	switch status {
	case pathNotADirectory:
		return Node{}, ErrNotADirectory
	case pathMissingLink:
		return Node{}, ErrNotFound
	}
	node, ok, err := pn.tail.LookupNode(ctx, last, forest)
	if err != nil {
		return Node{}, err
	}
	if !ok {
		return Node{}, ErrNotFound
	}
	return node, nil
}

// Mkdir creates every missing directory along segments, returning the
// new root (spec §4.9 mkdir).
func Mkdir(ctx context.Context, root *Directory, segments []string, now time.Time, forest *Forest, rng io.Reader) (*Directory, error) {
	pn, err := getOrCreatePathNodes(ctx, root, segments, now, forest, rng)
	if err != nil {
		return nil, err
	}
	return fixUpPathNodes(ctx, pn, forest, rng)
}

// DirEntry is one row of an Ls result.
type DirEntry struct {
	Name     string
	Metadata Metadata
}

// Ls lists the immediate children of the directory at segments (spec
// §4.9 ls), in lexical name order.
func Ls(ctx context.Context, root *Directory, segments []string, forest *Forest) ([]DirEntry, error) {
	pn, status, _, err := getPathNodes(ctx, root, segments, forest)
	if err != nil {
		return nil, err
	}
	switch status {
	case pathNotADirectory:
		return nil, ErrNotADirectory
	case pathMissingLink:
		return nil, ErrNotFound
	}
	names := sortedEntryNames(pn.tail.Entries)
	out := make([]DirEntry, 0, len(names))
	for _, name := range names {
		ref := pn.tail.Entries[name]
		node, err := forest.LoadNode(ctx, ref, pn.tail.Header.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, DirEntry{Name: name, Metadata: node.Metadata()})
	}
	return out, nil
}

// Rm removes the node at segments, returning the removed node and the
// new root (spec §4.9 rm).
func Rm(ctx context.Context, root *Directory, segments []string, forest *Forest, rng io.Reader) (Node, *Directory, error) {
	if len(segments) == 0 {
		return Node{}, nil, ErrInvalidPath
	}
	parentSegs, name := segments[:len(segments)-1], segments[len(segments)-1]
	pn, status, _, err := getPathNodes(ctx, root, parentSegs, forest)
	if err != nil {
		return Node{}, nil, err
	}
	if status != pathComplete {
		return Node{}, nil, ErrNotFound
	}

	dir := pn.tail.clone()
	ref, ok := dir.Entries[name]
	if !ok {
		return Node{}, nil, ErrNotFound
	}
	removed, err := forest.LoadNode(ctx, ref, dir.Header.Name)
	if err != nil {
		return Node{}, nil, err
	}
	delete(dir.Entries, name)
	pn.tail = dir

	newRoot, err := fixUpPathNodes(ctx, pn, forest, rng)
	if err != nil {
		return Node{}, nil, err
	}
	return removed, newRoot, nil
}

// Read reads the full content of the file at segments (spec §4.9
// read).
func Read(ctx context.Context, root *Directory, segments []string, forest *Forest) ([]byte, error) {
	node, err := GetNode(ctx, root, segments, forest)
	if err != nil {
		return nil, err
	}
	f, err := node.AsFile()
	if err != nil {
		return nil, err
	}
	return f.ReadContent(ctx, forest.Store)
}

// Write creates or overwrites the file at segments with content,
// returning the new root (spec §4.9 write).
func Write(ctx context.Context, root *Directory, segments []string, now time.Time, content []byte, forest *Forest, rng io.Reader) (*Directory, error) {
	if len(segments) == 0 {
		return nil, ErrInvalidPath
	}
	dirSegs, filename := segments[:len(segments)-1], segments[len(segments)-1]

	pn, err := getOrCreatePathNodes(ctx, root, dirSegs, now, forest, rng)
	if err != nil {
		return nil, err
	}
	dir := pn.tail.clone()

	existing, ok, err := dir.LookupNode(ctx, filename, forest)
	if err != nil {
		return nil, err
	}

	var file *File
	switch {
	case ok && existing.IsDir():
		return nil, ErrDirectoryAlreadyExists
	case ok && existing.IsFile():
		file = existing.File.clone()
		previous, err := forest.recordPrevious(ctx, file.Header, file.Previous)
		if err != nil {
			return nil, err
		}
		file.Previous = previous
		file.Header.AdvanceRatchet()
		if err := file.SetContent(ctx, content, now, forest.Store, rng); err != nil {
			return nil, err
		}
	default:
		file, err = NewFile(dir.Header.Name, now, rng)
		if err != nil {
			return nil, err
		}
		if err := file.SetContent(ctx, content, now, forest.Store, rng); err != nil {
			return nil, err
		}
	}

	ref, err := forest.StoreNode(ctx, FromFile(file))
	if err != nil {
		return nil, err
	}
	dir.Entries[filename] = ref
	pn.tail = dir

	return fixUpPathNodes(ctx, pn, forest, rng)
}

// BasicMv moves the node at fromSegments to toSegments, rewriting the
// moved subtree's ancestry so its names reflect the new location (spec
// §4.9 basic_mv).
func BasicMv(ctx context.Context, root *Directory, fromSegments, toSegments []string, now time.Time, forest *Forest, rng io.Reader) (*Directory, error) {
	moved, err := GetNode(ctx, root, fromSegments, forest)
	if err != nil {
		return nil, err
	}

	_, rootAfterRemove, err := Rm(ctx, root, fromSegments, forest, rng)
	if err != nil {
		return nil, err
	}

	if len(toSegments) == 0 {
		return nil, ErrInvalidPath
	}
	destDirSegs, destName := toSegments[:len(toSegments)-1], toSegments[len(toSegments)-1]
	pn, err := getOrCreatePathNodes(ctx, rootAfterRemove, destDirSegs, now, forest, rng)
	if err != nil {
		return nil, err
	}
	dir := pn.tail.clone()
	if _, exists := dir.Entries[destName]; exists {
		return nil, ErrFileAlreadyExists
	}

	rewritten, err := updateAncestry(ctx, moved, dir.Header.Name, forest)
	if err != nil {
		return nil, err
	}
	ref, err := forest.StoreNode(ctx, rewritten.UpsertMtime(now))
	if err != nil {
		return nil, err
	}
	dir.Entries[destName] = ref
	pn.tail = dir
	return fixUpPathNodes(ctx, pn, forest, rng)
}
