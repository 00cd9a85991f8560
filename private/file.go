package private

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	cid "github.com/ipfs/go-cid"
	"github.com/restic/chunker"

	wnfscrypto "github.com/fission-suite/rs-wnfs/crypto"
	"github.com/fission-suite/rs-wnfs/nameaccumulator"
	"github.com/fission-suite/rs-wnfs/store"
)

// chunkerPoly is the teacher's own Rabin fingerprint polynomial
// (simplefs/chunks.go), reused unchanged.
const chunkerPoly = chunker.Pol(0x3DA3358B4DC173)

const (
	minChunkSize = 256 * 1024
	maxChunkSize = 1024 * 1024
	// inlineLimit is the largest content stored directly in a file's
	// node rather than split into external chunks.
	inlineLimit = minChunkSize
)

// File is a private file node (spec §3/§4.9). Content of at most
// inlineLimit bytes lives in Content; larger content is content-defined-chunked and
// referenced by Chunks, each chunk its own encrypted block.
type File struct {
	Header   *PrivateNodeHeader
	Metadata Metadata
	Content  []byte
	Chunks   []cid.Cid
	Previous []PreviousPointer
}

// NewFile creates a fresh, empty file as a child of parentName.
func NewFile(parentName nameaccumulator.Name, now time.Time, rng io.Reader) (*File, error) {
	header, err := NewHeader(parentName, rng)
	if err != nil {
		return nil, err
	}
	return &File{Header: header, Metadata: NewFileMetadata(now)}, nil
}

func (f *File) clone() *File {
	cp := &File{
		Metadata: f.Metadata,
		Content:  append([]byte{}, f.Content...),
		Chunks:   append([]cid.Cid{}, f.Chunks...),
		Previous: append([]PreviousPointer{}, f.Previous...),
	}
	headerCopy := *f.Header
	headerCopy.Ratchet = f.Header.Ratchet.Clone()
	cp.Header = &headerCopy
	return cp
}

// SetContent replaces this file's content, splitting it into encrypted
// content-defined chunks once it exceeds inlineLimit (spec §4.9 write).
func (f *File) SetContent(ctx context.Context, content []byte, now time.Time, bs store.BlockStore, rng io.Reader) error {
	f.Metadata.Touch(now)
	if len(content) <= inlineLimit {
		f.Content = append([]byte{}, content...)
		f.Chunks = nil
		return nil
	}

	sk := f.Header.DeriveSnapshotKey()
	chunks, err := chunkContent(ctx, content, sk, bs)
	if err != nil {
		return err
	}
	f.Content = nil
	f.Chunks = chunks
	return nil
}

// ReadContent reassembles this file's content, fetching and decrypting
// any external chunks in order (spec §4.9 read).
func (f *File) ReadContent(ctx context.Context, bs store.BlockStore) ([]byte, error) {
	if f.Chunks == nil {
		return append([]byte{}, f.Content...), nil
	}
	sk := f.Header.DeriveSnapshotKey()
	var out bytes.Buffer
	for _, c := range f.Chunks {
		ciphertext, err := bs.GetBlock(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("private: loading chunk %s: %w", c, err)
		}
		plain, err := sk.Decrypt(ciphertext)
		if err != nil {
			return nil, fmt.Errorf("private: decrypting chunk %s: %w", c, err)
		}
		out.Write(plain)
	}
	return out.Bytes(), nil
}

func chunkContent(ctx context.Context, content []byte, sk wnfscrypto.SnapshotKey, bs store.BlockStore) ([]cid.Cid, error) {
	chkr := chunker.NewWithBoundaries(bytes.NewReader(content), chunkerPoly, minChunkSize, maxChunkSize)
	buf := make([]byte, maxChunkSize)
	var cids []cid.Cid
	for {
		chunk, err := chkr.Next(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("private: chunking content: %w", err)
		}
		ciphertext, err := sk.Encrypt(chunk.Data)
		if err != nil {
			return nil, err
		}
		c, err := bs.PutBlock(ctx, ciphertext, store.CodecRaw)
		if err != nil {
			return nil, err
		}
		cids = append(cids, c)
	}
	return cids, nil
}
