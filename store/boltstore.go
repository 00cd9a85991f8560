package store

import (
	"context"
	"fmt"

	"github.com/boltdb/bolt"
	cid "github.com/ipfs/go-cid"
)

// blockBucketName names the single bucket holding every block, keyed by
// raw CID bytes — the content-addressed analogue of the teacher's
// path-keyed fbucket in FileSystem (fs.go), generalized from "one key
// per path" to "one key per content hash".
var blockBucketName = []byte("blocks")

// BoltStore is a durable BlockStore backed by boltdb, adapted directly
// from the teacher's NewFileSystem/getfi/putfi pattern: a single bucket
// opened once at construction, one key-value pair per stored item, read
// through bolt's own MVCC transactions for the concurrency guarantees
// spec §5 requires of the block store.
type BoltStore struct {
	db *bolt.DB
}

var _ BlockStore = (*BoltStore)(nil)

// NewBoltStore opens (creating if necessary) the block bucket in db.
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blockBucketName)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store: preparing bolt db: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// PutBlock implements BlockStore. Consistent with the teacher's putfi,
// writes go through a single writable transaction per call.
func (s *BoltStore) PutBlock(_ context.Context, data []byte, codec uint64) (cid.Cid, error) {
	c, err := sum(data, codec)
	if err != nil {
		return cid.Undef, err
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(blockBucketName)
		if existing := b.Get(c.Bytes()); existing != nil {
			return nil // already present; PutBlock must be idempotent
		}
		return b.Put(c.Bytes(), data)
	}); err != nil {
		return cid.Undef, fmt.Errorf("store: put block %s: %w", c, err)
	}
	return c, nil
}

// GetBlock implements BlockStore, matching the teacher's getfi
// os.ErrNotExist convention by returning ErrNotFound on a miss.
func (s *BoltStore) GetBlock(_ context.Context, c cid.Cid) ([]byte, error) {
	var out []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(blockBucketName).Get(c.Bytes())
		if v == nil {
			return ErrNotFound
		}
		out = append([]byte{}, v...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("store: get block %s: %w", c, err)
	}
	return out, nil
}
