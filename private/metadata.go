package private

import "time"

// Metadata is recovered from original_source's UnixMeta-equivalent
// (not detailed by spec.md, which only says "metadata" opaquely) so
// that ls results can report POSIX-ish mode bits, matching the
// teacher's own fileInfo/os.FileMode modeling in fs.go.
type Metadata struct {
	Mode     uint32 `cbor:"mode"`
	Created  int64  `cbor:"created"`  // seconds since epoch, UTC
	Modified int64  `cbor:"modified"` // seconds since epoch, UTC
}

const (
	modeDir  uint32 = 1 << 31
	modeFile uint32 = 0
)

// NewDirMetadata returns metadata for a freshly created directory.
func NewDirMetadata(now time.Time) Metadata {
	return Metadata{Mode: modeDir | 0o755, Created: now.Unix(), Modified: now.Unix()}
}

// NewFileMetadata returns metadata for a freshly created file.
func NewFileMetadata(now time.Time) Metadata {
	return Metadata{Mode: modeFile | 0o644, Created: now.Unix(), Modified: now.Unix()}
}

// Touch updates the modification time in place.
func (m *Metadata) Touch(now time.Time) { m.Modified = now.Unix() }

// IsDir reports whether the metadata's mode bit marks a directory.
func (m Metadata) IsDir() bool { return m.Mode&modeDir != 0 }
