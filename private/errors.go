package private

import "errors"

// Benign, caller-recoverable errors (spec §7 "Not-found"/"Already-exists").
var (
	ErrNotFound             = errors.New("private: not found")
	ErrNotAFile              = errors.New("private: not a file")
	ErrNotADirectory         = errors.New("private: not a directory")
	ErrInvalidPath           = errors.New("private: invalid path")
	ErrMissingLink           = errors.New("private: missing link")
	ErrDirectoryAlreadyExists = errors.New("private: directory already exists")
	ErrFileAlreadyExists     = errors.New("private: file already exists")
)

// Structural errors: fatal for the call, indicating corruption or a
// capability used against the wrong node (spec §7 "Structural").
var (
	ErrMountPointMismatch  = errors.New("private: mount point mismatch")
	ErrUnexpectedNodeType  = errors.New("private: unexpected node type")
)

// WnfsError wraps a benign error with the operation and path that
// produced it, mirroring the teacher's (*os.PathError)-via-P.Err
// convention in path.go, generalized from a single string path to a
// private Path.
type WnfsError struct {
	Op   string
	Path Path
	Err  error
}

func (e *WnfsError) Error() string {
	if e.Path == nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path.String() + ": " + e.Err.Error()
}

func (e *WnfsError) Unwrap() error { return e.Err }

func wrapErr(op string, path Path, err error) error {
	if err == nil {
		return nil
	}
	return &WnfsError{Op: op, Path: path, Err: err}
}
