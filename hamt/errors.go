package hamt

import "errors"

var (
	// ErrHashCollision is returned when two distinct keys agree on every
	// nibble up to MaxCursorDepth. Treated as a fatal corruption signal
	// by callers, per spec §7 "Structural" errors.
	ErrHashCollision = errors.New("hamt: hash collision beyond max cursor depth")

	// ErrCursorOutOfBounds is returned when a nibble cursor is advanced
	// past the digest's bit-width.
	ErrCursorOutOfBounds = errors.New("hamt: cursor out of bounds")

	// ErrUnexpectedNodeType is returned when a pointer is not the kind
	// of node (bucket vs. link) an operation expected.
	ErrUnexpectedNodeType = errors.New("hamt: unexpected node type")

	// ErrNotFound is returned by store-backed link resolution when a
	// referenced child node cannot be loaded.
	ErrNotFound = errors.New("hamt: not found")
)
