package object

import "errors"

// Decoding failures are surfaced as distinct, inspectable sentinels so that
// callers can tell apart a missing object from a corrupt one. Corruption is
// never retried or recovered internally.
var (
	// ErrNotFound means the hash is absent from loose storage and from
	// every pack index.
	ErrNotFound = errors.New("object not found")

	// ErrMalformedHeader covers unparseable loose-object headers and pack
	// entry headers (bad keyword, bad size, bad type tag, missing NUL).
	ErrMalformedHeader = errors.New("malformed object header")

	// ErrSizeMismatch means a decoded payload disagrees with its declared
	// size.
	ErrSizeMismatch = errors.New("object size mismatch")

	// ErrDecompression means a zlib stream could not be inflated.
	ErrDecompression = errors.New("decompression failure")

	// ErrOutOfBounds means a parser ran past the end of its input.
	ErrOutOfBounds = errors.New("read out of bounds")

	// ErrMalformedDeltaStream means a delta opcode or its arguments could
	// not be parsed, or a copy instruction referenced bytes outside the
	// base object.
	ErrMalformedDeltaStream = errors.New("malformed delta stream")

	// ErrDeltaBaseSizeMismatch means the delta's declared base size does
	// not match the resolved base object.
	ErrDeltaBaseSizeMismatch = errors.New("delta base size mismatch")

	// ErrDeltaResultSizeMismatch means applying a delta produced a result
	// of the wrong length.
	ErrDeltaResultSizeMismatch = errors.New("delta result size mismatch")

	// ErrDeltaChainTooDeep means a delta chain exceeded the configured
	// depth cap before reaching a non-delta base.
	ErrDeltaChainTooDeep = errors.New("delta chain too deep")

	// ErrIndexVersionUnsupported means a pack index declares a version
	// other than 1 or 2.
	ErrIndexVersionUnsupported = errors.New("unsupported pack index version")
)
