package object

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// Hash is a lowercase hex-encoded object digest: 40 characters for SHA-1
// repositories, 64 for SHA-256 repositories.
type Hash string

// ObjectFormat selects the digest algorithm a repository names its objects
// with. Git repositories default to SHA-1; repositories created with
// extensions.objectFormat=sha256 use SHA-256.
type ObjectFormat int

const (
	SHA1 ObjectFormat = iota
	SHA256
)

// ParseObjectFormat maps the extensions.objectFormat config value to an
// ObjectFormat. An empty name means the SHA-1 default.
func ParseObjectFormat(name string) (ObjectFormat, error) {
	switch name {
	case "", "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	}
	return 0, fmt.Errorf("unsupported object format %q", name)
}

// Size returns the raw digest length in bytes.
func (f ObjectFormat) Size() int {
	if f == SHA256 {
		return sha256.Size
	}
	return sha1.Size
}

// HexSize returns the hex-encoded digest length.
func (f ObjectFormat) HexSize() int {
	return f.Size() * 2
}

// New returns a fresh digest state for the format.
func (f ObjectFormat) New() hash.Hash {
	if f == SHA256 {
		return sha256.New()
	}
	return sha1.New()
}

func (f ObjectFormat) String() string {
	if f == SHA256 {
		return "sha256"
	}
	return "sha1"
}

// ObjectType identifies the kind of a fully resolved object.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
	TypeTag    ObjectType = "tag"
)

// ParseObjectType validates a loose-object header keyword.
func ParseObjectType(keyword string) (ObjectType, bool) {
	switch t := ObjectType(keyword); t {
	case TypeBlob, TypeTree, TypeCommit, TypeTag:
		return t, true
	}
	return "", false
}

// PackObjectType is the object type encoding used in pack entry headers.
// Values match the canonical Git wire/storage format. OfsDelta and RefDelta
// only ever appear while decoding a pack; they are never handed to a caller
// as the type of a resolved object.
type PackObjectType uint8

const (
	PackCommit   PackObjectType = 1
	PackTree     PackObjectType = 2
	PackBlob     PackObjectType = 3
	PackTag      PackObjectType = 4
	PackOfsDelta PackObjectType = 6
	PackRefDelta PackObjectType = 7
)

// Terminal reports whether the type is one of the four resolved kinds.
func (t PackObjectType) Terminal() bool {
	switch t {
	case PackCommit, PackTree, PackBlob, PackTag:
		return true
	}
	return false
}

// ObjectType maps a terminal pack type to its ObjectType.
func (t PackObjectType) ObjectType() (ObjectType, bool) {
	switch t {
	case PackCommit:
		return TypeCommit, true
	case PackTree:
		return TypeTree, true
	case PackBlob:
		return TypeBlob, true
	case PackTag:
		return TypeTag, true
	}
	return "", false
}

func (t PackObjectType) String() string {
	switch t {
	case PackCommit:
		return "commit"
	case PackTree:
		return "tree"
	case PackBlob:
		return "blob"
	case PackTag:
		return "tag"
	case PackOfsDelta:
		return "ofs-delta"
	case PackRefDelta:
		return "ref-delta"
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// DecodedObject is a fully resolved object: terminal type, declared size,
// and the reconstructed payload. len(Data) == Size always holds once a
// decode succeeds.
type DecodedObject struct {
	Type ObjectType
	Size uint64
	Data []byte
}

func hashToRaw(h Hash, format ObjectFormat) ([]byte, error) {
	if len(h) != format.HexSize() {
		return nil, fmt.Errorf("hash length must be %d hex chars, got %d", format.HexSize(), len(h))
	}
	raw, err := hex.DecodeString(string(h))
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", h, err)
	}
	return raw, nil
}

func rawToHash(raw []byte) Hash {
	return Hash(hex.EncodeToString(raw))
}
