package object

import (
	"encoding/hex"
	"fmt"
)

// HashObject computes the content hash of an object: the digest of
// "type size\x00data" under the repository's object format.
func HashObject(format ObjectFormat, objType ObjectType, data []byte) Hash {
	h := format.New()
	fmt.Fprintf(h, "%s %d\x00", objType, len(data))
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashBytes computes the raw digest of data under the given format.
func HashBytes(format ObjectFormat, data []byte) Hash {
	h := format.New()
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}
