package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

const (
	packIndexHeaderSize     = 8
	packIndexFanoutSize     = 256 * 4
	packIndexLargeOffsetBit = uint32(1) << 31
)

// packIndexMagic precedes the version in index format v2. Format v1 has no
// magic: its file starts directly with the fanout table, and 0xff as a
// first fanout byte would imply an absurd bucket count, which is how the
// two layouts are told apart.
var packIndexMagic = [4]byte{0xff, 't', 'O', 'c'}

// PackIndexEntry is one row of a pack index: an object hash, its byte
// offset in the companion pack, and (format v2 only) the CRC32 of the
// entry's stored bytes.
type PackIndexEntry struct {
	Hash   Hash
	Offset uint64
	CRC32  uint32
}

// PackIndex is an immutable in-memory pack index supporting O(log n) hash
// lookup bounded by the 256-bucket fanout table.
type PackIndex struct {
	Version       uint32
	fanout        [256]uint32
	entries       []PackIndexEntry
	PackChecksum  Hash
	IndexChecksum Hash
}

// Entries returns a copy of all index entries in hash order.
func (idx *PackIndex) Entries() []PackIndexEntry {
	out := make([]PackIndexEntry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Count returns the number of indexed objects.
func (idx *PackIndex) Count() int {
	return len(idx.entries)
}

// Find binary-searches for a hash within the fanout-bounded bucket of its
// first byte. Lowercase hex order equals raw byte order, so entries compare
// directly as strings.
func (idx *PackIndex) Find(h Hash) (PackIndexEntry, bool) {
	raw, err := hex.DecodeString(string(h))
	if err != nil || len(raw) == 0 {
		return PackIndexEntry{}, false
	}
	bucket := int(raw[0])

	start := uint32(0)
	if bucket > 0 {
		start = idx.fanout[bucket-1]
	}
	end := idx.fanout[bucket]
	if end <= start {
		return PackIndexEntry{}, false
	}

	lo, hi := int(start), int(end)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if idx.entries[mid].Hash < h {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < int(end) && idx.entries[lo].Hash == h {
		return idx.entries[lo], true
	}
	return PackIndexEntry{}, false
}

// ReadPackIndex parses a pack index in either on-disk layout. The trailing
// index checksum is recorded but only recomputed by VerifyIndexChecksum.
func ReadPackIndex(data []byte, format ObjectFormat) (*PackIndex, error) {
	if len(data) >= packIndexHeaderSize && bytes.Equal(data[:4], packIndexMagic[:]) {
		cur := NewCursor(data[4:])
		version, _ := cur.Uint32BE()
		if version != 2 {
			return nil, fmt.Errorf("pack index version %d: %w", version, ErrIndexVersionUnsupported)
		}
		return readPackIndexV2(data, format)
	}
	return readPackIndexV1(data, format)
}

// readPackIndexV1 parses the legacy layout: a fanout table of cumulative
// counts followed by rows of (4-byte offset, hash) sorted by hash, then the
// pack and index checksums.
func readPackIndexV1(data []byte, format ObjectFormat) (*PackIndex, error) {
	cur := NewCursor(data)

	fanout, err := readFanout(cur)
	if err != nil {
		return nil, fmt.Errorf("pack index v1: %w", err)
	}
	n := int(fanout[255])

	entries := make([]PackIndexEntry, n)
	for i := 0; i < n; i++ {
		offset, err := cur.Uint32BE()
		if err != nil {
			return nil, fmt.Errorf("pack index v1 row %d: %w", i, err)
		}
		raw, err := cur.Slice(format.Size())
		if err != nil {
			return nil, fmt.Errorf("pack index v1 row %d: %w", i, err)
		}
		entries[i] = PackIndexEntry{Hash: rawToHash(raw), Offset: uint64(offset)}
	}

	idx := &PackIndex{Version: 1, fanout: fanout, entries: entries}
	if err := finishPackIndex(idx, cur, format); err != nil {
		return nil, fmt.Errorf("pack index v1: %w", err)
	}
	return idx, nil
}

// readPackIndexV2 parses the v2 layout: magic, version, fanout, then three
// parallel arrays (sorted hashes, CRC32s, 31-bit offsets) and a trailing
// 64-bit offset table for entries whose offset sets the high bit.
func readPackIndexV2(data []byte, format ObjectFormat) (*PackIndex, error) {
	cur := NewCursor(data)
	if _, err := cur.Slice(packIndexHeaderSize); err != nil {
		return nil, fmt.Errorf("pack index v2: %w", err)
	}

	fanout, err := readFanout(cur)
	if err != nil {
		return nil, fmt.Errorf("pack index v2: %w", err)
	}
	n := int(fanout[255])

	entries := make([]PackIndexEntry, n)
	for i := 0; i < n; i++ {
		raw, err := cur.Slice(format.Size())
		if err != nil {
			return nil, fmt.Errorf("pack index v2 hash %d: %w", i, err)
		}
		entries[i].Hash = rawToHash(raw)
	}
	for i := 0; i < n; i++ {
		crc, err := cur.Uint32BE()
		if err != nil {
			return nil, fmt.Errorf("pack index v2 crc %d: %w", i, err)
		}
		entries[i].CRC32 = crc
	}

	// 31-bit offsets. The high bit redirects into the 64-bit table that
	// follows; truncating these to 32 bits would silently corrupt lookups
	// in packs larger than 2 GiB.
	offset32 := make([]uint32, n)
	largeCount := 0
	for i := 0; i < n; i++ {
		v, err := cur.Uint32BE()
		if err != nil {
			return nil, fmt.Errorf("pack index v2 offset %d: %w", i, err)
		}
		offset32[i] = v
		if v&packIndexLargeOffsetBit != 0 {
			if ref := int(v &^ packIndexLargeOffsetBit); ref+1 > largeCount {
				largeCount = ref + 1
			}
		}
	}

	largeOffsets := make([]uint64, largeCount)
	for i := range largeOffsets {
		if largeOffsets[i], err = cur.Uint64BE(); err != nil {
			return nil, fmt.Errorf("pack index v2 large offset %d: %w", i, err)
		}
	}

	for i := 0; i < n; i++ {
		if offset32[i]&packIndexLargeOffsetBit == 0 {
			entries[i].Offset = uint64(offset32[i])
			continue
		}
		ref := int(offset32[i] &^ packIndexLargeOffsetBit)
		entries[i].Offset = largeOffsets[ref]
	}

	idx := &PackIndex{Version: 2, fanout: fanout, entries: entries}
	if err := finishPackIndex(idx, cur, format); err != nil {
		return nil, fmt.Errorf("pack index v2: %w", err)
	}
	return idx, nil
}

func readFanout(cur *Cursor) ([256]uint32, error) {
	var fanout [256]uint32
	var prev uint32
	for i := 0; i < 256; i++ {
		v, err := cur.Uint32BE()
		if err != nil {
			return fanout, err
		}
		if v < prev {
			return fanout, fmt.Errorf("fanout bucket %d decreases (%d < %d): %w", i, v, prev, ErrMalformedHeader)
		}
		fanout[i] = v
		prev = v
	}
	return fanout, nil
}

// finishPackIndex consumes the trailing checksums and validates that the
// hash table is sorted and consistent with the fanout table.
func finishPackIndex(idx *PackIndex, cur *Cursor, format ObjectFormat) error {
	packSum, err := cur.Slice(format.Size())
	if err != nil {
		return fmt.Errorf("pack checksum: %w", err)
	}
	indexSum, err := cur.Slice(format.Size())
	if err != nil {
		return fmt.Errorf("index checksum: %w", err)
	}
	if cur.Remaining() != 0 {
		return fmt.Errorf("%d trailing bytes after index checksum: %w", cur.Remaining(), ErrMalformedHeader)
	}
	idx.PackChecksum = rawToHash(packSum)
	idx.IndexChecksum = rawToHash(indexSum)

	hexSize := format.HexSize()
	for i, entry := range idx.entries {
		if len(entry.Hash) != hexSize {
			return fmt.Errorf("row %d: hash width %d: %w", i, len(entry.Hash), ErrMalformedHeader)
		}
		if i > 0 && idx.entries[i-1].Hash >= entry.Hash {
			return fmt.Errorf("hash table unsorted at row %d: %w", i, ErrMalformedHeader)
		}
		bucket := hexNibblePair(entry.Hash)
		start := uint32(0)
		if bucket > 0 {
			start = idx.fanout[bucket-1]
		}
		if uint32(i) < start || uint32(i) >= idx.fanout[bucket] {
			return fmt.Errorf("row %d outside fanout bucket %#02x: %w", i, bucket, ErrMalformedHeader)
		}
	}
	return nil
}

// hexNibblePair returns the numeric value of the first hash byte. Entry
// hashes are produced by this package's own hex encoding, so the two
// leading characters are always valid lowercase hex.
func hexNibblePair(h Hash) int {
	return hexNibble(h[0])<<4 | hexNibble(h[1])
}

func hexNibble(c byte) int {
	if c >= 'a' {
		return int(c-'a') + 10
	}
	return int(c - '0')
}

// VerifyIndexChecksum recomputes the digest stored in the last bytes of a
// raw index file.
func VerifyIndexChecksum(data []byte, format ObjectFormat) error {
	size := format.Size()
	if len(data) < size {
		return fmt.Errorf("index of %d bytes has no checksum trailer: %w", len(data), ErrOutOfBounds)
	}
	stored := rawToHash(data[len(data)-size:])
	computed := HashBytes(format, data[:len(data)-size])
	if stored != computed {
		return fmt.Errorf("pack index checksum mismatch: stored %s, computed %s", stored, computed)
	}
	return nil
}
