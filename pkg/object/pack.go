package object

import (
	"bytes"
	"fmt"
	"hash/crc32"
)

const (
	packHeaderSize       = 12
	supportedPackVersion = 2
)

var packMagic = [4]byte{'P', 'A', 'C', 'K'}

// PackHeader is the fixed-size pack header.
//
// Bytes:
//   - 0..3:  "PACK"
//   - 4..7:  version (big-endian)
//   - 8..11: number of objects (big-endian)
type PackHeader struct {
	Version    uint32
	NumObjects uint32
}

// PackEntry is one raw, not-yet-resolved record extracted from a pack at a
// given offset. For delta entries Data holds the inflated delta instruction
// stream, not object bytes.
type PackEntry struct {
	// Offset is the byte offset of the entry header within the pack.
	Offset uint64
	Type   PackObjectType
	// Size is the declared inflated payload size.
	Size uint64
	// BaseHash names the base object of a ref-delta entry.
	BaseHash Hash
	// BaseOffset is the absolute pack offset of an ofs-delta entry's base.
	BaseOffset uint64
	// Data is the inflated payload.
	Data []byte
	// StoredLength is the total on-disk span of the entry: header, base
	// reference, and compressed payload.
	StoredLength int
}

// Pack is an immutable, random-access view over a pack file's bytes. It may
// be shared freely across goroutines once opened.
type Pack struct {
	data     []byte
	format   ObjectFormat
	Header   PackHeader
	Checksum Hash
}

// OpenPack validates the pack header and trailer framing and returns a
// reader over data. The trailing whole-file checksum is recorded but not
// verified; call VerifyChecksum when integrity checking is wanted.
func OpenPack(data []byte, format ObjectFormat) (*Pack, error) {
	if len(data) < packHeaderSize+format.Size() {
		return nil, fmt.Errorf("pack of %d bytes is too short: %w", len(data), ErrOutOfBounds)
	}

	cur := NewCursor(data)
	magic, _ := cur.Slice(4)
	if !bytes.Equal(magic, packMagic[:]) {
		return nil, fmt.Errorf("invalid pack magic %q: %w", magic, ErrMalformedHeader)
	}
	version, _ := cur.Uint32BE()
	if version != supportedPackVersion {
		return nil, fmt.Errorf("unsupported pack version %d: %w", version, ErrMalformedHeader)
	}
	numObjects, _ := cur.Uint32BE()

	return &Pack{
		data:     data,
		format:   format,
		Header:   PackHeader{Version: version, NumObjects: numObjects},
		Checksum: rawToHash(data[len(data)-format.Size():]),
	}, nil
}

// payload returns the pack bytes between the header and the trailing
// checksum, i.e. the region entry offsets point into.
func (p *Pack) payload() []byte {
	return p.data[:len(p.data)-p.format.Size()]
}

// EntryAt decodes the single entry whose header starts at offset. The
// returned entry's payload is inflated and checked against the declared
// size.
func (p *Pack) EntryAt(offset uint64) (*PackEntry, error) {
	payload := p.payload()
	if offset < packHeaderSize || offset >= uint64(len(payload)) {
		return nil, fmt.Errorf("entry offset %d outside pack payload [%d, %d): %w",
			offset, packHeaderSize, len(payload), ErrOutOfBounds)
	}

	cur := NewCursor(payload[offset:])
	objType, size, err := decodeEntryHeader(cur)
	if err != nil {
		return nil, fmt.Errorf("entry at %d: %w", offset, err)
	}

	entry := &PackEntry{Offset: offset, Type: objType, Size: size}
	switch objType {
	case PackOfsDelta:
		distance, err := decodeOfsDeltaDistance(cur)
		if err != nil {
			return nil, fmt.Errorf("entry at %d: %w", offset, err)
		}
		if distance == 0 || distance > offset-packHeaderSize {
			return nil, fmt.Errorf("entry at %d: ofs-delta base distance %d leaves the pack: %w",
				offset, distance, ErrMalformedHeader)
		}
		entry.BaseOffset = offset - distance
	case PackRefDelta:
		raw, err := cur.Slice(p.format.Size())
		if err != nil {
			return nil, fmt.Errorf("entry at %d: ref-delta base hash: %w", offset, err)
		}
		entry.BaseHash = rawToHash(raw)
	}

	// Rest advances the cursor to the end of the buffer, so the header
	// span must be taken first.
	headerLen := cur.Pos()
	data, consumed, err := inflateConsumed(cur.Rest())
	if err != nil {
		return nil, fmt.Errorf("entry at %d: %w", offset, err)
	}
	if uint64(len(data)) != size {
		return nil, fmt.Errorf("entry at %d: inflated to %d bytes, header declares %d: %w",
			offset, len(data), size, ErrSizeMismatch)
	}

	entry.Data = data
	entry.StoredLength = headerLen + consumed
	return entry, nil
}

// Entries scans the whole pack front to back and returns every entry in
// storage order. The entry count must match the header's declaration.
func (p *Pack) Entries() ([]PackEntry, error) {
	payload := p.payload()
	entries := make([]PackEntry, 0, p.Header.NumObjects)

	offset := uint64(packHeaderSize)
	for offset < uint64(len(payload)) {
		entry, err := p.EntryAt(offset)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
		offset += uint64(entry.StoredLength)
	}

	if uint32(len(entries)) != p.Header.NumObjects {
		return nil, fmt.Errorf("pack declares %d objects but stores %d: %w",
			p.Header.NumObjects, len(entries), ErrMalformedHeader)
	}
	return entries, nil
}

// EntryChecksum computes the CRC32 (IEEE, as in pack index v2) over an
// entry's stored bytes.
func (p *Pack) EntryChecksum(entry *PackEntry) uint32 {
	return crc32.ChecksumIEEE(p.data[entry.Offset : entry.Offset+uint64(entry.StoredLength)])
}

// VerifyChecksum recomputes the trailing whole-file checksum.
func (p *Pack) VerifyChecksum() error {
	sum := HashBytes(p.format, p.payload())
	if sum != p.Checksum {
		return fmt.Errorf("pack checksum mismatch: stored %s, computed %s", p.Checksum, sum)
	}
	return nil
}

// decodeEntryHeader reads the variable-length entry header: type tag in
// bits 4-6 of the first byte, size in its low 4 bits, with continuation
// bytes contributing 7 bits each at progressively higher positions.
func decodeEntryHeader(cur *Cursor) (PackObjectType, uint64, error) {
	b, err := cur.Uint8()
	if err != nil {
		return 0, 0, err
	}
	objType := PackObjectType((b >> 4) & 0x7)
	size := uint64(b & 0x0f)
	shift := uint(4)

	for b&0x80 != 0 {
		if shift > 63 {
			return 0, 0, fmt.Errorf("entry size varint overflows 64 bits: %w", ErrMalformedHeader)
		}
		if b, err = cur.Uint8(); err != nil {
			return 0, 0, err
		}
		size |= uint64(b&0x7f) << shift
		shift += 7
	}

	switch objType {
	case PackCommit, PackTree, PackBlob, PackTag, PackOfsDelta, PackRefDelta:
		return objType, size, nil
	}
	return 0, 0, fmt.Errorf("invalid pack entry type %d: %w", objType, ErrMalformedHeader)
}

// decodeOfsDeltaDistance reads the backward-distance encoding used by
// ofs-delta base references. Unlike the size varint this is
// most-significant-group-first, and every continuation step folds in an
// extra +1 so that multi-byte encodings have no redundant forms:
//
//	v = ((v + 1) << 7) | next&0x7f
//
// The decoded distance is subtracted from the delta entry's own offset to
// find its base.
func decodeOfsDeltaDistance(cur *Cursor) (uint64, error) {
	b, err := cur.Uint8()
	if err != nil {
		return 0, err
	}
	distance := uint64(b & 0x7f)
	for b&0x80 != 0 {
		if b, err = cur.Uint8(); err != nil {
			return 0, err
		}
		distance = ((distance + 1) << 7) | uint64(b&0x7f)
	}
	return distance, nil
}
