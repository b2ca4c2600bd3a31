package object

// Test-only writers for the formats the package decodes. Object creation is
// deliberately not part of the library API, so the encoders live here.

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zlib"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("deflate close: %v", err)
	}
	return buf.Bytes()
}

func encodeLoose(t *testing.T, objType ObjectType, data []byte) []byte {
	t.Helper()
	raw := fmt.Appendf(nil, "%s %d\x00", objType, len(data))
	return deflate(t, append(raw, data...))
}

func encodeEntryHeader(objType PackObjectType, size uint64) []byte {
	b := byte(objType&0x7) << 4
	b |= byte(size & 0x0f)
	size >>= 4

	out := make([]byte, 0, 10)
	if size > 0 {
		b |= 0x80
	}
	out = append(out, b)
	for size > 0 {
		next := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			next |= 0x80
		}
		out = append(out, next)
	}
	return out
}

func encodeOfsDistance(distance uint64) []byte {
	out := []byte{byte(distance & 0x7f)}
	for distance >>= 7; distance > 0; distance >>= 7 {
		distance--
		out = append([]byte{byte(distance&0x7f) | 0x80}, out...)
	}
	return out
}

func encodeDeltaVarint(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	out := make([]byte, 0, 10)
	for v > 0 {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// deltaOf builds a reference delta turning base into target: it copies the
// longest shared prefix, inserts the differing middle, and copies the
// longest shared suffix.
func deltaOf(base, target []byte) []byte {
	prefix := 0
	for prefix < len(base) && prefix < len(target) && base[prefix] == target[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(base)-prefix && suffix < len(target)-prefix &&
		base[len(base)-1-suffix] == target[len(target)-1-suffix] {
		suffix++
	}

	var out bytes.Buffer
	out.Write(encodeDeltaVarint(uint64(len(base))))
	out.Write(encodeDeltaVarint(uint64(len(target))))
	writeCopy(&out, 0, prefix)
	for pos := prefix; pos < len(target)-suffix; {
		chunk := len(target) - suffix - pos
		if chunk > 127 {
			chunk = 127
		}
		out.WriteByte(byte(chunk))
		out.Write(target[pos : pos+chunk])
		pos += chunk
	}
	writeCopy(&out, len(base)-suffix, suffix)
	return out.Bytes()
}

func writeCopy(out *bytes.Buffer, offset, length int) {
	if length == 0 {
		return
	}
	cmd := byte(0x80)
	var args []byte
	for i := uint(0); i < 4; i++ {
		if b := byte(offset >> (8 * i)); b != 0 {
			cmd |= 1 << i
			args = append(args, b)
		}
	}
	for i := uint(0); i < 3; i++ {
		if b := byte(length >> (8 * i)); b != 0 {
			cmd |= 0x10 << i
			args = append(args, b)
		}
	}
	out.WriteByte(cmd)
	out.Write(args)
}

// packBuilder assembles a synthetic pack in memory.
type packBuilder struct {
	t      *testing.T
	format ObjectFormat
	buf    bytes.Buffer
	count  uint32
}

func newPackBuilder(t *testing.T, format ObjectFormat) *packBuilder {
	pb := &packBuilder{t: t, format: format}
	pb.buf.Write(packMagic[:])
	_ = binary.Write(&pb.buf, binary.BigEndian, uint32(supportedPackVersion))
	_ = binary.Write(&pb.buf, binary.BigEndian, uint32(0)) // patched in finish
	return pb
}

func (pb *packBuilder) addEntry(objType PackObjectType, data []byte) uint64 {
	offset := uint64(pb.buf.Len())
	pb.buf.Write(encodeEntryHeader(objType, uint64(len(data))))
	pb.buf.Write(deflate(pb.t, data))
	pb.count++
	return offset
}

func (pb *packBuilder) addOfsDelta(baseOffset uint64, delta []byte) uint64 {
	offset := uint64(pb.buf.Len())
	pb.buf.Write(encodeEntryHeader(PackOfsDelta, uint64(len(delta))))
	pb.buf.Write(encodeOfsDistance(offset - baseOffset))
	pb.buf.Write(deflate(pb.t, delta))
	pb.count++
	return offset
}

func (pb *packBuilder) addRefDelta(baseHash Hash, delta []byte) uint64 {
	offset := uint64(pb.buf.Len())
	pb.buf.Write(encodeEntryHeader(PackRefDelta, uint64(len(delta))))
	raw, err := hashToRaw(baseHash, pb.format)
	if err != nil {
		pb.t.Fatalf("ref-delta base hash: %v", err)
	}
	pb.buf.Write(raw)
	pb.buf.Write(deflate(pb.t, delta))
	pb.count++
	return offset
}

func (pb *packBuilder) finish() []byte {
	data := append([]byte(nil), pb.buf.Bytes()...)
	binary.BigEndian.PutUint32(data[8:12], pb.count)
	sum, _ := hashToRaw(HashBytes(pb.format, data), pb.format)
	return append(data, sum...)
}

// buildIndexV2 writes a v2 index for the given entries and pack checksum.
func buildIndexV2(t *testing.T, entries []PackIndexEntry, packChecksum Hash, format ObjectFormat) []byte {
	t.Helper()
	sorted := append([]PackIndexEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hash < sorted[j].Hash })

	var buf bytes.Buffer
	buf.Write(packIndexMagic[:])
	_ = binary.Write(&buf, binary.BigEndian, uint32(2))
	writeFanout(&buf, sorted)
	for _, e := range sorted {
		buf.Write(mustRaw(t, e.Hash, format))
	}
	for _, e := range sorted {
		_ = binary.Write(&buf, binary.BigEndian, e.CRC32)
	}
	var large []uint64
	for _, e := range sorted {
		if e.Offset < uint64(packIndexLargeOffsetBit) {
			_ = binary.Write(&buf, binary.BigEndian, uint32(e.Offset))
			continue
		}
		_ = binary.Write(&buf, binary.BigEndian, packIndexLargeOffsetBit|uint32(len(large)))
		large = append(large, e.Offset)
	}
	for _, off := range large {
		_ = binary.Write(&buf, binary.BigEndian, off)
	}
	buf.Write(mustRaw(t, packChecksum, format))
	buf.Write(mustRaw(t, HashBytes(format, buf.Bytes()), format))
	return buf.Bytes()
}

// buildIndexV1 writes the legacy index layout.
func buildIndexV1(t *testing.T, entries []PackIndexEntry, packChecksum Hash, format ObjectFormat) []byte {
	t.Helper()
	sorted := append([]PackIndexEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hash < sorted[j].Hash })

	var buf bytes.Buffer
	writeFanout(&buf, sorted)
	for _, e := range sorted {
		_ = binary.Write(&buf, binary.BigEndian, uint32(e.Offset))
		buf.Write(mustRaw(t, e.Hash, format))
	}
	buf.Write(mustRaw(t, packChecksum, format))
	buf.Write(mustRaw(t, HashBytes(format, buf.Bytes()), format))
	return buf.Bytes()
}

func writeFanout(buf *bytes.Buffer, sorted []PackIndexEntry) {
	var counts [256]uint32
	for _, e := range sorted {
		raw, _ := hex.DecodeString(string(e.Hash[:2]))
		counts[raw[0]]++
	}
	var total uint32
	for i := 0; i < 256; i++ {
		total += counts[i]
		_ = binary.Write(buf, binary.BigEndian, total)
	}
}

func mustRaw(t *testing.T, h Hash, format ObjectFormat) []byte {
	t.Helper()
	raw, err := hashToRaw(h, format)
	if err != nil {
		t.Fatalf("hash %q: %v", h, err)
	}
	return raw
}

func repeatHex(pair string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += pair
	}
	return out
}

// testLayout is a Layout over a temporary directory with optional
// pre-built pack pairs.
type testLayout struct {
	dir   string
	pairs []PackPair
}

func newTestLayout(t *testing.T) *testLayout {
	return &testLayout{dir: t.TempDir()}
}

func (l *testLayout) LooseObjectPath(h Hash) string {
	return filepath.Join(l.dir, "objects", string(h[:2]), string(h[2:]))
}

func (l *testLayout) PackPairs() ([]PackPair, error) {
	return l.pairs, nil
}

func (l *testLayout) writeLoose(t *testing.T, format ObjectFormat, objType ObjectType, data []byte) Hash {
	t.Helper()
	h := HashObject(format, objType, data)
	path := l.LooseObjectPath(h)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir loose dir: %v", err)
	}
	if err := os.WriteFile(path, encodeLoose(t, objType, data), 0o644); err != nil {
		t.Fatalf("write loose object: %v", err)
	}
	return h
}

func (l *testLayout) writePack(t *testing.T, name string, packData []byte, idxData []byte) {
	t.Helper()
	packDir := filepath.Join(l.dir, "objects", "pack")
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		t.Fatalf("mkdir pack dir: %v", err)
	}
	pair := PackPair{
		IndexPath: filepath.Join(packDir, name+".idx"),
		PackPath:  filepath.Join(packDir, name+".pack"),
	}
	if err := os.WriteFile(pair.PackPath, packData, 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	if err := os.WriteFile(pair.IndexPath, idxData, 0o644); err != nil {
		t.Fatalf("write idx: %v", err)
	}
	l.pairs = append(l.pairs, pair)
}
