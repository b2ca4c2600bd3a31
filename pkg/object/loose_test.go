package object

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeLooseRoundTrip(t *testing.T) {
	tests := []struct {
		objType ObjectType
		data    []byte
	}{
		{TypeBlob, []byte("hello world\n")},
		{TypeBlob, nil},
		{TypeCommit, []byte("tree 0000\n\nmessage\n")},
		{TypeTag, []byte("object 0000\ntype commit\n")},
		{TypeTree, []byte{0x31, 0x30, 0x30, 0x36, 0x34, 0x34, ' ', 'f', 0x00, 1, 2, 3}},
	}
	for _, tc := range tests {
		obj, err := DecodeLoose(encodeLoose(t, tc.objType, tc.data))
		if err != nil {
			t.Fatalf("DecodeLoose(%s): %v", tc.objType, err)
		}
		if obj.Type != tc.objType {
			t.Fatalf("type = %s, want %s", obj.Type, tc.objType)
		}
		if obj.Size != uint64(len(tc.data)) {
			t.Fatalf("size = %d, want %d", obj.Size, len(tc.data))
		}
		if !bytes.Equal(obj.Data, tc.data) {
			t.Fatalf("payload mismatch: got %q want %q", obj.Data, tc.data)
		}
	}
}

func TestDecodeLooseRejectsCorruptStream(t *testing.T) {
	if _, err := DecodeLoose([]byte("not zlib at all")); !errors.Is(err, ErrDecompression) {
		t.Fatalf("err = %v, want ErrDecompression", err)
	}

	good := encodeLoose(t, TypeBlob, []byte("payload"))
	truncated := good[:len(good)-3]
	if _, err := DecodeLoose(truncated); !errors.Is(err, ErrDecompression) {
		t.Fatalf("truncated stream: err = %v, want ErrDecompression", err)
	}
}

func TestDecodeLooseRejectsMalformedHeaders(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown keyword", "sprocket 3\x00abc"},
		{"missing nul", "blob 3 abc"},
		{"missing size", "blob\x00abc"},
		{"negative size", "blob -3\x00abc"},
		{"non-decimal size", "blob 3a\x00abc"},
	}
	for _, tc := range tests {
		if _, err := DecodeLoose(deflate(t, []byte(tc.raw))); !errors.Is(err, ErrMalformedHeader) {
			t.Fatalf("%s: err = %v, want ErrMalformedHeader", tc.name, err)
		}
	}
}

func TestDecodeLooseRejectsSizeMismatch(t *testing.T) {
	if _, err := DecodeLoose(deflate(t, []byte("blob 5\x00abc"))); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("short payload: err = %v, want ErrSizeMismatch", err)
	}
	if _, err := DecodeLoose(deflate(t, []byte("blob 2\x00abc"))); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("long payload: err = %v, want ErrSizeMismatch", err)
	}
}
