package object

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Inflate decompresses a complete zlib stream of unknown final length.
func Inflate(data []byte) ([]byte, error) {
	out, _, err := inflateConsumed(data)
	return out, err
}

// inflateConsumed decompresses the zlib stream at the start of data and
// additionally reports how many compressed bytes it spanned, which is what
// lets a sequential pack scan find the next entry header. bytes.Reader
// implements io.ByteReader, so the decompressor reads exactly the stream
// and nothing past it.
func inflateConsumed(data []byte) ([]byte, int, error) {
	br := bytes.NewReader(data)
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, 0, fmt.Errorf("open zlib stream: %v: %w", err, ErrDecompression)
	}
	out, err := io.ReadAll(zr)
	if err != nil {
		_ = zr.Close()
		return nil, 0, fmt.Errorf("inflate: %v: %w", err, ErrDecompression)
	}
	if err := zr.Close(); err != nil {
		return nil, 0, fmt.Errorf("close zlib stream: %v: %w", err, ErrDecompression)
	}
	return out, len(data) - br.Len(), nil
}
