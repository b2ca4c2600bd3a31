package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// DecodeLoose decodes a loose object file: a zlib stream whose inflated
// form is "<type> <decimal-size>\x00<payload>". The payload length must
// match the declared size exactly.
func DecodeLoose(compressed []byte) (*DecodedObject, error) {
	raw, err := Inflate(compressed)
	if err != nil {
		return nil, err
	}

	nul := bytes.IndexByte(raw, 0)
	if nul < 0 {
		return nil, fmt.Errorf("no NUL terminator in loose header: %w", ErrMalformedHeader)
	}
	header := string(raw[:nul])
	payload := raw[nul+1:]

	keyword, sizeField, ok := strings.Cut(header, " ")
	if !ok {
		return nil, fmt.Errorf("loose header %q has no size field: %w", header, ErrMalformedHeader)
	}
	objType, ok := ParseObjectType(keyword)
	if !ok {
		return nil, fmt.Errorf("unknown object type %q: %w", keyword, ErrMalformedHeader)
	}
	size, err := strconv.ParseUint(sizeField, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid size %q in loose header: %w", sizeField, ErrMalformedHeader)
	}

	if uint64(len(payload)) != size {
		return nil, fmt.Errorf("loose payload is %d bytes, header declares %d: %w", len(payload), size, ErrSizeMismatch)
	}

	return &DecodedObject{Type: objType, Size: size, Data: payload}, nil
}
