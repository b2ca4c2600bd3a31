package object

import "fmt"

// ApplyDelta reconstructs a target object from a fully resolved base and an
// inflated delta instruction stream. The stream opens with two varints, the
// expected base size and the expected result size, followed by copy and
// insert instructions distinguished by the top bit of each opcode byte.
func ApplyDelta(base, delta []byte) ([]byte, error) {
	cur := NewCursor(delta)

	baseSize, err := cur.Varint()
	if err != nil {
		return nil, fmt.Errorf("read delta base size: %v: %w", err, ErrMalformedDeltaStream)
	}
	if baseSize != uint64(len(base)) {
		return nil, fmt.Errorf("delta declares base of %d bytes, have %d: %w",
			baseSize, len(base), ErrDeltaBaseSizeMismatch)
	}
	resultSize, err := cur.Varint()
	if err != nil {
		return nil, fmt.Errorf("read delta result size: %v: %w", err, ErrMalformedDeltaStream)
	}

	out := make([]byte, 0, resultSize)
	for cur.Remaining() > 0 {
		cmd, _ := cur.Uint8()

		if cmd&0x80 != 0 {
			offset, length, err := decodeCopyArgs(cur, cmd)
			if err != nil {
				return nil, err
			}
			if offset+length < offset || offset+length > uint64(len(base)) {
				return nil, fmt.Errorf("delta copy [%d, %d) outside %d-byte base: %w",
					offset, offset+length, len(base), ErrMalformedDeltaStream)
			}
			out = append(out, base[offset:offset+length]...)
			continue
		}

		if cmd == 0 {
			// A zero opcode is reserved; in particular a zero-length
			// insert is not a valid encoding.
			return nil, fmt.Errorf("reserved delta opcode 0: %w", ErrMalformedDeltaStream)
		}
		lit, err := cur.Slice(int(cmd))
		if err != nil {
			return nil, fmt.Errorf("delta insert of %d bytes: %w", cmd, ErrMalformedDeltaStream)
		}
		out = append(out, lit...)
	}

	if uint64(len(out)) != resultSize {
		return nil, fmt.Errorf("delta produced %d bytes, declared %d: %w",
			len(out), resultSize, ErrDeltaResultSizeMismatch)
	}
	return out, nil
}

// decodeCopyArgs reads the variable operands of a copy instruction: the low
// four flag bits of the opcode select which offset bytes follow, the next
// three select length bytes. A length of zero encodes the maximum copy of
// 0x10000 bytes.
func decodeCopyArgs(cur *Cursor, cmd byte) (offset, length uint64, err error) {
	for i := uint(0); i < 4; i++ {
		if cmd&(1<<i) == 0 {
			continue
		}
		b, err := cur.Uint8()
		if err != nil {
			return 0, 0, fmt.Errorf("delta copy offset byte %d: %w", i, ErrMalformedDeltaStream)
		}
		offset |= uint64(b) << (8 * i)
	}
	for i := uint(0); i < 3; i++ {
		if cmd&(0x10<<i) == 0 {
			continue
		}
		b, err := cur.Uint8()
		if err != nil {
			return 0, 0, fmt.Errorf("delta copy length byte %d: %w", i, ErrMalformedDeltaStream)
		}
		length |= uint64(b) << (8 * i)
	}
	if length == 0 {
		length = 0x10000
	}
	return offset, length, nil
}
