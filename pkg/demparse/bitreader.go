package demparse

import (
	"errors"
	"io"
)

var errBitOverread = errors.New("cannot read more than 32 bits at once")

// bitReader walks a packet body at bit granularity, least significant bit
// first, matching the embedded message framing of the demo protocol.
type bitReader struct {
	data []byte
	pos  uint32
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (r *bitReader) remaining() uint32 {
	return uint32(len(r.data))*8 - r.pos
}

func (r *bitReader) readBits(count uint32) (uint32, error) {
	if count > 32 {
		return 0, errBitOverread
	}

	if r.remaining() < count {
		return 0, io.ErrUnexpectedEOF
	}

	var result uint32

	for i := uint32(0); i < count; i++ {
		byteIndex := r.pos / 8
		bitIndex := r.pos % 8
		bit := (r.data[byteIndex] >> bitIndex) & 1
		result |= uint32(bit) << i
		r.pos++
	}

	return result, nil
}

// readUBitVar reads the variable width uint encoding used for embedded message
// type tags: 6 bits, with the top two selecting 0, 4, 8 or 28 extension bits.
func (r *bitReader) readUBitVar() (uint32, error) {
	value, errValue := r.readBits(6)
	if errValue != nil {
		return 0, errValue
	}

	switch value & 48 {
	case 16:
		extra, errExtra := r.readBits(4)
		if errExtra != nil {
			return 0, errExtra
		}

		return (value & 15) | (extra << 4), nil
	case 32:
		extra, errExtra := r.readBits(8)
		if errExtra != nil {
			return 0, errExtra
		}

		return (value & 15) | (extra << 4), nil
	case 48:
		extra, errExtra := r.readBits(28)
		if errExtra != nil {
			return 0, errExtra
		}

		return (value & 15) | (extra << 4), nil
	default:
		return value, nil
	}
}

func (r *bitReader) readVarUint32() (uint32, error) {
	var (
		result uint32
		count  uint32
	)

	for {
		if count >= 5 {
			return 0, ErrVarintTooLong
		}

		value, errByte := r.readBits(8)
		if errByte != nil {
			return 0, errByte
		}

		result |= (value & 0x7f) << (7 * count)
		count++

		if value&0x80 == 0 {
			break
		}
	}

	return result, nil
}

// readBytes extracts count bytes, shifting as needed when the cursor is not
// byte aligned.
func (r *bitReader) readBytes(count int) ([]byte, error) {
	if uint32(count)*8 > r.remaining() {
		return nil, io.ErrUnexpectedEOF
	}

	result := make([]byte, count)

	for i := range count {
		value, errByte := r.readBits(8)
		if errByte != nil {
			return nil, errByte
		}

		result[i] = byte(value)
	}

	return result, nil
}
