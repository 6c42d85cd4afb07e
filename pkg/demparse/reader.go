package demparse

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/golang/snappy"
)

const (
	// Replay files open with an 8 byte magic followed by two uint32 offsets into
	// the trailing summary blocks, 16 bytes total.
	headerSize = 16
	demoMagic  = "PBDEMS2\x00"

	// Demo command bit signalling a snappy compressed frame body.
	flagCompressed = 0x40

	readBufferSize = 2 * 1024 * 1024

	// DefaultMaxFrameSize bounds the allocation for a single frame body. Anything
	// larger is treated as stream corruption rather than a legitimate frame.
	DefaultMaxFrameSize = 64 * 1024 * 1024
)

var (
	ErrInvalidHeader = errors.New("unrecognized replay header")
	ErrFrameTooLarge = errors.New("frame exceeds size limit")
	ErrVarintTooLong = errors.New("malformed varint")
	ErrDecompress    = errors.New("failed to decompress frame body")
)

// Frame is one length-prefixed message read from the outer demo stream. Body is
// decompressed and only valid until the next call to Next.
type Frame struct {
	Cmd  Kind
	Tick uint32
	Body []byte
}

// FrameReader provides sequential access to the framed messages of a replay
// stream. Reads are buffered and bounded per frame; the whole file is never held
// in memory.
type FrameReader struct {
	reader       *bufio.Reader
	buffer       []byte
	maxFrameSize uint32
}

// NewFrameReader validates the stream header and prepares the frame cursor.
// An unreadable or foreign header is the caller's fatal initialization error.
func NewFrameReader(reader io.Reader, maxFrameSize uint32) (*FrameReader, error) {
	if maxFrameSize == 0 {
		maxFrameSize = DefaultMaxFrameSize
	}

	buffered := bufio.NewReaderSize(reader, readBufferSize)

	header := make([]byte, headerSize)
	if _, errHeader := io.ReadFull(buffered, header); errHeader != nil {
		return nil, errors.Join(errHeader, ErrInvalidHeader)
	}

	if !bytes.Equal(header[:len(demoMagic)], []byte(demoMagic)) {
		return nil, ErrInvalidHeader
	}

	return &FrameReader{
		reader:       buffered,
		buffer:       make([]byte, readBufferSize),
		maxFrameSize: maxFrameSize,
	}, nil
}

// Next reads one frame. io.EOF marks the clean end of the stream; a frame cut off
// mid-body surfaces as io.ErrUnexpectedEOF so the caller can keep what it has.
func (r *FrameReader) Next() (Frame, error) {
	command, errCommand := r.readVarInt32()
	if errCommand != nil {
		if errors.Is(errCommand, io.EOF) {
			return Frame{}, io.EOF
		}

		return Frame{}, errCommand
	}

	tick, errTick := r.readVarUint32()
	if errTick != nil {
		return Frame{}, truncated(errTick)
	}

	size, errSize := r.readVarInt32()
	if errSize != nil {
		return Frame{}, truncated(errSize)
	}

	// Pre-game messages arrive before the clock starts.
	if tick == 0xFFFFFFFF {
		tick = 0
	}

	if size < 0 || uint32(size) > r.maxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}

	if int(size) > len(r.buffer) {
		r.buffer = make([]byte, size)
	}

	body := r.buffer[:size]
	if _, errBody := io.ReadFull(r.reader, body); errBody != nil {
		return Frame{}, truncated(errBody)
	}

	if command&flagCompressed != 0 {
		decoded, errDecode := snappy.Decode(nil, body)
		if errDecode != nil {
			return Frame{}, errors.Join(errDecode, ErrDecompress)
		}

		body = decoded
	}

	return Frame{
		Cmd:  Kind(command &^ flagCompressed),
		Tick: tick,
		Body: body,
	}, nil
}

// truncated normalizes an EOF hit inside a frame to io.ErrUnexpectedEOF.
func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}

	return err
}

func (r *FrameReader) readVarInt32() (int32, error) {
	var (
		result int32
		shift  uint
	)

	for {
		value, errByte := r.reader.ReadByte()
		if errByte != nil {
			return 0, errByte
		}

		result |= int32(value&0x7f) << shift
		if value&0x80 == 0 {
			break
		}

		shift += 7
		if shift >= 35 {
			return 0, ErrVarintTooLong
		}
	}

	return result, nil
}

func (r *FrameReader) readVarUint32() (uint32, error) {
	var (
		result uint32
		shift  uint
	)

	for {
		value, errByte := r.reader.ReadByte()
		if errByte != nil {
			return 0, errByte
		}

		result |= uint32(value&0x7f) << shift
		if value&0x80 == 0 {
			break
		}

		shift += 7
		if shift >= 35 {
			return 0, ErrVarintTooLong
		}
	}

	return result, nil
}
