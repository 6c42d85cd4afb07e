package demparse_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/demstat/demstat/pkg/demparse"
)

func TestNewFrameReaderRejectsBadMagic(t *testing.T) {
	data := append([]byte("NOTADEMO"), make([]byte, 8)...)

	_, err := demparse.NewFrameReader(bytes.NewReader(data), 0)
	require.ErrorIs(t, err, demparse.ErrInvalidHeader)
}

func TestNewFrameReaderRejectsShortHeader(t *testing.T) {
	_, err := demparse.NewFrameReader(bytes.NewReader([]byte("PBD")), 0)
	require.ErrorIs(t, err, demparse.ErrInvalidHeader)
}

func TestFrameReaderWalksFrames(t *testing.T) {
	replay := newReplayBuilder().
		frame(demparse.KindFileHeader, 0, []byte{0x01}).
		frame(demparse.KindPacket, 42, []byte{1, 2, 3})

	reader, errReader := demparse.NewFrameReader(replay.reader(), 0)
	require.NoError(t, errReader)

	first, errFirst := reader.Next()
	require.NoError(t, errFirst)
	require.Equal(t, demparse.KindFileHeader, first.Cmd)
	require.Equal(t, uint32(0), first.Tick)
	require.Equal(t, []byte{0x01}, first.Body)

	second, errSecond := reader.Next()
	require.NoError(t, errSecond)
	require.Equal(t, demparse.KindPacket, second.Cmd)
	require.Equal(t, uint32(42), second.Tick)
	require.Equal(t, []byte{1, 2, 3}, second.Body)

	_, errEnd := reader.Next()
	require.ErrorIs(t, errEnd, io.EOF)
}

func TestFrameReaderDecompressesFlaggedFrames(t *testing.T) {
	body := bytes.Repeat([]byte("dota"), 64)
	replay := newReplayBuilder().compressedFrame(demparse.KindPacket, 7, body)

	reader, errReader := demparse.NewFrameReader(replay.reader(), 0)
	require.NoError(t, errReader)

	frame, errFrame := reader.Next()
	require.NoError(t, errFrame)
	require.Equal(t, demparse.KindPacket, frame.Cmd)
	require.Equal(t, body, frame.Body)
}

func TestFrameReaderNormalizesEndSentinelTick(t *testing.T) {
	replay := newReplayBuilder().frame(demparse.KindFileInfo, 0xFFFFFFFF, nil)

	reader, errReader := demparse.NewFrameReader(replay.reader(), 0)
	require.NoError(t, errReader)

	frame, errFrame := reader.Next()
	require.NoError(t, errFrame)
	require.Equal(t, uint32(0), frame.Tick)
}

func TestFrameReaderTruncatedBody(t *testing.T) {
	full := newReplayBuilder().frame(demparse.KindPacket, 1, bytes.Repeat([]byte{7}, 32)).bytes()
	cut := full[:len(full)-10]

	reader, errReader := demparse.NewFrameReader(bytes.NewReader(cut), 0)
	require.NoError(t, errReader)

	_, errNext := reader.Next()
	require.ErrorIs(t, errNext, io.ErrUnexpectedEOF)
}

func TestFrameReaderTruncatedVarint(t *testing.T) {
	full := newReplayBuilder().frame(demparse.KindPacket, 0x0FFFFFFF, bytes.Repeat([]byte{7}, 8)).bytes()

	// Cut inside the tick varint, right after the command byte.
	cut := full[:16+2]

	reader, errReader := demparse.NewFrameReader(bytes.NewReader(cut), 0)
	require.NoError(t, errReader)

	_, errNext := reader.Next()
	require.ErrorIs(t, errNext, io.ErrUnexpectedEOF)
}

func TestFrameReaderEnforcesFrameSizeCap(t *testing.T) {
	replay := newReplayBuilder().frame(demparse.KindPacket, 1, make([]byte, 128))

	reader, errReader := demparse.NewFrameReader(replay.reader(), 64)
	require.NoError(t, errReader)

	_, errNext := reader.Next()
	require.ErrorIs(t, errNext, demparse.ErrFrameTooLarge)
}
