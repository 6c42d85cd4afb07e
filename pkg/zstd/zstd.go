package zstd

import (
	"errors"
	"io"

	"github.com/klauspost/compress/zstd"
)

const Extension = ".zst"

var ErrDecompress = errors.New("failed to open zstd stream")

// NewReader wraps a compressed stream in a streaming decompressor. The returned
// reader owns the decoder and must be closed by the caller.
func NewReader(reader io.Reader) (io.ReadCloser, error) {
	decoder, errDecoder := zstd.NewReader(reader)
	if errDecoder != nil {
		return nil, errors.Join(errDecoder, ErrDecompress)
	}

	return decoder.IOReadCloser(), nil
}
