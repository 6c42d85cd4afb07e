package match

import (
	"compress/bzip2"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/demstat/demstat/pkg/demparse"
	"github.com/demstat/demstat/pkg/log"
	"github.com/demstat/demstat/pkg/zstd"
)

var ErrOpenReplay = errors.New("failed to open replay file")

// DefaultOutputSuffix is appended to the stripped replay basename.
const DefaultOutputSuffix = ".json"

// Options control how a single replay is processed.
type Options struct {
	MaxFrameSize uint32
	OutputSuffix string
	Indent       bool
}

// Result reports one processed replay.
type Result struct {
	Record     Record
	OutputPath string
	Truncated  bool
}

// ProcessFile parses one replay and writes its record beside it. Parse level
// faults degrade to a partial record; only an unreadable or unrecognizable
// input and an unwritable output surface as errors.
func ProcessFile(ctx context.Context, inputPath string, opts Options) (Result, error) {
	if opts.OutputSuffix == "" {
		opts.OutputSuffix = DefaultOutputSuffix
	}

	reader, cleanup, errOpen := openReplay(inputPath)
	if errOpen != nil {
		return Result{}, errOpen
	}

	defer cleanup()

	parser, errParser := demparse.NewParserSize(reader, opts.MaxFrameSize)
	if errParser != nil {
		return Result{}, errors.Join(errParser, ErrOpenReplay)
	}

	aggregate := New(inputPath)
	aggregate.Bind(parser)

	truncated := false

	if errParse := parser.Start(ctx); errParse != nil {
		truncated = true

		slog.Warn("Replay ended early, keeping partial record",
			slog.String("replay", inputPath), log.ErrAttr(errParse))
	}

	record := aggregate.Record(time.Now())
	outputPath := OutputPath(inputPath, opts.OutputSuffix)

	if errWrite := record.Write(outputPath, opts.Indent); errWrite != nil {
		return Result{}, errWrite
	}

	return Result{Record: record, OutputPath: outputPath, Truncated: truncated}, nil
}

// openReplay opens the file and stacks a decompressor when the name carries a
// compression extension.
func openReplay(inputPath string) (io.Reader, func(), error) {
	file, errOpen := os.Open(inputPath)
	if errOpen != nil {
		return nil, nil, errors.Join(errOpen, ErrOpenReplay)
	}

	lower := strings.ToLower(inputPath)

	switch {
	case strings.HasSuffix(lower, ".bz2"):
		return bzip2.NewReader(file), func() { log.Closer(file) }, nil
	case strings.HasSuffix(lower, zstd.Extension):
		decoder, errDecoder := zstd.NewReader(file)
		if errDecoder != nil {
			log.Closer(file)

			return nil, nil, errors.Join(errDecoder, ErrOpenReplay)
		}

		return decoder, func() {
			log.Closer(decoder)
			log.Closer(file)
		}, nil
	default:
		return file, func() { log.Closer(file) }, nil
	}
}
