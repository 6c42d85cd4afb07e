// Package batch runs the replay pipeline over every replay under a directory
// with a bounded worker pool, then writes a run report next to the inputs.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/demstat/demstat/internal/match"
	"github.com/demstat/demstat/pkg/fp"
	"github.com/demstat/demstat/pkg/fs"
	"github.com/demstat/demstat/pkg/json"
	"github.com/demstat/demstat/pkg/log"
	"github.com/dustin/go-humanize"
	"github.com/gofrs/uuid/v5"
	"github.com/maruel/natural"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoReplays   = errors.New("no replay files found")
	ErrAllFailed   = errors.New("no replay could be parsed")
	ErrBatchID     = errors.New("failed to generate batch id")
	ErrWriteReport = errors.New("failed to write batch report")
)

// defaultWorkerCap keeps small runs from saturating every core, replay
// parsing is allocation heavy.
const defaultWorkerCap = 4

type Options struct {
	// Workers caps concurrent parses. Zero selects min(defaultWorkerCap, NumCPU).
	Workers int
	Match   match.Options
}

// FileStatus is the outcome for a single replay within the run.
//
//nolint:tagliatelle
type FileStatus struct {
	Input     string `json:"input"`
	Output    string `json:"output,omitempty"`
	SizeBytes int64  `json:"sizeBytes"`
	Truncated bool   `json:"truncated"`
	Error     string `json:"error,omitempty"`
}

//nolint:tagliatelle
type Report struct {
	BatchID    uuid.UUID    `json:"batchId"`
	Root       string       `json:"root"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Parsed     int          `json:"parsed"`
	Failed     int          `json:"failed"`
	TotalBytes int64        `json:"totalBytes"`
	Files      []FileStatus `json:"files"`
}

// ReportPath is where Run writes the report for this batch, inside the
// scanned directory.
func (r *Report) ReportPath(root string) string {
	return filepath.Join(root, fmt.Sprintf("batch_report_%s.json", r.BatchID))
}

func (r *Report) write(reportPath string) error {
	file, errCreate := os.Create(reportPath)
	if errCreate != nil {
		return errors.Join(errCreate, ErrWriteReport)
	}

	defer log.Closer(file)

	if errEncode := json.Encode(file, r, true); errEncode != nil {
		return errors.Join(errEncode, ErrWriteReport)
	}

	return nil
}

func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}

	return min(defaultWorkerCap, runtime.NumCPU())
}

// Run discovers replays under root and parses them concurrently. A replay
// that fails is recorded in the report without stopping the rest. The error
// return is reserved for empty input sets, full failure and an unwritable
// report.
func Run(ctx context.Context, root string, opts Options) (*Report, error) {
	replays, errFind := fs.FindReplays(root)
	if errFind != nil {
		return nil, errFind
	}

	if len(replays) == 0 {
		return nil, ErrNoReplays
	}

	batchID, errID := uuid.NewV4()
	if errID != nil {
		return nil, errors.Join(errID, ErrBatchID)
	}

	report := &Report{
		BatchID:   batchID,
		Root:      root,
		StartedAt: time.Now(),
		Files:     make([]FileStatus, 0, len(replays)),
	}

	slog.Info("Starting batch",
		slog.String("batch_id", batchID.String()),
		slog.String("root", root),
		slog.Int("replays", len(replays)),
		slog.Int("workers", workerCount(opts.Workers)))

	var mutex sync.Mutex

	pool, poolCtx := errgroup.WithContext(ctx)
	pool.SetLimit(workerCount(opts.Workers))

	for _, replayPath := range replays {
		pool.Go(func() error {
			if errCtx := poolCtx.Err(); errCtx != nil {
				return errCtx
			}

			status := parseOne(poolCtx, replayPath, opts.Match)

			mutex.Lock()
			report.Files = append(report.Files, status)
			mutex.Unlock()

			return nil
		})
	}

	if errWait := pool.Wait(); errWait != nil {
		return nil, errWait
	}

	report.FinishedAt = time.Now()

	sort.Slice(report.Files, func(i, j int) bool {
		return natural.Less(report.Files[i].Input, report.Files[j].Input)
	})

	var parsedSizes []int64

	for _, file := range report.Files {
		if file.Error != "" {
			report.Failed++

			continue
		}

		report.Parsed++
		report.TotalBytes += file.SizeBytes
		parsedSizes = append(parsedSizes, file.SizeBytes)
	}

	if errWrite := report.write(report.ReportPath(root)); errWrite != nil {
		return nil, errWrite
	}

	slog.Info("Batch complete",
		slog.String("batch_id", batchID.String()),
		slog.Int("parsed", report.Parsed),
		slog.Int("failed", report.Failed),
		slog.String("total_size", humanize.Bytes(uint64(report.TotalBytes))), //nolint:gosec
		slog.String("avg_size", humanize.Bytes(uint64(fp.Avg(parsedSizes)))), //nolint:gosec
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	if report.Parsed == 0 {
		return report, ErrAllFailed
	}

	return report, nil
}

func parseOne(ctx context.Context, replayPath string, opts match.Options) FileStatus {
	status := FileStatus{Input: replayPath}

	if info, errStat := os.Stat(replayPath); errStat == nil {
		status.SizeBytes = info.Size()
	}

	result, errProcess := match.ProcessFile(ctx, replayPath, opts)
	if errProcess != nil {
		status.Error = errProcess.Error()

		slog.Error("Failed to parse replay", slog.String("path", replayPath), log.ErrAttr(errProcess))

		return status
	}

	status.Output = result.OutputPath
	status.Truncated = result.Truncated

	slog.Debug("Parsed replay",
		slog.String("path", replayPath),
		slog.String("size", humanize.Bytes(uint64(status.SizeBytes))), //nolint:gosec
		slog.Bool("truncated", result.Truncated))

	return status
}
