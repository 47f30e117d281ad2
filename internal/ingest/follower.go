package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieman/sieman/internal/metrics"
	"github.com/sieman/sieman/internal/parser"
)

// Follower reads a plain-text log file as it grows, surviving rotation
// and truncation, and emits raw records on a channel. Positions are
// persisted through a PositionStore so a restarted follower resumes
// where it left off.
type Follower struct {
	path      string
	positions *PositionStore
	recordCh  chan<- parser.Record
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	file   *os.File
	reader *bufio.Reader
	inode  uint64
	device uint64
	offset int64
	line   int

	pollInterval time.Duration
	startFromEnd bool
}

// NewFollower creates a follower for a single file.
func NewFollower(
	path string,
	positions *PositionStore,
	recordCh chan<- parser.Record,
	logger zerolog.Logger,
	m *metrics.Metrics,
	pollInterval time.Duration,
	startFromEnd bool,
) *Follower {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Follower{
		path:         path,
		positions:    positions,
		recordCh:     recordCh,
		logger:       logger.With().Str("component", "follower").Str("path", path).Logger(),
		metrics:      m,
		pollInterval: pollInterval,
		startFromEnd: startFromEnd,
	}
}

// Run polls the file until the context is cancelled.
func (f *Follower) Run(ctx context.Context) error {
	f.logger.Info().Msg("Starting follower")
	defer f.logger.Info().Msg("Follower stopped")

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.close()
			return ctx.Err()
		case <-ticker.C:
			if err := f.poll(ctx); err != nil {
				f.logger.Error().Err(err).Msg("Poll error")
			}
		}
	}
}

// poll checks for new data and reads available lines.
func (f *Follower) poll(ctx context.Context) error {
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist yet, close if open and wait.
			if f.file != nil {
				f.close()
			}
			return nil
		}
		return fmt.Errorf("stat file: %w", err)
	}

	inode, device, err := FileIdentity(f.path)
	if err != nil {
		return fmt.Errorf("get file identity: %w", err)
	}

	// Rotation: same path, different file.
	if f.file != nil && (inode != f.inode || device != f.device) {
		f.logger.Info().
			Uint64("old_inode", f.inode).
			Uint64("new_inode", inode).
			Msg("File rotation detected")
		f.close()
		f.line = 0
	}

	if f.file == nil {
		if err := f.open(inode, device, info.Size()); err != nil {
			return fmt.Errorf("open file: %w", err)
		}
	}

	// Truncation: size shrank below our offset.
	if info.Size() < f.offset {
		f.logger.Info().
			Int64("old_offset", f.offset).
			Int64("new_size", info.Size()).
			Msg("File truncation detected")
		f.offset = 0
		f.line = 0
		if _, err := f.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek to start: %w", err)
		}
		f.reader.Reset(f.file)
	}

	return f.readLines(ctx)
}

// open opens the file and positions to the stored or configured offset.
func (f *Follower) open(inode, device uint64, size int64) error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}

	var offset int64
	var line int
	if pos := f.positions.Get(f.path, inode, device); pos != nil {
		offset = pos.Offset
		line = pos.Line
		f.logger.Debug().Int64("offset", offset).Msg("Resuming from stored position")
	} else if f.startFromEnd {
		offset = size
		f.logger.Debug().Int64("offset", offset).Msg("Starting from end of file")
	}

	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			file.Close()
			return fmt.Errorf("seek: %w", err)
		}
	}

	f.file = file
	f.reader = bufio.NewReaderSize(file, 64*1024)
	f.inode = inode
	f.device = device
	f.offset = offset
	f.line = line

	f.logger.Info().
		Uint64("inode", inode).
		Int64("offset", offset).
		Msg("File opened")

	return nil
}

// readLines drains all complete lines currently available.
func (f *Follower) readLines(ctx context.Context) error {
	read := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := f.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if read > 0 {
					f.positions.Set(f.path, f.inode, f.device, f.offset, f.line)
				}
				return nil
			}
			f.metrics.IncReadFailure()
			return fmt.Errorf("read line: %w", err)
		}

		f.offset += int64(len(raw))
		f.line++

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		rec := parser.Record{
			parser.FieldMessage:    line,
			parser.FieldTimestamp:  time.Now().UTC().Format(time.RFC3339),
			parser.FieldFileSource: f.path,
			parser.FieldLineNumber: f.line,
		}

		select {
		case f.recordCh <- rec:
			f.metrics.IncIngested()
			read++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close saves the final position and releases the file handle.
func (f *Follower) close() {
	if f.file != nil {
		f.positions.Set(f.path, f.inode, f.device, f.offset, f.line)
		f.file.Close()
		f.file = nil
		f.reader = nil
		f.logger.Debug().Int64("final_offset", f.offset).Msg("File closed")
	}
}
