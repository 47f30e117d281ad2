// Package ingest reads security log sources and produces raw records.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieman/sieman/internal/metrics"
	"github.com/sieman/sieman/internal/parser"
)

// Options carries free-form construction options for ingestors.
type Options map[string]any

// Ingestor produces lazy streams of raw records from files or
// directories. Streams are forward-only and close when the source is
// exhausted, the source fails, or the context is cancelled; the
// underlying file handle is released in every case.
type Ingestor interface {
	// Name returns the ingestor's kind identifier.
	Name() string

	// IngestFile streams the records of a single file. Format is
	// chosen by extension: .json is newline-delimited JSON, .csv is
	// header plus rows, anything else is plain text.
	IngestFile(ctx context.Context, path string) <-chan parser.Record

	// IngestDirectory recursively streams every *.log file under the
	// directory, files in lexicographic path order.
	IngestDirectory(ctx context.Context, path string) <-chan parser.Record
}

// New creates an ingestor for the given kind. Unknown kinds fall back
// to the generic file ingestor rather than failing.
func New(kind string, opts Options, logger zerolog.Logger, m *metrics.Metrics) Ingestor {
	switch kind {
	case "syslog":
		return NewSyslogIngestor(opts, logger, m)
	case "windows":
		return NewWindowsIngestor(opts, logger, m)
	default:
		return NewFileIngestor(opts, logger, m)
	}
}

// FileIngestor is the generic file and directory reader.
type FileIngestor struct {
	opts    Options
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewFileIngestor creates a generic ingestor.
func NewFileIngestor(opts Options, logger zerolog.Logger, m *metrics.Metrics) *FileIngestor {
	return &FileIngestor{
		opts:    opts,
		logger:  logger.With().Str("component", "ingest").Logger(),
		metrics: m,
	}
}

// Name returns the ingestor's kind identifier.
func (g *FileIngestor) Name() string {
	return "generic"
}

// IngestFile streams the records of a single file. A missing file
// logs an error and yields an empty stream; it is never fatal.
func (g *FileIngestor) IngestFile(ctx context.Context, path string) <-chan parser.Record {
	out := make(chan parser.Record)

	go func() {
		defer close(out)

		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				g.logger.Error().Str("path", path).Msg("File not found")
			} else {
				g.logger.Error().Err(err).Str("path", path).Msg("Failed to open file")
				g.metrics.IncReadFailure()
			}
			return
		}
		defer f.Close()

		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			g.readJSON(ctx, f, path, out)
		case ".csv":
			g.readCSV(ctx, f, path, out)
		default:
			g.readText(ctx, f, path, out)
		}
	}()

	return out
}

// IngestDirectory streams every *.log file under the directory. Files
// are visited in lexicographic path order so runs are reproducible.
// Per-file failures never abort sibling files.
func (g *FileIngestor) IngestDirectory(ctx context.Context, path string) <-chan parser.Record {
	out := make(chan parser.Record)

	go func() {
		defer close(out)

		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			g.logger.Error().Str("path", path).Msg("Directory not found")
			return
		}

		var files []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				g.logger.Warn().Err(err).Str("path", p).Msg("Skipping unreadable entry")
				return nil
			}
			if !d.IsDir() && filepath.Ext(p) == ".log" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			g.logger.Error().Err(err).Str("path", path).Msg("Directory walk failed")
			g.metrics.IncReadFailure()
			return
		}
		sort.Strings(files)

		for _, file := range files {
			g.logger.Info().Str("path", file).Msg("Processing file")
			for rec := range g.IngestFile(ctx, file) {
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return out
}

// readJSON streams newline-delimited JSON objects. Blank lines are
// skipped and a line that fails to decode is dropped with a warning;
// ingestion continues at the next line.
func (g *FileIngestor) readJSON(ctx context.Context, r io.Reader, path string, out chan<- parser.Record) {
	scanner := newLineScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec parser.Record
		// A literal "null" line decodes without error but yields no object.
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec == nil {
			g.logger.Warn().
				Err(err).
				Str("path", path).
				Int("line", lineNum).
				Msg("Invalid JSON record, skipping")
			g.metrics.IncMalformed()
			continue
		}

		rec[parser.FieldFileSource] = path
		rec[parser.FieldLineNumber] = lineNum

		if !g.emit(ctx, out, rec) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		g.logger.Error().Err(err).Str("path", path).Msg("Error reading file")
		g.metrics.IncReadFailure()
	}
}

// readCSV streams rows keyed by the header line. Rows with a field
// count mismatch are dropped as malformed; the row index (excluding
// the header) is the record's line number.
func (g *FileIngestor) readCSV(ctx context.Context, r io.Reader, path string, out chan<- parser.Record) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if err != io.EOF {
			g.logger.Error().Err(err).Str("path", path).Msg("Error reading CSV header")
			g.metrics.IncReadFailure()
		}
		return
	}

	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return
		}
		rowNum++
		if err != nil {
			g.logger.Warn().
				Err(err).
				Str("path", path).
				Int("row", rowNum).
				Msg("Invalid CSV row, skipping")
			g.metrics.IncMalformed()
			continue
		}

		rec := make(parser.Record, len(header)+2)
		for i, name := range header {
			if i < len(row) {
				rec[name] = row[i]
			}
		}
		rec[parser.FieldFileSource] = path
		rec[parser.FieldLineNumber] = rowNum

		if !g.emit(ctx, out, rec) {
			return
		}
	}
}

// readText streams non-blank lines as message records. The timestamp
// is the ingestion wall-clock time; a parser may later replace it with
// a value extracted from the message.
func (g *FileIngestor) readText(ctx context.Context, r io.Reader, path string, out chan<- parser.Record) {
	scanner := newLineScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rec := parser.Record{
			parser.FieldMessage:    line,
			parser.FieldTimestamp:  time.Now().UTC().Format(time.RFC3339),
			parser.FieldFileSource: path,
			parser.FieldLineNumber: lineNum,
		}

		if !g.emit(ctx, out, rec) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		g.logger.Error().Err(err).Str("path", path).Msg("Error reading file")
		g.metrics.IncReadFailure()
	}
}

// emit sends a record unless the consumer has gone away.
func (g *FileIngestor) emit(ctx context.Context, out chan<- parser.Record, rec parser.Record) bool {
	select {
	case out <- rec:
		g.metrics.IncIngested()
		return true
	case <-ctx.Done():
		return false
	}
}

const maxLineSize = 1024 * 1024 // 1MB

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return scanner
}
