// Package pipeline wires ingestors and parsers into a record stream.
package pipeline

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/sieman/sieman/internal/ingest"
	"github.com/sieman/sieman/internal/metrics"
	"github.com/sieman/sieman/internal/parser"
)

// Pipeline maps a parser over an ingestor's record stream. Parsing is
// a pure per-record transform, so consumers are free to fan the output
// out across workers; the pipeline itself stays sequential.
type Pipeline struct {
	ingestor ingest.Ingestor
	parser   parser.Parser
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// New creates a pipeline from an ingestor and a parser.
func New(ing ingest.Ingestor, p parser.Parser, logger zerolog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		ingestor: ing,
		parser:   p,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		metrics:  m,
	}
}

// Run streams parsed records for the given path. A directory is walked
// for *.log files, anything else is read as a single file. The stream
// closes when the source is exhausted or the context is cancelled.
func (pl *Pipeline) Run(ctx context.Context, path string) <-chan parser.Record {
	var raw <-chan parser.Record
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		raw = pl.ingestor.IngestDirectory(ctx, path)
	} else {
		raw = pl.ingestor.IngestFile(ctx, path)
	}

	out := make(chan parser.Record)
	go func() {
		defer close(out)
		for rec := range raw {
			parsed := pl.parser.Parse(rec)
			pl.metrics.IncParsed(pl.parser.Name())

			select {
			case out <- parsed:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
