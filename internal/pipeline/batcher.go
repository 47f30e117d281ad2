package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieman/sieman/internal/parser"
)

// Batcher buffers parsed records and hands them to a flush callback in
// batches, on size or on interval, whichever comes first. The serve
// surface uses it to broadcast records to stream subscribers without
// waking them per record.
type Batcher struct {
	recordCh <-chan parser.Record
	flushFn  func(ctx context.Context, records []parser.Record) error
	logger   zerolog.Logger

	batchSize     int
	flushInterval time.Duration

	mu     sync.Mutex
	buffer []parser.Record
}

// NewBatcher creates a record batcher.
func NewBatcher(
	recordCh <-chan parser.Record,
	flushFn func(ctx context.Context, records []parser.Record) error,
	logger zerolog.Logger,
	batchSize int,
	flushInterval time.Duration,
) *Batcher {
	return &Batcher{
		recordCh:      recordCh,
		flushFn:       flushFn,
		logger:        logger.With().Str("component", "batcher").Logger(),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		buffer:        make([]parser.Record, 0, batchSize),
	}
}

// Run processes records until the input channel closes or the context
// is cancelled. Whatever is buffered at shutdown is flushed.
func (b *Batcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.flush(context.Background())
			return ctx.Err()

		case rec, ok := <-b.recordCh:
			if !ok {
				b.flush(ctx)
				return nil
			}
			b.add(ctx, rec)

		case <-ticker.C:
			b.flush(ctx)
		}
	}
}

func (b *Batcher) add(ctx context.Context, rec parser.Record) {
	b.mu.Lock()
	b.buffer = append(b.buffer, rec)
	shouldFlush := len(b.buffer) >= b.batchSize
	b.mu.Unlock()

	if shouldFlush {
		b.flush(ctx)
	}
}

func (b *Batcher) flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return
	}
	records := b.buffer
	b.buffer = make([]parser.Record, 0, b.batchSize)
	b.mu.Unlock()

	if err := b.flushFn(ctx, records); err != nil {
		b.logger.Error().Err(err).Int("count", len(records)).Msg("Flush failed")
	}
}

// Buffered returns the number of records currently waiting to flush.
func (b *Batcher) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
