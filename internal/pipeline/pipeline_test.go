package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieman/sieman/internal/ingest"
	"github.com/sieman/sieman/internal/parser"
)

func TestPipelineFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "auth.log")
	content := "<34>Aug 20 17:02:01 server1 sshd: Failed password for user from 192.168.1.100 port 22 ssh2\nplain informational line\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	pl := New(
		ingest.New("syslog", nil, zerolog.Nop(), nil),
		parser.New("syslog", nil),
		zerolog.Nop(),
		nil,
	)

	var records []parser.Record
	for rec := range pl.Run(context.Background(), path) {
		records = append(records, rec)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first[parser.FieldSyslogFacility] != 4 || first[parser.FieldSyslogSeverity] != 2 {
		t.Errorf("facility/severity = %v/%v, want 4/2",
			first[parser.FieldSyslogFacility], first[parser.FieldSyslogSeverity])
	}
	if first[parser.FieldLogLevel] != parser.LevelError {
		t.Errorf("log_level = %v, want %v", first[parser.FieldLogLevel], parser.LevelError)
	}
	if first[parser.FieldFileSource] != path || first[parser.FieldLineNumber] != 1 {
		t.Errorf("provenance lost: %+v", first)
	}

	second := records[1]
	if _, ok := second[parser.FieldSyslogFacility]; ok {
		t.Error("non-syslog line should not carry syslog fields")
	}
	if second[parser.FieldLogLevel] != parser.LevelInfo {
		t.Errorf("log_level = %v, want %v", second[parser.FieldLogLevel], parser.LevelInfo)
	}
}

func TestPipelineDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "one.log"), []byte("error on node\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "two.log"), []byte("debug trace\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	pl := New(
		ingest.New("generic", nil, zerolog.Nop(), nil),
		parser.New("generic", nil),
		zerolog.Nop(),
		nil,
	)

	var levels []string
	for rec := range pl.Run(context.Background(), dir) {
		levels = append(levels, rec[parser.FieldLogLevel].(string))
	}

	if len(levels) != 2 || levels[0] != parser.LevelError || levels[1] != parser.LevelDebug {
		t.Errorf("levels = %v, want [ERROR DEBUG]", levels)
	}
}

func TestBatcher(t *testing.T) {
	recordCh := make(chan parser.Record, 100)

	var mu sync.Mutex
	var flushed [][]parser.Record
	flushFn := func(ctx context.Context, records []parser.Record) error {
		mu.Lock()
		flushed = append(flushed, records)
		mu.Unlock()
		return nil
	}

	b := NewBatcher(recordCh, flushFn, zerolog.Nop(), 5, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	for i := 0; i < 12; i++ {
		recordCh <- parser.Record{parser.FieldMessage: "event"}
	}

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	flushCount := len(flushed)
	mu.Unlock()

	if flushCount < 2 {
		t.Errorf("expected at least 2 size-triggered flushes, got %d", flushCount)
	}
}

func TestBatcherFlushesOnClose(t *testing.T) {
	recordCh := make(chan parser.Record, 10)

	var mu sync.Mutex
	var total int
	flushFn := func(ctx context.Context, records []parser.Record) error {
		mu.Lock()
		total += len(records)
		mu.Unlock()
		return nil
	}

	// Batch size larger than the record count: only the close flush fires.
	b := NewBatcher(recordCh, flushFn, zerolog.Nop(), 100, time.Minute)

	done := make(chan struct{})
	go func() {
		b.Run(context.Background())
		close(done)
	}()

	for i := 0; i < 3; i++ {
		recordCh <- parser.Record{parser.FieldMessage: "event"}
	}
	close(recordCh)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batcher did not stop after channel close")
	}

	mu.Lock()
	defer mu.Unlock()
	if total != 3 {
		t.Errorf("flushed %d records, want 3", total)
	}
}
