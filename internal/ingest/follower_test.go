package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sieman/sieman/internal/parser"
)

func TestFollowerReadsAppendedLines(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	if err := os.WriteFile(logPath, []byte("first\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	positions, err := NewPositionStore(filepath.Join(dir, "positions.json"))
	if err != nil {
		t.Fatalf("NewPositionStore() error = %v", err)
	}

	recordCh := make(chan parser.Record, 16)
	follower := NewFollower(logPath, positions, recordCh, zerolog.Nop(), nil, 10*time.Millisecond, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go follower.Run(ctx)

	rec := waitForRecord(t, recordCh)
	if rec[parser.FieldMessage] != "first" {
		t.Errorf("message = %v, want first", rec[parser.FieldMessage])
	}
	if rec[parser.FieldLineNumber] != 1 {
		t.Errorf("_line_number = %v, want 1", rec[parser.FieldLineNumber])
	}

	// Append after the follower has caught up.
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("second\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	rec = waitForRecord(t, recordCh)
	if rec[parser.FieldMessage] != "second" {
		t.Errorf("message = %v, want second", rec[parser.FieldMessage])
	}
	if rec[parser.FieldLineNumber] != 2 {
		t.Errorf("_line_number = %v, want 2", rec[parser.FieldLineNumber])
	}
}

func TestFollowerResumesFromStoredPosition(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	if err := os.WriteFile(logPath, []byte("old line\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	positions, err := NewPositionStore(filepath.Join(dir, "positions.json"))
	if err != nil {
		t.Fatalf("NewPositionStore() error = %v", err)
	}

	// Pretend a previous run consumed the first line.
	inode, device, err := FileIdentity(logPath)
	if err != nil {
		t.Fatalf("FileIdentity() error = %v", err)
	}
	info, _ := os.Stat(logPath)
	positions.Set(logPath, inode, device, info.Size(), 1)

	recordCh := make(chan parser.Record, 16)
	follower := NewFollower(logPath, positions, recordCh, zerolog.Nop(), nil, 10*time.Millisecond, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go follower.Run(ctx)

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("new line\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	rec := waitForRecord(t, recordCh)
	if rec[parser.FieldMessage] != "new line" {
		t.Errorf("message = %v, want new line (old line already consumed)", rec[parser.FieldMessage])
	}
	if rec[parser.FieldLineNumber] != 2 {
		t.Errorf("_line_number = %v, want 2", rec[parser.FieldLineNumber])
	}
}

func waitForRecord(t *testing.T, ch <-chan parser.Record) parser.Record {
	t.Helper()
	select {
	case rec := <-ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for record")
		return nil
	}
}
