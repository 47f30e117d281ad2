package parser

import (
	"reflect"
	"testing"
	"time"
)

func TestClassifyLogLevel(t *testing.T) {
	p := newPatterns(nil)

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"error keyword", "connection error on port 22", LevelError},
		{"fail keyword", "Failed password for user admin", LevelError},
		{"exception keyword", "unhandled EXCEPTION in handler", LevelError},
		{"critical keyword", "Critical condition detected", LevelError},
		{"warning keyword", "warning: disk almost full", LevelWarning},
		{"warn keyword uppercase", "WARN low memory", LevelWarning},
		{"alert keyword", "alert raised by sensor", LevelWarning},
		{"info substring", "informational notice", LevelInfo},
		{"debug substring", "debug trace enabled", LevelDebug},
		{"debug uppercase", "DEBUG trace enabled", LevelDebug},
		{"no keywords defaults to info", "user session established", LevelInfo},
		{"error beats warning", "error after warning", LevelError},
		{"empty message", "", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ClassifyLogLevel(tt.message); got != tt.want {
				t.Errorf("ClassifyLogLevel(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractIPAddresses(t *testing.T) {
	p := newPatterns(nil)

	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{
			name:    "single IPv4",
			message: "connection from 192.168.1.100 port 22",
			want:    []string{"192.168.1.100"},
		},
		{
			name:    "repeated IPv4 deduplicated",
			message: "10.0.0.1 contacted 10.0.0.2, then 10.0.0.1 again",
			want:    []string{"10.0.0.1", "10.0.0.2"},
		},
		{
			name:    "full-form IPv6",
			message: "src 2001:0db8:0000:0000:0000:ff00:0042:8329 accepted",
			want:    []string{"2001:0db8:0000:0000:0000:ff00:0042:8329"},
		},
		{
			name:    "no addresses",
			message: "nothing to see here",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ExtractIPAddresses(tt.message); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractIPAddresses(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractUsers(t *testing.T) {
	p := newPatterns(nil)

	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{"colon separator", "login for user: alice", []string{"alice"}},
		{"space separator", "session opened for user bob", []string{"bob"}},
		{"case insensitive marker", "USER root authenticated", []string{"root"}},
		{"email identifier", "user: j.doe@example.com logged in", []string{"j.doe@example.com"}},
		{"duplicates removed", "user alice retried, user alice locked", []string{"alice"}},
		{"no user", "kernel panic", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ExtractUsers(tt.message); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractUsers(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestExtractTimestamp(t *testing.T) {
	p := newPatterns(nil)

	t.Run("ISO timestamp returned verbatim", func(t *testing.T) {
		ts, ok := p.ExtractTimestamp("started at 2024-01-15T10:30:00 by scheduler")
		if !ok {
			t.Fatal("ExtractTimestamp() ok = false, want true")
		}
		if ts != "2024-01-15T10:30:00" {
			t.Errorf("ExtractTimestamp() = %v, want 2024-01-15T10:30:00", ts)
		}
	})

	t.Run("syslog timestamp yields processing time", func(t *testing.T) {
		ts, ok := p.ExtractTimestamp("Aug 20 17:02:01 server1 sshd: ready")
		if !ok {
			t.Fatal("ExtractTimestamp() ok = false, want true")
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			t.Fatalf("ExtractTimestamp() returned non-RFC3339 value %q: %v", ts, err)
		}
		if time.Since(parsed) > time.Minute {
			t.Errorf("ExtractTimestamp() = %v, expected a current wall-clock value", ts)
		}
	})

	t.Run("no timestamp", func(t *testing.T) {
		if _, ok := p.ExtractTimestamp("no time here"); ok {
			t.Error("ExtractTimestamp() ok = true, want false")
		}
	})
}

func TestPatternOverrides(t *testing.T) {
	p := newPatterns(Options{
		OptionUserPattern: `account=([a-z]+)`,
	})

	got := p.ExtractUsers("account=carol logged in as user dave")
	if !reflect.DeepEqual(got, []string{"carol"}) {
		t.Errorf("ExtractUsers() with override = %v, want [carol]", got)
	}
}

func TestPatternOverrideInvalidRegexKeepsDefault(t *testing.T) {
	p := newPatterns(Options{
		OptionUserPattern: `([unclosed`,
	})

	got := p.ExtractUsers("session for user alice")
	if !reflect.DeepEqual(got, []string{"alice"}) {
		t.Errorf("ExtractUsers() = %v, want default pattern behavior [alice]", got)
	}
}
