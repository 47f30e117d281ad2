package ingest

import (
	"github.com/rs/zerolog"

	"github.com/sieman/sieman/internal/metrics"
)

// SyslogIngestor reads syslog-style sources. Reading behaves exactly
// like the generic ingestor; the variant additionally carries the
// facility and severity name tables so collaborators working with its
// output can resolve numeric codes without a parser in hand. Field
// extraction itself stays in the parser package.
type SyslogIngestor struct {
	*FileIngestor

	facilityNames map[int]string
	severityNames map[int]string
}

// NewSyslogIngestor creates a syslog-aware ingestor.
func NewSyslogIngestor(opts Options, logger zerolog.Logger, m *metrics.Metrics) *SyslogIngestor {
	return &SyslogIngestor{
		FileIngestor: NewFileIngestor(opts, logger, m),
		facilityNames: map[int]string{
			0: "kernel", 1: "user", 2: "mail", 3: "daemon",
			4: "auth", 5: "syslog", 6: "lpr", 7: "news",
		},
		severityNames: map[int]string{
			0: "emergency", 1: "alert", 2: "critical", 3: "error",
			4: "warning", 5: "notice", 6: "info", 7: "debug",
		},
	}
}

// Name returns the ingestor's kind identifier.
func (s *SyslogIngestor) Name() string {
	return "syslog"
}

// FacilityName resolves a syslog facility code, or "unknown".
func (s *SyslogIngestor) FacilityName(facility int) string {
	if name, ok := s.facilityNames[facility]; ok {
		return name
	}
	return "unknown"
}

// SeverityName resolves a syslog severity code, or "unknown".
func (s *SyslogIngestor) SeverityName(severity int) string {
	if name, ok := s.severityNames[severity]; ok {
		return name
	}
	return "unknown"
}

// WindowsIngestor reads exported Windows event logs. Exports arrive as
// JSON lines or CSV, which the generic reading already handles; the
// variant exists as the registration point for event-log specific
// handling.
type WindowsIngestor struct {
	*FileIngestor
}

// NewWindowsIngestor creates a Windows event log ingestor.
func NewWindowsIngestor(opts Options, logger zerolog.Logger, m *metrics.Metrics) *WindowsIngestor {
	return &WindowsIngestor{FileIngestor: NewFileIngestor(opts, logger, m)}
}

// Name returns the ingestor's kind identifier.
func (w *WindowsIngestor) Name() string {
	return "windows"
}
