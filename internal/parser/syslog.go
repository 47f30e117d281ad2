package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Syslog field keys added on top of the generic fields.
const (
	FieldSyslogFacility = "syslog_facility"
	FieldSyslogSeverity = "syslog_severity"
	FieldHostname       = "hostname"
	FieldProgram        = "program"
	FieldParsedMessage  = "parsed_message"
)

// SyslogParser decodes RFC3164-style lines:
// <PRI>Mon  D HH:MM:SS hostname program: message
type SyslogParser struct {
	generic *GenericParser
	line    *regexp.Regexp
}

// NewSyslogParser creates a syslog parser.
func NewSyslogParser(opts Options) *SyslogParser {
	return &SyslogParser{
		generic: NewGenericParser(opts),
		line:    regexp.MustCompile(`^<(\d+)>([A-Za-z]{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(\S+)\s+([^\s:]+)(?::|\s)(.*)`),
	}
}

// Name returns the parser's format identifier.
func (p *SyslogParser) Name() string {
	return "syslog"
}

// Parse runs generic extraction, then decodes the syslog envelope. A
// line that is not syslog keeps the generic fields and gains nothing;
// grammar mismatch is the normal path for mixed sources, not an error.
func (p *SyslogParser) Parse(rec Record) Record {
	out := p.generic.Parse(rec)

	m := p.line.FindStringSubmatch(rec.Message())
	if m == nil {
		return out
	}

	priority, err := strconv.Atoi(m[1])
	if err != nil {
		return out
	}

	out[FieldSyslogFacility] = priority / 8
	out[FieldSyslogSeverity] = priority % 8
	out[FieldHostname] = m[3]
	out[FieldProgram] = m[4]
	out[FieldParsedMessage] = strings.TrimSpace(m[5])

	return out
}

var facilityNames = []string{
	"kernel",
	"user",
	"mail",
	"daemon",
	"auth",
	"syslog",
	"lpr",
	"news",
}

var severityNames = []string{
	"emergency",
	"alert",
	"critical",
	"error",
	"warning",
	"notice",
	"info",
	"debug",
}

// FacilityName returns the name for a syslog facility code.
func FacilityName(facility int) string {
	if facility >= 0 && facility < len(facilityNames) {
		return facilityNames[facility]
	}
	return "unknown"
}

// SeverityName returns the name for a syslog severity level.
func SeverityName(severity int) string {
	if severity >= 0 && severity < len(severityNames) {
		return severityNames[severity]
	}
	return "unknown"
}
