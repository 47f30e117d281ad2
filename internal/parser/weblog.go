package parser

import (
	"regexp"
	"strconv"
)

// Web access log field keys added on top of the generic fields.
const (
	FieldClientIP     = "client_ip"
	FieldHTTPMethod   = "http_method"
	FieldURL          = "url"
	FieldHTTPProtocol = "http_protocol"
	FieldStatusCode   = "status_code"
	FieldResponseSize = "response_size"
)

// WebLogParser decodes Common Log Format lines:
// client-ip ident authuser [timestamp] "METHOD url PROTOCOL" status size
type WebLogParser struct {
	generic *GenericParser
	line    *regexp.Regexp
}

// NewWebLogParser creates a web access log parser.
func NewWebLogParser(opts Options) *WebLogParser {
	return &WebLogParser{
		generic: NewGenericParser(opts),
		line:    regexp.MustCompile(`^(\S+) \S+ \S+ \[([^\]]+)\] "(\S+) (\S+) (\S+)" (\d+) (\S+)`),
	}
}

// Name returns the parser's format identifier.
func (p *WebLogParser) Name() string {
	return "web"
}

// Parse runs generic extraction, then decodes the access log fields.
// Non-matching lines keep the generic fields only.
func (p *WebLogParser) Parse(rec Record) Record {
	out := p.generic.Parse(rec)

	m := p.line.FindStringSubmatch(rec.Message())
	if m == nil {
		return out
	}

	status, err := strconv.Atoi(m[6])
	if err != nil {
		return out
	}

	out[FieldClientIP] = m[1]
	out[FieldHTTPMethod] = m[3]
	out[FieldURL] = m[4]
	out[FieldHTTPProtocol] = m[5]
	out[FieldStatusCode] = status
	out[FieldResponseSize] = responseSize(m[7])

	return out
}

// responseSize parses the CLF size field, where "-" means no body.
func responseSize(field string) int {
	if field == "-" {
		return 0
	}
	size, err := strconv.Atoi(field)
	if err != nil {
		return 0
	}
	return size
}
