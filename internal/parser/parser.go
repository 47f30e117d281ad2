package parser

// Options carries free-form construction options for parsers. Unknown
// keys are ignored; see the Option* constants for recognized overrides.
type Options map[string]any

// Parser turns a raw record into an enriched one. Parse is pure: the
// same input always yields the same output and the input record is
// never modified.
type Parser interface {
	// Name returns the parser's format identifier.
	Name() string

	// Parse returns an enriched copy of the record.
	Parse(rec Record) Record
}

// New creates a parser for the given format kind. Unknown kinds fall
// back to the generic parser rather than failing; heterogeneous log
// sets always get at least base-level extraction.
func New(kind string, opts Options) Parser {
	switch kind {
	case "syslog":
		return NewSyslogParser(opts)
	case "web":
		return NewWebLogParser(opts)
	default:
		return NewGenericParser(opts)
	}
}

// GenericParser applies the shared field extraction to any record. The
// specialized parsers run it first and layer format fields on top.
type GenericParser struct {
	patterns *Patterns
}

// NewGenericParser creates a generic parser. All patterns are compiled
// here, once.
func NewGenericParser(opts Options) *GenericParser {
	return &GenericParser{patterns: newPatterns(opts)}
}

// Name returns the parser's format identifier.
func (p *GenericParser) Name() string {
	return "generic"
}

// Parse enriches a copy of the record with extracted fields. The
// timestamp is filled only when absent; IP addresses, users and log
// level are always recomputed from the message.
func (p *GenericParser) Parse(rec Record) Record {
	out := rec.Clone()
	msg := rec.Message()

	if _, ok := out[FieldTimestamp]; !ok {
		if ts, ok := p.patterns.ExtractTimestamp(msg); ok {
			out[FieldTimestamp] = ts
		}
	}

	out[FieldIPAddresses] = p.patterns.ExtractIPAddresses(msg)
	out[FieldUsers] = p.patterns.ExtractUsers(msg)
	out[FieldLogLevel] = p.patterns.ClassifyLogLevel(msg)

	return out
}
