// Package parser extracts structured fields from raw security log records.
package parser

// Well-known record keys. Provenance keys are prefixed with an underscore
// so they never collide with fields decoded from JSON or CSV sources.
const (
	FieldMessage     = "message"
	FieldTimestamp   = "timestamp"
	FieldIPAddresses = "ip_addresses"
	FieldUsers       = "users"
	FieldLogLevel    = "log_level"

	FieldFileSource = "_file_source"
	FieldLineNumber = "_line_number"
)

// Log level classification values. INFO is the default when nothing
// in the message indicates otherwise.
const (
	LevelError   = "ERROR"
	LevelWarning = "WARNING"
	LevelInfo    = "INFO"
	LevelDebug   = "DEBUG"
)

// Record is a single log record flowing through the pipeline. Ingestors
// produce records carrying at least the provenance keys, parsers return
// enriched copies and never mutate their input.
type Record map[string]any

// Message returns the raw message field, or "" when absent.
func (r Record) Message() string {
	msg, _ := r[FieldMessage].(string)
	return msg
}

// Clone returns a shallow copy of the record. Parsers work on a clone so
// the ingested record stays untouched.
func (r Record) Clone() Record {
	out := make(Record, len(r)+4)
	for k, v := range r {
		out[k] = v
	}
	return out
}
