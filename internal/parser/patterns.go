package parser

import "regexp"

// Patterns is the compiled regular expression bundle shared by all
// extraction helpers. It is built once per parser instance; compiling
// per record would dominate parse cost.
type Patterns struct {
	ipv4            *regexp.Regexp
	ipv6            *regexp.Regexp
	timestampISO    *regexp.Regexp
	timestampSyslog *regexp.Regexp
	user            *regexp.Regexp
	errorWords      *regexp.Regexp
	warningWords    *regexp.Regexp
}

// Option keys recognized by newPatterns. Values must be valid regular
// expressions; an override that fails to compile is ignored and the
// built-in pattern is kept.
const (
	OptionIPv4Pattern = "ipv4_pattern"
	OptionIPv6Pattern = "ipv6_pattern"
	OptionUserPattern = "user_pattern"
)

func newPatterns(opts Options) *Patterns {
	p := &Patterns{
		// No octet-range validation: 999.999.999.999 matches.
		ipv4: regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`),
		// Full-form IPv6 only, no compressed :: support.
		ipv6:            regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){7}[0-9a-fA-F]{1,4}\b`),
		timestampISO:    regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`),
		timestampSyslog: regexp.MustCompile(`\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}`),
		user:            regexp.MustCompile(`(?i)user[:\s]+([a-zA-Z0-9_\-.@]+)`),
		// Substring matches so "Failed" and "failure" classify as ERROR.
		errorWords:   regexp.MustCompile(`(?i)(error|fail|exception|critical)`),
		warningWords: regexp.MustCompile(`(?i)(warn|warning|alert)`),
	}

	p.ipv4 = overridePattern(opts, OptionIPv4Pattern, p.ipv4)
	p.ipv6 = overridePattern(opts, OptionIPv6Pattern, p.ipv6)
	p.user = overridePattern(opts, OptionUserPattern, p.user)

	return p
}

func overridePattern(opts Options, key string, def *regexp.Regexp) *regexp.Regexp {
	expr, ok := opts[key].(string)
	if !ok || expr == "" {
		return def
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return def
	}
	return re
}
