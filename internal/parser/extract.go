package parser

import (
	"strings"
	"time"
)

// ExtractTimestamp finds a timestamp in the message. ISO-8601 is tried
// first and returned verbatim. A syslog-style timestamp ("Aug 20
// 17:02:01") carries no year or zone, so the ingestion wall-clock time
// is returned instead of the literal text. The second return is false
// when neither pattern matches.
func (p *Patterns) ExtractTimestamp(message string) (string, bool) {
	if m := p.timestampISO.FindString(message); m != "" {
		return m, true
	}
	if p.timestampSyslog.MatchString(message) {
		return time.Now().UTC().Format(time.RFC3339), true
	}
	return "", false
}

// ExtractIPAddresses returns the distinct IPv4 and IPv6 addresses found
// in the message, in first-seen order.
func (p *Patterns) ExtractIPAddresses(message string) []string {
	ips := p.ipv4.FindAllString(message, -1)
	ips = append(ips, p.ipv6.FindAllString(message, -1)...)
	return dedup(ips)
}

// ExtractUsers returns the distinct identifiers following a "user:" or
// "user " marker, case-insensitively.
func (p *Patterns) ExtractUsers(message string) []string {
	var users []string
	for _, m := range p.user.FindAllStringSubmatch(message, -1) {
		users = append(users, m[1])
	}
	return dedup(users)
}

// ClassifyLogLevel maps message content to one of the four levels.
// Rules are checked in fixed priority order; the first match wins and
// INFO is the fallback.
func (p *Patterns) ClassifyLogLevel(message string) string {
	lower := strings.ToLower(message)

	switch {
	case p.errorWords.MatchString(message):
		return LevelError
	case p.warningWords.MatchString(message):
		return LevelWarning
	case strings.Contains(lower, "info") || strings.Contains(lower, "information"):
		return LevelInfo
	case strings.Contains(lower, "debug"):
		return LevelDebug
	default:
		return LevelInfo
	}
}

// dedup removes duplicates preserving first-seen order. Returns an
// empty, non-nil slice for empty input so records always carry a list.
func dedup(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
