package digest

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Content patterns, checked in priority order: the more specific a pattern,
// the earlier it runs, so a UUID is never reported as hex and a unix
// timestamp never as a bare integer string.
var patternClassifiers = []struct {
	name  string
	match func(string) bool
}{
	{"uuid", reUUID.MatchString},
	{"email", reEmail.MatchString},
	{"url", isURL},
	{"json_object", func(s string) bool { return isJSON(s, '{') }},
	{"json_array", func(s string) bool { return isJSON(s, '[') }},
	{"iso_datetime", reISODateTime.MatchString},
	{"iso_date", reISODate.MatchString},
	{"unix_timestamp", isUnixTimestamp},
	{"base64", isBase64},
	{"hex", isHex},
	{"path", isPath},
}

var (
	reUUID        = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	reEmail       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	reISODate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reISODateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2})?`)
	reBase64      = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	reHex         = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

// classifyPattern returns the first pattern matching more than half of the
// sampled text values, or "" when none dominates.
func classifyPattern(texts []string) string {
	for _, p := range patternClassifiers {
		matches := 0
		for _, s := range texts {
			if p.match(s) {
				matches++
			}
		}
		if 2*matches > len(texts) {
			return p.name
		}
	}
	return ""
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isJSON(s string, lead byte) bool {
	trimmed := strings.TrimSpace(s)
	return len(trimmed) > 1 && trimmed[0] == lead && json.Valid([]byte(trimmed))
}

// isUnixTimestamp matches second-resolution epochs from 2001 through 2286.
func isUnixTimestamp(s string) bool {
	if len(s) != 10 {
		return false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && n >= 1_000_000_000 && n < 10_000_000_000
}

func isBase64(s string) bool {
	return len(s) >= 16 && len(s)%4 == 0 && reBase64.MatchString(s)
}

// isHex requires at least one letter so digit-only ids stay unclassified.
func isHex(s string) bool {
	return len(s) >= 8 && len(s)%2 == 0 && reHex.MatchString(s) &&
		strings.ContainsAny(s, "abcdefABCDEF")
}

func isPath(s string) bool {
	if strings.ContainsAny(s, " \n\t") {
		return false
	}
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "~/") || strings.Count(s, "/") >= 2
}
