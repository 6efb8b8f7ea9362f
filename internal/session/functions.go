package session

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Pure string helpers registered on every guarded connection. They take only
// strings and return strings, booleans, or integers; none of them can reach
// the filesystem or the network.

// patternCache bounds repeated regexp compilation when agent SQL applies the
// same pattern across many rows.
var patternCache sync.Map // pattern string -> *regexp.Regexp

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	patternCache.Store(pattern, re)
	return re, nil
}

func regexpLike(pattern, text string) (bool, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}

func regexpExtract(pattern, text string) (string, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return "", err
	}
	return re.FindString(text), nil
}

func wordCount(text string) int64 {
	return int64(len(strings.Fields(text)))
}

func charCount(text string) int64 {
	return int64(utf8.RuneCountInString(text))
}

// registerFunctions installs the helper functions on conn. "regexp" also
// backs SQLite's REGEXP operator.
func registerFunctions(conn *sqlite3.SQLiteConn) error {
	funcs := []struct {
		name string
		impl any
	}{
		{"regexp", regexpLike},
		{"regexp_like", regexpLike},
		{"regexp_extract", regexpExtract},
		{"word_count", wordCount},
		{"char_count", charCount},
	}
	for _, f := range funcs {
		if err := conn.RegisterFunc(f.name, f.impl, true); err != nil {
			return fmt.Errorf("register %s: %w", f.name, err)
		}
	}
	return nil
}
