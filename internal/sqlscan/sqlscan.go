// Package sqlscan is a lightweight lexical scanner over SQLite statement
// text. It is deliberately not a parser: it strips comments and quoted
// literals, splits multi-statement text, classifies write-vs-read statements,
// and flags statement shapes the sandbox refuses to execute. Anything it
// cannot understand it treats conservatively.
package sqlscan

import "strings"

// strip replaces comments and quoted literals with single spaces so that
// later keyword scans cannot be fooled by SQL embedded inside string data.
func strip(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	i, n := 0, len(sql)
	for i < n {
		c := sql[i]
		switch {
		case c == '-' && i+1 < n && sql[i+1] == '-':
			for i < n && sql[i] != '\n' {
				i++
			}
			b.WriteByte(' ')
		case c == '/' && i+1 < n && sql[i+1] == '*':
			i += 2
			for i+1 < n && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			if i+1 < n {
				i += 2
			} else {
				i = n
			}
			b.WriteByte(' ')
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(sql, i, c)
			b.WriteByte(' ')
		case c == '[':
			for i < n && sql[i] != ']' {
				i++
			}
			if i < n {
				i++
			}
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// skipQuoted consumes a quoted region starting at start (which holds the
// opening quote) and returns the index just past the closing quote. Doubled
// quotes inside the region are escapes, not terminators. An unterminated
// region consumes the rest of the input.
func skipQuoted(s string, start int, q byte) int {
	i := start + 1
	for i < len(s) {
		if s[i] == q {
			if i+1 < len(s) && s[i+1] == q {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(s)
}

// tokenize breaks already-stripped SQL into uppercase word tokens and
// single-character punctuation tokens.
func tokenize(stripped string) []string {
	var toks []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			toks = append(toks, strings.ToUpper(word.String()))
			word.Reset()
		}
	}
	for i := 0; i < len(stripped); i++ {
		c := stripped[i]
		if isWordByte(c) {
			word.WriteByte(c)
			continue
		}
		flush()
		switch c {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			// whitespace separates tokens
		default:
			toks = append(toks, string(c))
		}
	}
	flush()
	return toks
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// isWordToken reports whether tok is a word (identifier or keyword) rather
// than punctuation.
func isWordToken(tok string) bool {
	return len(tok) > 0 && isWordByte(tok[0])
}

// skipParens returns the index just past the parenthesized group opening at
// idx, or -1 if the group never closes.
func skipParens(toks []string, idx int) int {
	if idx >= len(toks) || toks[idx] != "(" {
		return -1
	}
	depth := 0
	for ; idx < len(toks); idx++ {
		switch toks[idx] {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return idx + 1
			}
		}
	}
	return -1
}
