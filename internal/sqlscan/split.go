package sqlscan

import "strings"

// Split breaks multi-statement SQL text into individual statements on
// semicolons, respecting comments, quoted literals, and trigger bodies whose
// own statements carry internal semicolons. Returned statements have
// surrounding whitespace and the trailing terminator removed; empty
// statements are dropped.
func Split(text string) []string {
	var stmts []string
	var cur strings.Builder
	var word strings.Builder

	firstWord := true       // next flushed word is the statement's first
	sawCreate := false      // current statement starts with CREATE
	pendingTrigger := false // CREATE ... TRIGGER seen, BEGIN not yet
	bodyDepth := 0          // BEGIN/CASE...END nesting inside a trigger body

	endStatement := func() {
		s := strings.TrimSpace(cur.String())
		cur.Reset()
		if s != "" {
			stmts = append(stmts, s)
		}
		firstWord = true
		sawCreate = false
		pendingTrigger = false
		bodyDepth = 0
	}

	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		switch strings.ToUpper(word.String()) {
		case "CREATE":
			if firstWord {
				// Only a leading CREATE can open a trigger definition.
				sawCreate = true
			}
		case "TRIGGER":
			if sawCreate {
				pendingTrigger = true
			}
		case "BEGIN":
			if pendingTrigger {
				pendingTrigger = false
				bodyDepth = 1
			} else if bodyDepth > 0 {
				bodyDepth++
			}
		case "CASE":
			if bodyDepth > 0 {
				bodyDepth++
			}
		case "END":
			if bodyDepth > 0 {
				bodyDepth--
			}
		}
		firstWord = false
		word.Reset()
	}

	i, n := 0, len(text)
	for i < n {
		c := text[i]
		switch {
		case c == '-' && i+1 < n && text[i+1] == '-':
			flushWord()
			start := i
			for i < n && text[i] != '\n' {
				i++
			}
			cur.WriteString(text[start:i])
		case c == '/' && i+1 < n && text[i+1] == '*':
			flushWord()
			start := i
			i += 2
			for i+1 < n && !(text[i] == '*' && text[i+1] == '/') {
				i++
			}
			if i+1 < n {
				i += 2
			} else {
				i = n
			}
			cur.WriteString(text[start:i])
		case c == '\'' || c == '"' || c == '`':
			flushWord()
			start := i
			i = skipQuoted(text, i, c)
			cur.WriteString(text[start:i])
		case c == '[':
			flushWord()
			start := i
			for i < n && text[i] != ']' {
				i++
			}
			if i < n {
				i++
			}
			cur.WriteString(text[start:i])
		case c == ';':
			flushWord()
			if bodyDepth == 0 {
				endStatement()
			} else {
				cur.WriteByte(c)
			}
			i++
		case isWordByte(c):
			word.WriteByte(c)
			cur.WriteByte(c)
			i++
		default:
			flushWord()
			cur.WriteByte(c)
			i++
		}
	}
	flushWord()
	endStatement()
	return stmts
}
