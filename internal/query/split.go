// ABOUTME: Splits a SQL script into individual statements
// ABOUTME: Semicolons inside quotes, quoted identifiers and comments do not end a statement

package query

import "strings"

// SplitStatements breaks script on top-level semicolons. Comments are
// dropped and statements that are empty after trimming are skipped.
//
// Trigger bodies (CREATE TRIGGER ... BEGIN ...; END) are not recognised and
// will be split at their inner semicolons.
func SplitStatements(script string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	src := []rune(script)
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			i = copyQuoted(&cur, src, i, c)
		case c == '[':
			i = copyQuoted(&cur, src, i, ']')
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			cur.WriteRune('\n')
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			for i+1 < len(src) && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i++
			cur.WriteRune(' ')
		case c == ';':
			flush()
		default:
			cur.WriteRune(c)
		}
	}
	flush()
	return stmts
}

// copyQuoted writes the quoted run starting at src[start] and returns the
// index of its closing rune. A doubled closing quote is an escape.
func copyQuoted(b *strings.Builder, src []rune, start int, closing rune) int {
	b.WriteRune(src[start])
	for i := start + 1; i < len(src); i++ {
		b.WriteRune(src[i])
		if src[i] != closing {
			continue
		}
		if closing != ']' && i+1 < len(src) && src[i+1] == closing {
			i++
			b.WriteRune(src[i])
			continue
		}
		return i
	}
	return len(src) - 1
}
