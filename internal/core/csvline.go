package core

// csvline.go tokenizes and renders single CSV lines.
//
// Files are split on '\n' before tokenizing, so a quoted field can only
// carry an embedded newline when SplitLine is handed the text directly.
// Parsing is permissive: an unterminated quote runs to the end of the line.

import (
	"strings"
	"unicode"
)

// SplitLine splits one CSV line into fields.
//
// Commas inside double quotes are literal and a doubled quote inside a
// quoted section is one literal quote. Whitespace outside quoted sections
// is trimmed. An empty line yields a single empty field.
func SplitLine(line string) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false
	qStart, qEnd := -1, -1

	flush := func() {
		if inQuotes {
			qEnd = b.Len()
		}
		fields = append(fields, trimOutsideQuotes(b.String(), qStart, qEnd))
		b.Reset()
		inQuotes = false
		qStart, qEnd = -1, -1
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			b.WriteByte('"')
			i++
		case c == '"':
			if inQuotes {
				qEnd = b.Len()
			} else if qStart < 0 {
				qStart = b.Len()
			}
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			flush()
		default:
			b.WriteByte(c)
		}
	}
	flush()

	return fields
}

// trimOutsideQuotes trims whitespace except inside the quoted span [qStart, qEnd).
func trimOutsideQuotes(s string, qStart, qEnd int) string {
	if qStart < 0 {
		return strings.TrimSpace(s)
	}
	if qEnd < qStart {
		qEnd = len(s)
	}
	return strings.TrimLeftFunc(s[:qStart], unicode.IsSpace) +
		s[qStart:qEnd] +
		strings.TrimRightFunc(s[qEnd:], unicode.IsSpace)
}

// EscapeField quotes v when it contains a comma, quote or line break,
// doubling any inner quotes. Other values are returned unchanged.
func EscapeField(v string) string {
	if !strings.ContainsAny(v, ",\"\n\r") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// JoinLine escapes each field and joins them with commas.
func JoinLine(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = EscapeField(f)
	}
	return strings.Join(escaped, ",")
}

// isBlankRow reports whether every field is empty after trimming.
func isBlankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
