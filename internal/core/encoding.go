package core

// encoding.go normalizes uploaded bytes before tokenizing.
//
// Spreadsheet tools commonly prefix UTF-8 CSV with a byte-order mark and
// occasionally emit stray invalid bytes; both are handled here so the
// tokenizer only ever sees clean UTF-8 text.

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// BOM is the UTF-8 byte-order mark prefixed to generated CSV.
const BOM = "\uFEFF"

// DecodeUpload converts raw upload bytes to text, replacing invalid UTF-8
// sequences with U+FFFD and stripping a leading BOM.
func DecodeUpload(data []byte) string {
	return StripBOM(string(sanitizeUTF8(data)))
}

// StripBOM removes a single leading byte-order mark.
func StripBOM(s string) string {
	return strings.TrimPrefix(s, BOM)
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.WriteRune(r)
		}
		data = data[size:]
	}

	return buf.Bytes()
}

// nonBlankLines splits text on '\n' and drops lines that are all whitespace.
func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
