package parser

import (
	"strings"
	"unicode"
)

// Clean prepares raw document text for line parsing.
//
// Line breaks survive because both transcript layouts are line-oriented.
// Within a line, runs of whitespace collapse to one space and noise
// characters are dropped. Letters, digits and . : * - ( ) , are kept.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Map(keepRune, line)
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func keepRune(r rune) rune {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
		return r
	case unicode.IsSpace(r):
		return ' '
	case strings.ContainsRune(".:*-(),", r):
		return r
	}
	return -1
}
