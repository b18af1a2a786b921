package feeds

import (
	"strings"
	"unicode"
)

// CommentPrefixes mark lines that carry no indicator
var CommentPrefixes = []string{"#", ";", "//", "!"}

// Normalize splits raw feed text into IOC candidates, one per useful line, in
// input order. Duplicates are kept; deduplication happens across feeds.
func Normalize(raw string) []string {
	lines := strings.Split(raw, "\n")
	iocs := make([]string, 0, len(lines))
	for _, line := range lines {
		if ioc, ok := NormalizeLine(line); ok {
			iocs = append(iocs, ioc)
		}
	}
	return iocs
}

// NormalizeLine reduces one line to its indicator. Tabular lines (any
// whitespace or a '|') yield their first whitespace separated column.
func NormalizeLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || isComment(line) {
		return "", false
	}

	if strings.ContainsFunc(line, unicode.IsSpace) || strings.ContainsRune(line, '|') {
		// line is trimmed and non-empty, so there is at least one field
		return strings.Fields(line)[0], true
	}
	return line, true
}

func isComment(line string) bool {
	for _, p := range CommentPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}
