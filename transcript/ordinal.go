package transcript

import (
	"fmt"
	"regexp"
	"strconv"
)

// MaxOrdinal bounds the ordinals a label may carry.
const MaxOrdinal = 20

var ordinalPattern = regexp.MustCompile(`(?:^|\D)(\d{1,2})(?:\D|$)`)

// ParseOrdinal extracts the term number from labels such as "3. Term",
// "3. Yarıyıl", "3rd term", "Term 3" or "3".
func ParseOrdinal(label string) (int, bool) {
	m := ordinalPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > MaxOrdinal {
		return 0, false
	}
	return n, true
}

// Label renders the canonical label for a term ordinal.
func Label(ordinal int) string {
	return fmt.Sprintf("%d. Term", ordinal)
}
