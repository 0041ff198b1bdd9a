package router

import (
	"regexp"
	"strconv"
	"strings"
)

// digitCount matches a standalone 1-2 digit number: not preceded by '@', a
// letter or another digit, and not followed by a letter or digit. Long digit
// runs (phone numbers) and embedded digits ("gpt4") never match.
var digitCount = regexp.MustCompile(`(?:^|[^@0-9A-Za-z])([0-9]{1,2})(?:[^0-9A-Za-z]|$)`)

// wordCount maps a number word to its value. Matching order is fixed:
// digits first, then Hebrew words, then English words.
type wordCount struct {
	word string
	n    int
}

var hebrewNumbers = []wordCount{
	{"אחת", 1}, {"אחד", 1},
	{"שתיים", 2}, {"שניים", 2}, {"שנים", 2},
	{"שלוש", 3}, {"שלושה", 3},
	{"ארבע", 4}, {"ארבעה", 4},
	{"חמש", 5}, {"חמישה", 5},
	{"שש", 6}, {"שישה", 6},
	{"שבע", 7}, {"שבעה", 7},
	{"שמונה", 8},
	{"תשע", 9}, {"תשעה", 9},
	{"עשר", 10}, {"עשרה", 10},
}

var englishNumbers = []wordCount{
	{"one", 1}, {"two", 2}, {"three", 3}, {"four", 4}, {"five", 5},
	{"six", 6}, {"seven", 7}, {"eight", 8}, {"nine", 9}, {"ten", 10},
}

// ExtractMessageCount extracts the number of messages requested from the
// user's text, e.g. "summarize last 5 messages" or "סכם 3 הודעות".
// Returns 0 when no count is requested; callers treat 0 as "use the default
// window". A returned count is always in [1,100].
func ExtractMessageCount(text string) int {
	if m := digitCount.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 100 {
			return n
		}
	}

	for _, wc := range hebrewNumbers {
		if strings.Contains(text, wc.word) {
			return wc.n
		}
	}

	lower := strings.ToLower(text)
	for _, wc := range englishNumbers {
		if strings.Contains(lower, wc.word) {
			return wc.n
		}
	}

	return 0
}
