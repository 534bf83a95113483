package summary

import "strings"

// Ellipsis marks text cut by Truncate.
const Ellipsis = "..."

// Truncate limits text to maxWords whitespace separated words. When the text
// is cut, the kept words are joined by single spaces and Ellipsis is
// appended. maxWords <= 0 disables truncation.
func Truncate(text string, maxWords int) (string, bool) {
	if maxWords <= 0 {
		return text, false
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text, false
	}
	return strings.Join(words[:maxWords], " ") + Ellipsis, true
}
