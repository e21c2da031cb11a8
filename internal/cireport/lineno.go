package cireport

import (
	"regexp"
	"strconv"
)

var (
	lineWordPattern  = regexp.MustCompile(`(?i)line (\d+)`)
	lineColonPattern = regexp.MustCompile(`:(\d+):`)
)

// lineNumber finds a source line in error text, trying "line N" before
// ":N:". It returns 0 when neither is present.
func lineNumber(text string) int {
	m := lineWordPattern.FindStringSubmatch(text)
	if m == nil {
		m = lineColonPattern.FindStringSubmatch(text)
	}
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
