package cireport

import "strings"

type Framework string

const (
	Jest    Framework = "jest"
	Pytest  Framework = "pytest"
	Generic Framework = "generic"
)

// Detect picks the framework whose signature appears in text:
//
//  1. "FAIL " together with "npm test", "jest" or a "●" test marker line → Jest
//  2. "FAILED " together with "pytest" → Pytest
//  3. anything else → Generic
func Detect(text string) Framework {
	if strings.Contains(text, "FAIL ") &&
		(strings.Contains(text, "npm test") || strings.Contains(text, "jest") || hasJestMarker(text)) {
		return Jest
	}
	if strings.Contains(text, "FAILED ") && strings.Contains(text, "pytest") {
		return Pytest
	}
	return Generic
}

func hasJestMarker(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), jestMarker) {
			return true
		}
	}
	return false
}
