package cireport

import "strings"

func init() {
	Register(jestStrategy{})
}

const jestMarker = "●"

// jestStrategy reads Jest output:
//
//	FAIL src/components/__tests__/Login.test.js
//	  ● Login › should handle login failure
//	    expect(received).toBe(expected)
//
// A failure is emitted when the first blank line ends a marker's message.
type jestStrategy struct{}

func (jestStrategy) Framework() Framework { return Jest }

func (jestStrategy) Extract(text string) []Failure {
	var (
		failures   []Failure
		file, test string
		msg        []string
		collecting bool
	)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "FAIL "):
			file = strings.TrimSpace(strings.Replace(line, "FAIL ", "", 1))
			collecting = false
		case strings.HasPrefix(trimmed, jestMarker):
			test = strings.TrimSpace(strings.TrimPrefix(trimmed, jestMarker))
			msg = nil
			collecting = true
		case collecting && trimmed != "":
			msg = append(msg, line)
		case collecting && len(msg) > 0:
			errText := strings.Join(msg, "\n")
			name := test
			if name == "" {
				name = unknownTest
			}
			failures = append(failures, Failure{
				TestName: name,
				File:     file,
				Error:    errText,
				Line:     lineNumber(errText),
				TestType: testTypeFor(file),
			})
			collecting = false
		}
	}
	return failures
}
