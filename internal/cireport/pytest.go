package cireport

import "strings"

func init() {
	Register(pytestStrategy{})
}

// pytestStrategy reads the short test summary lines of pytest:
//
//	FAILED tests/test_auth.py::test_login - AssertionError: expected 200, got 401
//
// Lines without the " - " separator are skipped. pytest tracebacks are not
// parsed, so Line is always zero.
type pytestStrategy struct{}

func (pytestStrategy) Framework() Framework { return Pytest }

func (pytestStrategy) Extract(text string) []Failure {
	var failures []Failure
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "FAILED ") {
			continue
		}
		info, msg, ok := strings.Cut(line, " - ")
		if !ok {
			continue
		}
		info = strings.TrimSpace(strings.Replace(info, "FAILED ", "", 1))
		file, name, _ := strings.Cut(info, "::")
		if name == "" {
			name = unknownTest
		}
		failures = append(failures, Failure{
			TestName: name,
			File:     file,
			Error:    strings.TrimSpace(msg),
			TestType: testTypeFor(file),
		})
	}
	return failures
}
