// Package cireport turns CI test-runner output into tracked bugs.
//
// A report's decoded log is classified by Detect, parsed by the Strategy
// registered for the detected framework, and every resulting Failure is
// materialized as an OPEN bug with source "ci" plus one audit activity.
// Parsing is heuristic: unexpected input yields fewer failures, never an
// error.
package cireport

import "strings"

const (
	TestUnit        = "unit"
	TestIntegration = "integration"
	TestUnknown     = "unknown"

	unknownTest = "Unknown Test"
	unknownFile = "Unknown file"
)

// Failure is one failing test extracted from a CI log. An empty File and a
// zero Line mean the log did not say.
type Failure struct {
	TestName string `json:"testName"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Error    string `json:"error"`
	TestType string `json:"testType"`
}

func testTypeFor(file string) string {
	if strings.Contains(file, "integration") {
		return TestIntegration
	}
	return TestUnit
}
