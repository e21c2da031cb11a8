package cireport

import (
	"regexp"
	"strings"
)

func init() {
	Register(genericStrategy{})
}

const (
	genericContextLines = 10
	// genericSkipLines is how far the scan jumps past a match so one error
	// block is not reported several times.
	genericSkipLines = 5
)

var (
	genericFilePattern = regexp.MustCompile(`[a-zA-Z0-9_\-/.]+\.(js|py|ts|jsx|tsx)`)
	genericTestPattern = regexp.MustCompile(`(?i)test ([a-zA-Z0-9_]+)`)
)

// genericStrategy is the fallback for unrecognized output. Any line with
// "Error:", "FAIL" or "Failure" starts a failure whose error is that line
// and the following lines, up to genericContextLines in total.
type genericStrategy struct{}

func (genericStrategy) Framework() Framework { return Generic }

func (genericStrategy) Extract(text string) []Failure {
	var failures []Failure
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.Contains(line, "Error:") && !strings.Contains(line, "FAIL") && !strings.Contains(line, "Failure") {
			continue
		}
		errCtx := strings.Join(lines[i:min(i+genericContextLines, len(lines))], "\n")

		file := genericFilePattern.FindString(errCtx)
		if file == "" {
			file = unknownFile
		}
		name := unknownTest
		if m := genericTestPattern.FindStringSubmatch(errCtx); m != nil {
			name = m[1]
		}

		failures = append(failures, Failure{
			TestName: name,
			File:     file,
			Error:    errCtx,
			Line:     lineNumber(errCtx),
			TestType: TestUnknown,
		})
		i += genericSkipLines
	}
	return failures
}
