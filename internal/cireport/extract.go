package cireport

// Strategy extracts failures from the full text of one framework's output.
// Implementations must not fail: unparseable input yields no failures.
type Strategy interface {
	Framework() Framework
	Extract(text string) []Failure
}

var strategies = map[Framework]Strategy{}

// Register makes s the strategy used for its framework, replacing any
// previous one.
func Register(s Strategy) {
	strategies[s.Framework()] = s
}

// ExtractFailures detects the framework of text and runs its strategy.
// Frameworks without a registered strategy fall back to Generic.
func ExtractFailures(text string) (Framework, []Failure) {
	fw := Detect(text)
	s, ok := strategies[fw]
	if !ok {
		s = strategies[Generic]
	}
	return fw, s.Extract(text)
}
