package scenario

import "strings"

// Scorer decides whether a model answer is correct for a scenario.
type Scorer func(sc Scenario, answer string) bool

// Score accepts an answer equal to the expected one after normalization, or one
// whose final token matches it ("The answer is 42.").
func Score(sc Scenario, answer string) bool {
	want := normalize(sc.Expected)
	got := normalize(answer)
	if want == "" || got == "" {
		return false
	}
	if got == want {
		return true
	}
	fields := strings.Fields(got)
	return normalize(fields[len(fields)-1]) == want
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "answer:")
	s = strings.TrimSpace(s)
	return strings.Trim(s, " .,!*\"'`")
}
