package scenario

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

var words = []string{
	"orchestra", "lantern", "meridian", "quartz", "harbor", "saffron", "tundra",
	"velvet", "cobalt", "nimbus", "juniper", "falcon", "granite", "ember", "willow",
}

type generator func(r *rand.Rand) (category, prompt, expected string)

var generators = []generator{
	arithmetic,
	reverseWord,
	countLetter,
	nextInSequence,
	hoursToMinutes,
}

// GeneratedSource synthesizes short-answer reasoning scenarios from a seed.
type GeneratedSource struct{}

// Scenarios returns n generated scenarios. The same seed always yields the same slice.
func (GeneratedSource) Scenarios(seed int64, n int) ([]Scenario, error) {
	r := newRand(seed)
	out := make([]Scenario, n)
	for i := range out {
		gen := generators[r.IntN(len(generators))]
		category, prompt, expected := gen(r)
		out[i] = Scenario{
			ID:       fmt.Sprintf("s-%03d", i+1),
			Category: category,
			Prompt:   prompt + " Reply with only the answer.",
			Expected: expected,
		}
	}
	return out, nil
}

func arithmetic(r *rand.Rand) (string, string, string) {
	a, b := r.IntN(900)+100, r.IntN(90)+10
	switch r.IntN(3) {
	case 0:
		return "arithmetic", fmt.Sprintf("Compute %d + %d.", a, b), strconv.Itoa(a + b)
	case 1:
		return "arithmetic", fmt.Sprintf("Compute %d - %d.", a, b), strconv.Itoa(a - b)
	default:
		return "arithmetic", fmt.Sprintf("Compute %d * %d.", a, b), strconv.Itoa(a * b)
	}
}

func reverseWord(r *rand.Rand) (string, string, string) {
	w := words[r.IntN(len(words))]
	b := []byte(w)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return "strings", fmt.Sprintf("Reverse the letters of the word %q.", w), string(b)
}

func countLetter(r *rand.Rand) (string, string, string) {
	w := words[r.IntN(len(words))]
	letter := w[r.IntN(len(w))]
	n := strings.Count(w, string(letter))
	return "strings", fmt.Sprintf("How many times does the letter %q appear in %q?", string(letter), w), strconv.Itoa(n)
}

func nextInSequence(r *rand.Rand) (string, string, string) {
	start, step := r.IntN(50), r.IntN(12)+2
	terms := make([]string, 5)
	for i := range terms {
		terms[i] = strconv.Itoa(start + i*step)
	}
	return "sequences", fmt.Sprintf("What is the next number in the sequence %s?", strings.Join(terms, ", ")), strconv.Itoa(start + 5*step)
}

func hoursToMinutes(r *rand.Rand) (string, string, string) {
	h := r.IntN(47) + 2
	return "units", fmt.Sprintf("How many minutes are in %d hours?", h), strconv.Itoa(h * 60)
}
