package mockprovider

import (
	"hash/fnv"

	"github.com/seantiz/frontier/internal/scenario"
)

// Oracle answers the scenarios of set, getting a deterministic fraction of
// them right and answering "unsure" otherwise. Unknown prompts get
// "I don't know".
func Oracle(set *scenario.Set, accuracy float64) AnswerFunc {
	expected := make(map[string]string, set.Len())
	for _, sc := range set.Scenarios {
		expected[sc.Prompt] = sc.Expected
	}
	return func(prompt string) string {
		want, ok := expected[prompt]
		if !ok {
			return "I don't know"
		}
		h := fnv.New32a()
		h.Write([]byte(prompt))
		if float64(h.Sum32()%1000) < accuracy*1000 {
			return want
		}
		return "unsure"
	}
}
