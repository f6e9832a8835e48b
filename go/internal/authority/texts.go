package authority

import "math/rand"

// Built-in dictionaries for the reference authority. The production system
// sources texts from user-submitted dictionaries; this server only needs
// enough variety for development and integration tests.
var dictionaries = map[string][]string{
	"default": {
		"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog",
		"pack", "my", "box", "with", "five", "dozen", "liquor", "jugs",
		"how", "vexingly", "daft", "zebras", "jump",
	},
	"code": {
		"func", "return", "struct", "interface", "channel", "select",
		"context", "defer", "goroutine", "slice", "map", "error", "nil",
	},
}

const defaultTextWords = 12

// randomText draws n words from the named dictionary, falling back to the
// default dictionary for unknown ids.
func randomText(dictionaryID string, n int) string {
	words, ok := dictionaries[dictionaryID]
	if !ok {
		words = dictionaries["default"]
	}

	out := make([]byte, 0, n*6)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, words[rand.Intn(len(words))]...)
	}
	return string(out)
}
