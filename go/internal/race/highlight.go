package race

// CharMark classifies one character of the target text against the local
// input buffer. This is the optimistic, zero-latency feedback path; the
// authority's Update frames remain the only truth for scoring.
type CharMark int

const (
	MarkPending CharMark = iota
	MarkCorrect
	MarkWrong
)

// Highlight compares typed input against the target text index-wise and
// returns one mark per text rune.
func Highlight(text, typed string) []CharMark {
	textRunes := []rune(text)
	typedRunes := []rune(typed)

	marks := make([]CharMark, len(textRunes))
	for i := range textRunes {
		if i >= len(typedRunes) {
			marks[i] = MarkPending
			continue
		}
		if typedRunes[i] == textRunes[i] {
			marks[i] = MarkCorrect
		} else {
			marks[i] = MarkWrong
		}
	}
	return marks
}
