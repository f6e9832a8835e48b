package authority

import "time"

// score is the authoritative scoring state for one participant. The server
// is the only party that computes progress, mistakes, and speed; clients
// only echo what they are told.
type score struct {
	cursor   int
	correct  int
	mistakes int
}

// apply consumes one keystroke against the target text. A correct key
// advances the cursor; a wrong one counts a mistake and leaves the cursor
// in place, matching how the race text is consumed character by character.
func (sc *score) apply(text []rune, key []rune) bool {
	if sc.cursor >= len(text) {
		return false
	}
	if len(key) == 1 && key[0] == text[sc.cursor] {
		sc.cursor++
		sc.correct++
		return true
	}
	sc.mistakes++
	return false
}

func (sc *score) done(text []rune) bool {
	return sc.cursor >= len(text)
}

// progressPct is the percentage of the text consumed, in [0,100].
func (sc *score) progressPct(text []rune) float64 {
	if len(text) == 0 {
		return 0
	}
	return float64(sc.cursor) / float64(len(text)) * 100
}

// accuracyPct is correct keystrokes over total keystrokes, 100 before any
// input.
func (sc *score) accuracyPct() float64 {
	total := sc.correct + sc.mistakes
	if total == 0 {
		return 100
	}
	return float64(sc.correct) / float64(total) * 100
}

// speedWPM is gross words per minute at the conventional five characters
// per word.
func (sc *score) speedWPM(elapsed time.Duration) float64 {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(sc.correct) / 5 / minutes
}
