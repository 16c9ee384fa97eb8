package timing

import (
	"sort"
	"unicode"
)

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}

// WordStartIndices scans text for word-like tokens (letters, digits,
// apostrophes) and returns the character offset where each begins, in order.
func WordStartIndices(text string) []int {
	starts := make([]int, 0, len(text)/5)
	inWord := false
	pos := 0
	for _, r := range text {
		if isWordRune(r) {
			if !inWord {
				starts = append(starts, pos)
				inWord = true
			}
		} else {
			inWord = false
		}
		pos++
	}
	return starts
}

// WordIndexAtChar returns the index of the last word whose start offset is
// <= pos, clamped to [0, len(starts)-1]. An empty starts slice returns 0.
func WordIndexAtChar(starts []int, pos int) int {
	if len(starts) == 0 {
		return 0
	}
	// Upper bound minus one.
	idx := sort.Search(len(starts), func(i int) bool { return starts[i] > pos }) - 1
	if idx < 0 {
		return 0
	}
	return idx
}

// WordIndexAtTime returns the index of the word whose [Start, End] window
// contains t, otherwise the index of the last word begun before t, or -1
// when t precedes the first word.
func WordIndexAtTime(stamps []Timestamp, t float64) int {
	if len(stamps) == 0 {
		return -1
	}
	// Last word with Start <= t.
	idx := sort.Search(len(stamps), func(i int) bool { return stamps[i].Start > t }) - 1
	if idx < 0 {
		return -1
	}
	return idx
}
