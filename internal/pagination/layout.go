// Package pagination provides the built-in page layout function. It is a
// deterministic character-budget layout: identical text and font size always
// produce identical pages, which the timing calculator depends on.
package pagination

import (
	"unicode"

	"pageturn/internal/timing"
)

// Layout geometry for the fixed 1920x1080 page view. The budgets are
// expressed in characters so the layout never depends on font metrics.
const (
	lineBudgetPixels = 820
	pageBudgetPixels = 900
	minCharsPerLine  = 24
	minLinesPerPage  = 8
)

type word struct {
	start int // rune offset of first rune
	end   int // rune offset past last rune
}

// New returns a timing.Paginator backed by the character-budget layout.
func New() timing.Paginator {
	return paginate
}

func paginate(text string, fontSize int) (timing.Pagination, error) {
	if fontSize <= 0 {
		fontSize = 18
	}
	charsPerLine := lineBudgetPixels / fontSize
	if charsPerLine < minCharsPerLine {
		charsPerLine = minCharsPerLine
	}
	linesPerPage := pageBudgetPixels / (fontSize + 10)
	if linesPerPage < minLinesPerPage {
		linesPerPage = minLinesPerPage
	}

	words := splitWords(text)
	if len(words) == 0 {
		// An empty chapter still renders as one empty page.
		return timing.Pagination{Pages: [][]timing.Chunk{{}}, TotalPages: 1}, nil
	}

	lines := wrapLines(words, charsPerLine)

	var pages [][]timing.Chunk
	for start := 0; start < len(lines); start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		page := make([]timing.Chunk, end-start)
		copy(page, lines[start:end])
		pages = append(pages, page)
	}

	return timing.Pagination{Pages: pages, TotalPages: len(pages)}, nil
}

// splitWords records the rune-offset span of every whitespace-separated
// token, matching the offset convention used by timing.WordStartIndices.
func splitWords(text string) []word {
	var words []word
	inWord := false
	pos := 0
	start := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				words = append(words, word{start: start, end: pos})
				inWord = false
			}
		} else if !inWord {
			start = pos
			inWord = true
		}
		pos++
	}
	if inWord {
		words = append(words, word{start: start, end: pos})
	}
	return words
}

// wrapLines greedily fills lines up to the character budget. A single word
// longer than the budget occupies a line by itself rather than being split.
func wrapLines(words []word, charsPerLine int) []timing.Chunk {
	var lines []timing.Chunk
	lineStart := -1
	lineEnd := 0
	for _, w := range words {
		if lineStart < 0 {
			lineStart = w.start
			lineEnd = w.end
			continue
		}
		if w.end-lineStart > charsPerLine {
			lines = append(lines, timing.Chunk{StartChar: lineStart, EndChar: lineEnd})
			lineStart = w.start
		}
		lineEnd = w.end
	}
	if lineStart >= 0 {
		lines = append(lines, timing.Chunk{StartChar: lineStart, EndChar: lineEnd})
	}
	return lines
}
