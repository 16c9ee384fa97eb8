package timing

import (
	"fmt"
)

// minPageDuration is the floor applied to every page before normalization so
// degenerate zero-length pages cannot occur.
const minPageDuration = 0.1

// DefaultFlipDuration is the width of a page-turn transition in seconds.
const DefaultFlipDuration = 0.6

// CalculateChapter builds the timing plan for one chapter. The paginator is
// injected so the calculation stays pure; timestamps may be empty, in which
// case the audio duration is distributed evenly across pages as a degraded
// fallback.
func CalculateChapter(paginate Paginator, chapterIndex int, title, text string, stamps []Timestamp, audioDuration float64, fontSize int, flipDuration float64) (ChapterTiming, error) {
	if paginate == nil {
		return ChapterTiming{}, fmt.Errorf("chapter %d: paginator required", chapterIndex)
	}
	if audioDuration <= 0 {
		return ChapterTiming{}, fmt.Errorf("chapter %d: audio duration must be positive, got %v", chapterIndex, audioDuration)
	}
	if flipDuration <= 0 {
		flipDuration = DefaultFlipDuration
	}

	layout, err := paginate(text, fontSize)
	if err != nil {
		return ChapterTiming{}, fmt.Errorf("chapter %d: paginate: %w", chapterIndex, err)
	}
	if len(layout.Pages) == 0 {
		return ChapterTiming{}, fmt.Errorf("chapter %d: pagination produced no pages", chapterIndex)
	}

	var pages []PageTiming
	if len(stamps) == 0 {
		pages = evenPageTimings(layout, audioDuration)
	} else {
		pages = timestampPageTimings(layout, text, stamps)
	}

	applyDurationFloor(pages)
	normalizePages(pages, audioDuration)

	return ChapterTiming{
		ChapterIndex:  chapterIndex,
		ChapterTitle:  title,
		TotalPages:    len(pages),
		AudioDuration: audioDuration,
		Pages:         pages,
		Flips:         flipTransitions(pages, audioDuration, flipDuration),
	}, nil
}

// evenPageTimings distributes the chapter audio evenly across pages. Word
// indices default to 0; this path fires only when no timestamps exist.
func evenPageTimings(layout Pagination, audioDuration float64) []PageTiming {
	count := len(layout.Pages)
	per := audioDuration / float64(count)
	pages := make([]PageTiming, count)
	for i, chunks := range layout.Pages {
		start, end := chunkSpan(chunks)
		pages[i] = PageTiming{
			PageIndex:      i,
			StartTime:      float64(i) * per,
			EndTime:        float64(i+1) * per,
			Duration:       per,
			StartCharIndex: start,
			EndCharIndex:   end,
		}
	}
	return pages
}

// timestampPageTimings maps each page's character range to word indices and
// then to narration times.
func timestampPageTimings(layout Pagination, text string, stamps []Timestamp) []PageTiming {
	starts := WordStartIndices(text)
	last := len(stamps) - 1
	finalEnd := stamps[last].End

	pages := make([]PageTiming, len(layout.Pages))
	for i, chunks := range layout.Pages {
		startChar, endChar := chunkSpan(chunks)

		startWord := WordIndexAtChar(starts, startChar)
		endWord := WordIndexAtChar(starts, endChar)

		startStamp := clampIndex(startWord, last)
		endStamp := clampIndex(endWord, last)

		startTime := stamps[startStamp].Start
		endTime := stamps[endStamp].End
		if endTime > finalEnd {
			endTime = finalEnd
		}

		pages[i] = PageTiming{
			PageIndex:      i,
			StartTime:      startTime,
			EndTime:        endTime,
			Duration:       endTime - startTime,
			StartWordIndex: startWord,
			EndWordIndex:   endWord,
			StartCharIndex: startChar,
			EndCharIndex:   endChar,
		}
	}
	return pages
}

func chunkSpan(chunks []Chunk) (int, int) {
	if len(chunks) == 0 {
		return 0, 0
	}
	return chunks[0].StartChar, chunks[len(chunks)-1].EndChar
}

func clampIndex(idx, max int) int {
	if idx < 0 {
		return 0
	}
	if idx > max {
		return max
	}
	return idx
}

func applyDurationFloor(pages []PageTiming) {
	for i := range pages {
		if pages[i].EndTime-pages[i].StartTime < minPageDuration {
			pages[i].EndTime = pages[i].StartTime + minPageDuration
			pages[i].Duration = minPageDuration
		}
	}
}

// normalizePages forces exact continuity: the first page starts at zero,
// adjacent gaps and overlaps collapse to their midpoint, and the last page
// ends exactly at the audio duration. Durations are recomputed afterward.
func normalizePages(pages []PageTiming, audioDuration float64) {
	if len(pages) == 0 {
		return
	}
	pages[0].StartTime = 0
	for i := 0; i < len(pages)-1; i++ {
		if pages[i].EndTime != pages[i+1].StartTime {
			mid := (pages[i].EndTime + pages[i+1].StartTime) / 2
			pages[i].EndTime = mid
			pages[i+1].StartTime = mid
		}
	}
	pages[len(pages)-1].EndTime = audioDuration
	for i := range pages {
		pages[i].Duration = pages[i].EndTime - pages[i].StartTime
	}
}

// flipTransitions emits one transition per spread boundary, centered on the
// boundary and clamped inside the chapter window.
func flipTransitions(pages []PageTiming, audioDuration, flipDuration float64) []FlipTransition {
	spreads := Spreads(pages)
	if len(spreads) < 2 {
		return nil
	}
	half := flipDuration / 2
	flips := make([]FlipTransition, 0, len(spreads)-1)
	for i := 0; i < len(spreads)-1; i++ {
		boundary := spreads[i].EndTime
		start := boundary - half
		end := boundary + half
		if start < 0 {
			start = 0
			end = flipDuration
		}
		if end > audioDuration {
			end = audioDuration
			start = end - flipDuration
			if start < 0 {
				start = 0
			}
		}
		flips = append(flips, FlipTransition{
			FromPage:  spreads[i].LastPage,
			ToPage:    spreads[i+1].FirstPage,
			StartTime: start,
			EndTime:   end,
			Duration:  end - start,
		})
	}
	return flips
}
