package timing

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

// wordText builds "w000 w001 ..." with n five-character words separated by
// single spaces, plus evenly spread timestamps covering duration seconds.
func wordText(n int, duration float64) (string, []Timestamp) {
	words := make([]string, n)
	stamps := make([]Timestamp, n)
	per := duration / float64(n)
	for i := 0; i < n; i++ {
		words[i] = fmt.Sprintf("w%03d", i)
		stamps[i] = Timestamp{
			Word:  words[i],
			Start: float64(i) * per,
			End:   float64(i+1) * per,
		}
	}
	return strings.Join(words, " "), stamps
}

// evenPaginator splits the text into pageCount pages of equal character
// ranges, one chunk per page.
func evenPaginator(pageCount int) Paginator {
	return func(text string, fontSize int) (Pagination, error) {
		total := len(text)
		per := total / pageCount
		pages := make([][]Chunk, pageCount)
		for i := 0; i < pageCount; i++ {
			start := i * per
			end := (i + 1) * per
			if i == pageCount-1 {
				end = total
			}
			pages[i] = []Chunk{{StartChar: start, EndChar: end}}
		}
		return Pagination{Pages: pages, TotalPages: pageCount}, nil
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCalculateChapterContinuity(t *testing.T) {
	text, stamps := wordText(200, 60)
	ch, err := CalculateChapter(evenPaginator(5), 0, "One", text, stamps, 60, 18, 0.6)
	if err != nil {
		t.Fatal(err)
	}

	if len(ch.Pages) != 5 {
		t.Fatalf("expected 5 pages, got %d", len(ch.Pages))
	}
	if !approx(ch.Pages[0].StartTime, 0) {
		t.Fatalf("first page start = %v, want 0", ch.Pages[0].StartTime)
	}
	if !approx(ch.Pages[len(ch.Pages)-1].EndTime, 60) {
		t.Fatalf("last page end = %v, want 60", ch.Pages[len(ch.Pages)-1].EndTime)
	}
	for i := 0; i < len(ch.Pages)-1; i++ {
		if ch.Pages[i].EndTime != ch.Pages[i+1].StartTime {
			t.Fatalf("page %d end %v != page %d start %v", i, ch.Pages[i].EndTime, i+1, ch.Pages[i+1].StartTime)
		}
	}
	for i, page := range ch.Pages {
		if !approx(page.Duration, page.EndTime-page.StartTime) {
			t.Fatalf("page %d duration %v inconsistent with window [%v,%v]", i, page.Duration, page.StartTime, page.EndTime)
		}
		if page.Duration <= 0 {
			t.Fatalf("page %d has non-positive duration %v", i, page.Duration)
		}
	}
}

func TestCalculateChapterDegradedFallback(t *testing.T) {
	ch, err := CalculateChapter(evenPaginator(3), 2, "Silent", strings.Repeat("x ", 90), nil, 30, 18, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(ch.Pages))
	}
	for i, page := range ch.Pages {
		if !approx(page.Duration, 10) {
			t.Fatalf("page %d duration = %v, want 10", i, page.Duration)
		}
		if page.StartWordIndex != 0 || page.EndWordIndex != 0 {
			t.Fatalf("page %d word indices = (%d,%d), want (0,0)", i, page.StartWordIndex, page.EndWordIndex)
		}
	}
}

func TestFlipTransitionsSixPages(t *testing.T) {
	text, stamps := wordText(300, 90)
	ch, err := CalculateChapter(evenPaginator(6), 0, "Spreads", text, stamps, 90, 18, 0.6)
	if err != nil {
		t.Fatal(err)
	}

	if len(ch.Flips) != 2 {
		t.Fatalf("expected 2 transitions for 3 spreads, got %d", len(ch.Flips))
	}
	spreads := Spreads(ch.Pages)
	for i, flip := range ch.Flips {
		if !approx(flip.Duration, 0.6) {
			t.Fatalf("flip %d duration = %v, want 0.6", i, flip.Duration)
		}
		boundary := spreads[i].EndTime
		if !approx(boundary-flip.StartTime, flip.EndTime-boundary) {
			t.Fatalf("flip %d not symmetric around %v: [%v,%v]", i, boundary, flip.StartTime, flip.EndTime)
		}
		if flip.FromPage != spreads[i].LastPage || flip.ToPage != spreads[i+1].FirstPage {
			t.Fatalf("flip %d pages = (%d,%d), want (%d,%d)", i, flip.FromPage, flip.ToPage, spreads[i].LastPage, spreads[i+1].FirstPage)
		}
	}
}

func TestCalculateChapterSinglePageNoFlips(t *testing.T) {
	text, stamps := wordText(40, 12)
	ch, err := CalculateChapter(evenPaginator(1), 0, "Short", text, stamps, 12, 18, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.Flips) != 0 {
		t.Fatalf("single page chapter should have no flips, got %d", len(ch.Flips))
	}
}

func TestCalculateChapterRejectsBadInput(t *testing.T) {
	if _, err := CalculateChapter(nil, 0, "", "x", nil, 10, 18, 0.6); err == nil {
		t.Fatal("expected error for nil paginator")
	}
	if _, err := CalculateChapter(evenPaginator(2), 0, "", "x", nil, 0, 18, 0.6); err == nil {
		t.Fatal("expected error for zero audio duration")
	}
	empty := func(string, int) (Pagination, error) { return Pagination{}, nil }
	if _, err := CalculateChapter(empty, 0, "", "x", nil, 10, 18, 0.6); err == nil {
		t.Fatal("expected error for empty pagination")
	}
}

func TestNormalizePagesResolvesOverlap(t *testing.T) {
	pages := []PageTiming{
		{PageIndex: 0, StartTime: 0, EndTime: 5},
		{PageIndex: 1, StartTime: 4, EndTime: 8},
	}
	normalizePages(pages, 10)
	if !approx(pages[0].EndTime, 4.5) || !approx(pages[1].StartTime, 4.5) {
		t.Fatalf("overlap not resolved to midpoint: %v / %v", pages[0].EndTime, pages[1].StartTime)
	}
	if !approx(pages[1].EndTime, 10) {
		t.Fatalf("last page end = %v, want 10", pages[1].EndTime)
	}
}
