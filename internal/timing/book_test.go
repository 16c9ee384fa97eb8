package timing

import "testing"

func TestCalculateBookShiftsChapters(t *testing.T) {
	textA, stampsA := wordText(100, 30)
	textB, stampsB := wordText(150, 45)
	chapters := []ChapterInput{
		{Index: 0, Title: "One", Text: textA, Timestamps: stampsA, AudioDuration: 30},
		{Index: 1, Title: "Two", Text: textB, Timestamps: stampsB, AudioDuration: 45},
	}

	manifest, err := CalculateBook(evenPaginator(4), chapters, BookOptions{
		BookID:         "bk_1",
		BookTitle:      "Collected",
		FontSize:       18,
		Theme:          "light",
		FlipDuration:   0.6,
		FlipFrameCount: 15,
	})
	if err != nil {
		t.Fatal(err)
	}

	if !approx(manifest.TotalDuration, 75) {
		t.Fatalf("TotalDuration = %v, want 75", manifest.TotalDuration)
	}
	if len(manifest.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(manifest.Chapters))
	}

	second := manifest.Chapters[1]
	if !approx(second.Pages[0].StartTime, 30) {
		t.Fatalf("second chapter should start at 30, got %v", second.Pages[0].StartTime)
	}
	if !approx(second.Pages[len(second.Pages)-1].EndTime, 75) {
		t.Fatalf("second chapter should end at 75, got %v", second.Pages[len(second.Pages)-1].EndTime)
	}
	for _, flip := range second.Flips {
		if flip.StartTime < 30 {
			t.Fatalf("flip %v precedes chapter offset", flip)
		}
	}

	wantFrames := 0
	for _, ch := range manifest.Chapters {
		wantFrames += ChapterFrameCount(ch, 0, 15)
	}
	if manifest.TotalFrames != wantFrames {
		t.Fatalf("TotalFrames = %d, want %d", manifest.TotalFrames, wantFrames)
	}
}

// End-to-end manifest shape from the reference scenario: one chapter, four
// pages, 40 seconds of dense narration.
func TestCalculateBookSingleChapterScenario(t *testing.T) {
	text, stamps := wordText(400, 40)
	manifest, err := CalculateBook(evenPaginator(4), []ChapterInput{
		{Index: 0, Title: "Only", Text: text, Timestamps: stamps, AudioDuration: 40},
	}, BookOptions{BookID: "bk_solo", FontSize: 18, FlipDuration: 0.6, FlipFrameCount: 15})
	if err != nil {
		t.Fatal(err)
	}

	if len(manifest.Chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(manifest.Chapters))
	}
	ch := manifest.Chapters[0]
	if len(ch.Pages) != 4 {
		t.Fatalf("expected 4 pages, got %d", len(ch.Pages))
	}
	if len(ch.Flips) != 1 {
		t.Fatalf("expected exactly 1 flip transition, got %d", len(ch.Flips))
	}
	if !approx(manifest.TotalDuration, 40) {
		t.Fatalf("TotalDuration = %v, want 40", manifest.TotalDuration)
	}

	covered := 0.0
	for _, page := range ch.Pages {
		covered += page.Duration
	}
	if !approx(covered, 40) {
		t.Fatalf("page durations sum to %v, want 40", covered)
	}
}

func TestCalculateBookRejectsEmpty(t *testing.T) {
	if _, err := CalculateBook(evenPaginator(2), nil, BookOptions{}); err == nil {
		t.Fatal("expected error for empty chapter list")
	}
}
