package timing

import (
	"strings"
	"testing"
)

func TestStaticFrameCount(t *testing.T) {
	cases := []struct {
		duration, interval float64
		want               int
	}{
		{5, 0, 1},    // sampling disabled
		{5, 0.5, 10}, // exact multiple
		{5.1, 0.5, 11},
		{0.2, 0.5, 1}, // never below one
		{0, 0.5, 1},
	}
	for _, tc := range cases {
		if got := StaticFrameCount(tc.duration, tc.interval); got != tc.want {
			t.Errorf("StaticFrameCount(%v, %v) = %d, want %d", tc.duration, tc.interval, got, tc.want)
		}
	}
}

func TestSpreadsOddPageCount(t *testing.T) {
	pages := []PageTiming{
		{PageIndex: 0, StartTime: 0, EndTime: 2},
		{PageIndex: 1, StartTime: 2, EndTime: 4},
		{PageIndex: 2, StartTime: 4, EndTime: 6},
	}
	spreads := Spreads(pages)
	if len(spreads) != 2 {
		t.Fatalf("expected 2 spreads, got %d", len(spreads))
	}
	if spreads[0].FirstPage != 0 || spreads[0].LastPage != 1 {
		t.Fatalf("spread 0 pages = (%d,%d)", spreads[0].FirstPage, spreads[0].LastPage)
	}
	if spreads[1].FirstPage != 2 || spreads[1].LastPage != 2 {
		t.Fatalf("trailing spread should hold the lone page, got (%d,%d)", spreads[1].FirstPage, spreads[1].LastPage)
	}
}

// The count computed for the manifest and the enumeration the renderer
// driver walks must agree for every input.
func TestPlanMatchesFrameCount(t *testing.T) {
	scenarios := []struct {
		name     string
		pages    int
		words    int
		duration float64
		stamps   bool
		interval float64
	}{
		{name: "short chapter no timestamps", pages: 2, duration: 8, stamps: false, interval: 0},
		{name: "short chapter sampled", pages: 2, duration: 8, stamps: false, interval: 0.5},
		{name: "long chapter dense timestamps", pages: 11, words: 900, duration: 300, stamps: true, interval: 0.5},
		{name: "long chapter unsampled", pages: 11, words: 900, duration: 300, stamps: true, interval: 0},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			var text string
			var stamps []Timestamp
			if sc.stamps {
				text, stamps = wordText(sc.words, sc.duration)
			} else {
				text = strings.Repeat("ab ", 60)
			}
			ch, err := CalculateChapter(evenPaginator(sc.pages), 0, sc.name, text, stamps, sc.duration, 18, 0.6)
			if err != nil {
				t.Fatal(err)
			}

			const flipFrames = 15
			want := ChapterFrameCount(ch, sc.interval, flipFrames)
			plan := PlanChapterFrames(ch, sc.interval, flipFrames)
			if len(plan) != want {
				t.Fatalf("plan length %d != ChapterFrameCount %d", len(plan), want)
			}

			for i := 1; i < len(plan); i++ {
				if plan[i].Time < plan[i-1].Time {
					t.Fatalf("plan not sorted at %d: %v after %v", i, plan[i].Time, plan[i-1].Time)
				}
			}
		})
	}
}

func TestPlanFlipFramesEvenlySpaced(t *testing.T) {
	text, stamps := wordText(200, 60)
	ch, err := CalculateChapter(evenPaginator(4), 0, "Flips", text, stamps, 60, 18, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.Flips) != 1 {
		t.Fatalf("expected 1 flip, got %d", len(ch.Flips))
	}

	plan := PlanChapterFrames(ch, 0, 15)
	var flips []PlannedFrame
	for _, f := range plan {
		if f.Flip {
			flips = append(flips, f)
		}
	}
	if len(flips) != 15 {
		t.Fatalf("expected 15 flip frames, got %d", len(flips))
	}
	step := ch.Flips[0].Duration / 15
	for i, f := range flips {
		want := ch.Flips[0].StartTime + float64(i)*step
		if !approx(f.Time, want) {
			t.Fatalf("flip frame %d at %v, want %v", i, f.Time, want)
		}
		if f.FlipFrame != i {
			t.Fatalf("flip frame index = %d, want %d", f.FlipFrame, i)
		}
		if !f.FlipForward {
			t.Fatalf("flip frame %d should be forward", i)
		}
	}
}
