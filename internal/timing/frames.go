package timing

import (
	"math"
	"sort"
)

// Spread is a pair of consecutive pages displayed together as one two-page
// view. The final spread of an odd-paged chapter holds a single page.
type Spread struct {
	Index     int
	FirstPage int
	LastPage  int
	StartTime float64
	EndTime   float64
}

// Spreads groups page timings into two-page spreads.
func Spreads(pages []PageTiming) []Spread {
	spreads := make([]Spread, 0, (len(pages)+1)/2)
	for i := 0; i < len(pages); i += 2 {
		last := i
		if i+1 < len(pages) {
			last = i + 1
		}
		spreads = append(spreads, Spread{
			Index:     len(spreads),
			FirstPage: i,
			LastPage:  last,
			StartTime: pages[i].StartTime,
			EndTime:   pages[last].EndTime,
		})
	}
	return spreads
}

// StaticFrameCount is the single source of truth for how many static frames
// one spread produces. With interval sampling disabled (interval <= 0) every
// spread yields exactly one frame; otherwise max(1, ceil(duration/interval)).
// The manifest builder and the renderer driver both call this function so
// their totals cannot drift apart.
func StaticFrameCount(spreadDuration, interval float64) int {
	if interval <= 0 {
		return 1
	}
	n := int(math.Ceil(spreadDuration / interval))
	if n < 1 {
		return 1
	}
	return n
}

// ChapterFrameCount returns the total frame count for one chapter: static
// frames per spread plus a fixed number of frames per flip transition.
func ChapterFrameCount(ch ChapterTiming, interval float64, flipFrames int) int {
	total := 0
	for _, spread := range Spreads(ch.Pages) {
		total += StaticFrameCount(spread.EndTime-spread.StartTime, interval)
	}
	total += len(ch.Flips) * flipFrames
	return total
}

// PlannedFrame is one (time, view) instant the capture session must render.
type PlannedFrame struct {
	Time         float64
	Flip         bool
	ChapterIndex int
	PageIndex    int
	FlipFrame    int
	FlipForward  bool
}

// PlanChapterFrames enumerates every frame instant for a chapter, sorted by
// time. The enumeration mirrors ChapterFrameCount exactly: static frames at
// each spread's start (or sampled at the configured interval) and flipFrames
// evenly spaced frames per transition.
func PlanChapterFrames(ch ChapterTiming, interval float64, flipFrames int) []PlannedFrame {
	var frames []PlannedFrame

	for _, spread := range Spreads(ch.Pages) {
		count := StaticFrameCount(spread.EndTime-spread.StartTime, interval)
		for j := 0; j < count; j++ {
			t := spread.StartTime
			if count > 1 {
				t += float64(j) * interval
			}
			frames = append(frames, PlannedFrame{
				Time:         t,
				ChapterIndex: ch.ChapterIndex,
				PageIndex:    spread.FirstPage,
			})
		}
	}

	for _, flip := range ch.Flips {
		step := flip.Duration / float64(flipFrames)
		for f := 0; f < flipFrames; f++ {
			frames = append(frames, PlannedFrame{
				Time:         flip.StartTime + float64(f)*step,
				Flip:         true,
				ChapterIndex: ch.ChapterIndex,
				PageIndex:    flip.FromPage,
				FlipFrame:    f,
				FlipForward:  true,
			})
		}
	}

	sort.SliceStable(frames, func(i, j int) bool { return frames[i].Time < frames[j].Time })
	return frames
}
