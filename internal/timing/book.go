package timing

import "fmt"

// ChapterInput is the per-chapter material needed to build a manifest.
type ChapterInput struct {
	Index         int
	Title         string
	Text          string
	Timestamps    []Timestamp
	AudioDuration float64
}

// BookOptions parameterize manifest construction.
type BookOptions struct {
	BookID       string
	BookTitle    string
	Author       string
	FontSize     int
	Theme        string
	FlipDuration float64
	// FrameInterval > 0 enables per-interval static frame sampling.
	FrameInterval  float64
	FlipFrameCount int
}

// CalculateBook builds the whole-video manifest: each chapter is timed
// independently, then shifted by the running offset so page and flip times
// are relative to the full video. TotalFrames accumulates the shared
// per-chapter frame count.
func CalculateBook(paginate Paginator, chapters []ChapterInput, opts BookOptions) (Manifest, error) {
	if len(chapters) == 0 {
		return Manifest{}, fmt.Errorf("book %s: no chapters", opts.BookID)
	}
	flipFrames := opts.FlipFrameCount
	if flipFrames <= 0 {
		flipFrames = 15
	}

	manifest := Manifest{
		BookID:    opts.BookID,
		BookTitle: opts.BookTitle,
		Author:    opts.Author,
		FontSize:  opts.FontSize,
		Theme:     opts.Theme,
		Chapters:  make([]ChapterTiming, 0, len(chapters)),
	}

	offset := 0.0
	for _, input := range chapters {
		ch, err := CalculateChapter(paginate, input.Index, input.Title, input.Text, input.Timestamps, input.AudioDuration, opts.FontSize, opts.FlipDuration)
		if err != nil {
			return Manifest{}, err
		}

		shiftChapter(&ch, offset)
		manifest.TotalFrames += ChapterFrameCount(ch, opts.FrameInterval, flipFrames)
		manifest.Chapters = append(manifest.Chapters, ch)
		offset += ch.AudioDuration
	}
	manifest.TotalDuration = offset
	return manifest, nil
}

func shiftChapter(ch *ChapterTiming, offset float64) {
	if offset == 0 {
		return
	}
	for i := range ch.Pages {
		ch.Pages[i].StartTime += offset
		ch.Pages[i].EndTime += offset
	}
	for i := range ch.Flips {
		ch.Flips[i].StartTime += offset
		ch.Flips[i].EndTime += offset
	}
}
