package timing

// Timestamp is one narrated word with its audio window in seconds. Lists are
// expected ordered by Start and non-overlapping; unsorted input produces
// undefined (but non-panicking) results.
type Timestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// PageTiming describes when one paginated page is on screen, in seconds
// relative to its chapter (relative to the whole video after manifest
// assembly shifts it).
type PageTiming struct {
	PageIndex      int     `json:"pageIndex"`
	StartTime      float64 `json:"startTime"`
	EndTime        float64 `json:"endTime"`
	Duration       float64 `json:"duration"`
	StartWordIndex int     `json:"startWordIndex"`
	EndWordIndex   int     `json:"endWordIndex"`
	StartCharIndex int     `json:"startCharIndex"`
	EndCharIndex   int     `json:"endCharIndex"`
}

// FlipTransition is the page-turn animation between two spreads, centered on
// the spread boundary.
type FlipTransition struct {
	FromPage  int     `json:"fromPage"`
	ToPage    int     `json:"toPage"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Duration  float64 `json:"duration"`
}

// ChapterTiming aggregates the timing plan for one chapter.
type ChapterTiming struct {
	ChapterIndex  int              `json:"chapterIndex"`
	ChapterTitle  string           `json:"chapterTitle"`
	TotalPages    int              `json:"totalPages"`
	AudioDuration float64          `json:"audioDuration"`
	Pages         []PageTiming     `json:"pages"`
	Flips         []FlipTransition `json:"flipTransitions"`
}

// Manifest is the complete timing plan for one export job. Chapter times are
// shifted into whole-video coordinates.
type Manifest struct {
	BookID        string          `json:"bookId"`
	BookTitle     string          `json:"bookTitle"`
	Author        string          `json:"author"`
	TotalDuration float64         `json:"totalDuration"`
	TotalFrames   int             `json:"totalFrames"`
	Chapters      []ChapterTiming `json:"chapters"`
	FontSize      int             `json:"fontSize"`
	Theme         string          `json:"theme"`
}

// Chunk is a character-offset range of chapter text laid out on one page.
type Chunk struct {
	StartChar int `json:"startCharIndex"`
	EndChar   int `json:"endCharIndex"`
}

// Pagination is the result of the external pagination function.
type Pagination struct {
	Pages      [][]Chunk `json:"pages"`
	TotalPages int       `json:"totalPages"`
}

// Paginator lays chapter text out into pages of character-range chunks. It
// must be pure and stable for identical inputs within one job.
type Paginator func(text string, fontSize int) (Pagination, error)
