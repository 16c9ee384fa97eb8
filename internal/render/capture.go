package render

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"pageturn/internal/logging"
	"pageturn/internal/storage"
	"pageturn/internal/timing"
)

// FrameType distinguishes static spread frames from flip-animation frames.
type FrameType string

const (
	FrameStatic FrameType = "static"
	FrameFlip   FrameType = "flip"
)

// FrameRequest addresses one renderer view.
type FrameRequest struct {
	BookID      string
	Chapter     int
	Page        int
	Flip        bool
	FlipFrame   int
	FlipForward bool
}

// FrameInfo describes one captured still. Owned by the rendering phase until
// the encoder consumes it.
type FrameInfo struct {
	LocalPath    string
	URL          string
	RemoteKey    string
	Time         float64
	Type         FrameType
	ChapterIndex int
	PageIndex    int
	FlipFrame    int
	Width        int
	Height       int
}

// FrameName returns the deterministic sequential filename for capture slot
// seq, chosen so capture order is recoverable independent of completion
// order.
func FrameName(seq int) string {
	return fmt.Sprintf("frame-%06d.png", seq)
}

// CaptureOptions extends session options with frame enumeration parameters.
type CaptureOptions struct {
	Session        Options
	FrameInterval  float64
	FlipFrameCount int
	// UploadPrefix enables per-frame object-store upload when non-empty.
	// Far slower than local capture and unnecessary for encoding, so it is
	// off unless explicitly configured.
	UploadPrefix string
}

// Capturer walks a manifest and produces every frame through one session.
type Capturer struct {
	session *Session
	store   storage.Store
	opts    CaptureOptions
	logger  *slog.Logger
}

// NewCapturer launches the managed session for one export job.
func NewCapturer(opts CaptureOptions, store storage.Store, logger *slog.Logger) (*Capturer, error) {
	session, err := NewSession(opts.Session, logger)
	if err != nil {
		return nil, err
	}
	return &Capturer{
		session: session,
		store:   store,
		opts:    opts,
		logger:  logging.WithComponent(logger, "render"),
	}, nil
}

// Close releases the browser session.
func (c *Capturer) Close() {
	if c.session != nil {
		c.session.Close()
	}
}

// ProgressFunc receives per-frame completion updates.
type ProgressFunc func(done, total int, frame FrameInfo)

// CaptureManifest renders every frame the manifest requires into destDir in
// plan order. The returned slice preserves capture order; callers sort by
// Time before encoding.
func (c *Capturer) CaptureManifest(ctx context.Context, manifest timing.Manifest, destDir string, onFrame ProgressFunc) ([]FrameInfo, error) {
	total := 0
	for _, ch := range manifest.Chapters {
		total += timing.ChapterFrameCount(ch, c.opts.FrameInterval, c.opts.FlipFrameCount)
	}

	frames := make([]FrameInfo, 0, total)
	seq := 0
	for _, ch := range manifest.Chapters {
		plan := timing.PlanChapterFrames(ch, c.opts.FrameInterval, c.opts.FlipFrameCount)
		for _, planned := range plan {
			if err := ctx.Err(); err != nil {
				return frames, err
			}

			info, err := c.captureOne(ctx, manifest.BookID, planned, destDir, seq)
			if err != nil {
				return frames, err
			}
			frames = append(frames, info)
			seq++
			if onFrame != nil {
				onFrame(seq, total, info)
			}
		}
		c.logger.Info("chapter frames captured",
			logging.Int(logging.FieldChapter, ch.ChapterIndex),
			logging.Int("frames", len(plan)),
		)
	}
	return frames, nil
}

func (c *Capturer) captureOne(ctx context.Context, bookID string, planned timing.PlannedFrame, destDir string, seq int) (FrameInfo, error) {
	req := FrameRequest{
		BookID:      bookID,
		Chapter:     planned.ChapterIndex,
		Page:        planned.PageIndex,
		Flip:        planned.Flip,
		FlipFrame:   planned.FlipFrame,
		FlipForward: planned.FlipForward,
	}

	name := FrameName(seq)
	dest := filepath.Join(destDir, name)
	if err := c.session.CaptureFrame(ctx, req, dest); err != nil {
		return FrameInfo{}, err
	}

	info := FrameInfo{
		LocalPath:    dest,
		Time:         planned.Time,
		Type:         FrameStatic,
		ChapterIndex: planned.ChapterIndex,
		PageIndex:    planned.PageIndex,
		FlipFrame:    -1,
		Width:        c.opts.Session.ViewportWidth,
		Height:       c.opts.Session.ViewportHeight,
	}
	if planned.Flip {
		info.Type = FrameFlip
		info.FlipFrame = planned.FlipFrame
	}

	if c.opts.UploadPrefix != "" && c.store != nil {
		key := c.opts.UploadPrefix + "/" + name
		url, err := c.store.PutFile(ctx, key, dest, "image/png")
		if err != nil {
			return FrameInfo{}, err
		}
		info.URL = url
		info.RemoteKey = key
	}
	return info, nil
}
