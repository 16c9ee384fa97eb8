package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pageturn/internal/books"
	"pageturn/internal/config"
	"pageturn/internal/fileutil"
	"pageturn/internal/logging"
	"pageturn/internal/media/ffmpeg"
	"pageturn/internal/media/ffprobe"
	"pageturn/internal/pagination"
	"pageturn/internal/render"
	"pageturn/internal/services"
	"pageturn/internal/storage"
	"pageturn/internal/timing"
)

// Phase identifies one stage of an export.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseRendering    Phase = "rendering_frames"
	PhasePreparing    Phase = "preparing"
	PhaseStitching    Phase = "stitching"
	PhaseUploading    Phase = "uploading"
	PhaseComplete     Phase = "complete"
	PhaseError        Phase = "error"
)

// Overall progress bands per phase. Percent never decreases across a run;
// per-frame and per-chapter callbacks interpolate within their band.
const (
	percentInitializing = 5
	percentRendering    = 45
	percentPreparing    = 60
	percentStitching    = 90
	percentComplete     = 100
)

// Progress is one ordered progress event for a running export.
type Progress struct {
	Phase          Phase
	Percent        float64
	CurrentChapter int
	TotalChapters  int
	CurrentFrame   int
	TotalFrames    int
	Message        string
	Err            error
}

// Result is the terminal outcome of an export.
type Result struct {
	Success       bool
	VideoURL      string
	VideoDuration float64
	VideoSize     int64
	Err           error
}

// Options carries every knob an export consumes, decoupled from the config
// document so callers (and tests) state exactly what a run uses.
type Options struct {
	JobID  string
	BookID string

	StagingDir string
	ReviewDir  string

	Theme          string
	FontSize       int
	FrameInterval  float64
	FlipFrameCount int
	FlipDuration   float64

	FFmpegBinary  string
	FFprobeBinary string
	FPS           int
	CRF           int
	Preset        string
	AudioBitrate  string

	UploadFrames               bool
	KeepEncodedOnUploadFailure bool
}

// OptionsFromConfig maps the loaded configuration onto export options for
// one job.
func OptionsFromConfig(cfg *config.Config, jobID, bookID string) Options {
	return Options{
		JobID:                      jobID,
		BookID:                     bookID,
		StagingDir:                 cfg.Paths.StagingDir,
		ReviewDir:                  cfg.Paths.ReviewDir,
		Theme:                      cfg.Renderer.Theme,
		FontSize:                   cfg.Renderer.FontSize,
		FrameInterval:              cfg.Renderer.FrameInterval,
		FlipFrameCount:             cfg.Renderer.FlipFrameCount,
		FlipDuration:               cfg.Renderer.FlipDuration,
		FFmpegBinary:               cfg.Encoder.FFmpegBinary,
		FFprobeBinary:              cfg.Encoder.FFprobeBinary,
		FPS:                        cfg.Encoder.FPS,
		CRF:                        cfg.Encoder.CRF,
		Preset:                     cfg.Encoder.Preset,
		AudioBitrate:               cfg.Encoder.AudioBitrate,
		UploadFrames:               cfg.Storage.UploadFrames,
		KeepEncodedOnUploadFailure: cfg.Storage.KeepEncodedOnUploadFailure,
	}
}

// BookSource supplies book documents and narration audio.
type BookSource interface {
	Book(ctx context.Context, bookID string) (*books.Book, error)
	DownloadAudio(ctx context.Context, audioURL, dest string) error
}

// Capturer renders manifest frames into a directory.
type Capturer interface {
	CaptureManifest(ctx context.Context, manifest timing.Manifest, destDir string, onFrame render.ProgressFunc) ([]render.FrameInfo, error)
	Close()
}

// CapturerFactory defers browser launch until the rendering phase starts.
type CapturerFactory func() (Capturer, error)

// Exporter runs export jobs. One Exporter handles one job at a time.
type Exporter struct {
	opts        Options
	books       BookSource
	store       storage.Store
	newCapturer CapturerFactory
	paginate    timing.Paginator
	logger      *slog.Logger

	// External-tool seams, overridable in tests.
	concatAudio func(ctx context.Context, binary string, inputs []string, dest string) error
	encode      func(ctx context.Context, binary string, opts ffmpeg.EncodeOptions) error
	inspect     func(ctx context.Context, binary, path string) (ffprobe.Result, error)
	probeLength func(ctx context.Context, binary, path string) (float64, error)
}

// New wires an exporter from the real pipeline components. store may be nil,
// in which case the finished video is moved to the review directory instead
// of uploaded.
func New(opts Options, source BookSource, store storage.Store, newCapturer CapturerFactory, logger *slog.Logger) *Exporter {
	return &Exporter{
		opts:        opts,
		books:       source,
		store:       store,
		newCapturer: newCapturer,
		paginate:    pagination.New(),
		logger:      logging.WithComponent(logger, "export"),
		concatAudio: ffmpeg.ConcatAudio,
		encode:      ffmpeg.Encode,
		inspect:     ffprobe.Inspect,
		probeLength: ffprobe.Duration,
	}
}

// NewCapturerFactory builds the default browser-backed capturer factory for
// the given renderer configuration.
func NewCapturerFactory(cfg config.Renderer, store storage.Store, uploadPrefix string, logger *slog.Logger) CapturerFactory {
	return func() (Capturer, error) {
		return render.NewCapturer(render.CaptureOptions{
			Session: render.Options{
				BaseURL:           cfg.BaseURL,
				BrowserBinary:     cfg.BrowserBinary,
				Theme:             cfg.Theme,
				FontSize:          cfg.FontSize,
				ViewportWidth:     cfg.ViewportWidth,
				ViewportHeight:    cfg.ViewportHeight,
				NavigationTimeout: time.Duration(cfg.NavigationTimeout) * time.Second,
				ReadinessTimeout:  time.Duration(cfg.ReadinessTimeout) * time.Second,
				SettleDelay:       time.Duration(cfg.SettleDelayMillis) * time.Millisecond,
			},
			FrameInterval:  cfg.FrameInterval,
			FlipFrameCount: cfg.FlipFrameCount,
			UploadPrefix:   uploadPrefix,
		}, store, logger)
	}
}

// run carries the mutable state of one export.
type run struct {
	workspace   string
	framesDir   string
	audioDir    string
	book        *books.Book
	manifest    timing.Manifest
	frames      []render.FrameInfo
	audioPath   string
	encodedPath string
	remoteKeys  []string
	uploaded    bool

	videoURL      string
	videoDuration float64
	videoSize     int64

	lastPercent float64
	onProgress  func(Progress)
}

// emit delivers a progress event, clamping percent so it never moves
// backwards within a run.
func (r *run) emit(p Progress) {
	if p.Percent < r.lastPercent {
		p.Percent = r.lastPercent
	}
	r.lastPercent = p.Percent
	if r.onProgress != nil {
		r.onProgress(p)
	}
}

// Export runs the full pipeline for the configured job. The returned
// Result's Err carries the first failure; cleanup has already run by the
// time Export returns.
func (e *Exporter) Export(ctx context.Context, onProgress func(Progress)) Result {
	started := time.Now()
	r := &run{onProgress: onProgress}

	err := e.runPhases(ctx, r)
	e.cleanup(r, err)

	if err != nil {
		e.logger.Error("export failed",
			logging.String(logging.FieldJobID, e.opts.JobID),
			logging.String(logging.FieldBookID, e.opts.BookID),
			logging.String("category", services.Category(err)),
			logging.Error(err),
		)
		r.emit(Progress{Phase: PhaseError, Percent: r.lastPercent, Message: err.Error(), Err: err})
		return Result{Err: err}
	}

	result := Result{Success: true, VideoURL: r.videoURL}
	result.VideoDuration, result.VideoSize = r.videoDuration, r.videoSize
	e.logger.Info("export complete",
		logging.String(logging.FieldJobID, e.opts.JobID),
		logging.String(logging.FieldBookID, e.opts.BookID),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("video_url", result.VideoURL),
	)
	return result
}

func (e *Exporter) runPhases(ctx context.Context, r *run) error {
	if err := e.initialize(ctx, r); err != nil {
		return err
	}
	if err := e.renderFrames(ctx, r); err != nil {
		return err
	}
	if err := e.prepareAudio(ctx, r); err != nil {
		return err
	}
	if err := e.stitch(ctx, r); err != nil {
		return err
	}
	if err := e.upload(ctx, r); err != nil {
		return err
	}
	r.emit(Progress{Phase: PhaseComplete, Percent: percentComplete, TotalChapters: len(r.manifest.Chapters), TotalFrames: r.manifest.TotalFrames, Message: "export complete"})
	return nil
}

// initialize fetches the book, resolves missing audio durations, builds the
// timing manifest, and creates the job workspace.
func (e *Exporter) initialize(ctx context.Context, r *run) error {
	r.emit(Progress{Phase: PhaseInitializing, Percent: 0, Message: "fetching book"})

	book, err := e.books.Book(ctx, e.opts.BookID)
	if err != nil {
		return err
	}
	r.book = book

	workspace := filepath.Join(e.opts.StagingDir, "export-"+e.opts.JobID)
	r.framesDir = filepath.Join(workspace, "frames")
	r.audioDir = filepath.Join(workspace, "audio")
	for _, dir := range []string{r.framesDir, r.audioDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrValidation, "export", "create workspace", dir, err)
		}
	}
	r.workspace = workspace

	inputs := make([]timing.ChapterInput, 0, len(book.Chapters))
	for _, ch := range book.Chapters {
		duration := ch.AudioDuration
		if duration <= 0 && ch.AudioURL != "" {
			// The book service omitted the length; fetch the track now and
			// probe it so the manifest can be timed.
			dest := audioFile(r.audioDir, ch.Index, ch.AudioURL)
			if err := e.books.DownloadAudio(ctx, ch.AudioURL, dest); err != nil {
				return err
			}
			duration, err = e.probeLength(ctx, e.opts.FFprobeBinary, dest)
			if err != nil {
				return err
			}
		}
		inputs = append(inputs, timing.ChapterInput{
			Index:         ch.Index,
			Title:         ch.Title,
			Text:          ch.Content,
			Timestamps:    ch.AudioTimestamps,
			AudioDuration: duration,
		})
	}

	manifest, err := timing.CalculateBook(e.paginate, inputs, timing.BookOptions{
		BookID:         book.ID,
		BookTitle:      book.Title,
		Author:         book.Author,
		FontSize:       e.opts.FontSize,
		Theme:          e.opts.Theme,
		FlipDuration:   e.opts.FlipDuration,
		FrameInterval:  e.opts.FrameInterval,
		FlipFrameCount: e.opts.FlipFrameCount,
	})
	if err != nil {
		return services.Wrap(services.ErrManifest, "export", "build manifest", book.ID, err)
	}
	r.manifest = manifest

	r.emit(Progress{
		Phase:         PhaseInitializing,
		Percent:       percentInitializing,
		TotalChapters: len(manifest.Chapters),
		TotalFrames:   manifest.TotalFrames,
		Message:       fmt.Sprintf("manifest ready: %d chapters, %d frames", len(manifest.Chapters), manifest.TotalFrames),
	})
	return nil
}

// renderFrames drives the capture session across the whole manifest.
func (e *Exporter) renderFrames(ctx context.Context, r *run) error {
	r.emit(Progress{Phase: PhaseRendering, Percent: percentInitializing, TotalChapters: len(r.manifest.Chapters), TotalFrames: r.manifest.TotalFrames, Message: "launching browser"})

	capturer, err := e.newCapturer()
	if err != nil {
		return err
	}
	defer capturer.Close()

	frames, err := capturer.CaptureManifest(ctx, r.manifest, r.framesDir, func(done, total int, frame render.FrameInfo) {
		if frame.RemoteKey != "" {
			r.remoteKeys = append(r.remoteKeys, frame.RemoteKey)
		}
		percent := percentInitializing + (percentRendering-percentInitializing)*float64(done)/float64(total)
		r.emit(Progress{
			Phase:          PhaseRendering,
			Percent:        percent,
			CurrentChapter: frame.ChapterIndex,
			TotalChapters:  len(r.manifest.Chapters),
			CurrentFrame:   done,
			TotalFrames:    total,
		})
	})
	if err != nil {
		return err
	}
	r.frames = frames
	return nil
}

// prepareAudio downloads each chapter's narration and joins the tracks into
// one continuous file. Books without narration skip the phase.
func (e *Exporter) prepareAudio(ctx context.Context, r *run) error {
	r.emit(Progress{Phase: PhasePreparing, Percent: percentRendering, Message: "preparing audio"})

	var inputs []string
	for i, ch := range r.book.Chapters {
		if ch.AudioURL == "" {
			continue
		}
		dest := audioFile(r.audioDir, ch.Index, ch.AudioURL)
		if _, err := os.Stat(dest); err != nil {
			if err := e.books.DownloadAudio(ctx, ch.AudioURL, dest); err != nil {
				return err
			}
		}
		inputs = append(inputs, dest)

		percent := percentRendering + (percentPreparing-percentRendering)*float64(i+1)/float64(len(r.book.Chapters))
		r.emit(Progress{Phase: PhasePreparing, Percent: percent, CurrentChapter: ch.Index, TotalChapters: len(r.book.Chapters)})
	}

	if len(inputs) == 0 {
		r.emit(Progress{Phase: PhasePreparing, Percent: percentPreparing, Message: "no narration audio"})
		return nil
	}

	r.audioPath = filepath.Join(r.audioDir, "audio"+filepath.Ext(inputs[0]))
	if err := e.concatAudio(ctx, e.opts.FFmpegBinary, inputs, r.audioPath); err != nil {
		return err
	}
	r.emit(Progress{Phase: PhasePreparing, Percent: percentPreparing, Message: "audio ready"})
	return nil
}

// stitch writes the concat list and encodes the final video.
func (e *Exporter) stitch(ctx context.Context, r *run) error {
	r.emit(Progress{Phase: PhaseStitching, Percent: percentPreparing, Message: "stitching video"})

	ordered := append([]render.FrameInfo(nil), r.frames...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Time < ordered[j].Time })

	list := make([]ffmpeg.Frame, len(ordered))
	for i, frame := range ordered {
		list[i] = ffmpeg.Frame{Path: frame.LocalPath, Time: frame.Time}
	}

	listPath := filepath.Join(r.workspace, "frames.txt")
	if err := ffmpeg.WriteConcatList(listPath, list, r.manifest.TotalDuration); err != nil {
		return err
	}

	r.encodedPath = filepath.Join(r.workspace, e.artifactName(r))
	if err := e.encode(ctx, e.opts.FFmpegBinary, ffmpeg.EncodeOptions{
		ListPath:     listPath,
		AudioPath:    r.audioPath,
		Dest:         r.encodedPath,
		FPS:          e.opts.FPS,
		CRF:          e.opts.CRF,
		Preset:       e.opts.Preset,
		AudioBitrate: e.opts.AudioBitrate,
	}); err != nil {
		return err
	}

	probe, err := e.inspect(ctx, e.opts.FFprobeBinary, r.encodedPath)
	if err != nil {
		return err
	}
	if !probe.HasVideoStream() {
		return services.Wrap(services.ErrEncode, "export", "verify output", "encoded file has no video stream", nil)
	}
	r.videoDuration = probe.DurationSeconds()
	r.videoSize = probe.SizeBytes()

	r.emit(Progress{Phase: PhaseStitching, Percent: percentStitching, Message: "video encoded"})
	return nil
}

// upload publishes the finished video, or moves it to the review directory
// when no object store is configured.
func (e *Exporter) upload(ctx context.Context, r *run) error {
	r.emit(Progress{Phase: PhaseUploading, Percent: percentStitching, Message: "uploading video"})

	if e.store == nil {
		dest := filepath.Join(e.opts.ReviewDir, filepath.Base(r.encodedPath))
		if err := os.MkdirAll(e.opts.ReviewDir, 0o755); err != nil {
			return services.Wrap(services.ErrUpload, "export", "stage review copy", e.opts.ReviewDir, err)
		}
		if err := fileutil.MoveFile(r.encodedPath, dest); err != nil {
			return services.Wrap(services.ErrUpload, "export", "stage review copy", dest, err)
		}
		r.encodedPath = dest
		r.videoURL = dest
		r.uploaded = true
		return nil
	}

	key := fmt.Sprintf("exports/%s/%s", e.opts.JobID, e.artifactName(r))
	url, err := e.store.PutFile(ctx, key, r.encodedPath, "video/mp4")
	if err != nil {
		return err
	}
	r.videoURL = url
	r.uploaded = true
	return nil
}

// cleanup always runs, on success and on every failure path. It deletes any
// remotely uploaded frames, optionally preserves the encoded file, and
// removes the workspace.
func (e *Exporter) cleanup(r *run, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if e.store != nil {
		for _, key := range r.remoteKeys {
			if err := e.store.Delete(ctx, key); err != nil {
				e.logger.Warn("frame cleanup failed", logging.String("key", key), logging.Error(err))
			}
		}
	}

	if runErr != nil && e.opts.KeepEncodedOnUploadFailure && !r.uploaded && r.encodedPath != "" {
		if _, err := os.Stat(r.encodedPath); err == nil {
			dest := filepath.Join(e.opts.ReviewDir, filepath.Base(r.encodedPath))
			if err := os.MkdirAll(e.opts.ReviewDir, 0o755); err == nil {
				if err := fileutil.MoveFile(r.encodedPath, dest); err == nil {
					e.logger.Info("encoded file kept for review", logging.String("path", dest))
				}
			}
		}
	}

	if r.workspace != "" {
		if err := os.RemoveAll(r.workspace); err != nil {
			e.logger.Warn("workspace cleanup failed", logging.String("path", r.workspace), logging.Error(err))
		}
	}
}

// audioFile places a chapter's narration in the workspace, keeping the
// source extension so ffmpeg can infer the container format.
func audioFile(audioDir string, chapterIndex int, audioURL string) string {
	ext := path.Ext(audioURL)
	if idx := strings.IndexAny(ext, "?#"); idx >= 0 {
		ext = ext[:idx]
	}
	if ext == "" {
		ext = ".mp3"
	}
	return filepath.Join(audioDir, fmt.Sprintf("chapter-%03d%s", chapterIndex, ext))
}

// artifactName derives a stable, URL-safe output filename from the book
// title, falling back to the book ID for untitled books.
func (e *Exporter) artifactName(r *run) string {
	title := e.opts.BookID
	if r.book != nil && strings.TrimSpace(r.book.Title) != "" {
		title = r.book.Title
	}
	return fileutil.SanitizeArtifactName(title) + ".mp4"
}
