package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"pageturn/internal/services"
)

var commandContext = exec.CommandContext

// Frame is one still image shown starting at Time seconds into the video.
type Frame struct {
	Path string
	Time float64
}

// minFrameDuration guards against zero-length concat entries when two
// frames land on the same instant after rounding.
const minFrameDuration = 1.0 / 1000

// WriteConcatList writes a concat-demuxer list for frames at listPath. Each
// frame holds until the next frame's time; the last frame holds until
// totalDuration. The final frame is repeated without a duration so the
// demuxer honours the last hold exactly.
func WriteConcatList(listPath string, frames []Frame, totalDuration float64) error {
	if len(frames) == 0 {
		return services.Wrap(services.ErrEncode, "ffmpeg", "write concat list", "no frames to stitch", nil)
	}

	ordered := append([]Frame(nil), frames...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Time < ordered[j].Time })

	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	for i, frame := range ordered {
		end := totalDuration
		if i+1 < len(ordered) {
			end = ordered[i+1].Time
		}
		duration := end - frame.Time
		if duration < minFrameDuration {
			duration = minFrameDuration
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(frame.Path))
		fmt.Fprintf(&b, "duration %s\n", formatDuration(duration))
	}
	fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(ordered[len(ordered)-1].Path))

	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrEncode, "ffmpeg", "write concat list", listPath, err)
	}
	return nil
}

// ConcatAudio joins the chapter audio files into one track at dest using
// stream copy, so chapter boundaries stay sample-accurate and no quality is
// lost before the final mux.
func ConcatAudio(ctx context.Context, binary string, inputs []string, dest string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrAudioPrep, "ffmpeg", "concat audio", "no audio inputs", nil)
	}
	if len(inputs) == 1 {
		data, err := os.ReadFile(inputs[0])
		if err != nil {
			return services.Wrap(services.ErrAudioPrep, "ffmpeg", "concat audio", inputs[0], err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return services.Wrap(services.ErrAudioPrep, "ffmpeg", "concat audio", dest, err)
		}
		return nil
	}

	listPath := dest + ".list"
	var b strings.Builder
	for _, input := range inputs {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(input))
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrAudioPrep, "ffmpeg", "concat audio", listPath, err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dest,
	}
	if err := run(ctx, binary, args); err != nil {
		return services.Wrap(services.ErrAudioPrep, "ffmpeg", "concat audio", "", err)
	}
	return nil
}

// EncodeOptions selects the stitch inputs and the fixed delivery profile.
type EncodeOptions struct {
	ListPath     string
	AudioPath    string
	Dest         string
	FPS          int
	CRF          int
	Preset       string
	AudioBitrate string
}

// Encode stitches the concat list (and optional audio track) into an H.264
// MP4 at dest.
func Encode(ctx context.Context, binary string, opts EncodeOptions) error {
	if opts.ListPath == "" {
		return services.Wrap(services.ErrEncode, "ffmpeg", "encode", "concat list path required", nil)
	}
	if opts.Dest == "" {
		return services.Wrap(services.ErrEncode, "ffmpeg", "encode", "output path required", nil)
	}

	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-f", "concat", "-safe", "0",
		"-i", opts.ListPath,
	}
	if opts.AudioPath != "" {
		args = append(args, "-i", opts.AudioPath)
	}
	args = append(args,
		"-fps_mode", "cfr",
		"-r", strconv.Itoa(opts.FPS),
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-crf", strconv.Itoa(opts.CRF),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	)
	if opts.AudioPath != "" {
		args = append(args,
			"-c:a", "aac",
			"-b:a", opts.AudioBitrate,
			// Audio is authoritative for length; never pad video past it.
			"-shortest",
		)
	}
	args = append(args, opts.Dest)

	if err := run(ctx, binary, args); err != nil {
		return services.Wrap(services.ErrEncode, "ffmpeg", "encode", filepath.Base(opts.Dest), err)
	}
	return nil
}

// run executes ffmpeg and, on failure, surfaces the tail of its output where
// the actual diagnostic lives.
func run(ctx context.Context, binary string, args []string) error {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := commandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", binary, args[0], err, outputTail(output))
	}
	return nil
}

const tailLines = 8

func outputTail(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) > tailLines {
		lines = lines[len(lines)-tailLines:]
	}
	return strings.Join(lines, " | ")
}

// escapeConcatPath quotes single quotes for the concat demuxer's file
// directive.
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

func formatDuration(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 6, 64)
}
