// Package ffmpeg drives the ffmpeg CLI for the two encoding jobs an export
// needs: joining per-chapter audio into one continuous track and stitching
// captured frames into the final video.
//
// Frame stitching uses the concat demuxer with an explicit per-frame
// duration list, which preserves the irregular frame timing produced by
// audio-synchronized page turns without resampling the stills.
package ffmpeg
