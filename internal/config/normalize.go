package config

import "strings"

// normalize expands paths and fills zero values with defaults so later
// validation only has to reject genuinely bad input.
func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Paths.ReviewDir, err = expandPath(c.Paths.ReviewDir); err != nil {
		return err
	}

	c.BookService.BaseURL = strings.TrimRight(strings.TrimSpace(c.BookService.BaseURL), "/")
	c.Renderer.BaseURL = strings.TrimRight(strings.TrimSpace(c.Renderer.BaseURL), "/")
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")

	if c.BookService.RequestTimeout <= 0 {
		c.BookService.RequestTimeout = defaultRequestTimeout
	}
	if c.Storage.RequestTimeout <= 0 {
		c.Storage.RequestTimeout = defaultRequestTimeout
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}

	if c.Renderer.ViewportWidth <= 0 {
		c.Renderer.ViewportWidth = defaultViewportWidth
	}
	if c.Renderer.ViewportHeight <= 0 {
		c.Renderer.ViewportHeight = defaultViewportHeight
	}
	if c.Renderer.NavigationTimeout <= 0 {
		c.Renderer.NavigationTimeout = defaultNavigationTimeout
	}
	if c.Renderer.ReadinessTimeout <= 0 {
		c.Renderer.ReadinessTimeout = defaultReadinessTimeout
	}
	if c.Renderer.SettleDelayMillis <= 0 {
		c.Renderer.SettleDelayMillis = defaultSettleDelayMillis
	}
	if c.Renderer.FlipFrameCount <= 0 {
		c.Renderer.FlipFrameCount = defaultFlipFrameCount
	}
	if c.Renderer.FlipDuration <= 0 {
		c.Renderer.FlipDuration = defaultFlipDuration
	}
	if c.Renderer.FontSize <= 0 {
		c.Renderer.FontSize = defaultFontSize
	}
	if strings.TrimSpace(c.Renderer.Theme) == "" {
		c.Renderer.Theme = defaultTheme
	}

	if strings.TrimSpace(c.Encoder.FFmpegBinary) == "" {
		c.Encoder.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(c.Encoder.FFprobeBinary) == "" {
		c.Encoder.FFprobeBinary = "ffprobe"
	}
	if c.Encoder.FPS <= 0 {
		c.Encoder.FPS = defaultFPS
	}
	if c.Encoder.CRF <= 0 {
		c.Encoder.CRF = defaultCRF
	}
	if strings.TrimSpace(c.Encoder.Preset) == "" {
		c.Encoder.Preset = defaultPreset
	}
	if strings.TrimSpace(c.Encoder.AudioBitrate) == "" {
		c.Encoder.AudioBitrate = defaultAudioBitrate
	}

	return nil
}
