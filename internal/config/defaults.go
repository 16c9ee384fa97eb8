package config

const (
	defaultStagingDir        = "~/.local/share/pageturn/staging"
	defaultLogDir            = "~/.local/share/pageturn/logs"
	defaultReviewDir         = "~/.local/share/pageturn/review"
	defaultBookServiceURL    = "http://127.0.0.1:4000"
	defaultRendererURL       = "http://127.0.0.1:3000"
	defaultTheme             = "light"
	defaultFontSize          = 18
	defaultViewportWidth     = 1920
	defaultViewportHeight    = 1080
	defaultNavigationTimeout = 60
	defaultReadinessTimeout  = 10
	defaultSettleDelayMillis = 50
	defaultFlipFrameCount    = 15
	defaultFlipDuration      = 0.6
	defaultFPS               = 24
	defaultCRF               = 23
	defaultPreset            = "medium"
	defaultAudioBitrate      = "192k"
	defaultRequestTimeout    = 30
	defaultNotifyTimeout     = 10
	defaultQueuePollInterval = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			ReviewDir:  defaultReviewDir,
		},
		BookService: BookService{
			BaseURL:        defaultBookServiceURL,
			RequestTimeout: defaultRequestTimeout,
		},
		Renderer: Renderer{
			BaseURL:           defaultRendererURL,
			Theme:             defaultTheme,
			FontSize:          defaultFontSize,
			ViewportWidth:     defaultViewportWidth,
			ViewportHeight:    defaultViewportHeight,
			NavigationTimeout: defaultNavigationTimeout,
			ReadinessTimeout:  defaultReadinessTimeout,
			SettleDelayMillis: defaultSettleDelayMillis,
			FlipFrameCount:    defaultFlipFrameCount,
			FlipDuration:      defaultFlipDuration,
		},
		Encoder: Encoder{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			FPS:           defaultFPS,
			CRF:           defaultCRF,
			Preset:        defaultPreset,
			AudioBitrate:  defaultAudioBitrate,
		},
		Storage: Storage{
			RequestTimeout: defaultRequestTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Level: "info",
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
		},
	}
}
