package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateBookService(); err != nil {
		return err
	}
	if err := c.validateRenderer(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateBookService() error {
	if strings.TrimSpace(c.BookService.BaseURL) == "" {
		return errors.New("book_service.base_url must be set")
	}
	return nil
}

func (c *Config) validateRenderer() error {
	if strings.TrimSpace(c.Renderer.BaseURL) == "" {
		return errors.New("renderer.base_url must be set")
	}
	if c.Renderer.FrameInterval < 0 {
		return errors.New("renderer.frame_interval must not be negative")
	}
	if c.Renderer.FlipFrameCount < 1 {
		return errors.New("renderer.flip_frame_count must be at least 1")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.CRF < 0 || c.Encoder.CRF > 51 {
		return fmt.Errorf("encoder.crf must be between 0 and 51, got %d", c.Encoder.CRF)
	}
	if c.Encoder.FPS < 1 || c.Encoder.FPS > 120 {
		return fmt.Errorf("encoder.fps must be between 1 and 120, got %d", c.Encoder.FPS)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.Endpoint) == "" {
		if c.Storage.UploadFrames {
			return errors.New("storage.endpoint must be set when storage.upload_frames is true")
		}
		return nil
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return errors.New("storage.bucket must be set when storage.endpoint is configured")
	}
	return nil
}
