package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrManifest      = errors.New("manifest error")
	ErrRenderTimeout = errors.New("render timeout")
	ErrRenderTarget  = errors.New("render target missing")
	ErrBrowserLaunch = errors.New("browser launch error")
	ErrAudioPrep     = errors.New("audio preparation error")
	ErrEncode        = errors.New("encode error")
	ErrUpload        = errors.New("upload error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Category returns a short stable label for an error, used as a log field
// and as an ntfy tag on failure notifications.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrManifest):
		return "manifest"
	case errors.Is(err, ErrRenderTimeout):
		return "render_timeout"
	case errors.Is(err, ErrRenderTarget):
		return "render_target"
	case errors.Is(err, ErrBrowserLaunch):
		return "browser_launch"
	case errors.Is(err, ErrAudioPrep):
		return "audio_prep"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrUpload):
		return "upload"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "external_tool"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
