package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pageturn/internal/config"
	"pageturn/internal/services"
)

const userAgent = "pageturn/0.1"

// Service defines the notification surface exposed to the workflow runner.
type Service interface {
	NotifyExportStarted(ctx context.Context, bookTitle string) error
	NotifyExportCompleted(ctx context.Context, bookTitle, videoURL string, duration time.Duration) error
	NotifyExportFailed(ctx context.Context, bookTitle string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyExportStarted(ctx context.Context, bookTitle string) error {
	bookTitle = strings.TrimSpace(bookTitle)
	data := payload{
		title:   "Pageturn - Export Started",
		message: fmt.Sprintf("Started exporting: %s", bookTitle),
		tags:    []string{"pageturn", "export", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExportCompleted(ctx context.Context, bookTitle, videoURL string, duration time.Duration) error {
	bookTitle = strings.TrimSpace(bookTitle)
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	message := fmt.Sprintf("Export complete: %s (%s)", bookTitle, duration)
	if videoURL = strings.TrimSpace(videoURL); videoURL != "" {
		message = fmt.Sprintf("%s\n%s", message, videoURL)
	}
	data := payload{
		title:    "Pageturn - Export Complete",
		message:  message,
		tags:     []string{"pageturn", "export", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExportFailed(ctx context.Context, bookTitle string, err error) error {
	var builder strings.Builder
	builder.WriteString("Export failed")
	if bookTitle = strings.TrimSpace(bookTitle); bookTitle != "" {
		builder.WriteString(": ")
		builder.WriteString(bookTitle)
	}
	builder.WriteString("\n")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown error")
	}

	tags := []string{"pageturn", "export", "failed"}
	if category := services.Category(err); category != "" {
		tags = append(tags, category)
	}
	data := payload{
		title:    "Pageturn - Export Failed",
		message:  builder.String(),
		tags:     tags,
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Pageturn - Test",
		message:  "Notification system test",
		tags:     []string{"pageturn", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyExportStarted(context.Context, string) error { return nil }
func (noopService) NotifyExportCompleted(context.Context, string, string, time.Duration) error {
	return nil
}
func (noopService) NotifyExportFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
