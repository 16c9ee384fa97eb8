package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pageturn/internal/config"
	"pageturn/internal/services"
)

type recordedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newRecordingService(t *testing.T, status int) (*ntfyService, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return &ntfyService{endpoint: server.URL, client: server.Client()}, &requests
}

func TestNewServiceReturnsNoopWithoutTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = "   "
	service := NewService(&cfg)
	if _, ok := service.(noopService); !ok {
		t.Fatalf("expected noop service, got %T", service)
	}
	if err := service.NotifyExportFailed(context.Background(), "Title", errors.New("boom")); err != nil {
		t.Fatalf("noop returned error: %v", err)
	}
}

func TestNotifyExportCompletedPayload(t *testing.T) {
	service, requests := newRecordingService(t, http.StatusOK)

	err := service.NotifyExportCompleted(context.Background(), "A Quiet Winter", "https://cdn.example.com/v.mp4", 95*time.Second)
	if err != nil {
		t.Fatalf("NotifyExportCompleted: %v", err)
	}

	got := (*requests)[0]
	if got.title != "Pageturn - Export Complete" {
		t.Fatalf("title = %q", got.title)
	}
	if !strings.Contains(got.body, "A Quiet Winter") || !strings.Contains(got.body, "https://cdn.example.com/v.mp4") {
		t.Fatalf("body = %q", got.body)
	}
	if !strings.Contains(got.body, "1m35s") {
		t.Fatalf("duration missing from body: %q", got.body)
	}
	if got.priority != "high" {
		t.Fatalf("priority = %q", got.priority)
	}
}

func TestNotifyExportFailedIncludesError(t *testing.T) {
	service, requests := newRecordingService(t, http.StatusOK)

	err := service.NotifyExportFailed(context.Background(), "A Quiet Winter", errors.New("encode: ffmpeg exited 1"))
	if err != nil {
		t.Fatalf("NotifyExportFailed: %v", err)
	}

	got := (*requests)[0]
	if !strings.Contains(got.body, "encode: ffmpeg exited 1") {
		t.Fatalf("body = %q", got.body)
	}
	if got.tags != "pageturn,export,failed,external_tool" {
		t.Fatalf("tags = %q", got.tags)
	}
}

func TestNotifyExportFailedTagsFailureCategory(t *testing.T) {
	service, requests := newRecordingService(t, http.StatusOK)

	wrapped := services.Wrap(services.ErrEncode, "ffmpeg", "encode", "a-quiet-winter.mp4", errors.New("exit status 1"))
	if err := service.NotifyExportFailed(context.Background(), "A Quiet Winter", wrapped); err != nil {
		t.Fatalf("NotifyExportFailed: %v", err)
	}

	if got := (*requests)[0]; got.tags != "pageturn,export,failed,encode" {
		t.Fatalf("tags = %q", got.tags)
	}
}

func TestSendSurfacesServerError(t *testing.T) {
	service, _ := newRecordingService(t, http.StatusForbidden)
	if err := service.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}
