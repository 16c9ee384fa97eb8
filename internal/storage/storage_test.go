package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"pageturn/internal/config"
	"pageturn/internal/services"
	"pageturn/internal/testsupport"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.Storage{
		Endpoint:       srv.URL,
		Bucket:         "exports",
		APIToken:       "tok",
		RequestTimeout: 5,
	})
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	return client, srv
}

func TestPutReturnsPublicURL(t *testing.T) {
	var gotPath, gotAuth, gotBody string
	client, srv := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
	})

	url, err := client.Put(context.Background(), "books/bk_1/video.mp4", strings.NewReader("mp4 bytes"), 9, "video/mp4")
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/exports/books/bk_1/video.mp4" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotBody != "mp4 bytes" {
		t.Fatalf("body = %q", gotBody)
	}
	if url != srv.URL+"/exports/books/bk_1/video.mp4" {
		t.Fatalf("url = %q", url)
	}
}

func TestPutFileStreamsFromDisk(t *testing.T) {
	var gotLength int64
	var gotType string
	var gotBody int
	client, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotLength = r.ContentLength
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = len(body)
		w.WriteHeader(http.StatusCreated)
	})

	path := filepath.Join(t.TempDir(), "frame-000001.png")
	testsupport.WriteFile(t, path, 2048)

	url, err := client.PutFile(context.Background(), "frames/job-1/frame-000001.png", path, "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if gotLength != 2048 || gotBody != 2048 {
		t.Fatalf("content length = %d, body bytes = %d, want 2048", gotLength, gotBody)
	}
	if gotType != "image/png" {
		t.Fatalf("content type = %q", gotType)
	}
	if url == "" {
		t.Fatal("expected public URL")
	}
}

func TestPublicBaseURLOverride(t *testing.T) {
	client := NewClient(config.Storage{
		Endpoint:      "https://internal.store",
		Bucket:        "exports",
		PublicBaseURL: "https://cdn.example.com",
	})
	if got := client.PublicURL("books/x.mp4"); got != "https://cdn.example.com/books/x.mp4" {
		t.Fatalf("PublicURL = %q", got)
	}
}

func TestPutFailureIsUploadError(t *testing.T) {
	client, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	})

	_, err := client.Put(context.Background(), "k", strings.NewReader("x"), 1, "")
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
}

func TestDeleteMissingObjectIsNotError(t *testing.T) {
	client, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	if err := client.Delete(context.Background(), "gone"); err != nil {
		t.Fatalf("404 delete should succeed, got %v", err)
	}
}

func TestNewClientDisabledWithoutEndpoint(t *testing.T) {
	if client := NewClient(config.Storage{}); client != nil {
		t.Fatal("expected nil client when endpoint empty")
	}
}
