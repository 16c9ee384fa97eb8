package books

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"pageturn/internal/config"
	"pageturn/internal/services"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.BookService{BaseURL: baseURL, APIToken: "secret", RequestTimeout: 5})
}

func TestBookFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/books/bk_42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "bk_42",
			"title": "The Midnight Library",
			"author": "M. Haig",
			"chapters": [
				{"index": 0, "title": "One", "content": "words here", "audioUrl": "/audio/0.mp3",
				 "audioDuration": 12.5,
				 "audioTimestamps": [{"word": "words", "start": 0, "end": 0.4}]}
			]
		}`))
	}))
	defer srv.Close()

	book, err := newTestClient(srv.URL).Book(context.Background(), "bk_42")
	if err != nil {
		t.Fatal(err)
	}
	if book.Title != "The Midnight Library" || len(book.Chapters) != 1 {
		t.Fatalf("unexpected book: %+v", book)
	}
	ch := book.Chapters[0]
	if ch.AudioDuration != 12.5 || len(ch.AudioTimestamps) != 1 || ch.AudioTimestamps[0].Word != "words" {
		t.Fatalf("unexpected chapter: %+v", ch)
	}
}

func TestBookFetchErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such book", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Book(context.Background(), "missing")
	if !errors.Is(err, services.ErrManifest) {
		t.Fatalf("expected ErrManifest, got %v", err)
	}
}

func TestBookRejectsChapterlessBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "bk_0", "title": "Empty", "chapters": []}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Book(context.Background(), "bk_0")
	if !errors.Is(err, services.ErrManifest) {
		t.Fatalf("expected ErrManifest for empty chapters, got %v", err)
	}
}

func TestDownloadAudioRelativeURL(t *testing.T) {
	payload := []byte("ID3 fake mp3 bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/ch0.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "ch0.mp3")
	if err := newTestClient(srv.URL).DownloadAudio(context.Background(), "/audio/ch0.mp3", dest); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Fatalf("downloaded bytes mismatch: %q", got)
	}
}

func TestDownloadAudioFailureIsAudioPrep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).DownloadAudio(context.Background(), srv.URL+"/audio/x.mp3", filepath.Join(t.TempDir(), "x.mp3"))
	if !errors.Is(err, services.ErrAudioPrep) {
		t.Fatalf("expected ErrAudioPrep, got %v", err)
	}
}
