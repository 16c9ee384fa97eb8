// Package books is the read-only client for the book/chapter data service.
// The export pipeline never writes back to it.
package books

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"pageturn/internal/config"
	"pageturn/internal/services"
	"pageturn/internal/timing"
)

const userAgent = "pageturn/0.1"

// Chapter is one chapter of a book with its pre-generated narration data.
type Chapter struct {
	Index           int                `json:"index"`
	Title           string             `json:"title"`
	Content         string             `json:"content"`
	AudioURL        string             `json:"audioUrl,omitempty"`
	AudioDuration   float64            `json:"audioDuration"`
	AudioTimestamps []timing.Timestamp `json:"audioTimestamps,omitempty"`
}

// Book is the full document returned by the book service.
type Book struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Chapters []Chapter `json:"chapters"`
}

// Client talks to the book service over plain HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg config.BookService) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   strings.TrimSpace(cfg.APIToken),
		http:    &http.Client{Timeout: timeout},
	}
}

// Book fetches one book with all chapters.
func (c *Client) Book(ctx context.Context, bookID string) (*Book, error) {
	if strings.TrimSpace(bookID) == "" {
		return nil, services.Wrap(services.ErrValidation, "books", "fetch book", "book id required", nil)
	}

	endpoint := fmt.Sprintf("%s/api/books/%s", c.baseURL, url.PathEscape(bookID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrManifest, "books", "fetch book", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrManifest, "books", "fetch book", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrManifest, "books", "fetch book",
			fmt.Sprintf("%s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var book Book
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, services.Wrap(services.ErrManifest, "books", "decode book", endpoint, err)
	}
	if len(book.Chapters) == 0 {
		return nil, services.Wrap(services.ErrManifest, "books", "fetch book", "book has no chapters", nil)
	}
	return &book, nil
}

// DownloadAudio streams a narration track to dest. The URL may be absolute or
// relative to the book service base.
func (c *Client) DownloadAudio(ctx context.Context, audioURL, dest string) error {
	if strings.TrimSpace(audioURL) == "" {
		return services.Wrap(services.ErrAudioPrep, "books", "download audio", "empty audio url", nil)
	}
	target := audioURL
	if strings.HasPrefix(target, "/") {
		target = c.baseURL + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return services.Wrap(services.ErrAudioPrep, "books", "download audio", target, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrAudioPrep, "books", "download audio", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrAudioPrep, "books", "download audio",
			fmt.Sprintf("%s returned %d", target, resp.StatusCode), nil)
	}

	out, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrAudioPrep, "books", "download audio", "create "+dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return services.Wrap(services.ErrAudioPrep, "books", "download audio", "stream "+target, err)
	}
	return out.Close()
}
