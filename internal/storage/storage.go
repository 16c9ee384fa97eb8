// Package storage persists export artifacts to an HTTP object store. It is
// used for the final video and, when enabled, per-frame uploads.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"pageturn/internal/config"
	"pageturn/internal/services"
)

// Store is the surface the export pipeline needs from durable storage.
type Store interface {
	// Put uploads the reader under key and returns the public URL.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	// PutFile uploads a local file under key and returns the public URL.
	PutFile(ctx context.Context, key, path, contentType string) (string, error)
	// Delete removes an object; deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// Client implements Store against a bucket-per-path HTTP object store.
type Client struct {
	endpoint   string
	bucket     string
	token      string
	publicBase string
	http       *http.Client
}

// NewClient builds a storage client from configuration. Returns nil when no
// endpoint is configured; callers treat a nil Store as "storage disabled".
func NewClient(cfg config.Storage) *Client {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		bucket:     strings.Trim(cfg.Bucket, "/"),
		token:      strings.TrimSpace(cfg.APIToken),
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		http:       &http.Client{Timeout: timeout},
	}
}

func (c *Client) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", c.endpoint, c.bucket, strings.TrimLeft(key, "/"))
}

// PublicURL returns the URL readers use to fetch an object.
func (c *Client) PublicURL(key string) string {
	if c.publicBase != "" {
		return fmt.Sprintf("%s/%s", c.publicBase, strings.TrimLeft(key, "/"))
	}
	return c.objectURL(key)
}

func (c *Client) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(key), body)
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "storage", "put object", key, err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "storage", "put object", key, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrUpload, "storage", "put object",
			fmt.Sprintf("%s returned %d", key, resp.StatusCode), nil)
	}
	return c.PublicURL(key), nil
}

func (c *Client) PutFile(ctx context.Context, key, path, contentType string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "storage", "put file", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", services.Wrap(services.ErrUpload, "storage", "put file", path, err)
	}
	return c.Put(ctx, key, file, info.Size(), contentType)
}

func (c *Client) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(key), nil)
	if err != nil {
		return services.Wrap(services.ErrUpload, "storage", "delete object", key, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUpload, "storage", "delete object", key, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrUpload, "storage", "delete object",
			fmt.Sprintf("%s returned %d", key, resp.StatusCode), nil)
	}
	return nil
}

var _ Store = (*Client)(nil)
