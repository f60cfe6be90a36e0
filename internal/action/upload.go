package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxUploadResponse caps how much of the server reply is read.
const maxUploadResponse = 64 << 10

// Upload posts each screenshot to an HTTP endpoint as multipart/form-data.
// Transient failures (connection errors, 5xx, 429) are retried.
type Upload struct {
	url     string
	field   string
	headers map[string]string
	client  *retryablehttp.Client
}

// UploadOptions configures [NewUpload].
type UploadOptions struct {
	// Field is the form field name; defaults to "file".
	Field string
	// Headers are added to every request (e.g. Authorization).
	Headers map[string]string
	// Timeout bounds each attempt; defaults to 30s.
	Timeout time.Duration
	// RetryMax is the number of retries after the first attempt.
	RetryMax int
}

// NewUpload returns an Upload handler for url.
func NewUpload(url string, opts UploadOptions) *Upload {
	client := retryablehttp.NewClient()
	client.RetryMax = max(opts.RetryMax, 0)
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	client.Logger = nil // retryablehttp's own logging bypasses slog

	field := opts.Field
	if field == "" {
		field = "file"
	}
	return &Upload{url: url, field: field, headers: opts.Headers, client: client}
}

// Handle implements [Handler]. Any non-2xx final response is an error.
func (u *Upload) Handle(ctx context.Context, path string) error {
	if u.url == "" {
		return errors.New("upload: no URL configured")
	}

	body, contentType, err := multipartBody(u.field, path)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u.url, body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	for k, v := range u.headers {
		req.Header.Set(k, v)
	}
	if id := DispatchID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	// The multipart boundary lives in Content-Type; configured headers never win.
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", u.url, err)
	}
	defer resp.Body.Close()

	reply, _ := io.ReadAll(io.LimitReader(resp.Body, maxUploadResponse))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s: status %d: %s", u.url, resp.StatusCode, truncate(string(bytes.TrimSpace(reply)), maxOutputInError))
	}

	Logger(ctx).Info("uploaded screenshot", "path", path, "status", resp.StatusCode)
	return nil
}

// multipartBody buffers the form in memory so retries can replay it.
func multipartBody(field, path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open screenshot: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read screenshot: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("finish form: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
