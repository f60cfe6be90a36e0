// Package update checks the release manifest for a newer shotd version.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"tools.zach/dev/shotd/internal/paths"
	"tools.zach/dev/shotd/internal/remote"
)

// ErrNoSource is returned when no release repository is configured.
var ErrNoSource = errors.New("update: no release repository configured")

// maxManifest caps the manifest download.
const maxManifest = 64 << 10

// Checker fetches the release manifest. The manifest is a JSON object whose
// "." key holds the latest stable version.
type Checker struct {
	// URL is the manifest location.
	URL    string
	client *retryablehttp.Client
}

// NewChecker returns a Checker for the manifest at url. Requests time out
// after 5s and are retried once.
func NewChecker(url string) *Checker {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil
	return &Checker{URL: url, client: client}
}

// DefaultChecker returns a Checker for the configured release repository.
func DefaultChecker() (*Checker, error) {
	src, ok := remote.Default()
	if !ok {
		return nil, ErrNoSource
	}
	return NewChecker(src.RawURL(paths.ReleaseManifest)), nil
}

// Latest returns the newest released version.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", c.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", c.URL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifest))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	return ParseManifest(body)
}

// ParseManifest returns the root version from release manifest bytes, or ""
// when the manifest has no root entry.
func ParseManifest(data []byte) (string, error) {
	var manifest map[string]string
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	return manifest["."], nil
}

// Newer reports the latest version and whether it is newer than current.
func (c *Checker) Newer(ctx context.Context, current string) (string, bool, error) {
	latest, err := c.Latest(ctx)
	if err != nil {
		return "", false, err
	}
	return latest, latest != "" && semverLess(current, latest), nil
}

// Check logs a notice when a newer release exists. Failures are logged at
// debug level and otherwise ignored.
func Check(ctx context.Context, logger *slog.Logger, current string) {
	c, err := DefaultChecker()
	if err != nil {
		logger.Debug("skipping version check", "reason", err)
		return
	}
	c.Log(ctx, logger, current)
}

// Log runs Newer and reports the outcome on logger.
func (c *Checker) Log(ctx context.Context, logger *slog.Logger, current string) {
	latest, newer, err := c.Newer(ctx, current)
	if err != nil {
		logger.Debug("version check failed", "error", err)
		return
	}
	if newer {
		logger.Info("new version available", "current", current, "latest", latest)
	}
}

// ///////////////////////////////////////////////
// Version Comparison
// ///////////////////////////////////////////////

// semverLess reports a < b on major.minor.patch. A pre-release sorts before
// the same release. Unparsable versions never compare less.
func semverLess(a, b string) bool {
	pa, pb := parseSemver(a), parseSemver(b)
	if pa == nil || pb == nil {
		return false
	}
	for i := range 3 {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	return hasPreRelease(a) && !hasPreRelease(b)
}

func hasPreRelease(s string) bool {
	return strings.Contains(strings.TrimPrefix(s, "v"), "-")
}

// parseSemver returns [major, minor, patch] for "v1.2.3", "1.2.3-rc.1" or
// "1.2.3+meta", or nil.
func parseSemver(s string) []int {
	parts := strings.SplitN(strings.TrimPrefix(s, "v"), ".", 3)
	if len(parts) != 3 {
		return nil
	}
	out := make([]int, 3)
	for i, p := range parts {
		if idx := strings.IndexAny(p, "-+"); idx >= 0 {
			p = p[:idx]
		}
		if p == "" {
			return nil
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return nil
			}
			n = n*10 + int(c-'0')
		}
		out[i] = n
	}
	return out
}
