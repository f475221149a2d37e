// Package web renders structures in a browser page using the 3Dmol.js
// library served from a local cache.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const maxLibraryBytes = 16 << 20

// Library is a cached copy of the viewer script.
type Library struct {
	URL      string
	CacheDir string
	HTTP     *http.Client
}

// Path is where the cached script lives.
func (l *Library) Path() string {
	name := "viewer.js"
	if u, err := url.Parse(l.URL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}
	return filepath.Join(l.CacheDir, name)
}

// Present reports whether a non-empty cached copy exists.
func (l *Library) Present() bool {
	info, err := os.Stat(l.Path())
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Fetch downloads the script into the cache, replacing any partial copy.
func (l *Library) Fetch(ctx context.Context) error {
	_, err := Acquire(ctx, l.URL, l.CacheDir, l.HTTP)
	return err
}

// Acquire returns the cached library path, downloading it first when it is
// not cached yet. A nil client uses a 30s default.
func Acquire(ctx context.Context, rawURL, cacheDir string, client *http.Client) (string, error) {
	lib := &Library{URL: rawURL, CacheDir: cacheDir}
	dest := lib.Path()
	if lib.Present() {
		return dest, nil
	}
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("viewer library url is empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build library request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download viewer library: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download viewer library: %s", resp.Status)
	}

	tmp, err := os.CreateTemp(cacheDir, ".viewer-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxLibraryBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write viewer library: %w", err)
	}
	if n == 0 {
		return "", fmt.Errorf("download viewer library: empty body")
	}
	if n > maxLibraryBytes {
		return "", fmt.Errorf("download viewer library: larger than %d bytes", maxLibraryBytes)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("install viewer library: %w", err)
	}
	return dest, nil
}
