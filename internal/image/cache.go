// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// Cache stores downloaded guest images in a local directory.
type Cache struct {
	// Dir is the directory the images are stored in.
	Dir string

	// Client is the HTTP client used for downloads. Defaults to
	// [http.DefaultClient].
	Client *http.Client
}

// DefaultCacheDir returns the default image cache directory, which is
// ".pandarun" in the user's home directory.
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}

	return filepath.Join(home, ".pandarun"), nil
}

// Path returns the local file path the given [Image] is cached at.
func (c *Cache) Path(img Image) (string, error) {
	return c.localPath(img.URL)
}

func (c *Cache) localPath(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	return filepath.Join(c.Dir, path.Base(parsed.Path)), nil
}

// Get returns the local path of the given [Image], downloading it into the
// cache directory first if it is not present yet.
func (c *Cache) Get(ctx context.Context, img Image) (string, error) {
	return c.GetFile(ctx, img.URL)
}

// GetFile returns the local path of the file behind the given URL,
// downloading it into the cache directory first if it is not present yet.
// Used for the disk image itself as well as boot artifacts like kernel and
// initrd files some machine types need.
//
// Downloads are written to a temporary file and renamed only once complete,
// so an aborted download does not leave a truncated file behind.
func (c *Cache) GetFile(ctx context.Context, rawURL string) (string, error) {
	dst, err := c.localPath(rawURL)
	if err != nil {
		return "", err
	}

	_, err = os.Stat(dst)
	if err == nil {
		return dst, nil
	}

	slog.Info("Downloading guest file", slog.String("url", rawURL))

	err = c.download(ctx, rawURL, dst)
	if err != nil {
		return "", err
	}

	return dst, nil
}

func (c *Cache) client() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}

	return c.Client
}

func (c *Cache) download(ctx context.Context, rawURL, dst string) error {
	err := os.MkdirAll(c.Dir, 0o755)
	if err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrDownloadFailed, resp.Status)
	}

	tmp, err := os.CreateTemp(c.Dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	_, err = io.Copy(tmp, resp.Body)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	err = os.Rename(tmp.Name(), dst)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}
