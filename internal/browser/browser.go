// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser implements headless-browser artifact download for papers
// whose PDFs sit behind publisher pages that block plain HTTP clients. It
// drives a Chromium binary in headless mode against a landing URL and polls
// the download directory for the resulting file.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/litreport/pkg/types"
)

const (
	binChromium = "chromium"
	binChrome   = "google-chrome"
)

// Driver fetches an artifact by driving a real browser.
type Driver interface {
	// Name returns the driver name.
	Name() string

	// Available reports whether the browser binary exists on PATH.
	Available() bool

	// Download navigates to url and returns the bytes of the file the
	// browser downloaded. Failures are wrapped in ErrAutomationFailure.
	Download(ctx context.Context, url string) ([]byte, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunContext(ctx context.Context, name string, args ...string) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunContext(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

var defaultExec executor = &osExecutor{}

// pollInterval is how often the download directory is rechecked. Package
// var for test substitution.
var pollInterval = 500 * time.Millisecond

// chromium drives a headless Chromium/Chrome binary.
type chromium struct {
	bin     string
	timeout time.Duration
	exec    executor
}

// NewChromium builds a driver for the given binary. An empty bin lets
// detection pick chromium, then google-chrome, from PATH.
func NewChromium(bin string, timeout time.Duration) Driver {
	return newChromium(bin, timeout, defaultExec)
}

func newChromium(bin string, timeout time.Duration, exec executor) *chromium {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &chromium{bin: bin, timeout: timeout, exec: exec}
}

func (c *chromium) Name() string { return "chromium" }

func (c *chromium) Available() bool {
	return c.resolveBin() != ""
}

func (c *chromium) resolveBin() string {
	candidates := []string{c.bin}
	if c.bin == "" {
		candidates = []string{binChromium, binChrome}
	}
	for _, cand := range candidates {
		if cand == "" {
			continue
		}
		if _, err := c.exec.LookPath(cand); err == nil {
			return cand
		}
	}
	return ""
}

// Download runs the browser headless with an isolated profile and a private
// download directory, then waits for a completed file to appear. Chromium
// writes in-progress downloads with a .crdownload suffix; those are ignored
// until renamed.
func (c *chromium) Download(ctx context.Context, url string) ([]byte, error) {
	bin := c.resolveBin()
	if bin == "" {
		return nil, fmt.Errorf("no browser binary found: %w", types.ErrAutomationFailure)
	}

	workDir, err := os.MkdirTemp("", "litreport-browser-*")
	if err != nil {
		return nil, fmt.Errorf("creating browser work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	downloadDir := filepath.Join(workDir, "downloads")
	profileDir := filepath.Join(workDir, "profile")
	for _, dir := range []string{downloadDir, profileDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"--headless=new",
		"--no-sandbox",
		"--disable-gpu",
		"--user-data-dir=" + profileDir,
		"--download-default-directory=" + downloadDir,
		url,
	}

	done := make(chan error, 1)
	go func() {
		done <- c.exec.RunContext(runCtx, bin, args...)
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	browserExited := false
	for {
		if data, ok, err := completedDownload(downloadDir); err != nil {
			return nil, err
		} else if ok {
			cancel()
			return data, nil
		}

		if browserExited {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// One final poll already ran after exit; nothing arrived.
			return nil, fmt.Errorf("browser exited without downloading %s: %w", url, types.ErrAutomationFailure)
		}

		select {
		case <-runCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("browser download timed out for %s: %w", url, types.ErrAutomationFailure)
		case <-done:
			browserExited = true
		case <-ticker.C:
		}
	}
}

// completedDownload returns the first finished file in dir, if any.
func completedDownload(dir string) ([]byte, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false, fmt.Errorf("reading download dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".crdownload") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, false, fmt.Errorf("reading downloaded file: %w", err)
		}
		if len(data) == 0 {
			continue
		}
		return data, true, nil
	}
	return nil, false, nil
}
