// Copyright 2025 Plenum Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package media acquires session audio and slices it for transcription.
// It shells out to yt-dlp, ffmpeg, and ffprobe; no in-process decoding.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/plenumhq/plenum/core"
)

// runCommandFunc executes an external command and returns its combined
// output. Swapped out in tests.
type runCommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Tool wraps the external media binaries behind one handle.
type Tool struct {
	ffmpegBinary  string
	ffprobeBinary string
	ytdlpBinary   string
	workDir       string
	run           runCommandFunc
	logger        *slog.Logger
}

// Option is a functional option for configuring a Tool.
type Option func(*Tool)

// WithFFmpegBinary overrides the ffmpeg binary path.
func WithFFmpegBinary(path string) Option {
	return func(t *Tool) { t.ffmpegBinary = path }
}

// WithFFprobeBinary overrides the ffprobe binary path.
func WithFFprobeBinary(path string) Option {
	return func(t *Tool) { t.ffprobeBinary = path }
}

// WithYtdlpBinary overrides the yt-dlp binary path.
func WithYtdlpBinary(path string) Option {
	return func(t *Tool) { t.ytdlpBinary = path }
}

// WithWorkDir sets the directory downloaded and sliced audio lands in.
func WithWorkDir(dir string) Option {
	return func(t *Tool) { t.workDir = dir }
}

// NewTool creates a media tool with default binary names resolved from PATH
// and the system temp directory as the work area.
func NewTool(opts ...Option) *Tool {
	t := &Tool{
		ffmpegBinary:  "ffmpeg",
		ffprobeBinary: "ffprobe",
		ytdlpBinary:   "yt-dlp",
		workDir:       os.TempDir(),
		run:           runCommand,
		logger:        slog.Default().With("component", "media"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Acquire downloads the session's audio track as MP3 and returns the local
// file path. The file lands in the work directory named after the session
// key; an existing file for the same key is reused.
func (t *Tool) Acquire(ctx context.Context, url, sessionKey string) (string, error) {
	dest := filepath.Join(t.workDir, sessionKey+".mp3")

	if _, err := os.Stat(dest); err == nil {
		t.logger.Debug("reusing downloaded audio", "path", dest)
		return dest, nil
	}

	if err := os.MkdirAll(t.workDir, 0755); err != nil {
		return "", core.Fatal(fmt.Errorf("creating work dir: %w", err))
	}

	args := []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--no-playlist",
		"--output", dest,
		url,
	}
	t.logger.Info("downloading session audio", "url", url)
	if output, err := t.run(ctx, t.ytdlpBinary, args...); err != nil {
		// Network hiccups and throttling dominate download failures.
		return "", core.Transient(fmt.Errorf("yt-dlp download: %w: %s",
			err, strings.TrimSpace(string(output))))
	}

	if _, err := os.Stat(dest); err != nil {
		return "", core.Fatal(fmt.Errorf("yt-dlp reported success but %s is missing", dest))
	}
	return dest, nil
}

// Metadata is what yt-dlp reports about a source before download.
type Metadata struct {
	Title     string
	Date      time.Time
	Duration  float64
	Languages []string
}

// ytdlpInfo is the subset of yt-dlp's JSON dump we read.
type ytdlpInfo struct {
	Title      string  `json:"title"`
	UploadDate string  `json:"upload_date"` // YYYYMMDD
	Duration   float64 `json:"duration"`
	Language   string  `json:"language"`
}

// ResolveMetadata fetches source metadata without downloading the media.
func (t *Tool) ResolveMetadata(ctx context.Context, url string) (*Metadata, error) {
	args := []string{
		"--dump-json",
		"--no-playlist",
		"--skip-download",
		url,
	}
	output, err := t.run(ctx, t.ytdlpBinary, args...)
	if err != nil {
		return nil, core.Transient(fmt.Errorf("yt-dlp metadata: %w: %s",
			err, strings.TrimSpace(string(output))))
	}

	var info ytdlpInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, core.Fatal(fmt.Errorf("parsing yt-dlp metadata: %w", err))
	}

	meta := &Metadata{
		Title:    info.Title,
		Duration: info.Duration,
	}
	if info.UploadDate != "" {
		date, err := time.Parse("20060102", info.UploadDate)
		if err != nil {
			t.logger.Warn("unparseable upload date", "value", info.UploadDate)
		} else {
			meta.Date = date.UTC()
		}
	}
	if info.Language != "" {
		meta.Languages = []string{info.Language}
	}
	return meta, nil
}

// ProbeDuration returns the audio duration in seconds.
func (t *Tool) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	output, err := t.run(ctx, t.ffprobeBinary, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w: %s", err, strings.TrimSpace(string(output)))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe duration %q: %w",
			strings.TrimSpace(string(output)), err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("ffprobe reported negative duration %.2f", duration)
	}
	return duration, nil
}

// Validate checks that path names a non-empty, decodable audio file.
// Failures are fatal; a broken download never improves on retry of the
// same artifact.
func (t *Tool) Validate(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return core.Fatal(fmt.Errorf("audio file missing: %w", err))
	}
	if info.Size() == 0 {
		return core.Fatal(fmt.Errorf("audio file %s is empty", path))
	}
	duration, err := t.ProbeDuration(ctx, path)
	if err != nil {
		return core.Fatal(fmt.Errorf("audio file %s is not decodable: %w", path, err))
	}
	if duration <= 0 {
		return core.Fatal(fmt.Errorf("audio file %s has zero duration", path))
	}
	return nil
}

// FileSize returns the size of a file in bytes.
func (t *Tool) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ExtractWindow copies a time window [start, start+duration) of the source
// audio into dest without re-encoding.
func (t *Tool) ExtractWindow(ctx context.Context, source string, start, duration float64, dest string) error {
	if duration <= 0 {
		return fmt.Errorf("extract window: invalid duration %.2f", duration)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", source,
		"-vn",
		"-acodec", "copy",
		dest,
	}
	if output, err := t.run(ctx, t.ffmpegBinary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract window: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Remove deletes a work file, tolerating files already gone.
func (t *Tool) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
