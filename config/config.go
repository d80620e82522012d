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


// Package config loads the application's TOML configuration file.
// Everything has a working default; a config file overrides what it names
// and CLI flags override both.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration.
type Config struct {
	// DataDir is the BadgerDB database directory.
	DataDir string `toml:"data_dir"`

	// WorkDir holds downloaded and sliced audio.
	WorkDir string `toml:"work_dir"`

	AI         AIConfig         `toml:"ai"`
	Transcribe TranscribeConfig `toml:"transcribe"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Batch      BatchConfig      `toml:"batch"`
}

// AIConfig selects the model provider and models.
type AIConfig struct {
	Host               string `toml:"host"`
	APIKey             string `toml:"api_key"`
	EmbeddingModel     string `toml:"embedding_model"`
	CompletionModel    string `toml:"completion_model"`
	TranscriptionModel string `toml:"transcription_model"`
	EmbeddingBatchSize int    `toml:"embedding_batch_size"`
}

// TranscribeConfig tunes chunked transcription.
type TranscribeConfig struct {
	ChunkThresholdBytes int64   `toml:"chunk_threshold_bytes"`
	WindowSeconds       float64 `toml:"window_seconds"`
}

// RetrievalConfig tunes question answering.
type RetrievalConfig struct {
	TopK int `toml:"top_k"`
}

// BatchConfig tunes batch processing.
type BatchConfig struct {
	Concurrency int `toml:"concurrency"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DataDir: "plenum.db",
		WorkDir: os.TempDir(),
		AI: AIConfig{
			Host:               "https://api.openai.com/v1",
			APIKey:             "none",
			EmbeddingModel:     "text-embedding-3-small",
			CompletionModel:    "gpt-4o-mini",
			TranscriptionModel: "whisper-1",
			EmbeddingBatchSize: 100,
		},
		Transcribe: TranscribeConfig{
			ChunkThresholdBytes: 20 * 1024 * 1024,
			WindowSeconds:       600,
		},
		Retrieval: RetrievalConfig{TopK: 10},
		Batch:     BatchConfig{Concurrency: 3},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir cannot be empty")
	}
	if c.WorkDir == "" {
		return errors.New("work_dir cannot be empty")
	}
	if c.AI.Host == "" {
		return errors.New("ai.host cannot be empty")
	}
	if c.AI.EmbeddingModel == "" {
		return errors.New("ai.embedding_model cannot be empty")
	}
	if c.AI.CompletionModel == "" {
		return errors.New("ai.completion_model cannot be empty")
	}
	if c.AI.TranscriptionModel == "" {
		return errors.New("ai.transcription_model cannot be empty")
	}
	if c.AI.EmbeddingBatchSize <= 0 {
		return errors.New("ai.embedding_batch_size must be positive")
	}
	if c.Transcribe.ChunkThresholdBytes <= 0 {
		return errors.New("transcribe.chunk_threshold_bytes must be positive")
	}
	if c.Transcribe.WindowSeconds <= 0 {
		return errors.New("transcribe.window_seconds must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return errors.New("retrieval.top_k must be positive")
	}
	if c.Batch.Concurrency <= 0 {
		return errors.New("batch.concurrency must be positive")
	}
	return nil
}
