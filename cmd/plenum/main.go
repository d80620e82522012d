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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	plenum "github.com/plenumhq/plenum"
	"github.com/plenumhq/plenum/config"
	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/pipeline"
	"github.com/plenumhq/plenum/rag"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "plenum",
		Usage: "Process and query recorded multilateral proceedings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Process one session recording from a source URL",
				ArgsUsage: "URL",
				Action:    processCommand,
				Flags:     platformFlags(),
			},
			{
				Name:      "batch",
				Usage:     "Process many session recordings concurrently",
				ArgsUsage: "URL [URL ...]",
				Action:    batchCommand,
				Flags: append(platformFlags(),
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of sessions to process at once",
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question over the indexed sessions",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: append(platformFlags(),
					&cli.StringFlag{
						Name:  "session",
						Usage: "Restrict retrieval to one session key",
					},
					&cli.StringFlag{
						Name:  "speaker",
						Usage: "Restrict retrieval to one speaker label",
					},
					&cli.StringFlag{
						Name:  "country",
						Usage: "Restrict retrieval to one country",
					},
					&cli.StringSliceFlag{
						Name:  "compare",
						Usage: "Compare across session keys (repeatable, needs at least two)",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of segments to retrieve",
					},
					&cli.BoolFlag{
						Name:  "no-expand",
						Usage: "Disable multi-query expansion",
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Append the question and answer to the session chat log (needs --session)",
					},
				),
			},
			{
				Name:   "sessions",
				Usage:  "List stored sessions",
				Action: sessionsCommand,
				Flags: append(platformFlags(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (pending, downloading, transcribing, extracting, embedding, completed, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum sessions to list (0 = all)",
						Value: 20,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// platformFlags are the flags shared by every command that builds the
// service graph.
func platformFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to TOML configuration file",
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
		},
		&cli.StringFlag{
			Name:  "work-dir",
			Usage: "Directory for downloaded and sliced audio",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Model provider host URL",
		},
		&cli.StringFlag{
			Name:  "api-key",
			Usage: "Model provider API key",
		},
	}
}

// loadConfig reads the config file, then lets CLI flags override it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("db") {
		cfg.DataDir = c.String("db")
	}
	if c.IsSet("work-dir") {
		cfg.WorkDir = c.String("work-dir")
	}
	if c.IsSet("host") {
		cfg.AI.Host = c.String("host")
	}
	if c.IsSet("api-key") {
		cfg.AI.APIKey = c.String("api-key")
	}
	if c.IsSet("concurrency") {
		cfg.Batch.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("top-k") {
		cfg.Retrieval.TopK = c.Int("top-k")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openPlatform(c *cli.Context) (*plenum.Platform, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return plenum.NewPlatform(cfg)
}

func processCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("process needs exactly one URL argument")
	}
	url := c.Args().First()

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	processor := platform.NewProcessor(func(key string, p pipeline.Progress) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s %s\n", p.Percent, p.Status.String(), p.Message)
	})

	session, err := processor.Process(context.Background(), url)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	fmt.Printf("Session %s: %s\n", session.Key, session.Status.String())
	fmt.Printf("Title: %s\n", session.Title)
	if session.Summary != "" {
		fmt.Printf("\n%s\n", session.Summary)
	}
	return nil
}

func batchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("batch needs at least one URL argument")
	}
	urls := c.Args().Slice()

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	coordinator := platform.NewCoordinator(nil, func(completed, total int, url string) {
		fmt.Fprintf(os.Stderr, "[%d/%d] finished %s\n", completed, total, url)
	})

	summary, err := coordinator.Run(context.Background(), urls)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d URLs: %d completed, %d failed\n",
		summary.Total, summary.Completed, summary.Failed)
	for _, url := range urls {
		result := summary.Results[url]
		line := fmt.Sprintf("  %s  %s", result.Status.String(), url)
		if result.Detail != "" {
			line += "  (" + result.Detail + ")"
		}
		fmt.Println(line)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d sessions failed", summary.Failed, summary.Total)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("ask needs a question argument")
	}
	question := strings.Join(c.Args().Slice(), " ")

	sessionKey := c.String("session")
	if c.Bool("save") && sessionKey == "" {
		return fmt.Errorf("--save needs --session")
	}
	compare := c.StringSlice("compare")
	if len(compare) == 1 {
		return fmt.Errorf("--compare needs at least two session keys")
	}

	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	ctx := context.Background()
	if _, err := platform.Reindex(ctx); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	engine := platform.NewEngine()

	var answer *rag.Answer
	if len(compare) > 0 {
		answer, err = engine.CompareSessions(ctx, question, compare, c.Int("top-k"))
	} else {
		var history []core.ChatMessage
		if sessionKey != "" {
			stored, herr := platform.ChatRepository().GetChatMessages(ctx, sessionKey, 0)
			if herr != nil {
				return fmt.Errorf("loading chat history: %w", herr)
			}
			for _, m := range stored {
				history = append(history, *m)
			}
		}
		answer, err = engine.Ask(ctx, rag.Request{
			Question:         question,
			SessionKey:       sessionKey,
			Speaker:          c.String("speaker"),
			Country:          c.String("country"),
			TopK:             c.Int("top-k"),
			History:          history,
			DisableExpansion: c.Bool("no-expand"),
		})
	}
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for i := range answer.Sources {
			fmt.Println("  " + answer.Sources[i].Citation())
		}
	}
	fmt.Fprintf(os.Stderr, "\nretrieved=%d cited=%d tokens=%d multiQuery=%t success=%t\n",
		answer.Metadata.SegmentsRetrieved, answer.Metadata.SourcesCited,
		answer.Metadata.TokensUsed, answer.Metadata.MultiQuery, answer.Metadata.QuerySuccess)

	if c.Bool("save") {
		_, err := platform.ChatRepository().AppendChatMessages(ctx,
			&core.ChatMessage{SessionKey: sessionKey, Role: core.ChatRoleUser, Content: question},
			&core.ChatMessage{SessionKey: sessionKey, Role: core.ChatRoleAssistant, Content: answer.Text},
		)
		if err != nil {
			return fmt.Errorf("saving chat log: %w", err)
		}
	}
	return nil
}

func sessionsCommand(c *cli.Context) error {
	platform, err := openPlatform(c)
	if err != nil {
		return err
	}
	defer platform.Close()

	ctx := context.Background()
	var sessions []*core.Session

	if statusStr := c.String("status"); statusStr != "" {
		status, err := parseStatus(statusStr)
		if err != nil {
			return err
		}
		sessions, err = platform.SessionRepository().ListSessionsByStatus(ctx, status)
		if err != nil {
			return err
		}
	} else {
		sessions, err = platform.SessionRepository().ListSessions(ctx, c.Int("limit"))
		if err != nil {
			return err
		}
	}

	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	for _, s := range sessions {
		date := ""
		if !s.Date.IsZero() {
			date = s.Date.Format("2006-01-02")
		}
		line := fmt.Sprintf("%s  %-12s %-10s %s", s.Key, s.Status.String(), date, s.Title)
		if s.ErrorMessage != "" {
			line += "  (" + s.ErrorMessage + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func parseStatus(s string) (core.Status, error) {
	for status := core.StatusPending; status <= core.StatusFailed; status++ {
		if strings.EqualFold(status.String(), s) {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
