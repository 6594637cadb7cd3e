// Copyright 2025 Poiesic Systems
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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/rentmatch"
	"github.com/poiesic/rentmatch/ai"
	"github.com/poiesic/rentmatch/cache"
	"github.com/poiesic/rentmatch/catalog"
	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/match"
	"github.com/poiesic/rentmatch/metrics"
	"github.com/urfave/cli/v2"
)

const (
	defaultHost     = "http://localhost:11434/v1"
	defaultTopK     = 10
	defaultRedisTTL = 7 * 24 * time.Hour
)

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "rentmatch",
		Usage: "Match sale listings against a catalog of rentals",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"RENTMATCH_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Serve Prometheus metrics on this address while the command runs",
				EnvVars: []string{"RENTMATCH_METRICS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "metrics-file",
				Usage:   "Write Prometheus metrics to this file when the command ends",
				EnvVars: []string{"RENTMATCH_METRICS_FILE"},
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return setupMetrics(c)
		},
		After: flushMetrics,
		Commands: []*cli.Command{
			{
				Name:   "import",
				Usage:  "Import rentals from a JSON file or a Postgres table",
				Action: importCommand,
				Flags: withServiceFlags(
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "JSON file of raw or normalized rental records",
					},
					&cli.StringFlag{
						Name:    "postgres",
						Usage:   "Postgres DSN of the rentals table",
						EnvVars: []string{"RENTMATCH_POSTGRES_DSN"},
					},
					&cli.BoolFlag{
						Name:  "warm",
						Usage: "Embed the text of new and changed rentals after importing",
					},
					&cli.BoolFlag{
						Name:  "rebuild-index",
						Usage: "Rebuild the similarity index after importing",
					},
				),
			},
			{
				Name:   "build-index",
				Usage:  "Build the similarity index over the whole catalog",
				Action: buildIndexCommand,
				Flags:  withServiceFlags(),
			},
			{
				Name:   "match",
				Usage:  "Rank the catalog against a sale listing",
				Action: matchCommand,
				Flags: withServiceFlags(
					&cli.StringFlag{
						Name:     "sale",
						Aliases:  []string{"s"},
						Usage:    "JSON file holding the sale listing",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of matches to return",
						Value:   defaultTopK,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the result as JSON",
					},
					&cli.BoolFlag{
						Name:  "no-index",
						Usage: "Score the whole catalog even when a saved index exists",
					},
				),
			},
			{
				Name:      "invalidate",
				Usage:     "Drop cached embeddings of the given rentals, or of all rentals",
				ArgsUsage: "[rental-id...]",
				Action:    invalidateCommand,
				Flags:     withServiceFlags(),
			},
			{
				Name:   "stats",
				Usage:  "Print catalog and index statistics as JSON",
				Action: statsCommand,
				Flags:  withServiceFlags(),
			},
		},
	}
}

// withServiceFlags returns the flags every command needs to open the
// catalog, followed by extra.
func withServiceFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
			EnvVars:  []string{"RENTMATCH_DB"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Text embedding service host URL",
			Value:   defaultHost,
			EnvVars: []string{"RENTMATCH_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Text embedding model name",
			Value:   ai.DefaultConfig().EmbeddingModel,
			EnvVars: []string{"RENTMATCH_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "image-host",
			Usage:   "Image embedding service host URL",
			Value:   defaultHost,
			EnvVars: []string{"RENTMATCH_IMAGE_HOST"},
		},
		&cli.StringFlag{
			Name:    "image-model",
			Usage:   "Image embedding model name",
			Value:   ai.DefaultConfig().ImageModel,
			EnvVars: []string{"RENTMATCH_IMAGE_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Bearer token for the embedding services",
			EnvVars: []string{"RENTMATCH_API_KEY", "OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for an embedding cache shared between processes",
			EnvVars: []string{"RENTMATCH_REDIS_ADDR"},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			EnvVars: []string{"RENTMATCH_REDIS_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "index-path",
			Usage:   "File the similarity index snapshot is saved to",
			EnvVars: []string{"RENTMATCH_INDEX_PATH"},
		},
		&cli.BoolFlag{
			Name:    "fast",
			Usage:   "Use the smaller candidate set and text-heavy weights",
			EnvVars: []string{"RENTMATCH_FAST"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Deadline of a match request; zero disables it",
			EnvVars: []string{"RENTMATCH_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "Rentals scored in parallel",
			Value:   rentmatch.DefaultConfig().Concurrency,
			EnvVars: []string{"RENTMATCH_CONCURRENCY"},
		},
	}
	return append(flags, extra...)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))
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
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// serviceConfig maps the command flags onto the matching tunables.
func serviceConfig(c *cli.Context) (rentmatch.Config, error) {
	config := rentmatch.DefaultConfig()
	if c.Bool("fast") {
		config = rentmatch.FastConfig()
	}
	if c.IsSet("timeout") {
		config.Timeout = c.Duration("timeout")
	}
	config.Concurrency = c.Int("concurrency")
	config.IndexPath = c.String("index-path")
	return config, config.Validate()
}

func aiConfig(c *cli.Context) *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithImageHost(c.String("image-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithImageModel(c.String("image-model")),
	}
	if key := c.String("api-key"); key != "" {
		opts = append(opts, ai.WithAPIKey(key))
	}
	return ai.NewConfig(opts...)
}

func openService(c *cli.Context) (*rentmatch.Service, error) {
	dbPath := c.String("db")
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	config, err := serviceConfig(c)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	aiCfg := aiConfig(c)
	if err := aiCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []rentmatch.Option{
		rentmatch.WithAIConfig(aiCfg),
		rentmatch.WithConfig(config),
		rentmatch.WithMonitor(metrics.Default()),
		rentmatch.WithLogger(slog.Default()),
	}
	if addr := c.String("redis-addr"); addr != "" {
		shared, err := cache.DialRedis(c.Context, addr, c.String("redis-password"), defaultRedisTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		opts = append(opts, rentmatch.WithSharedCache(shared))
	}

	svc, err := rentmatch.New(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	slog.Debug("service opened",
		"db", dbPath,
		"embedding_host", aiCfg.EmbeddingHost,
		"embedding_model", aiCfg.EmbeddingModel,
		"image_host", aiCfg.ImageHost,
		"image_model", aiCfg.ImageModel)
	return svc, nil
}

func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt)
}

func importCommand(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	var src catalog.Source
	switch {
	case c.String("file") != "" && c.String("postgres") != "":
		return fmt.Errorf("--file and --postgres are mutually exclusive")
	case c.String("file") != "":
		src = &catalog.JSONFile{Path: c.String("file")}
	case c.String("postgres") != "":
		pg, err := catalog.OpenPostgres(ctx, c.String("postgres"))
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pg.Close()
		src = pg
	default:
		return fmt.Errorf("either --file or --postgres is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.ImportCatalog(ctx, src)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Imported: %d\nChanged: %d\nDropped: %d\n", report.Imported, report.Changed, report.Dropped)

	if c.Bool("warm") {
		start := time.Now()
		n, err := svc.WarmEmbeddings(ctx)
		if err != nil {
			return fmt.Errorf("warming embeddings failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Embedded: %d (%s)\n", n, time.Since(start).Round(time.Millisecond))
	}
	if c.Bool("rebuild-index") {
		return rebuildIndex(ctx, svc)
	}
	return nil
}

func buildIndexCommand(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	return rebuildIndex(ctx, svc)
}

func rebuildIndex(ctx context.Context, svc *rentmatch.Service) error {
	start := time.Now()
	idx, err := svc.RebuildIndex(ctx)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Indexed rentals: %d (%s)\n", idx.Len(), time.Since(start).Round(time.Millisecond))
	if svc.Config().IndexPath == "" {
		fmt.Fprintln(os.Stderr, "No --index-path given, the index was not saved")
	}
	return nil
}

func matchCommand(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	sale, err := readSale(c.String("sale"))
	if err != nil {
		return err
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if !c.Bool("no-index") && svc.Config().IndexPath != "" {
		loaded, err := svc.LoadIndex(ctx)
		if err != nil {
			slog.Warn("saved index could not be loaded, scoring the whole catalog", "err", err)
		} else if loaded {
			if stale, err := svc.IndexStale(ctx); err == nil && stale {
				slog.Warn("index is older than the catalog, run build-index to refresh it")
			}
		}
	}

	result, err := svc.Match(ctx, sale, c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matchOutput{Sale: sale, Result: result})
	}
	fmt.Fprintln(os.Stdout, renderResult(sale, result))
	return nil
}

type matchOutput struct {
	Sale *core.Listing `json:"sale"`
	*match.Result
}

func readSale(path string) (*core.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sale listing: %w", err)
	}
	var sale core.Listing
	if err := json.Unmarshal(data, &sale); err != nil {
		return nil, fmt.Errorf("failed to parse sale listing: %w", err)
	}
	return &sale, nil
}

func invalidateCommand(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	ids := c.Args().Slice()
	if err := svc.InvalidateEmbeddings(ctx, ids...); err != nil {
		return fmt.Errorf("invalidation failed: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "Dropped all cached embeddings")
	} else {
		fmt.Fprintf(os.Stderr, "Dropped cached embeddings of %d rentals\n", len(ids))
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if config := svc.Config(); config.IndexPath != "" {
		if _, err := svc.LoadIndex(ctx); err != nil {
			slog.Warn("saved index could not be loaded", "err", err)
		}
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}
