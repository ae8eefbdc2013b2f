// Copyright 2026 Mathieu Wauters
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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mwauters/casegraph"
	"github.com/mwauters/casegraph/chunk"
	"github.com/mwauters/casegraph/core"
	"github.com/mwauters/casegraph/ingest"
	"github.com/mwauters/casegraph/parse"
	"github.com/mwauters/casegraph/reembed"
	"github.com/mwauters/casegraph/verify"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "casegraph",
		Usage: "Legal case ingestion and retrieval over a graph and vector store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Parse case sources and load them into both stores",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "mbox",
						Aliases: []string{"m"},
						Usage:   "Path to an mbox mailbox file (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:    "register",
						Aliases: []string{"r"},
						Usage:   "Path to a register-of-actions file (repeatable)",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum characters per chunk",
						Value: 1000,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Character overlap between consecutive chunks",
						Value: 200,
					},
				},
			},
			{
				Name:   "verify",
				Usage:  "Run integrity checks across the graph and vector stores",
				Action: verifyCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "sample-size",
						Usage: "Number of events to sample for cross-store checks",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  "probe-dim",
						Usage: "Embedding dimension for the search probe",
						Value: 1536,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search ingested chunks",
				ArgsUsage: "<query text>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Search mode (vector, keyword, hybrid)",
						Value: "hybrid",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum cosine similarity for vector matches",
						Value: 0.3,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Restrict vector results to one source label (email, register)",
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embeddings for every stored chunk",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Number of chunks to re-embed per page",
						Value: 100,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Report store contents",
				Action: statsCommand,
			},
		},
	}
}

func ingestCommand(c *cli.Context) error {
	ctx := c.Context

	mboxPaths := c.StringSlice("mbox")
	registerPaths := c.StringSlice("register")
	if len(mboxPaths) == 0 && len(registerPaths) == 0 {
		return fmt.Errorf("at least one --mbox or --register file is required")
	}

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	embedder, err := app.Embedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	opts := []ingest.Option{
		ingest.WithChunking(chunk.Config{
			MaxSize: c.Int("chunk-size"),
			Overlap: c.Int("chunk-overlap"),
		}),
	}

	embCache, err := app.Cache()
	if err != nil {
		return fmt.Errorf("failed to open embedding cache: %w", err)
	}
	if embCache != nil {
		opts = append(opts, ingest.WithCache(embCache))
	}

	progress := newIngestProgress()
	opts = append(opts, ingest.WithProgress(progress.update))

	pipeline, err := ingest.New(app.Graph(), app.Vector(), embedder, opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	stats, err := pipeline.Run(ctx, ingest.Sources{
		MailboxPaths:  mboxPaths,
		RegisterPaths: registerPaths,
	})
	progress.finish()
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	casegraph.NotifyAsync(webhookSink(os.Getenv("CASEGRAPH_WEBHOOK")), map[string]any{
		"run_id":            stats.RunID,
		"elapsed":           stats.Elapsed.String(),
		"errors":            len(stats.Errors),
		"email_upserted":    stats.Email.Upserted,
		"register_upserted": stats.Register.Upserted,
	})

	printRunSummary(stats)
	if stats.Failed() {
		return cli.Exit(color.RedString("ingestion completed with %d errors", len(stats.Errors)), 1)
	}
	return nil
}

func verifyCommand(c *cli.Context) error {
	ctx := c.Context

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	graph := app.Graph()
	if err := graph.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect graph store: %w", err)
	}
	vector := app.Vector()
	if err := vector.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect vector store: %w", err)
	}

	verifier, err := verify.New(graph, vector,
		verify.WithSampleSize(c.Int("sample-size")),
		verify.WithProbeDim(c.Int("probe-dim")),
	)
	if err != nil {
		return fmt.Errorf("failed to create verifier: %w", err)
	}

	report := verifier.Run(ctx)
	for _, result := range report.Results {
		fmt.Printf("%s  %-26s %s\n", statusBadge(result.Status), result.Name, result.Message)
	}

	summary := report.Summarize()
	fmt.Println()
	fmt.Printf("%d checks: %d passed, %d warnings, %d failed\n",
		summary.Total, summary.Passed, summary.Warned, summary.Failed)

	if report.Failed() {
		return cli.Exit(color.RedString("verification failed"), 1)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := c.Context

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}
	mode := c.String("mode")
	limit := c.Int("limit")
	threshold := float32(c.Float64("threshold"))

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	vector := app.Vector()
	if err := vector.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect vector store: %w", err)
	}

	var hits []core.SearchHit
	switch mode {
	case "keyword":
		hits, err = vector.KeywordSearch(ctx, query, limit)
	case "vector", "hybrid":
		embedder, embErr := app.Embedder()
		if embErr != nil {
			return fmt.Errorf("failed to create embedder: %w", embErr)
		}
		embedding, embErr := embedder.EmbedText(ctx, query)
		if embErr != nil {
			return fmt.Errorf("failed to embed query: %w", embErr)
		}
		if mode == "vector" {
			hits, err = vector.VectorSearch(ctx, embedding, limit, threshold, c.String("source"))
		} else {
			hits, err = vector.HybridSearch(ctx, embedding, query, limit, threshold)
		}
	default:
		return fmt.Errorf("unknown mode %q: must be vector, keyword, or hybrid", mode)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, hit := range hits {
		fmt.Printf("%2d. %s  %s (%s, chunk %d)\n",
			i+1, color.CyanString("%.3f", hit.Similarity), hit.DocumentID, hit.Source, hit.ChunkIndex)
		fmt.Printf("    %s\n", parse.ExtractSnippet(hit.Content, 160))
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := c.Context

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	embedder, err := app.Embedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	vector := app.Vector()
	if err := vector.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect vector store: %w", err)
	}

	opts := []reembed.Option{
		reembed.WithPageSize(c.Int("page-size")),
	}
	embCache, err := app.Cache()
	if err != nil {
		return fmt.Errorf("failed to open embedding cache: %w", err)
	}
	if embCache != nil {
		opts = append(opts, reembed.WithCache(embCache))
	}

	spinner := getSpinner("re-embedding chunks")
	opts = append(opts, reembed.WithProgress(func(done int) {
		_ = spinner.Set(done)
	}))

	service, err := reembed.New(vector, embedder, opts...)
	if err != nil {
		return fmt.Errorf("failed to create re-embedder: %w", err)
	}

	stats, err := service.Run(ctx)
	_ = spinner.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("re-embedding failed: %w", err)
	}

	fmt.Println(color.GreenString("re-embedded %d chunks across %d pages in %s",
		stats.Chunks, stats.Pages, stats.Elapsed.Round(time.Millisecond)))
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := c.Context

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	graph := app.Graph()
	if err := graph.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect graph store: %w", err)
	}
	vector := app.Vector()
	if err := vector.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect vector store: %w", err)
	}

	nodes, err := graph.ExecuteQuery(ctx, "MATCH (n) RETURN count(n) AS total", nil)
	if err != nil {
		return fmt.Errorf("failed to count nodes: %w", err)
	}
	rels, err := graph.ExecuteQuery(ctx, "MATCH ()-[r]->() RETURN count(r) AS total", nil)
	if err != nil {
		return fmt.Errorf("failed to count relationships: %w", err)
	}
	vstats, err := vector.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read vector stats: %w", err)
	}

	fmt.Println(color.CyanString("graph"))
	fmt.Printf("  nodes:         %d\n", countResult(nodes))
	fmt.Printf("  relationships: %d\n", countResult(rels))
	fmt.Println(color.CyanString("vector"))
	fmt.Printf("  documents:     %d\n", vstats.Documents)
	fmt.Printf("  chunks:        %d\n", vstats.Chunks)
	fmt.Printf("  sources:       %s\n", strings.Join(vstats.Sources, ", "))
	return nil
}

func setup(c *cli.Context) error {
	if err := setupLogger(c); err != nil {
		return err
	}
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded environment from .env")
	}
	return nil
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
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func buildApp() (*casegraph.App, error) {
	cfg, err := casegraph.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return casegraph.NewApp(cfg)
}

// ingestProgress drives one shared bar across both concurrent lanes.
type ingestProgress struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	done  map[string]int
	total map[string]int
}

func newIngestProgress() *ingestProgress {
	return &ingestProgress{
		done:  make(map[string]int),
		total: make(map[string]int),
	}
}

func (p *ingestProgress) update(lane string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = getProgressBar(total, "ingesting")
	}
	p.done[lane] = done
	p.total[lane] = total

	sumDone, sumTotal := 0, 0
	for lane := range p.total {
		sumDone += p.done[lane]
		sumTotal += p.total[lane]
	}
	p.bar.ChangeMax(sumTotal)
	_ = p.bar.Set(sumDone)
}

func (p *ingestProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printRunSummary(stats *ingest.RunStats) {
	fmt.Println()
	fmt.Println(color.GreenString("run %s finished in %s", stats.RunID, stats.Elapsed.Round(time.Millisecond)))
	printLane("email", stats.Email)
	printLane("register", stats.Register)
	for _, msg := range stats.Errors {
		fmt.Println(color.RedString("  error: %s", msg))
	}
}

func printLane(name string, lane ingest.LaneStats) {
	fmt.Printf("  %-8s parsed=%d upserted=%d chunks=%d embedded=%d\n",
		name, lane.Parsed, lane.Upserted, lane.Chunks, lane.Embedded)
}

func statusBadge(status verify.Status) string {
	switch status {
	case verify.StatusPass:
		return color.GreenString("PASS")
	case verify.StatusWarning:
		return color.YellowString("WARN")
	default:
		return color.RedString("FAIL")
	}
}

// webhookSink posts a run summary as JSON, or nil when no URL is set.
func webhookSink(url string) casegraph.Sink {
	if url == "" {
		return nil
	}
	client := &http.Client{Timeout: 5 * time.Second}
	return func(event map[string]any) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned %s", resp.Status)
		}
		return nil
	}
}

func countResult(records []map[string]any) int64 {
	if len(records) == 0 {
		return 0
	}
	if n, ok := records[0]["total"].(int64); ok {
		return n
	}
	return 0
}
