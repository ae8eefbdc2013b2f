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

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/mwauters/casegraph/ai"
	"github.com/mwauters/casegraph/chunk"
	"github.com/mwauters/casegraph/core"
	"github.com/mwauters/casegraph/parse"
	"github.com/mwauters/casegraph/store"
)

const (
	// Lane names double as vector-store source labels.
	LaneEmail    = "email"
	LaneRegister = "register"
)

// Sources names the input files for one ingestion run.
type Sources struct {
	MailboxPaths  []string
	RegisterPaths []string
}

// ProgressFunc is called after each processed entry.
type ProgressFunc func(lane string, done, total int)

// Pipeline runs ingestion against a graph store, a vector store, and an
// embedding provider.
type Pipeline struct {
	graph    store.GraphStore
	vector   store.VectorStore
	embedder ai.Embedder
	cache    EmbeddingCache

	chunker  *chunk.Chunker
	emails   *parse.EmailParser
	register *parse.RegisterParser
	progress ProgressFunc
	logger   *slog.Logger
}

// Option is a functional option for configuring a Pipeline.
type Option func(*Pipeline) error

// WithCache attaches an embedding cache. Nil disables caching.
func WithCache(cache EmbeddingCache) Option {
	return func(p *Pipeline) error {
		p.cache = cache
		return nil
	}
}

// WithChunking replaces the default chunker configuration.
func WithChunking(cfg chunk.Config) Option {
	return func(p *Pipeline) error {
		p.chunker = chunk.New(cfg)
		return nil
	}
}

// WithEmailParser replaces the default email parser.
func WithEmailParser(parser *parse.EmailParser) Option {
	return func(p *Pipeline) error {
		if parser == nil {
			return errors.New("ingest: email parser is nil")
		}
		p.emails = parser
		return nil
	}
}

// WithRegisterParser replaces the default register parser.
func WithRegisterParser(parser *parse.RegisterParser) Option {
	return func(p *Pipeline) error {
		if parser == nil {
			return errors.New("ingest: register parser is nil")
		}
		p.register = parser
		return nil
	}
}

// WithProgress sets a per-entry progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) error {
		p.progress = fn
		return nil
	}
}

// New creates a pipeline. Graph store, vector store, and embedder are
// required.
func New(graph store.GraphStore, vector store.VectorStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if graph == nil {
		return nil, errors.New("ingest: graph store is required")
	}
	if vector == nil {
		return nil, errors.New("ingest: vector store is required")
	}
	if embedder == nil {
		return nil, errors.New("ingest: embedder is required")
	}

	p := &Pipeline{
		graph:    graph,
		vector:   vector,
		embedder: embedder,
		chunker:  chunk.New(chunk.Config{}),
		emails:   parse.NewEmailParser(),
		register: parse.NewRegisterParser(),
		logger:   slog.Default().With("component", "ingest"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run executes one ingestion run. Connection failures abort the run;
// everything after that is recorded per item and skipped. Both stores are
// closed on every exit path.
func (p *Pipeline) Run(ctx context.Context, sources Sources) (*RunStats, error) {
	stats := &RunStats{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := p.logger.With("run", stats.RunID)
	logger.Info("starting ingestion run",
		"mailboxes", len(sources.MailboxPaths), "registers", len(sources.RegisterPaths))

	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := p.graph.Close(disconnectCtx); err != nil {
			logger.Warn("closing graph store", "err", err)
		}
		if err := p.vector.Close(disconnectCtx); err != nil {
			logger.Warn("closing vector store", "err", err)
		}
	}()

	if err := p.graph.Connect(ctx); err != nil {
		return stats, fmt.Errorf("connecting graph store: %w", err)
	}
	if err := p.vector.Connect(ctx); err != nil {
		return stats, fmt.Errorf("connecting vector store: %w", err)
	}

	errs := &errorList{}
	pool, err := ants.NewPool(2)
	if err != nil {
		return stats, fmt.Errorf("creating lane pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	runLane := func(lane string, fn func() LaneStats, out *LaneStats) {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			*out = fn()
		})
		if submitErr != nil {
			wg.Done()
			errs.add(fmt.Sprintf("%s lane: %v", lane, submitErr))
		}
	}

	runLane(LaneEmail, func() LaneStats {
		entries := p.parseAll(p.emails.ParseFile, sources.MailboxPaths)
		return p.processLane(ctx, LaneEmail, entries, errs)
	}, &stats.Email)
	runLane(LaneRegister, func() LaneStats {
		entries := p.parseAll(p.register.ParseFile, sources.RegisterPaths)
		return p.processLane(ctx, LaneRegister, entries, errs)
	}, &stats.Register)
	wg.Wait()

	if vectorStats, err := p.vector.Stats(ctx); err != nil {
		errs.add(fmt.Sprintf("reading vector stats: %v", err))
	} else {
		logger.Info("vector store after run",
			"documents", vectorStats.Documents, "chunks", vectorStats.Chunks)
	}

	stats.Errors = errs.slice()
	stats.Elapsed = time.Since(stats.StartedAt)
	logger.Info("ingestion run finished",
		"elapsed", stats.Elapsed, "errors", len(stats.Errors))
	return stats, nil
}

func (p *Pipeline) parseAll(parseFile func(string) []parse.Entry, paths []string) []parse.Entry {
	var entries []parse.Entry
	for _, path := range paths {
		entries = append(entries, parseFile(path)...)
	}
	return entries
}

// processLane pushes every entry through graph upserts, chunking,
// embedding, and vector upserts. Failures are recorded and the loop moves
// on.
func (p *Pipeline) processLane(ctx context.Context, lane string, entries []parse.Entry, errs *errorList) LaneStats {
	stats := LaneStats{Parsed: len(entries)}

	for i, entry := range entries {
		if err := p.upsertGraph(ctx, lane, entry); err != nil {
			errs.add(fmt.Sprintf("%s %s: %v", lane, entry.Event.ExternalID, err))
		} else {
			stats.Upserted++
		}

		chunks, err := p.upsertVector(ctx, lane, entry)
		if err != nil {
			errs.add(fmt.Sprintf("%s %s: %v", lane, entry.Event.ExternalID, err))
		} else {
			stats.Chunks += chunks
			stats.Embedded += chunks
		}

		if p.progress != nil {
			p.progress(lane, i+1, len(entries))
		}
	}
	return stats
}

// upsertGraph writes the event node, its continuance and sender if
// present, the per-source-file document node, and the relationships among
// them.
func (p *Pipeline) upsertGraph(ctx context.Context, lane string, entry parse.Entry) error {
	event := entry.Event
	if err := p.graph.UpsertEvent(ctx, event); err != nil {
		return fmt.Errorf("upserting event: %w", err)
	}

	sourceDoc := core.Document{
		ExternalID: core.ExternalID("document", event.SourcePath),
		Title:      filepath.Base(event.SourcePath),
		Source:     lane,
		URL:        event.SourcePath,
	}
	if err := p.graph.UpsertDocument(ctx, sourceDoc); err != nil {
		return fmt.Errorf("upserting source document: %w", err)
	}
	if err := p.graph.CreateRelationship(ctx, event.ExternalID, sourceDoc.ExternalID, "REFERENCED_IN", nil); err != nil {
		return fmt.Errorf("linking event to source: %w", err)
	}

	if entry.Continuance != nil {
		if err := p.graph.UpsertContinuance(ctx, *entry.Continuance); err != nil {
			return fmt.Errorf("upserting continuance: %w", err)
		}
		if err := p.graph.CreateRelationship(ctx, entry.Continuance.ExternalID, event.ExternalID, "CONTINUANCE_OF", nil); err != nil {
			return fmt.Errorf("linking continuance: %w", err)
		}
	}

	if entry.Sender != nil {
		if err := p.graph.UpsertPerson(ctx, *entry.Sender); err != nil {
			return fmt.Errorf("upserting sender: %w", err)
		}
		if err := p.graph.CreateRelationship(ctx, event.ExternalID, entry.Sender.ExternalID, "SENT_BY", nil); err != nil {
			return fmt.Errorf("linking sender: %w", err)
		}
	}
	return nil
}

// upsertVector writes one vector-store document per event, sharing the
// event's external id so the cross-store consistency check can pair them,
// then chunks, embeds, and upserts the body. Returns the chunk count.
func (p *Pipeline) upsertVector(ctx context.Context, lane string, entry parse.Entry) (int, error) {
	text := entry.Body
	if text == "" {
		text = entry.Event.Snippet
	}
	if text == "" {
		text = entry.Event.Description
	}

	doc := core.Document{
		ExternalID: entry.Event.ExternalID,
		Title:      entry.Title,
		Source:     lane,
		URL:        entry.Event.SourcePath,
	}
	if err := p.vector.UpsertDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("upserting vector document: %w", err)
	}

	pieces := p.chunker.Split(text)
	if len(pieces) == 0 {
		return 0, nil
	}
	chunks := make([]core.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = core.NewChunk(doc.ExternalID, i, piece)
	}

	chunks, err := EmbedChunks(ctx, p.embedder, p.cache, chunks)
	if err != nil {
		return 0, err
	}
	if err := p.vector.UpsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("upserting chunks: %w", err)
	}
	return len(chunks), nil
}
