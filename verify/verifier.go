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

package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mwauters/casegraph/store"
)

const (
	defaultSampleSize = 5
	defaultProbeDim   = 1536

	// Cross-store match ratio boundaries. Exactly 0.8 passes.
	ratioPass    = 0.8
	ratioWarning = 0.5
)

// Verifier runs the integrity checks against both stores. The stores must
// already be connected; the verifier never connects, mutates, or closes.
type Verifier struct {
	graph      store.GraphStore
	vector     store.VectorStore
	sampleSize int
	probeDim   int
	logger     *slog.Logger
}

// Option is a functional option for configuring a Verifier.
type Option func(*Verifier) error

// WithSampleSize sets how many graph events the cross-store check samples.
func WithSampleSize(n int) Option {
	return func(v *Verifier) error {
		if n < 1 {
			return errors.New("verify: sample size must be positive")
		}
		v.sampleSize = n
		return nil
	}
}

// WithProbeDim sets the synthetic probe vector dimensionality; it must
// match the vector store's embedding dimension.
func WithProbeDim(dim int) Option {
	return func(v *Verifier) error {
		if dim < 1 {
			return errors.New("verify: probe dimension must be positive")
		}
		v.probeDim = dim
		return nil
	}
}

// New creates a verifier over connected graph and vector stores.
func New(graph store.GraphStore, vector store.VectorStore, opts ...Option) (*Verifier, error) {
	if graph == nil {
		return nil, errors.New("verify: graph store is required")
	}
	if vector == nil {
		return nil, errors.New("verify: vector store is required")
	}

	v := &Verifier{
		graph:      graph,
		vector:     vector,
		sampleSize: defaultSampleSize,
		probeDim:   defaultProbeDim,
		logger:     slog.Default().With("component", "verify"),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Run executes every check and returns the report.
func (v *Verifier) Run(ctx context.Context) *Report {
	report := &Report{}
	checks := []struct {
		name string
		fn   func(context.Context) CheckResult
	}{
		{"graph-connectivity", v.checkGraphConnectivity},
		{"orphaned-events", v.checkOrphanedEvents},
		{"duplicate-external-ids", v.checkDuplicateExternalIDs},
		{"index-presence", v.checkIndexPresence},
		{"vector-connectivity", v.checkVectorConnectivity},
		{"document-chunk-ratio", v.checkDocumentChunkRatio},
		{"vector-search-probe", v.checkVectorSearchProbe},
		{"cross-store-consistency", v.checkCrossStoreConsistency},
	}

	for _, check := range checks {
		result := v.runCheck(ctx, check.name, check.fn)
		v.logger.Info("check finished", "check", result.Name, "status", result.Status)
		report.Results = append(report.Results, result)
	}
	return report
}

// runCheck converts panics and leaves the check's own result otherwise.
func (v *Verifier) runCheck(ctx context.Context, name string, fn func(context.Context) CheckResult) (result CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = CheckResult{
				Name:    name,
				Status:  StatusFail,
				Message: fmt.Sprintf("check panicked: %v", r),
			}
		}
	}()
	result = fn(ctx)
	result.Name = name
	return result
}

func fail(err error) CheckResult {
	return CheckResult{Status: StatusFail, Message: err.Error()}
}

func (v *Verifier) checkGraphConnectivity(ctx context.Context) CheckResult {
	_, err := v.graph.ExecuteQuery(ctx, "RETURN 1 AS ok", nil)
	if err != nil {
		return fail(fmt.Errorf("graph round trip failed: %w", err))
	}
	return CheckResult{Status: StatusPass, Message: "graph store reachable"}
}

func (v *Verifier) checkOrphanedEvents(ctx context.Context) CheckResult {
	records, err := v.graph.ExecuteQuery(ctx, `
		MATCH (e:Event)
		WHERE NOT (e)-[:CITES_EVIDENCE|REFERENCED_IN]->()
		RETURN count(e) AS orphans`, nil)
	if err != nil {
		return fail(fmt.Errorf("orphan query failed: %w", err))
	}

	orphans := intValue(records, "orphans")
	if orphans > 0 {
		return CheckResult{
			Status:  StatusWarning,
			Message: fmt.Sprintf("%d events have no evidence or source relationship", orphans),
			Details: map[string]any{"orphans": orphans},
		}
	}
	return CheckResult{Status: StatusPass, Message: "no orphaned events"}
}

func (v *Verifier) checkDuplicateExternalIDs(ctx context.Context) CheckResult {
	records, err := v.graph.ExecuteQuery(ctx, `
		MATCH (n)
		WHERE n.externalId IS NOT NULL
		WITH n.externalId AS id, count(n) AS copies
		WHERE copies > 1
		RETURN id, copies
		LIMIT 25`, nil)
	if err != nil {
		return fail(fmt.Errorf("duplicate-id query failed: %w", err))
	}

	if len(records) > 0 {
		ids := make([]string, 0, len(records))
		for _, record := range records {
			if id, ok := record["id"].(string); ok {
				ids = append(ids, id)
			}
		}
		// Duplicates mean the upsert invariant is broken somewhere.
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%d external ids appear on multiple nodes", len(records)),
			Details: map[string]any{"ids": ids},
		}
	}
	return CheckResult{Status: StatusPass, Message: "external ids are unique"}
}

func (v *Verifier) checkIndexPresence(ctx context.Context) CheckResult {
	records, err := v.graph.ExecuteQuery(ctx, "SHOW INDEXES", nil)
	if err != nil {
		return CheckResult{
			Status:  StatusWarning,
			Message: fmt.Sprintf("could not list indexes: %v", err),
		}
	}

	for _, record := range records {
		if propsMention(record["properties"], "externalId") {
			return CheckResult{Status: StatusPass, Message: "externalId lookup index present"}
		}
	}
	return CheckResult{
		Status:  StatusWarning,
		Message: "no index on externalId found; lookups will scan",
	}
}

func (v *Verifier) checkVectorConnectivity(ctx context.Context) CheckResult {
	stats, err := v.vector.Stats(ctx)
	if err != nil {
		return fail(fmt.Errorf("vector stats failed: %w", err))
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("vector store reachable: %d documents, %d chunks", stats.Documents, stats.Chunks),
		Details: map[string]any{"documents": stats.Documents, "chunks": stats.Chunks, "sources": stats.Sources},
	}
}

func (v *Verifier) checkDocumentChunkRatio(ctx context.Context) CheckResult {
	stats, err := v.vector.Stats(ctx)
	if err != nil {
		return fail(fmt.Errorf("vector stats failed: %w", err))
	}

	if stats.Documents > 0 && stats.Chunks < stats.Documents {
		return CheckResult{
			Status:  StatusWarning,
			Message: fmt.Sprintf("chunk:document ratio below 1:1 (%d chunks for %d documents)", stats.Chunks, stats.Documents),
			Details: map[string]any{"documents": stats.Documents, "chunks": stats.Chunks},
		}
	}
	return CheckResult{Status: StatusPass, Message: "chunk:document ratio is sane"}
}

func (v *Verifier) checkVectorSearchProbe(ctx context.Context) CheckResult {
	probe := make([]float32, v.probeDim)
	for i := range probe {
		probe[i] = 0.1
	}

	hits, err := v.vector.VectorSearch(ctx, probe, 1, 0, "")
	if err != nil {
		return fail(fmt.Errorf("probe search failed: %w", err))
	}
	// Zero hits is fine on an empty store; the call path is what matters.
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("probe search returned %d hits", len(hits)),
	}
}

func (v *Verifier) checkCrossStoreConsistency(ctx context.Context) CheckResult {
	records, err := v.graph.ExecuteQuery(ctx, `
		MATCH (e:Event)
		RETURN e.externalId AS id
		LIMIT $limit`, map[string]any{"limit": v.sampleSize})
	if err != nil {
		return fail(fmt.Errorf("sampling graph events failed: %w", err))
	}
	if len(records) == 0 {
		return CheckResult{Status: StatusPass, Message: "no events to sample"}
	}

	matched := 0
	var missing []string
	for _, record := range records {
		id, ok := record["id"].(string)
		if !ok || id == "" {
			continue
		}
		_, err := v.vector.GetDocument(ctx, id)
		switch {
		case err == nil:
			matched++
		case errors.Is(err, store.ErrNotFound):
			missing = append(missing, id)
		default:
			return fail(fmt.Errorf("looking up document %s: %w", id, err))
		}
	}

	sampled := matched + len(missing)
	if sampled == 0 {
		return CheckResult{Status: StatusPass, Message: "no events to sample"}
	}

	ratio := float64(matched) / float64(sampled)
	result := CheckResult{
		Message: fmt.Sprintf("%d of %d sampled events have vector documents", matched, sampled),
		Details: map[string]any{"matched": matched, "sampled": sampled, "missing": missing},
	}
	switch {
	case ratio >= ratioPass:
		result.Status = StatusPass
	case ratio >= ratioWarning:
		result.Status = StatusWarning
	default:
		result.Status = StatusFail
	}
	return result
}

func intValue(records []map[string]any, key string) int {
	if len(records) == 0 {
		return 0
	}
	switch n := records[0][key].(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

// propsMention reports whether an index record's property listing names
// the given property, tolerating both string and list shapes.
func propsMention(props any, name string) bool {
	switch value := props.(type) {
	case string:
		return strings.Contains(value, name)
	case []any:
		for _, item := range value {
			if s, ok := item.(string); ok && s == name {
				return true
			}
		}
	case []string:
		for _, s := range value {
			if s == name {
				return true
			}
		}
	}
	return false
}
