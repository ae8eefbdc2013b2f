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

package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mwauters/casegraph/core"
	"github.com/mwauters/casegraph/store"
)

// Config carries the connection settings for a graph client.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Client implements store.GraphStore. The driver handle is acquired in
// Connect and released in Close; Connect is a no-op when already live.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	driver neo4j.DriverWithContext
}

var _ store.GraphStore = (*Client)(nil)

// NewClient creates an unconnected graph client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		logger: slog.Default().With("component", "graph-store"),
	}
}

// Connect acquires and verifies the driver. Fails fast: a bad URI or
// unreachable server is the caller's problem, not something to retry here.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.driver != nil {
		return nil
	}

	driver, err := neo4j.NewDriverWithContext(c.cfg.URI, neo4j.BasicAuth(c.cfg.Username, c.cfg.Password, ""))
	if err != nil {
		return fmt.Errorf("creating graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return fmt.Errorf("verifying graph connectivity: %w", err)
	}

	c.driver = driver
	c.logger.Info("connected to graph store", "uri", c.cfg.URI, "database", c.cfg.Database)
	return nil
}

// Close releases the driver. Safe to call when never connected.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.driver == nil {
		return nil
	}
	err := c.driver.Close(ctx)
	c.driver = nil
	return err
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) (neo4j.SessionWithContext, error) {
	c.mu.Lock()
	driver := c.driver
	c.mu.Unlock()

	if driver == nil {
		return nil, store.ErrNotConnected
	}
	return driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.cfg.Database,
	}), nil
}

// UpsertNode merges a node by externalId under one label.
func (c *Client) UpsertNode(ctx context.Context, label, externalID string, props map[string]any) error {
	return c.UpsertNodeWithLabels(ctx, []string{label}, externalID, props)
}

// UpsertNodeWithLabels merges a node carrying every supplied label. The
// merge matches on the first label plus externalId; remaining labels are
// added on the same node. Supplied properties overwrite, updatedAt is
// stamped on every write.
func (c *Client) UpsertNodeWithLabels(ctx context.Context, labels []string, externalID string, props map[string]any) error {
	if len(labels) == 0 {
		return fmt.Errorf("%w: at least one label is required", store.ErrInvalidQuery)
	}
	if externalID == "" {
		return core.ErrMissingExternalID
	}

	safe := make([]string, len(labels))
	for i, label := range labels {
		sanitized, err := sanitizeIdentifier(label)
		if err != nil {
			return err
		}
		safe[i] = sanitized
	}

	query := fmt.Sprintf(`
		MERGE (n:%s {externalId: $externalId})
		SET n:%s, n += $props, n.updatedAt = datetime($now)`,
		safe[0], strings.Join(safe, ":"))

	return c.write(ctx, query, map[string]any{
		"externalId": externalID,
		"props":      stripExternalID(props),
		"now":        time.Now().UTC().Format(time.RFC3339),
	})
}

// UpsertEvent merges an Event node.
func (c *Client) UpsertEvent(ctx context.Context, event core.Event) error {
	if err := core.ValidateEvent(&event); err != nil {
		return err
	}
	return c.UpsertNode(ctx, "Event", event.ExternalID, map[string]any{
		"type":        event.Type,
		"date":        event.Date,
		"description": event.Description,
		"actor":       string(event.Actor),
		"sourcePath":  event.SourcePath,
		"snippet":     event.Snippet,
	})
}

// UpsertContinuance merges a schedule-delay node carrying both the Event
// and Continuance labels, so it shows up in event-wide queries and in
// continuance-specific ones.
func (c *Client) UpsertContinuance(ctx context.Context, cont core.Continuance) error {
	if err := core.ValidateContinuance(&cont); err != nil {
		return err
	}
	return c.UpsertNodeWithLabels(ctx, []string{"Event", "Continuance"}, cont.ExternalID, map[string]any{
		"type":         "continuance",
		"date":         cont.Date,
		"reason":       cont.Reason,
		"requestedBy":  string(cont.RequestedBy),
		"durationDays": cont.DurationDays,
		"sourcePath":   cont.SourcePath,
		"snippet":      cont.Snippet,
	})
}

// UpsertPerson merges a Person node.
func (c *Client) UpsertPerson(ctx context.Context, person core.Person) error {
	if person.ExternalID == "" {
		return core.ErrMissingExternalID
	}
	return c.UpsertNode(ctx, "Person", person.ExternalID, map[string]any{
		"name":  person.Name,
		"role":  person.Role,
		"email": person.Email,
		"phone": person.Phone,
	})
}

// UpsertDocument merges a Document node.
func (c *Client) UpsertDocument(ctx context.Context, doc core.Document) error {
	if err := core.ValidateDocument(&doc); err != nil {
		return err
	}
	return c.UpsertNode(ctx, "Document", doc.ExternalID, map[string]any{
		"title":  doc.Title,
		"source": doc.Source,
		"url":    doc.URL,
	})
}

// CreateRelationship merges one directed edge between two existing nodes.
// The MATCH-MATCH-MERGE shape means a missing endpoint creates nothing.
func (c *Client) CreateRelationship(ctx context.Context, fromID, toID, relType string, props map[string]any) error {
	if fromID == "" || toID == "" {
		return core.ErrMissingExternalID
	}
	safeType, err := sanitizeIdentifier(relType)
	if err != nil {
		return err
	}
	if props == nil {
		props = map[string]any{}
	}

	query := fmt.Sprintf(`
		MATCH (a {externalId: $fromId})
		MATCH (b {externalId: $toId})
		MERGE (a)-[r:%s]->(b)
		SET r += $props, r.updatedAt = datetime($now)`, safeType)

	return c.write(ctx, query, map[string]any{
		"fromId": fromID,
		"toId":   toID,
		"props":  props,
		"now":    time.Now().UTC().Format(time.RFC3339),
	})
}

// GetNeighborhood returns the bounded subgraph around a node using plain
// variable-length Cypher. The hop count is validated and formatted into
// the pattern because path lengths cannot be parameters.
func (c *Client) GetNeighborhood(ctx context.Context, externalID string, hops, limit int) (store.Neighborhood, error) {
	if externalID == "" {
		return store.Neighborhood{}, core.ErrMissingExternalID
	}
	if hops < 1 || hops > 10 {
		return store.Neighborhood{}, fmt.Errorf("%w: hops must be between 1 and 10", store.ErrInvalidQuery)
	}
	if limit < 1 {
		return store.Neighborhood{}, fmt.Errorf("%w: limit must be positive", store.ErrInvalidQuery)
	}

	nodeQuery := fmt.Sprintf(`
		MATCH (start {externalId: $externalId})
		OPTIONAL MATCH (start)-[*1..%d]-(neighbor)
		WITH start, collect(DISTINCT neighbor)[0..$limit] AS neighbors
		UNWIND [start] + neighbors AS n
		RETURN DISTINCT n.externalId AS externalId, labels(n) AS labels, properties(n) AS props`, hops)

	nodeRecords, err := c.ExecuteQuery(ctx, nodeQuery, map[string]any{
		"externalId": externalID,
		"limit":      limit,
	})
	if err != nil {
		return store.Neighborhood{}, err
	}

	nodes := make([]map[string]any, 0, len(nodeRecords))
	ids := make([]string, 0, len(nodeRecords))
	for _, record := range nodeRecords {
		id, _ := record["externalId"].(string)
		if id == "" {
			continue
		}
		node := map[string]any{"externalId": id, "labels": record["labels"]}
		if props, ok := record["props"].(map[string]any); ok {
			for k, v := range props {
				node[k] = v
			}
		}
		nodes = append(nodes, node)
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return store.Neighborhood{Nodes: []map[string]any{}, Relationships: []map[string]any{}}, nil
	}

	relQuery := `
		MATCH (a)-[r]->(b)
		WHERE a.externalId IN $ids AND b.externalId IN $ids
		RETURN a.externalId AS from, b.externalId AS to, type(r) AS type, properties(r) AS props`

	relRecords, err := c.ExecuteQuery(ctx, relQuery, map[string]any{"ids": ids})
	if err != nil {
		return store.Neighborhood{}, err
	}

	return store.Neighborhood{Nodes: nodes, Relationships: relRecords}, nil
}

// ExecuteQuery runs raw Cypher and flattens each record to a map. Node and
// relationship values come back as property maps rather than driver types.
func (c *Client) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session, err := c.session(ctx, neo4j.AccessModeRead)
	if err != nil {
		return nil, err
	}
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("running graph query: %w", err)
	}

	var records []map[string]any
	for result.Next(ctx) {
		record := result.Record()
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = flattenValue(record.Values[i])
		}
		records = append(records, row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading graph results: %w", err)
	}
	return records, nil
}

func (c *Client) write(ctx context.Context, query string, params map[string]any) error {
	session, err := c.session(ctx, neo4j.AccessModeWrite)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	if _, err := session.Run(ctx, query, params); err != nil {
		return fmt.Errorf("running graph write: %w", err)
	}
	return nil
}

// flattenValue converts driver node/relationship values to plain maps so
// callers never touch driver types.
func flattenValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		m := make(map[string]any, len(val.Props)+1)
		for k, p := range val.Props {
			m[k] = p
		}
		m["labels"] = val.Labels
		return m
	case neo4j.Relationship:
		m := make(map[string]any, len(val.Props)+1)
		for k, p := range val.Props {
			m[k] = p
		}
		m["type"] = val.Type
		return m
	default:
		return v
	}
}

// sanitizeIdentifier validates a label or relationship type. Identifiers
// are interpolated into Cypher text, so anything beyond word characters
// is rejected outright.
func sanitizeIdentifier(identifier string) (string, error) {
	if identifier == "" {
		return "", errors.New("neo4j: empty identifier")
	}
	for _, r := range identifier {
		valid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		if !valid {
			return "", fmt.Errorf("neo4j: invalid identifier %q", identifier)
		}
	}
	return identifier, nil
}

// stripExternalID drops the merge key from a property map so SET can never
// rewrite it.
func stripExternalID(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	clean := make(map[string]any, len(props))
	for k, v := range props {
		if k == "externalId" {
			continue
		}
		clean[k] = v
	}
	return clean
}
