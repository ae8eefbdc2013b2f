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

package casegraph

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Config is the full process configuration, sourced from the environment.
type Config struct {
	GraphURI      string
	GraphUsername string
	GraphPassword string
	GraphDatabase string

	VectorURL string

	OpenAIAPIKey     string
	EmbeddingModel   string
	EmbeddingBaseURL string

	// CachePath is the embedding cache directory. Empty disables the
	// persistent cache.
	CachePath string
}

// ConfigFromEnv builds the configuration from environment variables and
// fails fast: every missing or malformed required value is reported at
// once, before any client is constructed.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		GraphURI:         os.Getenv("NEO4J_URI"),
		GraphUsername:    os.Getenv("NEO4J_USERNAME"),
		GraphPassword:    os.Getenv("NEO4J_PASSWORD"),
		GraphDatabase:    os.Getenv("NEO4J_DATABASE"),
		VectorURL:        os.Getenv("DATABASE_URL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel:   os.Getenv("EMBEDDING_MODEL"),
		EmbeddingBaseURL: os.Getenv("EMBEDDING_BASE_URL"),
		CachePath:        os.Getenv("CASEGRAPH_CACHE"),
	}
	if cfg.GraphDatabase == "" {
		cfg.GraphDatabase = "neo4j"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and URL shapes.
func (c *Config) Validate() error {
	var problems []string

	if c.GraphURI == "" {
		problems = append(problems, "NEO4J_URI is required")
	} else if err := validateURL(c.GraphURI); err != nil {
		problems = append(problems, fmt.Sprintf("NEO4J_URI: %v", err))
	}
	if c.GraphUsername == "" {
		problems = append(problems, "NEO4J_USERNAME is required")
	}
	if c.GraphPassword == "" {
		problems = append(problems, "NEO4J_PASSWORD is required")
	}
	if c.VectorURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	} else if err := validateURL(c.VectorURL); err != nil {
		problems = append(problems, fmt.Sprintf("DATABASE_URL: %v", err))
	}
	if c.OpenAIAPIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required")
	}
	if c.EmbeddingBaseURL != "" {
		if err := validateURL(c.EmbeddingBaseURL); err != nil {
			problems = append(problems, fmt.Sprintf("EMBEDDING_BASE_URL: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("not a URL")
	}
	return nil
}
