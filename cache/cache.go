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

package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// EmbeddingCache stores embedding vectors keyed by (model, checksum).
type EmbeddingCache struct {
	db     *badger.DB
	model  string
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens an embedding cache at the given directory, creating it if
// needed. model scopes every key; pass the embedding model identifier.
func Open(path, model string) (*EmbeddingCache, error) {
	if model == "" {
		return nil, errors.New("cache: model is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, err
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("cache: %s is not a directory", path)
	}

	opts := badger.DefaultOptions(path)
	return open(opts, model)
}

// OpenInMemory opens a non-persistent cache, used in tests and when no
// cache directory is configured.
func OpenInMemory(model string) (*EmbeddingCache, error) {
	if model == "" {
		return nil, errors.New("cache: model is required")
	}
	return open(badger.DefaultOptions("").WithInMemory(true), model)
}

func open(opts badger.Options, model string) (*EmbeddingCache, error) {
	logger := slog.Default().With("component", "embedding-cache")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &EmbeddingCache{
		db:     db,
		model:  model,
		logger: logger,
	}, nil
}

// Close closes the underlying database.
func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

func (c *EmbeddingCache) key(checksum string) []byte {
	return []byte("emb:" + c.model + ":" + checksum)
}

// Get returns the cached vector for a content checksum. The second return
// is false on a miss; corrupt entries are treated as misses.
func (c *EmbeddingCache) Get(checksum string) ([]float32, bool, error) {
	var vector []float32
	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(c.key(checksum))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vector, err = unmarshalVector(val)
			return err
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		c.logger.Warn("dropping unreadable cache entry", "checksum", checksum, "err", err)
		return nil, false, nil
	}
	return vector, true, nil
}

// Put stores a vector under a content checksum, replacing any prior entry.
func (c *EmbeddingCache) Put(checksum string, vector []float32) error {
	return c.db.Update(func(tx *badger.Txn) error {
		return tx.Set(c.key(checksum), marshalVector(vector))
	})
}

// Len counts cache entries for the configured model. Used by stats
// reporting; it scans keys only, never values.
func (c *EmbeddingCache) Len() (int, error) {
	prefix := []byte("emb:" + c.model + ":")
	count := 0
	err := c.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
