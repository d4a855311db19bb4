// Package index provides the read-only nearest-neighbor index over
// requirement embeddings. The index is built once, offline, from the
// knowledge base and persisted to a local sqlite database; at serving time
// it is only queried.
//
// Two search paths exist: the default pure-Go path loads all embeddings at
// open time and does a cosine scan, and an optional sqlite-vec path (build
// tag sqlite_vec with cgo) pushes distance computation into SQL.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"pciassist/internal/embedding"
	"pciassist/internal/kb"
	"pciassist/internal/logging"
)

// Hit is a single vector search result. ID is a knowledge base identifier.
type Hit struct {
	ID    string
	Score float64
}

// Index queries requirement embeddings persisted in sqlite.
type Index struct {
	db     *sql.DB
	engine embedding.Engine

	// populated by the pure-Go search path at open time
	ids     []string
	vectors [][]float32
}

const schema = `
CREATE TABLE IF NOT EXISTS requirements (
	id        TEXT PRIMARY KEY,
	body      TEXT NOT NULL,
	embedding TEXT NOT NULL
)`

// Open opens an existing index database for querying.
func Open(path string, engine embedding.Engine) (*Index, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	ix := &Index{db: db, engine: engine}
	if err := ix.prepare(); err != nil {
		db.Close()
		return nil, err
	}

	return ix, nil
}

// Close releases the underlying database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Query embeds text and returns up to topK nearest requirement identifiers
// with similarity scores, best first. Ordering is deterministic: ties break
// on identifier.
func (ix *Index) Query(ctx context.Context, text string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 5
	}

	queryVec, err := ix.engine.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := ix.search(ctx, queryVec, topK)
	if err != nil {
		return nil, err
	}

	logging.Get(logging.CategoryIndex).Debugw("vector query", "top_k", topK, "hits", len(hits))
	return hits, nil
}

// buildBatchSize is the number of requirement bodies embedded per API call.
const buildBatchSize = 32

// Build embeds every requirement in the knowledge base and writes the index
// database at path. Existing contents are replaced. Embedding calls run in
// parallel batches; inserts happen in one transaction once all batches
// succeed.
func Build(ctx context.Context, path string, base *kb.KB, engine embedding.Engine) error {
	log := logging.Get(logging.CategoryIndex)

	db, err := sql.Open(driverName, path)
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM requirements"); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	ids := base.SortedIDs()
	log.Infow("building requirement index", "requirements", len(ids), "engine", engine.Name())

	type batch struct {
		start int
		ids   []string
	}
	var batches []batch
	for start := 0; start < len(ids); start += buildBatchSize {
		end := start + buildBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, batch{start: start, ids: ids[start:end]})
	}

	embeddings := make([][]float32, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range batches {
		g.Go(func() error {
			texts := make([]string, len(b.ids))
			for i, id := range b.ids {
				texts[i], _ = base.Get(id)
			}
			vecs, err := engine.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("failed to embed batch at %d: %w", b.start, err)
			}
			copy(embeddings[b.start:], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO requirements (id, body, embedding) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		body, _ := base.Get(id)
		embJSON, err := json.Marshal(embeddings[i])
		if err != nil {
			return fmt.Errorf("failed to serialize embedding for %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, body, string(embJSON)); err != nil {
			return fmt.Errorf("failed to insert requirement %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}

	log.Infow("index build complete", "requirements", len(ids))
	return nil
}
