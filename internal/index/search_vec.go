//go:build sqlite_vec && cgo

package index

import (
	"context"
	"encoding/json"
	"fmt"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3 driver.
	// vec.Auto() registers it as an auto-loadable extension.
	vec.Auto()
}

// prepare verifies the index has been built.
func (ix *Index) prepare() error {
	var n int
	if err := ix.db.QueryRow("SELECT COUNT(*) FROM requirements").Scan(&n); err != nil {
		return fmt.Errorf("failed to load index (has it been built?): %w", err)
	}
	return nil
}

// search pushes cosine distance into SQL via vec_distance_cosine, which
// accepts the JSON text vectors stored in the embedding column.
func (ix *Index) search(ctx context.Context, query []float32, topK int) ([]Hit, error) {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query vector: %w", err)
	}

	rows, err := ix.db.QueryContext(ctx,
		"SELECT id, vec_distance_cosine(embedding, ?) AS dist FROM requirements ORDER BY dist ASC, id ASC LIMIT ?",
		string(queryJSON), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var dist float64
		if err := rows.Scan(&h.ID, &dist); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		h.Score = 1 - dist
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
