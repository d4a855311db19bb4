//go:build !(sqlite_vec && cgo)

package index

import (
	"context"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"pciassist/internal/embedding"
)

const driverName = "sqlite"

// prepare loads every embedding into memory for the cosine-scan search path.
// The corpus is small (a few hundred requirements), so this is cheap.
func (ix *Index) prepare() error {
	rows, err := ix.db.Query("SELECT id, embedding FROM requirements ORDER BY id")
	if err != nil {
		return fmt.Errorf("failed to load index (has it been built?): %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, embJSON string
		if err := rows.Scan(&id, &embJSON); err != nil {
			return fmt.Errorf("failed to scan index row: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			return fmt.Errorf("corrupt embedding for %s: %w", id, err)
		}
		ix.ids = append(ix.ids, id)
		ix.vectors = append(ix.vectors, vec)
	}
	return rows.Err()
}

// search runs an in-memory cosine top-k scan.
func (ix *Index) search(_ context.Context, query []float32, topK int) ([]Hit, error) {
	results := embedding.FindTopK(query, ix.vectors, topK)

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{ID: ix.ids[r.Index], Score: r.Similarity}
	}
	return hits, nil
}
