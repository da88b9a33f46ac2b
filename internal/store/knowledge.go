package store

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// InsertChunks writes a file's embedded chunks in one transaction.
func (s *Store) InsertChunks(ctx context.Context, chunks []support.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO knowledge_chunks (id, file_id, namespace, title, ordinal, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7::vector)`,
			c.ID, c.FileID, c.Namespace, c.Title, c.Ordinal, c.Text, pgVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SearchChunks returns the chunks in a namespace closest to the query embedding by cosine distance.
func (s *Store) SearchChunks(ctx context.Context, namespace string, embedding []float32, limit int) ([]support.SearchEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT file_id, title, text, 1 - (embedding <=> $2::vector) AS score
		FROM knowledge_chunks
		WHERE namespace = $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3`,
		namespace, pgVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var out []support.SearchEntry
	for rows.Next() {
		var e support.SearchEntry
		if err := rows.Scan(&e.FileID, &e.Title, &e.Text, &e.Score); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
