package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

const fileColumns = `id, organization_id, name, mime_type, size, category, status, created_at`

func scanFile(row pgx.Row) (*support.File, error) {
	var f support.File
	if err := row.Scan(&f.ID, &f.OrganizationID, &f.Name, &f.MimeType, &f.Size, &f.Category, &f.Status, &f.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// InsertFile stores an uploaded file with its raw bytes.
func (s *Store) InsertFile(ctx context.Context, f support.File, content []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO files (id, organization_id, name, mime_type, size, category, status, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, f.OrganizationID, f.Name, f.MimeType, f.Size, f.Category, f.Status, content, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// UpdateFileStatus sets the processing status of a file.
func (s *Store) UpdateFileStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx, `UPDATE files SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	return nil
}

// GetFile fetches file metadata by ID.
func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (*support.File, error) {
	return scanFile(s.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id))
}

// GetFileContent fetches the raw bytes of a file.
func (s *Store) GetFileContent(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var content []byte
	if err := s.pool.QueryRow(ctx, `SELECT content FROM files WHERE id = $1`, id).Scan(&content); err != nil {
		return nil, notFound(err)
	}
	return content, nil
}

// ListFiles returns an organization's files newest first, one page at a time.
func (s *Store) ListFiles(ctx context.Context, organizationID string, page support.PageRequest) (support.Page[support.File], error) {
	page = page.Normalize()
	after, err := support.DecodeCursor(page.Cursor)
	if err != nil {
		return support.Page[support.File]{}, err
	}

	var rows pgx.Rows
	if after == nil {
		rows, err = s.pool.Query(ctx, `
			SELECT `+fileColumns+` FROM files WHERE organization_id = $1
			ORDER BY created_at DESC, id DESC LIMIT $2`,
			organizationID, page.Limit+1)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT `+fileColumns+` FROM files WHERE organization_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC LIMIT $4`,
			organizationID, after.CreatedAt, after.ID, page.Limit+1)
	}
	if err != nil {
		return support.Page[support.File]{}, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []support.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return support.Page[support.File]{}, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return support.Page[support.File]{}, fmt.Errorf("list files: %w", err)
	}
	return support.PageOf(out, page.Limit, func(f support.File) support.Keyset {
		return support.Keyset{CreatedAt: f.CreatedAt, ID: f.ID}
	}), nil
}

// DeleteFile removes a file and its knowledge chunks.
func (s *Store) DeleteFile(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM knowledge_chunks WHERE file_id = $1`, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
