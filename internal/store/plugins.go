package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/support"
)

// GetPlugin fetches the plugin for an organization and service.
func (s *Store) GetPlugin(ctx context.Context, organizationID, service string) (*support.Plugin, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, organization_id, service, secret_name, created_at
		FROM plugins WHERE service = $1 AND organization_id = $2`,
		service, organizationID)

	var p support.Plugin
	if err := row.Scan(&p.ID, &p.OrganizationID, &p.Service, &p.SecretName, &p.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// UpsertPlugin creates the plugin or points it at a new secret.
func (s *Store) UpsertPlugin(ctx context.Context, organizationID, service, secretName string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plugins (id, organization_id, service, secret_name, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (service, organization_id)
		DO UPDATE SET secret_name = $4`,
		uuid.New(), organizationID, service, secretName,
	)
	if err != nil {
		return fmt.Errorf("upsert plugin: %w", err)
	}
	return nil
}

// DeletePlugin removes a plugin by ID.
func (s *Store) DeletePlugin(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM plugins WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete plugin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
