// Package plugins manages per-tenant integrations and their credentials.
package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/supportdesk/internal/hermes"
	"github.com/MikeSquared-Agency/supportdesk/internal/secrets"
	"github.com/MikeSquared-Agency/supportdesk/internal/store"
	"github.com/MikeSquared-Agency/supportdesk/internal/support"
	"github.com/MikeSquared-Agency/supportdesk/internal/vapi"
)

// Store persists plugin rows.
type Store interface {
	GetPlugin(ctx context.Context, organizationID, service string) (*support.Plugin, error)
	UpsertPlugin(ctx context.Context, organizationID, service, secretName string) error
	DeletePlugin(ctx context.Context, id uuid.UUID) error
}

// Secrets reads and writes credential blobs.
type Secrets interface {
	Upsert(ctx context.Context, name string, value map[string]string) error
	Get(ctx context.Context, name string) (map[string]string, error)
}

// Vapi lists a tenant's Vapi resources.
type Vapi interface {
	Assistants(ctx context.Context, apiKey string) ([]vapi.Assistant, error)
	PhoneNumbers(ctx context.Context, apiKey string) ([]vapi.PhoneNumber, error)
}

// Publisher enqueues secret-upsert jobs. When nil, upserts run inline.
type Publisher interface {
	Publish(subject string, data any) error
}

const privateKeyField = "privateApiKey"

type Service struct {
	store     Store
	secrets   Secrets
	vapi      Vapi
	publisher Publisher
	logger    *slog.Logger
}

func NewService(s Store, sec Secrets, v Vapi, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{store: s, secrets: sec, vapi: v, publisher: publisher, logger: logger}
}

// Get returns the organization's plugin for service, or nil.
func (s *Service) Get(ctx context.Context, organizationID, service string) (*support.Plugin, error) {
	if _, err := support.ParseService(service); err != nil {
		return nil, err
	}
	p, err := s.store.GetPlugin(ctx, organizationID, service)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plugin: %w", err)
	}
	return p, nil
}

// Remove disconnects a plugin. The secret itself is left in place.
func (s *Service) Remove(ctx context.Context, organizationID, service string) error {
	p, err := s.Get(ctx, organizationID, service)
	if err != nil {
		return err
	}
	if p == nil {
		return support.NotFound("Plugin not found")
	}
	if err := s.store.DeletePlugin(ctx, p.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return support.NotFound("Plugin not found")
		}
		return fmt.Errorf("delete plugin: %w", err)
	}
	s.logger.Info("plugin removed", "organization_id", organizationID, "service", service)
	return nil
}

// UpsertSecret writes the credentials to the secret store, then queues the
// job that connects the plugin. Only the secret name travels on the bus.
func (s *Service) UpsertSecret(ctx context.Context, organizationID, service string, value map[string]string) error {
	if _, err := support.ParseService(service); err != nil {
		return err
	}
	if len(value) == 0 {
		return support.BadRequest("secret value is required")
	}
	name := secrets.Name(organizationID, service)
	if err := s.secrets.Upsert(ctx, name, value); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}

	job := hermes.SecretUpsertJob{OrganizationID: organizationID, Service: service, SecretName: name}
	if s.publisher == nil {
		return s.ConnectPlugin(ctx, job)
	}
	if err := s.publisher.Publish(hermes.SubjectSecretsUpsert, job); err != nil {
		return fmt.Errorf("enqueue plugin connect: %w", err)
	}
	return nil
}

// ConnectPlugin upserts the plugin row pointing at an already stored secret.
func (s *Service) ConnectPlugin(ctx context.Context, job hermes.SecretUpsertJob) error {
	if err := s.store.UpsertPlugin(ctx, job.OrganizationID, job.Service, job.SecretName); err != nil {
		return fmt.Errorf("upsert plugin: %w", err)
	}
	s.logger.Info("plugin connected", "organization_id", job.OrganizationID, "service", job.Service)
	return nil
}

// HandleUpsertSecret is the NATS handler for queued plugin connections.
// A job must name the secret that belongs to its own organization and service.
func (s *Service) HandleUpsertSecret(ctx context.Context) func(subject string, data []byte) {
	return func(subject string, data []byte) {
		var job hermes.SecretUpsertJob
		if err := json.Unmarshal(data, &job); err != nil {
			s.logger.Warn("bad secret upsert job", "subject", subject, "error", err)
			return
		}
		_, err := support.ParseService(job.Service)
		if err != nil || job.OrganizationID == "" || job.SecretName != secrets.Name(job.OrganizationID, job.Service) {
			s.logger.Warn("rejected secret upsert job", "organization_id", job.OrganizationID, "service", job.Service)
			return
		}
		if err := s.ConnectPlugin(ctx, job); err != nil {
			s.logger.Error("plugin connect failed", "organization_id", job.OrganizationID, "service", job.Service, "error", err)
		}
	}
}

// Assistants lists the organization's Vapi assistants.
func (s *Service) Assistants(ctx context.Context, organizationID string) ([]vapi.Assistant, error) {
	key, err := s.vapiKey(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return s.vapi.Assistants(ctx, key)
}

// PhoneNumbers lists the organization's Vapi phone numbers.
func (s *Service) PhoneNumbers(ctx context.Context, organizationID string) ([]vapi.PhoneNumber, error) {
	key, err := s.vapiKey(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return s.vapi.PhoneNumbers(ctx, key)
}

func (s *Service) vapiKey(ctx context.Context, organizationID string) (string, error) {
	p, err := s.Get(ctx, organizationID, support.ServiceVapi)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", support.NotFound("Plugin not found")
	}
	value, err := s.secrets.Get(ctx, p.SecretName)
	if errors.Is(err, secrets.ErrNotFound) {
		return "", support.NotFound("Credentials not found")
	}
	if err != nil {
		return "", err
	}
	key := value[privateKeyField]
	if key == "" {
		return "", support.NotFound("Credentials not found")
	}
	return key, nil
}
