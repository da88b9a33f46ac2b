// Package secrets stores per-tenant plugin credentials in AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// ErrNotFound is returned when a secret does not exist.
var ErrNotFound = errors.New("secret not found")

// API is the subset of the Secrets Manager client the manager uses.
type API interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Manager reads and writes JSON secrets.
type Manager struct {
	api API
}

func NewManager(api API) *Manager {
	return &Manager{api: api}
}

// NewFromRegion loads the default AWS credential chain for region.
func NewFromRegion(region string) (*Manager, error) {
	if strings.TrimSpace(region) == "" {
		return nil, fmt.Errorf("missing region")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewManager(secretsmanager.NewFromConfig(cfg)), nil
}

// Name is the secret name for a tenant's plugin credentials.
func Name(organizationID, service string) string {
	return "tenant/" + organizationID + "/" + service
}

// Upsert creates the secret, or stores a new version when it already exists.
func (m *Manager) Upsert(ctx context.Context, name string, value map[string]string) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal secret: %w", err)
	}

	_, err = m.api.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(string(body)),
	})
	if err == nil {
		return nil
	}

	var exists *types.ResourceExistsException
	if !errors.As(err, &exists) {
		return fmt.Errorf("create secret %s: %w", name, err)
	}
	if _, err := m.api.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(string(body)),
	}); err != nil {
		return fmt.Errorf("put secret %s: %w", name, err)
	}
	return nil
}

// Get reads a JSON secret. Non-string values are dropped.
func (m *Manager) Get(ctx context.Context, name string) (map[string]string, error) {
	out, err := m.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		var missing *types.ResourceNotFoundException
		if errors.As(err, &missing) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, ErrNotFound
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(*out.SecretString), &raw); err != nil {
		return nil, fmt.Errorf("parse secret %s: %w", name, err)
	}
	value := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			value[k] = s
		}
	}
	return value, nil
}
