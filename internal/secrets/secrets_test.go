package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	values  map[string]string
	creates int
	puts    int
	err     error
}

func newFakeAPI() *fakeAPI { return &fakeAPI{values: map[string]string{}} }

func (f *fakeAPI) CreateSecret(_ context.Context, in *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.creates++
	name := aws.ToString(in.Name)
	if _, ok := f.values[name]; ok {
		return nil, &types.ResourceExistsException{Message: aws.String("exists")}
	}
	f.values[name] = aws.ToString(in.SecretString)
	return &secretsmanager.CreateSecretOutput{Name: in.Name}, nil
}

func (f *fakeAPI) PutSecretValue(_ context.Context, in *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	f.puts++
	f.values[aws.ToString(in.SecretId)] = aws.ToString(in.SecretString)
	return &secretsmanager.PutSecretValueOutput{}, nil
}

func (f *fakeAPI) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("missing")}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestName(t *testing.T) {
	assert.Equal(t, "tenant/org_1/vapi", Name("org_1", "vapi"))
}

func TestUpsert_CreatesThenPuts(t *testing.T) {
	api := newFakeAPI()
	m := NewManager(api)
	ctx := context.Background()

	require.NoError(t, m.Upsert(ctx, "tenant/org_1/vapi", map[string]string{"privateApiKey": "k1"}))
	require.NoError(t, m.Upsert(ctx, "tenant/org_1/vapi", map[string]string{"privateApiKey": "k2"}))
	assert.Equal(t, 2, api.creates)
	assert.Equal(t, 1, api.puts)

	got, err := m.Get(ctx, "tenant/org_1/vapi")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"privateApiKey": "k2"}, got)
}

func TestUpsert_OtherErrors(t *testing.T) {
	api := newFakeAPI()
	api.err = errors.New("access denied")
	err := NewManager(api).Upsert(context.Background(), "tenant/org_1/vapi", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Zero(t, api.puts)
}

func TestGet(t *testing.T) {
	api := newFakeAPI()
	api.values["tenant/org_1/vapi"] = `{"privateApiKey":"k","retries":3}`
	m := NewManager(api)

	got, err := m.Get(context.Background(), "tenant/org_1/vapi")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"privateApiKey": "k"}, got)

	_, err = m.Get(context.Background(), "tenant/org_2/vapi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewFromRegion_RequiresRegion(t *testing.T) {
	_, err := NewFromRegion(" ")
	require.Error(t, err)
}
