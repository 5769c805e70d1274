package cleaker_sdk_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleaker/cleaker_sdk_go/pkg/cleaker_sdk"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger"
	"github.com/cleaker/cleaker_sdk_go/pkg/ledger/mock"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{cleaker_sdk.EnvMode, cleaker_sdk.EnvMockSeed, ledger.EnvEndpoint, ledger.EnvTimeout} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestNewFromEnvHTTP(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(mock.New().Handler())
	defer srv.Close()
	t.Setenv(ledger.EnvEndpoint, srv.URL+"/graphql")

	client, mode, err := cleaker_sdk.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, cleaker_sdk.ModeHTTP, mode)
	assert.Equal(t, srv.URL+"/graphql", client.Endpoint())

	ok, err := client.Be(context.Background(), "alice", "color", "blue")
	require.NoError(t, err)
	assert.True(t, ok)

	text, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mock.HealthText, text)
}

func TestNewFromEnvEndpointOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(ledger.EnvEndpoint, "http://ignored.invalid/graphql")

	client, mode, err := cleaker_sdk.NewFromEnv(cleaker_sdk.WithEndpoint("http://127.0.0.1:9/graphql"))
	require.NoError(t, err)
	assert.Equal(t, cleaker_sdk.ModeHTTP, mode)
	assert.Equal(t, "http://127.0.0.1:9/graphql", client.Endpoint())
}

func TestNewFromEnvDefaultEndpoint(t *testing.T) {
	clearEnv(t)

	client, mode, err := cleaker_sdk.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, cleaker_sdk.ModeHTTP, mode)
	assert.Equal(t, ledger.DefaultEndpoint, client.Endpoint())
}

func TestNewFromEnvMockWithSeed(t *testing.T) {
	clearEnv(t)
	seed := filepath.Join(t.TempDir(), "seed.yml")
	require.NoError(t, os.WriteFile(seed, []byte("identities:\n  - username: alice\n    public_key: pk\n"), 0o600))
	t.Setenv(cleaker_sdk.EnvMode, "MOCK")
	t.Setenv(cleaker_sdk.EnvMockSeed, seed)

	client, mode, err := cleaker_sdk.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, cleaker_sdk.ModeMock, mode)
	assert.Empty(t, client.Endpoint())

	info, err := client.PublicInfo(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "pk", info.PublicKey)
}

func TestNewFromEnvAuto(t *testing.T) {
	clearEnv(t)
	t.Setenv(cleaker_sdk.EnvMode, cleaker_sdk.ModeAuto)

	_, mode, err := cleaker_sdk.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, cleaker_sdk.ModeMock, mode)

	t.Setenv(ledger.EnvEndpoint, "http://localhost:8888/graphql")
	_, mode, err = cleaker_sdk.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, cleaker_sdk.ModeHTTP, mode)
}

func TestNewFromEnvErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv(cleaker_sdk.EnvMode, "carrier-pigeon")
	_, _, err := cleaker_sdk.NewFromEnv()
	assert.Error(t, err)

	t.Setenv(cleaker_sdk.EnvMode, cleaker_sdk.ModeHTTP)
	t.Setenv(ledger.EnvEndpoint, "://not-a-url")
	_, _, err = cleaker_sdk.NewFromEnv()
	assert.Error(t, err)

	t.Setenv(cleaker_sdk.EnvMode, cleaker_sdk.ModeMock)
	t.Setenv(cleaker_sdk.EnvMockSeed, filepath.Join(t.TempDir(), "missing.json"))
	_, _, err = cleaker_sdk.NewFromEnv()
	assert.Error(t, err)
}
