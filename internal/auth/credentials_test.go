package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"jobpilot/internal/config"
	"jobpilot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type fakeVault struct {
	values map[string]string
	reads  int
}

func (f *fakeVault) GetStringSecret(_ context.Context, path, key string) (string, error) {
	f.reads++
	v, ok := f.values[path+"#"+key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	return v, nil
}

func TestStaticAndEnv(t *testing.T) {
	ctx := context.Background()

	token, err := Static("  abc ").Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = Static("").Token(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))

	t.Setenv("JP_TEST_TOKEN", "from-env")
	token, err = Env{Name: "JP_TEST_TOKEN"}.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)

	t.Setenv("JP_TEST_TOKEN", "rotated")
	token, err = Env{Name: "JP_TEST_TOKEN"}.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "rotated", token, "env is re-read on every call")
}

func TestFileProvider(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("file-token\n"), 0600))

	p := File{Path: path}
	token, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "file-token", token)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0600))
	token, err = p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	_, err = File{Path: filepath.Join(t.TempDir(), "missing")}.Token(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))
}

func TestKeyringProvider(t *testing.T) {
	keyring.MockInit()
	ctx := context.Background()
	k := Keyring{Service: "jobpilot-test", Account: "me"}

	_, err := k.Token(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))

	require.NoError(t, k.Store("secret-token"))
	token, err := k.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", token)

	assert.Error(t, k.Store("   "))

	require.NoError(t, k.Remove())
	require.NoError(t, k.Remove(), "removing twice is fine")
	_, err = k.Token(ctx)
	assert.Error(t, err)
}

func TestVaultProvider(t *testing.T) {
	ctx := context.Background()
	fv := &fakeVault{values: map[string]string{"secret/data/jobpilot#token": "vault-token"}}

	p := Vault{Reader: fv, Path: "secret/data/jobpilot", Key: "token"}
	token, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vault-token", token)

	_, _ = p.Token(ctx)
	assert.Equal(t, 2, fv.reads)

	_, err = Vault{Reader: fv, Path: "secret/data/other", Key: "token"}.Token(ctx)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.AuthConfig
		vault       SecretReader
		expected    Provider
		expectError bool
	}{
		{name: "static", cfg: config.AuthConfig{Source: "static", Token: "t"}, expected: Static("t")},
		{name: "env", cfg: config.AuthConfig{Source: "env", TokenEnv: "X"}, expected: Env{Name: "X"}},
		{name: "file", cfg: config.AuthConfig{Source: "file", TokenFile: "/tmp/t"}, expected: File{Path: "/tmp/t"}},
		{name: "file without path", cfg: config.AuthConfig{Source: "file"}, expectError: true},
		{
			name:     "keyring",
			cfg:      config.AuthConfig{Source: "keyring", Keyring: config.KeyringConfig{Service: "s", Account: "a"}},
			expected: Keyring{Service: "s", Account: "a"},
		},
		{name: "vault without client", cfg: config.AuthConfig{Source: "vault"}, expectError: true},
		{name: "unknown", cfg: config.AuthConfig{Source: "ldap"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg, tt.vault)
			if tt.expectError {
				assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}

	fv := &fakeVault{}
	p, err := NewProvider(config.AuthConfig{Source: "vault", VaultPath: "p", VaultKey: "k"}, fv)
	require.NoError(t, err)
	assert.Equal(t, Vault{Reader: fv, Path: "p", Key: "k"}, p)
}
