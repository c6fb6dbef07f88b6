package config

import (
	"os"
	"path/filepath"
	"testing"

	"cloudgate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitThenSaveThenLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	cfg := &AppConfig{
		GoogleClient: ClientCredentials{ID: "google-id", Secret: "google-secret"},
		Accounts: []Account{
			{Provider: model.ProviderGoogle, Email: "me@example.com", RefreshToken: "rt-1"},
		},
	}
	require.NoError(t, Save(dir, "master password", cfg))

	// The file on disk must not leak secrets in the clear.
	raw, err := os.ReadFile(filepath.Join(dir, configFile))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "rt-1")
	assert.NotContains(t, string(raw), "google-secret")

	loaded, err := Load(dir, "master password")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadWrongPassword(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	require.NoError(t, Save(dir, "master password", &AppConfig{}))

	_, err := Load(dir, "not the password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "master password may be incorrect")
}

func TestLoadWithoutConfigFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))

	cfg, err := Load(dir, "master password")
	require.NoError(t, err)
	assert.Equal(t, &AppConfig{}, cfg)
}

func TestLoadWithoutInitFails(t *testing.T) {
	_, err := Load(t.TempDir(), "master password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 'init' first")
}

func TestInitTwiceFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	assert.Error(t, Init(dir))
}

func TestClientFor(t *testing.T) {
	cfg := &AppConfig{DropboxClient: ClientCredentials{ID: "db-id", Secret: "db-secret"}}

	creds, err := cfg.ClientFor(model.ProviderDropbox)
	require.NoError(t, err)
	assert.Equal(t, "db-id", creds.ID)

	_, err = cfg.ClientFor(model.ProviderGoogle)
	assert.ErrorContains(t, err, "no google client registered")

	_, err = cfg.ClientFor(model.Provider("box"))
	assert.ErrorContains(t, err, "unknown provider")
}

func TestAccountFor(t *testing.T) {
	cfg := &AppConfig{Accounts: []Account{
		{Provider: model.ProviderGoogle, Email: "first@example.com"},
		{Provider: model.ProviderGoogle, Email: "second@example.com"},
		{Provider: model.ProviderDropbox, Email: "db@example.com"},
	}}

	// No email picks the first account of the provider.
	account, err := cfg.AccountFor(model.ProviderGoogle, "")
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", account.Email)

	account, err = cfg.AccountFor(model.ProviderGoogle, "second@example.com")
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", account.Email)

	_, err = cfg.AccountFor(model.ProviderMicrosoft, "")
	assert.ErrorContains(t, err, "no microsoft account found")
}

func TestUpsertAccount(t *testing.T) {
	cfg := &AppConfig{}

	cfg.UpsertAccount(Account{Provider: model.ProviderGoogle, Email: "me@example.com", RefreshToken: "old"})
	cfg.UpsertAccount(Account{Provider: model.ProviderGoogle, Email: "me@example.com", RefreshToken: "new"})
	cfg.UpsertAccount(Account{Provider: model.ProviderDropbox, Email: "me@example.com", RefreshToken: "db"})

	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "new", cfg.Accounts[0].RefreshToken)
}

func TestReadSettingsDefaults(t *testing.T) {
	t.Setenv("UPLOAD_THRESHOLD_BYTES", "")
	os.Unsetenv("UPLOAD_THRESHOLD_BYTES")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UPLOAD_CHUNK_BYTES", "1048576")

	s, err := ReadSettings()
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	assert.EqualValues(t, 1048576, s.UploadChunkBytes)
	assert.EqualValues(t, 0, s.UploadThresholdBytes)
	assert.Equal(t, ".", s.ConfigDir)

	opts := s.TransferOptions()
	assert.EqualValues(t, 1048576, opts.ChunkSize)
	assert.EqualValues(t, 0, opts.SmallFileThreshold)
}
