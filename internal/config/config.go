// Package config holds the two configuration surfaces: the encrypted
// credentials file (OAuth client secrets and per-account refresh
// tokens, sealed under a master password) and environment-driven
// runtime settings.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cloudgate/internal/crypto"
	"cloudgate/internal/model"
	"cloudgate/internal/transfer"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/manifoldco/promptui"
)

const (
	configFile = "config.json.enc"
	saltFile   = "config.salt"
)

// ClientCredentials holds the OAuth 2.0 client id and secret for one
// provider's application registration.
type ClientCredentials struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// Account is one authorized cloud account. The refresh token is the
// only long-lived secret; access tokens are minted on demand.
type Account struct {
	Provider     model.Provider `json:"provider"`
	Email        string         `json:"email"`
	RefreshToken string         `json:"refresh_token"`
}

// AppConfig is the full content of the encrypted configuration file.
type AppConfig struct {
	GoogleClient    ClientCredentials `json:"google_client"`
	MicrosoftClient ClientCredentials `json:"microsoft_client"`
	DropboxClient   ClientCredentials `json:"dropbox_client"`
	Accounts        []Account         `json:"accounts"`
}

// ClientFor returns the client credentials registered for provider.
func (c *AppConfig) ClientFor(provider model.Provider) (ClientCredentials, error) {
	var creds ClientCredentials
	switch provider {
	case model.ProviderGoogle:
		creds = c.GoogleClient
	case model.ProviderMicrosoft:
		creds = c.MicrosoftClient
	case model.ProviderDropbox:
		creds = c.DropboxClient
	default:
		return ClientCredentials{}, fmt.Errorf("unknown provider %q", provider)
	}
	if creds.ID == "" {
		return ClientCredentials{}, fmt.Errorf("no %s client registered; run 'init' first", provider)
	}
	return creds, nil
}

// AccountFor returns the stored account for provider, matching email
// when given, otherwise the first account of that provider.
func (c *AppConfig) AccountFor(provider model.Provider, email string) (*Account, error) {
	for i := range c.Accounts {
		a := &c.Accounts[i]
		if a.Provider != provider {
			continue
		}
		if email == "" || a.Email == email {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no %s account found; run 'add-account' first", provider)
}

// UpsertAccount adds the account or replaces the entry with the same
// provider and email.
func (c *AppConfig) UpsertAccount(account Account) {
	for i := range c.Accounts {
		if c.Accounts[i].Provider == account.Provider && c.Accounts[i].Email == account.Email {
			c.Accounts[i] = account
			return
		}
	}
	c.Accounts = append(c.Accounts, account)
}

// Init creates a fresh salt in dir. Fails if one already exists so an
// accidental re-init cannot orphan the encrypted config.
func Init(dir string) error {
	path := filepath.Join(dir, saltFile)
	if _, err := os.Stat(path); err == nil {
		return errors.New("configuration already initialized")
	}
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	return crypto.SaveSalt(salt, path)
}

// Load decrypts the configuration in dir using masterPassword.
func Load(dir, masterPassword string) (*AppConfig, error) {
	salt, err := crypto.LoadSalt(filepath.Join(dir, saltFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("salt file not found; run 'init' first")
		}
		return nil, fmt.Errorf("failed to read salt file: %w", err)
	}
	key := crypto.DeriveKey(masterPassword, salt)

	ciphertext, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return &AppConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	plaintext, err := crypto.Decrypt(ciphertext, key)
	if err != nil {
		return nil, errors.New("failed to decrypt config: master password may be incorrect")
	}
	var cfg AppConfig
	if err := json.Unmarshal(plaintext, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse decrypted config: %w", err)
	}
	return &cfg, nil
}

// Save encrypts cfg into dir using masterPassword.
func Save(dir, masterPassword string, cfg *AppConfig) error {
	salt, err := crypto.LoadSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return fmt.Errorf("failed to read salt before saving config: %w", err)
	}
	key := crypto.DeriveKey(masterPassword, salt)

	plaintext, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	ciphertext, err := crypto.Encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, configFile), ciphertext, 0600)
}

// GetMasterPassword prompts for the master password without echoing.
// With confirm set it prompts twice and requires a match.
func GetMasterPassword(confirm bool) (string, error) {
	validate := func(input string) error {
		if len(input) < 8 {
			return errors.New("password must be at least 8 characters long")
		}
		return nil
	}

	prompt := promptui.Prompt{
		Label:    "Enter Master Password",
		Mask:     '*',
		Validate: validate,
	}
	password, err := prompt.Run()
	if err != nil {
		return "", err
	}

	if confirm {
		confirmPrompt := promptui.Prompt{
			Label:    "Confirm Master Password",
			Mask:     '*',
			Validate: validate,
		}
		confirmation, err := confirmPrompt.Run()
		if err != nil {
			return "", err
		}
		if password != confirmation {
			return "", errors.New("passwords do not match")
		}
	}
	return password, nil
}

// Settings are runtime tunables read from the environment. Transfer
// thresholds are deployment knobs, not protocol constants.
type Settings struct {
	UploadThresholdBytes int64  `env:"UPLOAD_THRESHOLD_BYTES" env-default:"0"`
	UploadChunkBytes     int64  `env:"UPLOAD_CHUNK_BYTES" env-default:"0"`
	LogLevel             string `env:"LOG_LEVEL" env-default:"info"`
	ConfigDir            string `env:"CLOUDGATE_CONFIG_DIR" env-default:"."`
}

// ReadSettings loads Settings from the environment.
func ReadSettings() (Settings, error) {
	var s Settings
	if err := cleanenv.ReadEnv(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to read environment settings: %w", err)
	}
	return s, nil
}

// TransferOptions converts the settings into engine options; zero
// values defer to the engine defaults.
func (s Settings) TransferOptions() transfer.Options {
	return transfer.Options{
		SmallFileThreshold: s.UploadThresholdBytes,
		ChunkSize:          s.UploadChunkBytes,
	}
}
