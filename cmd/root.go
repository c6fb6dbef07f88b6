package cmd

import (
	"context"
	"fmt"
	"strings"

	"cloudgate/internal/api"
	"cloudgate/internal/auth"
	"cloudgate/internal/config"
	"cloudgate/internal/logger"
	"cloudgate/internal/model"
	"cloudgate/internal/storage"

	"github.com/spf13/cobra"
)

var (
	flagProvider string
	flagAccount  string
)

var rootCmd = &cobra.Command{
	Use:   "cloudgate",
	Short: "A unified client for Google Drive, OneDrive, and Dropbox.",
	Long: `cloudgate exposes one command surface over multiple cloud storage
providers: browsing, transfers, version history, sharing, and quota.

Client credentials and refresh tokens live in an encrypted file
(config.json.enc) protected by a master password.`,
	SilenceUsage: true,
}

// Execute is the CLI entry point.
func Execute() error {
	defer appLog().Sync()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagProvider, "provider", "p", "", "Provider to target: google, microsoft, or dropbox")
	rootCmd.PersistentFlags().StringVarP(&flagAccount, "account", "a", "", "Account e-mail when several are configured for the provider")
}

var log *logger.Logger

// appLog returns the process logger, built once from the environment.
func appLog() *logger.Logger {
	if log == nil {
		settings, err := config.ReadSettings()
		if err != nil {
			log = logger.New("info")
			return log
		}
		log = logger.New(settings.LogLevel)
	}
	return log
}

func parseProvider(s string) (model.Provider, error) {
	switch strings.ToLower(s) {
	case "google", "gdrive", "drive":
		return model.ProviderGoogle, nil
	case "microsoft", "onedrive", "graph":
		return model.ProviderMicrosoft, nil
	case "dropbox":
		return model.ProviderDropbox, nil
	case "":
		return "", fmt.Errorf("--provider is required")
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// session bundles everything a command needs after setup.
type session struct {
	settings config.Settings
	cfg      *config.AppConfig
	client   api.Client
	log      *logger.Logger
}

// setup loads the encrypted configuration, builds a token source for
// the selected account, and constructs the provider client.
func setup(ctx context.Context) (*session, error) {
	provider, err := parseProvider(flagProvider)
	if err != nil {
		return nil, err
	}

	settings, err := config.ReadSettings()
	if err != nil {
		return nil, err
	}
	log := appLog()

	password, err := config.GetMasterPassword(false)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(settings.ConfigDir, password)
	if err != nil {
		return nil, err
	}

	creds, err := cfg.ClientFor(provider)
	if err != nil {
		return nil, err
	}
	account, err := cfg.AccountFor(provider, flagAccount)
	if err != nil {
		return nil, err
	}
	oauthCfg, err := auth.OAuthConfig(provider, creds.ID, creds.Secret)
	if err != nil {
		return nil, err
	}

	client, err := storage.New(ctx, provider, storage.Options{
		TokenSource: auth.NewTokenSource(oauthCfg, account.RefreshToken),
		Transfer:    settings.TransferOptions(),
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	return &session{settings: settings, cfg: cfg, client: client, log: log.With(string(provider), account.Email)}, nil
}

func printEntity(e *model.Entity) {
	kind := "file"
	if e.IsFolder() {
		kind = "dir"
	}
	size := "-"
	if e.Size != nil {
		size = fmt.Sprintf("%d", *e.Size)
	}
	modified := "-"
	if e.ModifiedTime != nil {
		modified = e.ModifiedTime.Format("2006-01-02 15:04")
	}
	fmt.Printf("%-4s %10s  %-16s  %-40s %s\n", kind, size, modified, e.Name, e.ID)
}
