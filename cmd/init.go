package cmd

import (
	"fmt"

	"cloudgate/internal/auth"
	"cloudgate/internal/config"
	"cloudgate/internal/model"
	"cloudgate/internal/storage"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the encrypted configuration and register OAuth clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.ReadSettings()
		if err != nil {
			return err
		}
		if err := config.Init(settings.ConfigDir); err != nil {
			return err
		}

		password, err := config.GetMasterPassword(true)
		if err != nil {
			return err
		}

		cfg := &config.AppConfig{}
		for _, provider := range []model.Provider{model.ProviderGoogle, model.ProviderMicrosoft, model.ProviderDropbox} {
			creds, err := promptClientCredentials(provider)
			if err != nil {
				return err
			}
			switch provider {
			case model.ProviderGoogle:
				cfg.GoogleClient = creds
			case model.ProviderMicrosoft:
				cfg.MicrosoftClient = creds
			case model.ProviderDropbox:
				cfg.DropboxClient = creds
			}
		}

		if err := config.Save(settings.ConfigDir, password, cfg); err != nil {
			return err
		}
		appLog().Info("configuration initialized in %s", settings.ConfigDir)
		return nil
	},
}

// promptClientCredentials asks for one provider's OAuth client id and
// secret. Leaving the id empty skips the provider.
func promptClientCredentials(provider model.Provider) (config.ClientCredentials, error) {
	idPrompt := promptui.Prompt{Label: fmt.Sprintf("%s OAuth client ID (empty to skip)", provider)}
	id, err := idPrompt.Run()
	if err != nil {
		return config.ClientCredentials{}, err
	}
	if id == "" {
		return config.ClientCredentials{}, nil
	}
	secretPrompt := promptui.Prompt{Label: fmt.Sprintf("%s OAuth client secret", provider), Mask: '*'}
	secret, err := secretPrompt.Run()
	if err != nil {
		return config.ClientCredentials{}, err
	}
	return config.ClientCredentials{ID: id, Secret: secret}, nil
}

var addAccountCmd = &cobra.Command{
	Use:   "add-account",
	Short: "Authorize a new account for a provider via the browser OAuth flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		provider, err := parseProvider(flagProvider)
		if err != nil {
			return err
		}
		settings, err := config.ReadSettings()
		if err != nil {
			return err
		}
		log := appLog()

		password, err := config.GetMasterPassword(false)
		if err != nil {
			return err
		}
		cfg, err := config.Load(settings.ConfigDir, password)
		if err != nil {
			return err
		}
		creds, err := cfg.ClientFor(provider)
		if err != nil {
			return err
		}
		oauthCfg, err := auth.OAuthConfig(provider, creds.ID, creds.Secret)
		if err != nil {
			return err
		}

		refreshToken, err := auth.PerformOAuthFlow(ctx, oauthCfg, log)
		if err != nil {
			return err
		}

		// Ask the backend who just authorized so the account is stored
		// under its real address.
		client, err := storage.New(ctx, provider, storage.Options{
			TokenSource: auth.NewTokenSource(oauthCfg, refreshToken),
			Logger:      log,
		})
		if err != nil {
			return err
		}
		email, err := client.GetUserEmail(ctx)
		if err != nil {
			return err
		}

		cfg.UpsertAccount(config.Account{Provider: provider, Email: email, RefreshToken: refreshToken})
		if err := config.Save(settings.ConfigDir, password, cfg); err != nil {
			return err
		}
		log.Info("authorized %s account %s", provider, email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addAccountCmd)
}
