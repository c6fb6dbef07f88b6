package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [parent-id]",
	Short: "List the children of a folder (the root when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		parentID := ""
		if len(args) == 1 {
			parentID = args[0]
		}
		entities, err := s.client.ListFiles(ctx, parentID)
		if err != nil {
			return err
		}
		for i := range entities {
			printEntity(&entities[i])
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search files and folders by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		entities, err := s.client.Search(ctx, args[0])
		if err != nil {
			return err
		}
		for i := range entities {
			printEntity(&entities[i])
		}
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve a slash-separated path to an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		entity, err := s.client.ResolvePath(ctx, args[0])
		if err != nil {
			return err
		}
		if entity == nil {
			return fmt.Errorf("path not found: %s", args[0])
		}
		printEntity(entity)
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat <file-id>",
	Short: "Show the full metadata of a file or folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		meta, err := s.client.GetFileMetadata(ctx, args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(meta.Entity, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var urlCmd = &cobra.Command{
	Use:   "url <file-id>",
	Short: "Print a browser link for a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		link, err := s.client.GetWebURL(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(link)
		return nil
	},
}

var versionsCmd = &cobra.Command{
	Use:   "versions <file-id>",
	Short: "List a file's version history, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		versions, err := s.client.GetFileVersions(ctx, args[0])
		if err != nil {
			return err
		}
		for _, v := range versions {
			size := "-"
			if v.Size != nil {
				size = fmt.Sprintf("%d", *v.Size)
			}
			fmt.Printf("%-30s %10s  %s\n", v.VersionID, size, v.LastModified.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show the account's storage quota",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		quota, err := s.client.GetStorageQuota(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Provider:  %s\n", quota.Provider)
		if quota.OwnerEmail != "" {
			fmt.Printf("Account:   %s\n", quota.OwnerEmail)
		}
		fmt.Printf("Used:      %d bytes\n", quota.UsedBytes)
		fmt.Printf("Total:     %d bytes\n", quota.TotalBytes)
		fmt.Printf("Remaining: %d bytes\n", quota.RemainingBytes)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(quotaCmd)
}
