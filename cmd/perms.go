package cmd

import (
	"fmt"

	"cloudgate/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagRole     string
	flagEmail    string
	flagDomain   string
	flagObjectID string
	flagAlias    string
	flagGroup    bool
	flagAnyone   bool
	flagNotify   bool
)

var permsCmd = &cobra.Command{
	Use:   "perms",
	Short: "Inspect and manage file permissions",
}

var permsListCmd = &cobra.Command{
	Use:   "list <file-id>",
	Short: "List the grants on a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		perms, err := s.client.GetFilePermissions(ctx, args[0])
		if err != nil {
			return err
		}
		for _, p := range perms {
			subject := p.Identity.EmailAddress
			if subject == "" {
				subject = p.Identity.DisplayName
			}
			if subject == "" {
				subject = string(p.Identity.Kind)
			}
			inherited := ""
			if p.Inherited != nil && *p.Inherited {
				inherited = " (inherited)"
			}
			fmt.Printf("%-30s %-12s %-8s %s%s\n", p.ID, p.Role, p.Identity.Kind, subject, inherited)
		}
		return nil
	},
}

var permsAddCmd = &cobra.Command{
	Use:   "add <file-id>",
	Short: "Grant access to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}

		req := model.CreatePermission{
			Role:                  model.Role(flagRole),
			SendNotificationEmail: flagNotify,
		}
		switch {
		case flagAnyone:
			req.Kind = model.RecipientAnyone
		case flagDomain != "":
			req.Kind = model.RecipientDomain
			req.Domain = flagDomain
		case flagObjectID != "":
			req.Kind = model.RecipientObjectID
			req.ObjectID = flagObjectID
		case flagAlias != "":
			req.Kind = model.RecipientAlias
			req.Alias = flagAlias
		case flagEmail != "" && flagGroup:
			req.Kind = model.RecipientGroup
			req.Email = flagEmail
		case flagEmail != "":
			req.Kind = model.RecipientUser
			req.Email = flagEmail
		default:
			return fmt.Errorf("one of --email, --domain, --object-id, --alias, or --anyone is required")
		}

		perm, err := s.client.CreatePermission(ctx, args[0], req)
		if err != nil {
			return err
		}
		fmt.Printf("%s granted %s\n", perm.ID, perm.Role)
		return nil
	},
}

var permsUpdateCmd = &cobra.Command{
	Use:   "update <file-id> <permission-id>",
	Short: "Change the role of an existing grant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		perm, err := s.client.UpdatePermission(ctx, args[0], args[1], model.Role(flagRole))
		if err != nil {
			return err
		}
		fmt.Printf("%s now %s\n", perm.ID, perm.Role)
		return nil
	},
}

var permsRmCmd = &cobra.Command{
	Use:   "rm <file-id> <permission-id>",
	Short: "Revoke a grant",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		return s.client.DeletePermission(ctx, args[0], args[1])
	},
}

func init() {
	permsAddCmd.Flags().StringVar(&flagEmail, "email", "", "Recipient e-mail (user, or group with --group)")
	permsAddCmd.Flags().BoolVar(&flagGroup, "group", false, "Treat --email as a group address")
	permsAddCmd.Flags().StringVar(&flagDomain, "domain", "", "Grant to everyone in a domain")
	permsAddCmd.Flags().StringVar(&flagObjectID, "object-id", "", "Grant to a provider-native object id")
	permsAddCmd.Flags().StringVar(&flagAlias, "alias", "", "Grant to a provider-native alias")
	permsAddCmd.Flags().BoolVar(&flagAnyone, "anyone", false, "Grant to anyone with the link")
	permsAddCmd.Flags().BoolVar(&flagNotify, "notify", false, "Send a notification e-mail where supported")
	permsAddCmd.Flags().StringVar(&flagRole, "role", "reader", "Role to grant: owner, writer, commenter, reader, ...")
	permsUpdateCmd.Flags().StringVar(&flagRole, "role", "reader", "New role for the grant")

	permsCmd.AddCommand(permsListCmd)
	permsCmd.AddCommand(permsAddCmd)
	permsCmd.AddCommand(permsUpdateCmd)
	permsCmd.AddCommand(permsRmCmd)
	rootCmd.AddCommand(permsCmd)
}
