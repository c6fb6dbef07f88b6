package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cloudgate/internal/model"
	"cloudgate/internal/retry"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	flagParent    string
	flagMimeType  string
	flagExtension string
	flagPermanent bool
	flagOutput    string
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <name>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		entity, err := s.client.CreateFolder(ctx, flagParent, args[0])
		if err != nil {
			return err
		}
		printEntity(entity)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty file, typed by --mime-type or --extension",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}

		var entity *model.Entity
		if flagMimeType != "" {
			entity, err = s.client.CreateFileWithMimeType(ctx, flagParent, args[0], flagMimeType)
		} else {
			entity, err = s.client.CreateFileWithExtension(ctx, flagParent, args[0], flagExtension)
		}
		if err != nil {
			return err
		}
		printEntity(entity)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <local-file>",
	Short: "Upload a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}

		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}

		var entity *model.Entity
		err = retry.Do(ctx, 3, time.Second, func() error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			entity, err = s.client.UploadFile(ctx, flagParent, filepath.Base(args[0]), f, info.Size())
			return err
		})
		if err != nil {
			return err
		}
		printEntity(entity)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <file-id> <local-file>",
	Short: "Replace a remote file's content with a local file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}

		info, err := os.Stat(args[1])
		if err != nil {
			return err
		}

		var entity *model.Entity
		err = retry.Do(ctx, 3, time.Second, func() error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			entity, err = s.client.UpdateFile(ctx, args[0], f, info.Size())
			return err
		})
		if err != nil {
			return err
		}
		printEntity(entity)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <file-id>",
	Short: "Download a file's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		body, err := s.client.DownloadFile(ctx, args[0])
		if err != nil {
			return err
		}
		defer body.Close()
		return writeOutput(body, flagOutput)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file-id> <mime-type>",
	Short: "Download a file converted to another format",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		body, err := s.client.ExportFile(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		defer body.Close()
		return writeOutput(body, flagOutput)
	},
}

var downloadVersionCmd = &cobra.Command{
	Use:   "download-version <file-id> <version-id>",
	Short: "Download one historic version of a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		body, err := s.client.DownloadFileVersion(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		defer body.Close()
		return writeOutput(body, flagOutput)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <file-id>",
	Short: "Delete a file (recoverable unless --permanent)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := setup(ctx)
		if err != nil {
			return err
		}
		if flagPermanent {
			return s.client.PermanentlyDeleteFile(ctx, args[0])
		}
		return s.client.DeleteFile(ctx, args[0])
	},
}

// writeOutput stages the stream into a temp file next to the target and
// renames it into place, so an interrupted download never leaves a
// half-written file under the final name. Empty target means stdout.
func writeOutput(body io.Reader, target string) error {
	if target == "" {
		_, err := io.Copy(os.Stdout, body)
		return err
	}

	staging := filepath.Join(filepath.Dir(target), "."+uuid.NewString()+".part")
	f, err := os.Create(staging)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(staging)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(staging)
		return err
	}
	if err := os.Rename(staging, target); err != nil {
		os.Remove(staging)
		return err
	}
	fmt.Println(target)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{mkdirCmd, createCmd, uploadCmd} {
		c.Flags().StringVar(&flagParent, "parent", "", "Parent folder id (the root when empty)")
	}
	createCmd.Flags().StringVar(&flagMimeType, "mime-type", "", "Explicit mime type for the new file")
	createCmd.Flags().StringVar(&flagExtension, "extension", "", "File extension for the new file")
	rmCmd.Flags().BoolVar(&flagPermanent, "permanent", false, "Delete beyond recovery where the provider supports it")
	for _, c := range []*cobra.Command{downloadCmd, exportCmd, downloadVersionCmd} {
		c.Flags().StringVarP(&flagOutput, "output", "o", "", "Write to this file instead of stdout")
	}

	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(downloadVersionCmd)
	rootCmd.AddCommand(rmCmd)
}
