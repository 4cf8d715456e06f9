package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newUploadCmd(root *rootOptions) *cobra.Command {
	var (
		username string
		password string
		process  bool
	)
	cmd := &cobra.Command{
		Use:   "upload [file-path]",
		Short: "Upload a local file through the upload UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.ui()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if username != "" {
				if password == "" {
					password = os.Getenv("RAGDESK_PASSWORD")
				}
				if err := client.Login(ctx, username, password); err != nil {
					return fmt.Errorf("login: %w", err)
				}
			}

			up, err := client.Upload(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, up.Message)
			if !process {
				return nil
			}
			resp, err := client.ProcessFile(ctx, up.FileName)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Task %s: %s\n", resp.TaskID, resp.Message)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "UI account name, when the UI requires login")
	cmd.Flags().StringVar(&password, "password", "", "UI account password (or RAGDESK_PASSWORD)")
	cmd.Flags().BoolVar(&process, "process", false, "queue the file for processing after the upload")
	return cmd
}
