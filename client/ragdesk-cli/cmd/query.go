package cmd

import (
	"RagDesk/backend/go/pkg/ragclient"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newQueryCmd(root *rootOptions) *cobra.Command {
	var (
		mode       string
		multimodal string
	)
	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question over the processed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var items []ragclient.MultimodalItem
			if multimodal != "" {
				raw, err := os.ReadFile(multimodal)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(raw, &items); err != nil {
					return fmt.Errorf("%s is not a JSON array of items: %w", multimodal, err)
				}
			}
			client, err := root.backend()
			if err != nil {
				return err
			}
			answer, err := client.Query(cmd.Context(), args[0], mode, items)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "hybrid", "retrieval mode: local, global, hybrid, naive, mix or bypass")
	cmd.Flags().StringVar(&multimodal, "multimodal", "", "JSON file with multimodal items to send along")
	return cmd
}

func newClearCacheCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete all processed documents and cached answers on the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.backend()
			if err != nil {
				return err
			}
			resp, err := client.ClearCache(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			fmt.Fprintln(cmd.OutOrStdout(), resp.NextProcessing)
			return nil
		},
	}
}
