package cmd

import (
	phttp "RagDesk/backend/go/pkg/http"
	"RagDesk/backend/go/pkg/ragclient"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultBackendURL = "http://localhost:8000"
	defaultUIURL      = "http://localhost:8001"
)

type rootOptions struct {
	backendURL string
	uiURL      string
	timeout    time.Duration
}

func (o *rootOptions) backend() (*ragclient.Client, error) {
	return ragclient.New(o.backendURL, ragclient.BreakerConfig{}, phttp.WithTimeout(o.timeout))
}

func (o *rootOptions) ui() (*ragclient.UIClient, error) {
	return ragclient.NewUI(o.uiURL, ragclient.BreakerConfig{}, phttp.WithTimeout(o.timeout))
}

// NewRootCmd builds the ragdesk command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "ragdesk",
		Short:         "A CLI client for the RagDesk document processing services",
		Long:          `A command-line interface for queuing documents, following their processing and querying the indexed content.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.backendURL, "backend", envOr("RAGDESK_BACKEND", defaultBackendURL), "document processing service URL")
	root.PersistentFlags().StringVar(&opts.uiURL, "ui", envOr("RAGDESK_UI", defaultUIURL), "upload UI URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "timeout of a single request")

	root.AddCommand(
		newProcessCmd(opts),
		newStatusCmd(opts),
		newQueryCmd(opts),
		newClearCacheCmd(opts),
		newUploadCmd(opts),
		newWatchCmd(),
	)
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
