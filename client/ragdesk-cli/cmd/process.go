package cmd

import (
	"RagDesk/backend/go/pkg/ragclient"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newProcessCmd(root *rootOptions) *cobra.Command {
	var (
		outputDir   string
		parseMethod string
		wait        bool
		interval    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "process [file-path]",
		Short: "Queue a document for processing",
		Long:  `Queue a document for processing. The path is resolved on the backend host.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.backend()
			if err != nil {
				return err
			}
			resp, err := client.ProcessDocument(cmd.Context(), ragclient.ProcessRequest{
				FilePath:    args[0],
				OutputDir:   outputDir,
				ParseMethod: parseMethod,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task %s: %s\n", resp.TaskID, resp.Message)
			if !wait {
				return nil
			}
			return waitAndReport(cmd, client, resp.TaskID, interval)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "parser output directory (backend default when empty)")
	cmd.Flags().StringVar(&parseMethod, "parse-method", "", "parse method: auto, ocr or txt")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "poll until the task finishes, printing new log lines")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval for --wait")
	return cmd
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show the state of a processing task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := root.backend()
			if err != nil {
				return err
			}
			st, err := client.TaskStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

func waitAndReport(cmd *cobra.Command, client *ragclient.Client, taskID string, interval time.Duration) error {
	out := cmd.OutOrStdout()
	var seen []string
	st, err := client.WaitForTask(cmd.Context(), taskID, interval, func(st *ragclient.TaskStatusResponse) {
		for _, line := range newLogLines(seen, st.Logs) {
			fmt.Fprintf(out, "[%3d%%] %s\n", st.Progress, line)
		}
		seen = st.Logs
	})
	if err != nil {
		return err
	}
	return report(out, st)
}

func report(out io.Writer, st *ragclient.TaskStatusResponse) error {
	fmt.Fprintf(out, "Task %s %s after %.1fs\n", st.TaskID, st.Status, st.Duration)
	if st.Error != "" {
		return fmt.Errorf("task %s failed: %s", st.TaskID, st.Error)
	}
	if st.Result != nil {
		fmt.Fprintf(out, "Processing type: %s (cached: %t)\n", st.Result.ProcessingType, st.Result.WasCached)
	}
	return nil
}

// newLogLines returns the entries of cur that were not in prev. Status responses carry a
// sliding window of the latest entries, so prev's tail is matched against cur's head.
func newLogLines(prev, cur []string) []string {
	for k := min(len(prev), len(cur)); k > 0; k-- {
		if equalLines(prev[len(prev)-k:], cur[:k]) {
			return cur[k:]
		}
	}
	return cur
}

func equalLines(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
