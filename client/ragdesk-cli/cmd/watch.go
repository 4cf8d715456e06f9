package cmd

import (
	"RagDesk/backend/go/pkg/ragclient"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		brokers string
		topic   string
		group   string
		taskID  string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow task events published by the backend on Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:  strings.Split(brokers, ","),
				Topic:    topic,
				GroupID:  group,
				MinBytes: 1,
				MaxBytes: 10e6,
				MaxWait:  time.Second,
			})
			w := ragclient.NewEventWatcher(reader, nil)
			defer w.Close()

			out := cmd.OutOrStdout()
			handler := func(ev ragclient.TaskEvent) error {
				fmt.Fprintln(out, formatEvent(ev))
				return nil
			}
			if taskID != "" {
				handler = ragclient.FilterTask(taskID, handler)
			}
			return w.Watch(cmd.Context(), handler)
		},
	}
	cmd.Flags().StringVar(&brokers, "brokers", envOr("RAGDESK_KAFKA", "localhost:9092"), "comma separated Kafka brokers")
	cmd.Flags().StringVar(&topic, "topic", "rag-task-events", "task event topic")
	cmd.Flags().StringVar(&group, "group", "ragdesk-cli", "consumer group")
	cmd.Flags().StringVar(&taskID, "task", "", "only show events of this task")
	return cmd
}

func formatEvent(ev ragclient.TaskEvent) string {
	line := fmt.Sprintf("%s %-9s %s [%3d%%] %s", ev.Timestamp.Format(time.RFC3339), ev.Type, ev.TaskID, ev.Progress, ev.FilePath)
	if ev.Message != "" {
		line += ": " + ev.Message
	}
	return line
}
