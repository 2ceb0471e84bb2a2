package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tender-server/internal/infrastructure/database"
	"tender-server/internal/infrastructure/queue"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Notification outbox maintenance",
	Long:  `Inspect and clean the notification_jobs table used when NOTIFICATION_MODE=outbox.`,
}

var outboxStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the number of pending notification jobs",
	RunE:  runOutboxStatus,
}

var outboxRequeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Return jobs stuck in processing back to pending",
	RunE:  runOutboxRequeue,
}

var outboxPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete finished jobs older than the retention",
	RunE:  runOutboxPurge,
}

func init() {
	outboxCmd.AddCommand(outboxStatusCmd)
	outboxCmd.AddCommand(outboxRequeueCmd)
	outboxCmd.AddCommand(outboxPurgeCmd)

	outboxRequeueCmd.Flags().Duration("older-than", 10*time.Minute, "Requeue jobs claimed before this age")
	outboxPurgeCmd.Flags().Duration("retention", 7*24*time.Hour, "Keep finished jobs younger than this")
}

func openOutbox() (*runtime, *queue.PostgresQueue, error) {
	rt, err := openRuntime()
	if err != nil {
		return nil, nil, err
	}
	return rt, queue.NewPostgresQueue(database.NewDB(rt.db), rt.cfg.NotificationMaxAttempts, rt.cfg.NotificationRetryBackoff, rt.log), nil
}

func runOutboxStatus(cmd *cobra.Command, _ []string) error {
	rt, outbox, err := openOutbox()
	if err != nil {
		return err
	}
	defer rt.Close()

	depth, err := outbox.Depth(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pending jobs: %d\n", depth)
	return nil
}

func runOutboxRequeue(cmd *cobra.Command, _ []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")

	rt, outbox, err := openOutbox()
	if err != nil {
		return err
	}
	defer rt.Close()

	requeued, err := outbox.RequeueStale(cmd.Context(), olderThan)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "requeued %d job(s)\n", requeued)
	return nil
}

func runOutboxPurge(cmd *cobra.Command, _ []string) error {
	retention, _ := cmd.Flags().GetDuration("retention")
	if retention <= 0 {
		return fmt.Errorf("--retention must be positive")
	}

	rt, outbox, err := openOutbox()
	if err != nil {
		return err
	}
	defer rt.Close()

	purged, err := outbox.Purge(cmd.Context(), retention)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d job(s)\n", purged)
	return nil
}
