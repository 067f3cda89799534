package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(queueCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain the queued mutations against the remote API",
	Long: "Replays every mutation queued while offline, in enqueue order. Items\n" +
		"that fail stay queued for the next sync.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userID == "" {
			return fmt.Errorf("sync: --user is required (guest data never syncs)")
		}
		return withEngine(func(ctx context.Context, eng *engine) error {
			result, err := eng.controller.OnReconnect(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("processed %d, failed %d\n", result.Processed, result.Errors)
			return nil
		})
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show the pending mutation queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, eng *engine) error {
			pending, err := eng.queue.PeekAll(ctx)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("queue is empty")
				return nil
			}
			for i, m := range pending {
				fmt.Printf("%d\t%s\t%s\n", i, m.Action, m.EnqueuedAt.Format(time.RFC3339))
			}
			return nil
		})
	},
}
