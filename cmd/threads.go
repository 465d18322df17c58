package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Manage saved conversations",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		threads, err := a.chatAPI.ListThreads(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list threads: %w", err)
		}

		if len(threads) == 0 {
			fmt.Println("Belum ada percakapan.")
			return nil
		}
		for _, thread := range threads {
			title := thread.Title
			if title == "" {
				title = "(tanpa judul)"
			}
			fmt.Printf("%s  %s\n", thread.ID, title)
		}
		return nil
	},
}

var threadsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		if err := a.chatAPI.DeleteThread(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete thread: %w", err)
		}
		fmt.Printf("Percakapan %s dihapus.\n", args[0])
		return nil
	},
}

func init() {
	threadsCmd.AddCommand(threadsListCmd)
	threadsCmd.AddCommand(threadsDeleteCmd)
}
