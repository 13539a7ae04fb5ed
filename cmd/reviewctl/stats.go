package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review counters for the authenticated user",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()

	stats, err := newClient(cfg).UserStats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch stats: %w", err)
	}

	if statsJSON {
		return printJSON(stats)
	}

	fmt.Println("Review stats")
	fmt.Printf("  %-10s %d\n", "total:", stats.TotalItems)
	fmt.Printf("  %-10s %d\n", "pending:", stats.PendingItems)
	fmt.Printf("  %-10s %d\n", "approved:", stats.ApprovedItems)
	fmt.Printf("  %-10s %d\n", "rejected:", stats.RejectedItems)
	return nil
}
