package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

var (
	batchReason string
	batchJSON   bool
)

var batchApproveCmd = &cobra.Command{
	Use:   "batch-approve [item-id]...",
	Short: "Approve several review items in one request",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatchApprove,
}

var batchRejectCmd = &cobra.Command{
	Use:   "batch-reject [item-id]...",
	Short: "Reject several review items in one request",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatchReject,
}

func init() {
	batchApproveCmd.Flags().BoolVar(&batchJSON, "json", false, "output as JSON")
	batchRejectCmd.Flags().BoolVar(&batchJSON, "json", false, "output as JSON")
	batchRejectCmd.Flags().StringVarP(&batchReason, "reason", "r", "", "why the items were rejected")
}

func runBatchApprove(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()

	result, err := newClient(cfg).BatchApprove(context.Background(), args)
	if err != nil {
		return fmt.Errorf("batch approval failed: %w", err)
	}
	return printBatchResult(result)
}

func runBatchReject(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()

	var reason *string
	if batchReason != "" {
		reason = &batchReason
	}

	result, err := newClient(cfg).BatchReject(context.Background(), args, reason)
	if err != nil {
		return fmt.Errorf("batch rejection failed: %w", err)
	}
	return printBatchResult(result)
}

func printBatchResult(result *models.BatchResult) error {
	if batchJSON {
		return printJSON(result)
	}

	fmt.Printf("Batch %s %s\n", result.Operation, result.OperationID)
	fmt.Printf("  succeeded: %d\n", result.SuccessfulItems)
	fmt.Printf("  failed:    %d\n", result.FailedItems)
	if result.Truncated {
		fmt.Printf("  truncated to the first %d items\n", models.MaxBatchSize)
	}

	for _, item := range result.Results {
		if item.Success || item.Error == nil {
			continue
		}
		fmt.Printf("  %s: %s\n", item.ItemID, *item.Error)
	}

	return nil
}
