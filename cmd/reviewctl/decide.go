package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rejectReason string

var approveCmd = &cobra.Command{
	Use:   "approve [item-id]",
	Short: "Approve a review item and commit it to the knowledge graph",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

var rejectCmd = &cobra.Command{
	Use:   "reject [item-id]",
	Short: "Reject a review item",
	Args:  cobra.ExactArgs(1),
	RunE:  runReject,
}

func init() {
	rejectCmd.Flags().StringVarP(&rejectReason, "reason", "r", "", "why the item was rejected")
}

func runApprove(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()

	if err := newClient(cfg).ApproveItem(context.Background(), args[0]); err != nil {
		return fmt.Errorf("approval failed: %w", err)
	}

	fmt.Printf("Approved %s\n", args[0])
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()

	var reason *string
	if rejectReason != "" {
		reason = &rejectReason
	}

	if err := newClient(cfg).RejectItem(context.Background(), args[0], reason); err != nil {
		return fmt.Errorf("rejection failed: %w", err)
	}

	fmt.Printf("Rejected %s\n", args[0])
	return nil
}
