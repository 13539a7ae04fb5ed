package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

var (
	pendingLimit         int
	pendingMinConfidence float64
	pendingType          string
	pendingOrderBy       string
	pendingAscending     bool
	pendingJSON          bool
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List review items awaiting a decision",
	Long: `List pending review items for the authenticated user.

Examples:
  reviewctl pending
  reviewctl pending --type entity --min-confidence 0.8
  reviewctl pending --order-by extracted_at --limit 20 --json`,
	RunE: runPending,
}

func init() {
	pendingCmd.Flags().IntVarP(&pendingLimit, "limit", "l", models.DefaultPendingLimit, "maximum items to return")
	pendingCmd.Flags().Float64Var(&pendingMinConfidence, "min-confidence", 0, "minimum confidence score")
	pendingCmd.Flags().StringVarP(&pendingType, "type", "t", "", "filter by item type (entity, relationship)")
	pendingCmd.Flags().StringVar(&pendingOrderBy, "order-by", models.OrderByConfidence, "sort field (confidence, extracted_at, name)")
	pendingCmd.Flags().BoolVar(&pendingAscending, "ascending", false, "sort ascending instead of descending")
	pendingCmd.Flags().BoolVar(&pendingJSON, "json", false, "output as JSON")
}

func runPending(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()
	ctx := context.Background()

	filters := models.PendingFilters{
		Limit:         pendingLimit,
		MinConfidence: pendingMinConfidence,
		OrderBy:       pendingOrderBy,
		Descending:    !pendingAscending,
	}
	if pendingType != "" {
		filters.ItemType = &pendingType
	}

	resp, err := newClient(cfg).PendingItems(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list pending items: %w", err)
	}

	if pendingJSON {
		return printJSON(resp)
	}
	return printPendingHuman(resp)
}

func printPendingHuman(resp *models.PendingItemsResponse) error {
	if resp.Count == 0 {
		fmt.Println("No pending review items")
		return nil
	}

	fmt.Printf("Pending review items (%d)\n\n", resp.Count)

	for i, item := range resp.Items {
		fmt.Printf("%d. [%s] %s  (confidence: %.2f)\n", i+1, item.ItemType, item.DisplayName(), item.Confidence)
		fmt.Printf("   id: %s\n", item.ID)

		var meta []string
		if item.SourceDocumentID != "" {
			meta = append(meta, "document: "+item.SourceDocumentID)
		}
		meta = append(meta, "extracted: "+item.ExtractedAt.Format("2006-01-02 15:04"))
		fmt.Printf("   %s\n", strings.Join(meta, " | "))

		if item.ExtractedText != nil {
			preview := strings.ReplaceAll(*item.ExtractedText, "\n", " ")
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
			fmt.Printf("   %s\n", preview)
		}

		fmt.Println()
	}

	return nil
}
