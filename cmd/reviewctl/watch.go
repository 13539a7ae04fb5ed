package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tony-angelo/aletheia-codex/pkg/logging"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
	"github.com/tony-angelo/aletheia-codex/pkg/queue"
)

var (
	watchInterval      time.Duration
	watchLimit         int
	watchMinConfidence float64
	watchType          string
	watchApproveAbove  float64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the review queue and refresh it continuously",
	Long: `Watch the review queue, refreshing items and stats on an interval
until interrupted.

With --approve-above, every refreshed item at or above the given confidence
is batch approved automatically.

Examples:
  reviewctl watch
  reviewctl watch --interval 10s --type entity
  reviewctl watch --approve-above 0.95`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", queue.RefreshInterval, "refresh interval")
	watchCmd.Flags().IntVarP(&watchLimit, "limit", "l", models.DefaultPendingLimit, "maximum items per refresh")
	watchCmd.Flags().Float64Var(&watchMinConfidence, "min-confidence", 0, "minimum confidence score")
	watchCmd.Flags().StringVarP(&watchType, "type", "t", "", "filter by item type (entity, relationship)")
	watchCmd.Flags().Float64Var(&watchApproveAbove, "approve-above", 0, "auto approve items at or above this confidence (0 disables)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewNop()
	controller := queue.NewController(newClient(cfg), logger)
	coordinator := queue.NewCoordinator(queue.NewSelection(), controller, logger)
	coordinator.OnComplete(func(result *models.BatchResult) {
		fmt.Printf("auto approved %d of %d selected items\n\n", result.SuccessfulItems, result.TotalItems)
	})

	update := queue.FilterUpdate{Limit: &watchLimit, MinConfidence: &watchMinConfidence}
	if watchType != "" {
		typed := &watchType
		update.ItemType = &typed
	}
	controller.UpdateFilters(update)

	if err := controller.FetchItems(ctx); err != nil {
		return fmt.Errorf("failed to load the review queue: %w", err)
	}
	controller.FetchStats(ctx)
	renderQueue(controller)

	controller.StartAutoRefresh(ctx, watchInterval)
	defer controller.Stop()

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("watch stopped")
			return nil
		case <-ticker.C:
			if watchApproveAbove > 0 {
				if err := approveAboveThreshold(ctx, controller, coordinator); err != nil {
					fmt.Fprintf(os.Stderr, "auto approve failed: %v\n", err)
				}
			}
			renderQueue(controller)
		}
	}
}

// approveAboveThreshold selects every visible item at or above the threshold
// and approves them as one batch
func approveAboveThreshold(ctx context.Context, controller *queue.Controller, coordinator *queue.Coordinator) error {
	if coordinator.Processing() {
		return nil
	}

	selection := coordinator.Selection()
	for _, item := range controller.Items() {
		if item.Confidence >= watchApproveAbove {
			selection.Add(item.ID)
		}
	}
	if selection.Len() == 0 {
		return nil
	}

	_, err := coordinator.ApproveSelected(ctx)
	return err
}

func renderQueue(controller *queue.Controller) {
	fmt.Printf("--- %s ---\n", time.Now().Format("15:04:05"))

	if stats := controller.Stats(); stats != nil {
		fmt.Printf("pending %d | approved %d | rejected %d | total %d\n",
			stats.PendingItems, stats.ApprovedItems, stats.RejectedItems, stats.TotalItems)
	}
	if err := controller.Err(); err != nil {
		fmt.Printf("last refresh error: %v\n", err)
	}

	items := controller.Items()
	if len(items) == 0 {
		fmt.Println("no pending review items")
		fmt.Println()
		return
	}

	for _, item := range items {
		fmt.Printf("  [%s] %s  (confidence: %.2f)  %s\n", item.ItemType, item.DisplayName(), item.Confidence, item.ID)
	}
	fmt.Println()
}
