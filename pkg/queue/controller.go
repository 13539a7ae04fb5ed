// Package queue holds client-side state for the review queue: the visible
// pending items, the user's stats, the active filters, and the last error.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

// RefreshInterval is the default auto refresh period
const RefreshInterval = 30 * time.Second

// ItemAPI is the review API surface the controller consumes
type ItemAPI interface {
	PendingItems(ctx context.Context, filters models.PendingFilters) (*models.PendingItemsResponse, error)
	ApproveItem(ctx context.Context, itemID string) error
	RejectItem(ctx context.Context, itemID string, reason *string) error
	BatchApprove(ctx context.Context, itemIDs []string) (*models.BatchResult, error)
	BatchReject(ctx context.Context, itemIDs []string, reason *string) (*models.BatchResult, error)
	UserStats(ctx context.Context) (*models.UserStats, error)
}

// FilterUpdate is a partial filter change. Nil fields keep their current
// values; ItemType uses a double pointer so callers can clear the type
// filter by setting it to a nil inner pointer.
type FilterUpdate struct {
	Limit         *int
	MinConfidence *float64
	ItemType      **string
	OrderBy       *string
	Descending    *bool
}

// Controller owns review queue state. Fetches replace the item list; they
// never merge. A failed fetch keeps the previous items visible alongside
// the error.
type Controller struct {
	api    ItemAPI
	logger ectologger.Logger

	mu      sync.Mutex
	items   []models.ReviewItem
	stats   *models.UserStats
	filters models.PendingFilters
	loading bool
	lastErr error

	stopRefresh context.CancelFunc
	refreshDone chan struct{}
}

// NewController creates a controller with default filters
func NewController(api ItemAPI, logger ectologger.Logger) *Controller {
	return &Controller{
		api:     api,
		logger:  logger,
		filters: models.DefaultPendingFilters(),
	}
}

// FetchItems reloads the pending item list using the current filters. On
// failure the existing items stay visible and the error is recorded.
func (c *Controller) FetchItems(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	filters := c.filters
	c.mu.Unlock()

	resp, err := c.api.PendingItems(ctx, filters)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false

	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Failed to fetch pending items")
		c.lastErr = err
		return err
	}

	c.items = resp.Items
	c.lastErr = nil
	return nil
}

// FetchStats reloads the user's stats. Failures are logged but never
// surface as controller errors; stats are decoration, not workflow.
func (c *Controller) FetchStats(ctx context.Context) {
	stats, err := c.api.UserStats(ctx)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("Failed to fetch review stats")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = stats
}

// ApproveItem approves one item and removes it from the visible list once
// the server confirms
func (c *Controller) ApproveItem(ctx context.Context, itemID string) error {
	if err := c.api.ApproveItem(ctx, itemID); err != nil {
		c.setError(err)
		return err
	}

	c.removeItems(map[string]struct{}{itemID: {}})
	c.FetchStats(ctx)
	return nil
}

// RejectItem rejects one item and removes it from the visible list once the
// server confirms
func (c *Controller) RejectItem(ctx context.Context, itemID string, reason *string) error {
	if err := c.api.RejectItem(ctx, itemID, reason); err != nil {
		c.setError(err)
		return err
	}

	c.removeItems(map[string]struct{}{itemID: {}})
	c.FetchStats(ctx)
	return nil
}

// BatchApprove approves the given items. When the call itself succeeds, every
// requested id leaves the visible list even if some items failed server-side;
// the next refresh brings failed ones back.
func (c *Controller) BatchApprove(ctx context.Context, itemIDs []string) (*models.BatchResult, error) {
	result, err := c.api.BatchApprove(ctx, itemIDs)
	if err != nil {
		c.setError(err)
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	c.removeItems(idSet(itemIDs))
	c.FetchStats(ctx)
	return result, nil
}

// BatchReject rejects the given items with a shared optional reason. Removal
// behaves like BatchApprove.
func (c *Controller) BatchReject(ctx context.Context, itemIDs []string, reason *string) (*models.BatchResult, error) {
	result, err := c.api.BatchReject(ctx, itemIDs, reason)
	if err != nil {
		c.setError(err)
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	c.removeItems(idSet(itemIDs))
	c.FetchStats(ctx)
	return result, nil
}

// UpdateFilters merges the given changes into the current filters. It does
// not refetch; the caller decides when to reload.
func (c *Controller) UpdateFilters(update FilterUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if update.Limit != nil {
		c.filters.Limit = *update.Limit
	}
	if update.MinConfidence != nil {
		c.filters.MinConfidence = *update.MinConfidence
	}
	if update.ItemType != nil {
		c.filters.ItemType = *update.ItemType
	}
	if update.OrderBy != nil {
		c.filters.OrderBy = *update.OrderBy
	}
	if update.Descending != nil {
		c.filters.Descending = *update.Descending
	}
}

// ClearError clears the recorded error. Safe to call when no error is set.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
}

// StartAutoRefresh reloads items and stats on every tick until Stop is
// called or the context is cancelled. An interval of zero or less means
// RefreshInterval. Each tick refreshes both; a failed item fetch already
// records its error and must not starve the stats.
func (c *Controller) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = RefreshInterval
	}

	c.mu.Lock()
	if c.stopRefresh != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.stopRefresh = cancel
	done := make(chan struct{})
	c.refreshDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = c.FetchItems(ctx)
				c.FetchStats(ctx)
			}
		}
	}()
}

// Stop cancels the auto refresher and waits for it to exit
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.stopRefresh
	done := c.refreshDone
	c.stopRefresh = nil
	c.refreshDone = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Items returns a copy of the visible pending items
func (c *Controller) Items() []models.ReviewItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]models.ReviewItem, len(c.items))
	copy(items, c.items)
	return items
}

// Stats returns the last fetched stats, or nil before the first fetch
func (c *Controller) Stats() *models.UserStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Filters returns the active filters
func (c *Controller) Filters() models.PendingFilters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Loading reports whether a fetch is in flight
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the last recorded error, or nil
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}

func (c *Controller) removeItems(ids map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.items[:0]
	for _, item := range c.items {
		if _, ok := ids[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
