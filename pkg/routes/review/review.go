// Package review exposes the review queue HTTP API
package review

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	ctxutil "github.com/tony-angelo/aletheia-codex/pkg/context"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
	"github.com/tony-angelo/aletheia-codex/pkg/review"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
)

var validate = validator.New()

// Register registers review queue routes
func Register(g *echo.Group) {
	g.GET("/pending", Pending)
	g.POST("/approve", Approve)
	g.POST("/reject", Reject)
	g.POST("/batch-approve", BatchApprove)
	g.POST("/batch-reject", BatchReject)
	g.GET("/stats", Stats)
}

// Pending returns the user's pending review items
func Pending(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.Pending")
	defer span.End()

	userID := ctxutil.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	filters, err := parseFilters(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, models.ErrCodeInvalidParameter, err.Error())
	}

	ctx, workflow, err := ectoinject.GetContext[*review.Workflow](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review workflow")
	}

	items, err := workflow.ListPending(ctx, userID, *filters)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.ReviewItem{}
	}

	filters.Normalize()
	return respond(c, http.StatusOK, models.PendingItemsResponse{
		Items:   items,
		Count:   len(items),
		Filters: *filters,
	})
}

// Approve approves a single review item
func Approve(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.Approve")
	defer span.End()

	userID := ctxutil.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	var req models.ApproveItemRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "item_id must be a valid uuid")
	}

	ctx, workflow, err := ectoinject.GetContext[*review.Workflow](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review workflow")
	}

	if err := workflow.Approve(ctx, userID, req.ItemID); err != nil {
		return decisionError(c, err, models.ErrCodeApprovalFailed)
	}

	return respond(c, http.StatusOK, map[string]string{
		"item_id": req.ItemID,
		"status":  models.ReviewItemStatusApproved,
	})
}

// Reject rejects a single review item
func Reject(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.Reject")
	defer span.End()

	userID := ctxutil.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	var req models.RejectItemRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "item_id must be a valid uuid")
	}

	ctx, workflow, err := ectoinject.GetContext[*review.Workflow](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review workflow")
	}

	if err := workflow.Reject(ctx, userID, req.ItemID, req.Reason); err != nil {
		return decisionError(c, err, models.ErrCodeRejectionFailed)
	}

	return respond(c, http.StatusOK, map[string]string{
		"item_id": req.ItemID,
		"status":  models.ReviewItemStatusRejected,
	})
}

// BatchApprove approves up to the batch limit of review items
func BatchApprove(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.BatchApprove")
	defer span.End()

	userID := ctxutil.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	var req models.BatchApproveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "item_ids must be a non-empty list of uuids")
	}

	ctx, processor, err := ectoinject.GetContext[*review.BatchProcessor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get batch processor")
	}

	result, err := processor.BatchApprove(ctx, userID, req.ItemIDs)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, result)
}

// BatchReject rejects up to the batch limit of review items
func BatchReject(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.BatchReject")
	defer span.End()

	userID := ctxutil.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	var req models.BatchRejectRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "item_ids must be a non-empty list of uuids")
	}

	ctx, processor, err := ectoinject.GetContext[*review.BatchProcessor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get batch processor")
	}

	result, err := processor.BatchReject(ctx, userID, req.ItemIDs, req.Reason)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, result)
}

// Stats returns the user's review counters
func Stats(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "review_handler.Stats")
	defer span.End()

	userID := ctxutil.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user_id is required")
	}

	ctx, workflow, err := ectoinject.GetContext[*review.Workflow](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review workflow")
	}

	stats, err := workflow.GetUserStats(ctx, userID)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, stats)
}

func parseFilters(c echo.Context) (*models.PendingFilters, error) {
	filters := models.DefaultPendingFilters()

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("limit must be an integer")
		}
		filters.Limit = limit
	}
	if raw := c.QueryParam("min_confidence"); raw != "" {
		minConfidence, err := strconv.ParseFloat(raw, 64)
		if err != nil || minConfidence < 0 || minConfidence > 1 {
			return nil, errors.New("min_confidence must be a number between 0 and 1")
		}
		filters.MinConfidence = minConfidence
	}
	if raw := c.QueryParam("type"); raw != "" {
		if raw != models.ReviewItemTypeEntity && raw != models.ReviewItemTypeRelationship {
			return nil, errors.New("type must be entity or relationship")
		}
		filters.ItemType = &raw
	}
	if raw := c.QueryParam("order_by"); raw != "" {
		filters.OrderBy = raw
	}
	if raw := c.QueryParam("descending"); raw != "" {
		descending, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.New("descending must be a boolean")
		}
		filters.Descending = descending
	}

	return &filters, nil
}

func respond(c echo.Context, status int, data any) error {
	resp, err := models.NewSuccessResponse(data)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to encode response")
	}
	return c.JSON(status, resp)
}

func respondError(c echo.Context, status int, code string, message string) error {
	return c.JSON(status, models.NewErrorResponse(code, message))
}

// decisionError keeps ownership and existence failures on the generic error
// path and folds everything else into the operation-specific failure code.
func decisionError(c echo.Context, err error, code string) error {
	if httperror.IsHTTPError(err) {
		status := httperror.GetStatusCode(err)
		switch status {
		case http.StatusForbidden, http.StatusNotFound:
			return err
		default:
			return respondError(c, status, code, err.Error())
		}
	}
	return respondError(c, http.StatusInternalServerError, code, err.Error())
}
