package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tony-angelo/aletheia-codex/pkg/logging"
	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

const testBaseURL = "http://review.test"

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, tokens TokenProvider) *Client {
	t.Helper()
	c := NewClient(Config{BaseURL: testBaseURL}, tokens, logging.NewNop())
	httpmock.ActivateNonDefault(c.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func successEnvelope(t *testing.T, data any) httpmock.Responder {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
		"success": true,
		"data":    json.RawMessage(raw),
	})
}

func errorEnvelope(status int, code string, message string) httpmock.Responder {
	return httpmock.NewJsonResponderOrPanic(status, map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func TestClientAuth(t *testing.T) {
	t.Run("should fail before any network call when no token is available", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: ""})

		_, err := c.UserStats(context.Background())
		require.Error(t, err)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})

	t.Run("should fail before any network call when the token source errors", func(t *testing.T) {
		c := newTestClient(t, staticTokens{err: errors.New("session expired")})

		err := c.ApproveItem(context.Background(), "item-1")
		require.Error(t, err)

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Contains(t, authErr.Message, "session expired")
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})

	t.Run("should send the bearer token", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/v1/review/stats",
			func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, "Bearer token-123", req.Header.Get("Authorization"))
				return successEnvelope(t, models.UserStats{UserID: "user-1"})(req)
			})

		_, err := c.UserStats(context.Background())
		require.NoError(t, err)
	})

	t.Run("should map 401 to AuthError", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "expired"})

		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/v1/review/stats",
			errorEnvelope(http.StatusUnauthorized, models.ErrCodeUnauthorized, "token expired"))

		_, err := c.UserStats(context.Background())

		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "token expired", authErr.Message)
	})
}

func TestClientErrorTaxonomy(t *testing.T) {
	t.Run("should map 403 to PermissionError", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/review/approve",
			errorEnvelope(http.StatusForbidden, models.ErrCodeForbidden, "you do not own review item item-1"))

		err := c.ApproveItem(context.Background(), "item-1")

		var permErr *PermissionError
		require.ErrorAs(t, err, &permErr)
		assert.Equal(t, "you do not own review item item-1", permErr.Message)
	})

	t.Run("should carry the envelope code on server errors", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/review/approve",
			errorEnvelope(http.StatusInternalServerError, models.ErrCodeApprovalFailed, "failed to commit item item-1 to the knowledge graph"))

		err := c.ApproveItem(context.Background(), "item-1")

		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, http.StatusInternalServerError, serverErr.StatusCode)
		assert.Equal(t, models.ErrCodeApprovalFailed, serverErr.Code)
		assert.Equal(t, "failed to commit item item-1 to the knowledge graph", serverErr.Message)
	})

	t.Run("should fall back to status text for empty error bodies", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/v1/review/stats",
			httpmock.NewStringResponder(http.StatusBadGateway, ""))

		_, err := c.UserStats(context.Background())

		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, http.StatusBadGateway, serverErr.StatusCode)
		assert.Equal(t, models.ErrCodeInternalError, serverErr.Code)
	})

	t.Run("should wrap transport failures in NetworkError", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		transportErr := errors.New("connection refused")
		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/v1/review/stats",
			httpmock.NewErrorResponder(transportErr))

		_, err := c.UserStats(context.Background())

		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.ErrorContains(t, netErr.Err, "connection refused")
	})

	t.Run("should reject an unparseable success body", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/v1/review/stats",
			httpmock.NewStringResponder(http.StatusOK, "<html>not json</html>"))

		_, err := c.UserStats(context.Background())

		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, "malformed response envelope", serverErr.Message)
	})

	t.Run("should reject a success=false body on a 2xx status", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/v1/review/stats",
			httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{"success": false}))

		_, err := c.UserStats(context.Background())

		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr)
	})
}

func TestClientPendingItems(t *testing.T) {
	t.Run("should send normalized filters as query parameters", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/v1/review/pending",
			func(req *http.Request) (*http.Response, error) {
				query := req.URL.Query()
				assert.Equal(t, "100", query.Get("limit"))
				assert.Equal(t, models.OrderByExtractedAt, query.Get("order_by"))
				assert.Equal(t, "false", query.Get("descending"))
				assert.Equal(t, "0.8", query.Get("min_confidence"))
				assert.Equal(t, models.ReviewItemTypeEntity, query.Get("type"))
				return successEnvelope(t, models.PendingItemsResponse{})(req)
			})

		itemType := models.ReviewItemTypeEntity
		_, err := c.PendingItems(context.Background(), models.PendingFilters{
			Limit:         250,
			MinConfidence: 0.8,
			ItemType:      &itemType,
			OrderBy:       models.OrderByExtractedAt,
		})
		require.NoError(t, err)
	})

	t.Run("should omit unset optional filters", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/v1/review/pending",
			func(req *http.Request) (*http.Response, error) {
				query := req.URL.Query()
				assert.False(t, query.Has("min_confidence"))
				assert.False(t, query.Has("type"))
				return successEnvelope(t, models.PendingItemsResponse{})(req)
			})

		_, err := c.PendingItems(context.Background(), models.DefaultPendingFilters())
		require.NoError(t, err)
	})

	t.Run("should parse the item list", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/v1/review/pending",
			successEnvelope(t, models.PendingItemsResponse{
				Items: []models.ReviewItem{
					{ID: "item-1", ItemType: models.ReviewItemTypeEntity, Status: models.ReviewItemStatusPending},
				},
				Count: 1,
			}))

		resp, err := c.PendingItems(context.Background(), models.DefaultPendingFilters())
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Count)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "item-1", resp.Items[0].ID)
	})
}

func TestClientDecisions(t *testing.T) {
	t.Run("should post the item id on approve", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/review/approve",
			func(req *http.Request) (*http.Response, error) {
				var body models.ApproveItemRequest
				require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
				assert.Equal(t, "item-1", body.ItemID)
				return successEnvelope(t, map[string]string{"item_id": "item-1"})(req)
			})

		require.NoError(t, c.ApproveItem(context.Background(), "item-1"))
	})

	t.Run("should post the reason on reject", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/review/reject",
			func(req *http.Request) (*http.Response, error) {
				var body models.RejectItemRequest
				require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
				assert.Equal(t, "item-1", body.ItemID)
				require.NotNil(t, body.Reason)
				assert.Equal(t, "wrong type", *body.Reason)
				return successEnvelope(t, map[string]string{"item_id": "item-1"})(req)
			})

		reason := "wrong type"
		require.NoError(t, c.RejectItem(context.Background(), "item-1", &reason))
	})
}

func TestClientBatch(t *testing.T) {
	t.Run("should make no network call for an empty approve batch", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		result, err := c.BatchApprove(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, result)
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})

	t.Run("should make no network call for an empty reject batch", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		result, err := c.BatchReject(context.Background(), []string{}, nil)
		require.NoError(t, err)
		assert.Nil(t, result)
		assert.Equal(t, 0, httpmock.GetTotalCallCount())
	})

	t.Run("should parse the batch result", func(t *testing.T) {
		c := newTestClient(t, staticTokens{token: "token-123"})

		failure := "review item item-2 is not pending"
		httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/v1/review/batch-approve",
			successEnvelope(t, models.BatchResult{
				OperationID:     "op-1",
				Operation:       models.BatchOperationApprove,
				TotalItems:      2,
				SuccessfulItems: 1,
				FailedItems:     1,
				Results: []models.BatchItemResult{
					{ItemID: "item-1", Success: true},
					{ItemID: "item-2", Success: false, Error: &failure},
				},
			}))

		result, err := c.BatchApprove(context.Background(), []string{"item-1", "item-2"})
		require.NoError(t, err)
		assert.Equal(t, "op-1", result.OperationID)
		assert.Equal(t, 1, result.FailedItems)
		assert.False(t, result.AllSucceeded())
	})
}
