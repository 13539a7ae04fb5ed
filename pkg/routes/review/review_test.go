package review

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tony-angelo/aletheia-codex/pkg/models"
)

func filterContext(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/review/pending?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestParseFilters(t *testing.T) {
	t.Run("should return defaults for an empty query", func(t *testing.T) {
		filters, err := parseFilters(filterContext(""))
		require.NoError(t, err)

		assert.Equal(t, models.DefaultPendingLimit, filters.Limit)
		assert.Equal(t, models.OrderByConfidence, filters.OrderBy)
		assert.True(t, filters.Descending)
		assert.Nil(t, filters.ItemType)
	})

	t.Run("should parse every supported parameter", func(t *testing.T) {
		filters, err := parseFilters(filterContext("limit=20&min_confidence=0.75&type=entity&order_by=extracted_at&descending=false"))
		require.NoError(t, err)

		assert.Equal(t, 20, filters.Limit)
		assert.InDelta(t, 0.75, filters.MinConfidence, 0.001)
		require.NotNil(t, filters.ItemType)
		assert.Equal(t, models.ReviewItemTypeEntity, *filters.ItemType)
		assert.Equal(t, models.OrderByExtractedAt, filters.OrderBy)
		assert.False(t, filters.Descending)
	})

	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{
			name:    "non numeric limit",
			query:   "limit=lots",
			wantErr: "limit must be an integer",
		},
		{
			name:    "non numeric min_confidence",
			query:   "min_confidence=high",
			wantErr: "min_confidence must be a number between 0 and 1",
		},
		{
			name:    "min_confidence above one",
			query:   "min_confidence=1.5",
			wantErr: "min_confidence must be a number between 0 and 1",
		},
		{
			name:    "negative min_confidence",
			query:   "min_confidence=-0.1",
			wantErr: "min_confidence must be a number between 0 and 1",
		},
		{
			name:    "unknown type",
			query:   "type=widget",
			wantErr: "type must be entity or relationship",
		},
		{
			name:    "non boolean descending",
			query:   "descending=perhaps",
			wantErr: "descending must be a boolean",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters, err := parseFilters(filterContext(tt.query))
			require.Error(t, err)
			assert.Nil(t, filters)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}
