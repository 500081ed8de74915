package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalHandler_Rank(t *testing.T) {
	tests := []struct {
		name             string
		query            string
		expectedStatus   int
		expectedRank     string
		expectedAchieved string
	}{
		{name: "zero", query: "count=0", expectedStatus: http.StatusOK, expectedRank: "Seedling"},
		{name: "threshold", query: "count=7", expectedStatus: http.StatusOK, expectedRank: "Sapling", expectedAchieved: "Sapling"},
		{name: "between thresholds", query: "count=8", expectedStatus: http.StatusOK, expectedRank: "Sapling"},
		{name: "missing", query: "", expectedStatus: http.StatusBadRequest},
		{name: "negative", query: "count=-1", expectedStatus: http.StatusBadRequest},
	}

	h := NewGoalHandler(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/rank?"+tt.query, nil)

			h.Rank(rec, req)

			require.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var resp rankResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedRank, resp.Rank)
			assert.Equal(t, tt.expectedAchieved, resp.Achieved)
			assert.Len(t, resp.Ranks, 7)
		})
	}
}

func TestGoalHandler_RejectsBadMilestoneID(t *testing.T) {
	h := NewGoalHandler(nil)

	for _, id := range []string{"abc", "0", "-2"} {
		t.Run(id, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, "/api/goal/milestones/"+id, strings.NewReader(`{"description":"x"}`))
			req.SetPathValue("id", id)

			h.SaveMilestone(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid milestone", decodeError(t, rec))
		})
	}
}

func TestGoalHandler_DeleteActivityRequiresID(t *testing.T) {
	h := NewGoalHandler(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/goal/activity", strings.NewReader(`{"source":"current","url":"https://cdn.test/p.jpg"}`))

	h.DeleteActivity(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id is required", decodeError(t, rec))
}
