package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mstgnz/gobuckaroo/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyticsHandler(searcher *fakeSearcher, now time.Time) *AnalyticsHandler {
	h := NewAnalyticsHandler(searcher)
	h.now = func() time.Time { return now }
	return h
}

func TestAnalyticsHandler_GetDashboardStats(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		query         string
		expectedHours int
		expectedTotal int
		expectedRate  float64
	}{
		{name: "default window", expectedHours: 24, expectedTotal: 2, expectedRate: 50},
		{name: "one hour", query: "hours=1", expectedHours: 1, expectedTotal: 1, expectedRate: 100},
		{name: "full week", query: "hours=168", expectedHours: 168, expectedTotal: 3, expectedRate: 33.33},
		{name: "out of range falls back", query: "hours=500", expectedHours: 24, expectedTotal: 2, expectedRate: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{exchanges: testExchanges(now)}
			h := newTestAnalyticsHandler(searcher, now)

			req := withTenant(httptest.NewRequest(http.MethodGet, "/v1/analytics/dashboard?"+tt.query, nil), "APP1")
			w := httptest.NewRecorder()
			h.GetDashboardStats(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var stats DashboardStats
			decodeResponse(t, w, &stats)
			assert.Equal(t, tt.expectedHours, stats.Hours)
			assert.Equal(t, tt.expectedTotal, stats.TotalExchanges)
			assert.Equal(t, tt.expectedRate, stats.SuccessRate)
			assert.False(t, stats.Truncated)
			assert.Equal(t, analyticsWindow, searcher.gotLimit)
		})
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	stats := summarize(testExchanges(now)[:3], now.Add(-72*time.Hour))

	assert.Equal(t, 3, stats.TotalExchanges)
	assert.Equal(t, 33.33, stats.SuccessRate)
	assert.Equal(t, 2, stats.InvalidReplies)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 10066.67, stats.AvgResponseTime)
	assert.Equal(t, map[string]int{"TransactionRequest": 2, "InvoiceInfo": 1}, stats.ByOperation)
	assert.Equal(t, map[string]int{"successful": 1, "failed": 1, "error": 1}, stats.ByStatus)
	assert.Equal(t, &Breakdown{Total: 3, Success: 1}, stats.Providers["buckaroo"])
	require.NotNil(t, stats.LastExchange)
	assert.Equal(t, now.Add(-time.Minute), *stats.LastExchange)

	empty := summarize(nil, now)
	assert.Zero(t, empty.TotalExchanges)
	assert.Zero(t, empty.SuccessRate)
	assert.Nil(t, empty.LastExchange)
}

func TestAnalyticsHandler_GetRecentActivity(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	searcher := &fakeSearcher{exchanges: testExchanges(now)}
	h := newTestAnalyticsHandler(searcher, now)

	req := withTenant(httptest.NewRequest(http.MethodGet, "/v1/analytics/activity", nil), "APP1")
	w := httptest.NewRecorder()
	h.GetRecentActivity(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var activities []RecentActivity
	decodeResponse(t, w, &activities)
	require.Len(t, activities, 3)
	assert.Equal(t, 10, searcher.gotLimit)

	assert.Equal(t, RecentActivity{
		Operation:     "TransactionRequest",
		Provider:      "buckaroo",
		InvoiceNumber: "INV-2",
		Status:        "successful",
		StatusCode:    "190",
		Time:          "1 min ago",
		ID:            "r3",
	}, activities[0])
	assert.Equal(t, "2 h ago", activities[1].Time)
	assert.Equal(t, "failed", activities[1].Status)
	assert.Equal(t, "2 d ago", activities[2].Time)
	assert.Equal(t, "error", activities[2].Status)
}

func TestAnalyticsHandler_Errors(t *testing.T) {
	h := newTestAnalyticsHandler(&fakeSearcher{err: errors.New("down")}, time.Now())

	w := httptest.NewRecorder()
	h.GetDashboardStats(w, httptest.NewRequest(http.MethodGet, "/v1/analytics/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.GetDashboardStats(w, withTenant(httptest.NewRequest(http.MethodGet, "/v1/analytics/dashboard", nil), "APP1"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	h.GetRecentActivity(w, withTenant(httptest.NewRequest(http.MethodGet, "/v1/analytics/activity", nil), "APP1"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "just now", ago(10*time.Second))
	assert.Equal(t, "5 min ago", ago(5*time.Minute))
	assert.Equal(t, "3 h ago", ago(3*time.Hour+10*time.Minute))
	assert.Equal(t, "1 d ago", ago(30*time.Hour))
}

func TestActivityStatus(t *testing.T) {
	assert.Equal(t, "error", activityStatus(provider.Exchange{Error: "x", Success: true}))
	assert.Equal(t, "pending", activityStatus(provider.Exchange{Status: provider.StatusPending}))
	assert.Equal(t, "success", activityStatus(provider.Exchange{Success: true}))
	assert.Equal(t, "failed", activityStatus(provider.Exchange{}))
}
