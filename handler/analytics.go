package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/mstgnz/gobuckaroo/infra/response"
	"github.com/mstgnz/gobuckaroo/provider"
)

// analyticsWindow is the number of recent exchanges the dashboard aggregates
const analyticsWindow = 500

// AnalyticsHandler aggregates the recorded gateway exchanges of a tenant
type AnalyticsHandler struct {
	searcher provider.ExchangeSearcher
	now      func() time.Time
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(searcher provider.ExchangeSearcher) *AnalyticsHandler {
	return &AnalyticsHandler{
		searcher: searcher,
		now:      time.Now,
	}
}

// DashboardStats summarizes exchanges in a time window
type DashboardStats struct {
	Hours           int                   `json:"hours"`
	TotalExchanges  int                   `json:"totalExchanges"`
	SuccessRate     float64               `json:"successRate"`
	InvalidReplies  int                   `json:"invalidReplies"`
	Errors          int                   `json:"errors"`
	AvgResponseTime float64               `json:"avgResponseTimeMs"`
	ByOperation     map[string]int        `json:"byOperation"`
	ByStatus        map[string]int        `json:"byStatus"`
	Truncated       bool                  `json:"truncated"`
	LastExchange    *time.Time            `json:"lastExchange,omitempty"`
	Providers       map[string]*Breakdown `json:"providers"`
}

// Breakdown counts exchanges of one provider
type Breakdown struct {
	Total   int `json:"total"`
	Success int `json:"success"`
}

// RecentActivity is one exchange in the activity feed
type RecentActivity struct {
	Operation     string `json:"operation"`
	Provider      string `json:"provider"`
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	Status        string `json:"status"`
	StatusCode    string `json:"statusCode,omitempty"`
	Time          string `json:"time"`
	ID            string `json:"id"`
}

// GetDashboardStats handles GET /analytics/dashboard?hours=
func (h *AnalyticsHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 168 {
			hours = n
		}
	}

	exchanges, err := h.searcher.SearchExchanges(ctx, tenantID, "", analyticsWindow)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to load exchanges", err)
		return
	}

	stats := summarize(exchanges, h.now().Add(-time.Duration(hours)*time.Hour))
	stats.Hours = hours
	stats.Truncated = len(exchanges) == analyticsWindow

	response.Success(w, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

// GetRecentActivity handles GET /analytics/activity?limit=
func (h *AnalyticsHandler) GetRecentActivity(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	exchanges, err := h.searcher.SearchExchanges(ctx, tenantID, "", limit)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to load exchanges", err)
		return
	}

	now := h.now()
	activities := make([]RecentActivity, 0, len(exchanges))
	for _, e := range exchanges {
		activities = append(activities, RecentActivity{
			Operation:     e.Operation,
			Provider:      e.Provider,
			InvoiceNumber: e.InvoiceNumber,
			Status:        activityStatus(e),
			StatusCode:    e.StatusCode,
			Time:          ago(now.Sub(e.Timestamp)),
			ID:            e.RequestID,
		})
	}

	response.Success(w, http.StatusOK, "Recent activity retrieved successfully", activities)
}

// summarize aggregates the exchanges newer than since. Exchanges arrive newest first.
func summarize(exchanges []provider.Exchange, since time.Time) DashboardStats {
	stats := DashboardStats{
		ByOperation: map[string]int{},
		ByStatus:    map[string]int{},
		Providers:   map[string]*Breakdown{},
	}

	var succeeded int
	var totalMs int64
	for _, e := range exchanges {
		if e.Timestamp.Before(since) {
			continue
		}
		if stats.LastExchange == nil {
			ts := e.Timestamp
			stats.LastExchange = &ts
		}

		stats.TotalExchanges++
		stats.ByOperation[e.Operation]++
		stats.ByStatus[activityStatus(e)]++
		totalMs += e.ProcessingMs

		b, ok := stats.Providers[e.Provider]
		if !ok {
			b = &Breakdown{}
			stats.Providers[e.Provider] = b
		}
		b.Total++

		if e.Success {
			succeeded++
			b.Success++
		}
		if !e.Valid {
			stats.InvalidReplies++
		}
		if e.Error != "" {
			stats.Errors++
		}
	}

	if stats.TotalExchanges > 0 {
		stats.SuccessRate = round2(float64(succeeded) / float64(stats.TotalExchanges) * 100)
		stats.AvgResponseTime = round2(float64(totalMs) / float64(stats.TotalExchanges))
	}

	return stats
}

func activityStatus(e provider.Exchange) string {
	switch {
	case e.Error != "":
		return "error"
	case e.Status != "":
		return string(e.Status)
	case e.Success:
		return "success"
	default:
		return "failed"
	}
}

func ago(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + " min ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + " h ago"
	default:
		return strconv.Itoa(int(d.Hours()/24)) + " d ago"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
