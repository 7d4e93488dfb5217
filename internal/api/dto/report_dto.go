package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/service"
)

// OverviewResponse is the operational snapshot.
type OverviewResponse struct {
	TotalSessions          int            `json:"total_sessions"`
	SessionsByStatus       map[string]int `json:"sessions_by_status"`
	SessionsByCategory     map[string]int `json:"sessions_by_category"`
	TotalTickets           int            `json:"total_tickets"`
	TicketsByStatus        map[string]int `json:"tickets_by_status"`
	TicketsByPriority      map[string]int `json:"tickets_by_priority"`
	TicketsByCategory      map[string]int `json:"tickets_by_category"`
	CriticalPending        int            `json:"critical_pending"`
	HighPending            int            `json:"high_pending"`
	BreachedOpen           int            `json:"breached_open"`
	ResolutionRate         float64        `json:"resolution_rate"`
	AverageRating          float64        `json:"avg_rating"`
	CSAT                   float64        `json:"csat"`
	SLACompliance          float64        `json:"sla_compliance"`
	AverageResolutionHours float64        `json:"avg_resolution_hours"`
	TotalFeedback          int            `json:"total_feedback"`
	TotalCustomers         int            `json:"total_customers"`
	GeneratedAt            time.Time      `json:"generated_at"`
}

func stringKeys[K ~string](in map[K]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}

// NewOverviewResponse maps the snapshot.
func NewOverviewResponse(o *service.Overview) OverviewResponse {
	return OverviewResponse{
		TotalSessions:          o.TotalSessions,
		SessionsByStatus:       stringKeys(o.SessionsByStatus),
		SessionsByCategory:     o.SessionsByCategory,
		TotalTickets:           o.TotalTickets,
		TicketsByStatus:        stringKeys(o.TicketsByStatus),
		TicketsByPriority:      stringKeys(o.TicketsByPriority),
		TicketsByCategory:      o.TicketsByCategory,
		CriticalPending:        o.CriticalPending,
		HighPending:            o.HighPending,
		BreachedOpen:           o.BreachedOpen,
		ResolutionRate:         o.ResolutionRate,
		AverageRating:          o.AverageRating,
		CSAT:                   o.CSAT,
		SLACompliance:          o.SLACompliance,
		AverageResolutionHours: o.AverageResolutionHours,
		TotalFeedback:          o.TotalFeedback,
		TotalCustomers:         o.TotalCustomers,
		GeneratedAt:            o.GeneratedAt,
	}
}

// TrendMetricResponse is one compared figure.
type TrendMetricResponse struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
}

func trendMetric(m service.TrendMetric) TrendMetricResponse {
	return TrendMetricResponse{Current: m.Current, Previous: m.Previous, Change: m.Change}
}

// TrendsResponse compares two windows.
type TrendsResponse struct {
	PeriodDays     int                 `json:"period_days"`
	From           time.Time           `json:"from"`
	To             time.Time           `json:"to"`
	Sessions       TrendMetricResponse `json:"sessions"`
	Tickets        TrendMetricResponse `json:"tickets"`
	ResolutionRate TrendMetricResponse `json:"resolution_rate"`
	CSAT           TrendMetricResponse `json:"csat"`
	SLACompliance  TrendMetricResponse `json:"sla_compliance"`
}

// NewTrendsResponse maps trends.
func NewTrendsResponse(t *service.Trends) TrendsResponse {
	return TrendsResponse{
		PeriodDays:     t.PeriodDays,
		From:           t.From,
		To:             t.To,
		Sessions:       trendMetric(t.Sessions),
		Tickets:        trendMetric(t.Tickets),
		ResolutionRate: trendMetric(t.ResolutionRate),
		CSAT:           trendMetric(t.CSAT),
		SLACompliance:  trendMetric(t.SLACompliance),
	}
}

// MonthlyResponse is one month of volume.
type MonthlyResponse struct {
	Month    string `json:"month"`
	Sessions int    `json:"sessions"`
	Tickets  int    `json:"tickets"`
}

// NewMonthlyResponses maps monthly volumes.
func NewMonthlyResponses(months []service.MonthlyVolume) []MonthlyResponse {
	out := make([]MonthlyResponse, 0, len(months))
	for _, m := range months {
		out = append(out, MonthlyResponse{Month: m.Month.Format("2006-01"), Sessions: m.Sessions, Tickets: m.Tickets})
	}
	return out
}

// CustomerDashboardResponse summarises a customer's activity.
type CustomerDashboardResponse struct {
	TotalSessions  int               `json:"total_sessions"`
	Resolved       int               `json:"resolved"`
	Escalated      int               `json:"escalated"`
	Active         int               `json:"active"`
	PendingTickets int               `json:"pending_tickets"`
	RecentSessions []SessionResponse `json:"recent_sessions"`
}

// NewCustomerDashboardResponse maps the dashboard.
func NewCustomerDashboardResponse(d *service.CustomerDashboard) CustomerDashboardResponse {
	return CustomerDashboardResponse{
		TotalSessions:  d.TotalSessions,
		Resolved:       d.Resolved,
		Escalated:      d.Escalated,
		Active:         d.Active,
		PendingTickets: d.PendingTickets,
		RecentSessions: NewSessionResponses(d.RecentSessions),
	}
}
