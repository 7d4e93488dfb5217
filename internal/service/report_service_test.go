package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/slapolicy"
)

func TestCalcTrend(t *testing.T) {
	cases := []struct {
		current, previous, want float64
	}{
		{0, 0, 0},
		{5, 0, 100},
		{10, 5, 100},
		{5, 10, -50},
		{3, 3, 0},
		{1, 3, -66.7},
	}
	for _, tc := range cases {
		if got := CalcTrend(tc.current, tc.previous); got != tc.want {
			t.Errorf("CalcTrend(%v, %v) = %v, want %v", tc.current, tc.previous, got, tc.want)
		}
	}
}

func TestFeedbackAggregates(t *testing.T) {
	feedback := []domain.Feedback{{Rating: 5}, {Rating: 4}, {Rating: 2}, {Rating: 0}}
	if got := CSAT(feedback); got != 50 {
		t.Fatalf("CSAT = %v, want 50", got)
	}
	if got := AverageRating(feedback); got != 3.7 {
		t.Fatalf("AverageRating = %v, want 3.7", got)
	}
	if CSAT(nil) != 0 || AverageRating(nil) != 0 {
		t.Fatalf("empty input should yield zero")
	}
}

func TestSLACompliance(t *testing.T) {
	resolved := func(hours float64, took time.Duration, pr domain.TicketPriority) domain.Ticket {
		at := t0.Add(took)
		return domain.Ticket{Status: domain.TicketStatusResolved, Priority: pr, SLAHours: hours, CreatedAt: t0, ResolvedAt: &at}
	}
	tickets := []domain.Ticket{
		resolved(4, 3*time.Hour, domain.TicketPriorityCritical),
		resolved(4, 5*time.Hour, domain.TicketPriorityCritical),
		// no frozen hours: falls back to the 48h medium policy
		resolved(0, 40*time.Hour, domain.TicketPriorityMedium),
		{Status: domain.TicketStatusPending, CreatedAt: t0},
	}
	if got := SLACompliance(tickets, slapolicy.Defaults()); got != 66.7 {
		t.Fatalf("SLACompliance = %v, want 66.7", got)
	}
	if got := AverageResolutionHours(tickets); got != 16 {
		t.Fatalf("AverageResolutionHours = %v, want 16", got)
	}
}

func newReportFixture(t *testing.T) (*fixture, *ReportService) {
	f := newFixture(t, nil)
	return f, NewReportService(ReportDependencies{
		SessionRepo:  f.store.Sessions(),
		TicketRepo:   f.store.Tickets(),
		FeedbackRepo: f.store.Feedback(),
		UserRepo:     f.store.Users(),
		Policy:       f.policy,
		Clock:        f.clock,
	})
}

func seedSession(t *testing.T, f *fixture, id, owner string, status domain.SessionStatus, at time.Time) {
	t.Helper()
	session := &domain.Session{ID: id, CustomerID: owner, Category: "Broadband / Internet Services", Status: status, CreatedAt: at}
	if err := f.store.Sessions().Create(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestOverviewCounts(t *testing.T) {
	f, reports := newReportFixture(t)
	ctx := context.Background()
	seedSession(t, f, "s1", customer.UserID, domain.SessionStatusResolved, t0)
	seedSession(t, f, "s2", customer.UserID, domain.SessionStatusEscalated, t0)
	seedSession(t, f, "s3", stranger.UserID, domain.SessionStatusActive, t0)
	seedSession(t, f, "s4", stranger.UserID, domain.SessionStatusResolved, t0)
	f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityCritical)
	f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityHigh)
	f.seedTicket(t, domain.TicketStatusResolved, domain.TicketPriorityLow)
	for _, rating := range []int{5, 3} {
		fb := &domain.Feedback{ID: "fb" + string(rune('0'+rating)), UserID: customer.UserID, Rating: rating, CreatedAt: t0}
		if err := f.store.Feedback().Create(ctx, fb); err != nil {
			t.Fatalf("seed feedback: %v", err)
		}
	}

	got, err := reports.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if got.TotalSessions != 4 || got.SessionsByStatus[domain.SessionStatusResolved] != 2 {
		t.Fatalf("session counts %+v", got.SessionsByStatus)
	}
	if got.TotalTickets != 3 || got.CriticalPending != 1 || got.HighPending != 1 {
		t.Fatalf("ticket counts %d/%d/%d", got.TotalTickets, got.CriticalPending, got.HighPending)
	}
	if got.ResolutionRate != 50 || got.AverageRating != 4 || got.CSAT != 50 {
		t.Fatalf("rates %v/%v/%v", got.ResolutionRate, got.AverageRating, got.CSAT)
	}
	if got.SLACompliance != 100 {
		t.Fatalf("SLA compliance %v", got.SLACompliance)
	}
	if got.TotalCustomers != 2 || got.TotalFeedback != 2 {
		t.Fatalf("customers %d feedback %d", got.TotalCustomers, got.TotalFeedback)
	}
}

func TestTrendsAndMonthly(t *testing.T) {
	f, reports := newReportFixture(t)
	ctx := context.Background()
	seedSession(t, f, "cur1", customer.UserID, domain.SessionStatusResolved, t0.Add(-24*time.Hour))
	seedSession(t, f, "cur2", customer.UserID, domain.SessionStatusActive, t0)
	seedSession(t, f, "prev1", customer.UserID, domain.SessionStatusResolved, t0.Add(-10*24*time.Hour))
	seedSession(t, f, "old", customer.UserID, domain.SessionStatusResolved, t0.AddDate(0, -5, 0))

	trends, err := reports.Trends(ctx, 7)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if trends.Sessions.Current != 2 || trends.Sessions.Previous != 1 || trends.Sessions.Change != 100 {
		t.Fatalf("session trend %+v", trends.Sessions)
	}
	if trends.ResolutionRate.Current != 50 || trends.ResolutionRate.Change != -50 {
		t.Fatalf("resolution trend %+v", trends.ResolutionRate)
	}

	months, err := reports.Monthly(ctx, 3)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(months) != 3 {
		t.Fatalf("expected 3 months, got %d", len(months))
	}
	if months[0].Month.Month() != time.January || months[2].Month.Month() != time.March {
		t.Fatalf("unexpected months %v..%v", months[0].Month, months[2].Month)
	}
	if months[0].Sessions != 0 || months[1].Sessions != 1 || months[2].Sessions != 2 {
		t.Fatalf("unexpected volumes %+v", months)
	}

	if _, err := reports.Trends(ctx, 0); err == nil {
		t.Fatalf("expected validation error for zero days")
	}
}

func TestCustomerDashboard(t *testing.T) {
	f, reports := newReportFixture(t)
	for i, status := range []domain.SessionStatus{domain.SessionStatusResolved, domain.SessionStatusEscalated, domain.SessionStatusActive, domain.SessionStatusResolved, domain.SessionStatusResolved, domain.SessionStatusActive} {
		seedSession(t, f, "s"+string(rune('a'+i)), customer.UserID, status, t0.Add(time.Duration(i)*time.Minute))
	}
	seedSession(t, f, "other", stranger.UserID, domain.SessionStatusActive, t0)
	f.seedTicket(t, domain.TicketStatusPending, domain.TicketPriorityHigh)
	f.seedTicket(t, domain.TicketStatusResolved, domain.TicketPriorityHigh)

	got, err := reports.CustomerDashboard(context.Background(), customer)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if got.TotalSessions != 6 || got.Resolved != 3 || got.Escalated != 1 || got.Active != 2 {
		t.Fatalf("counts %+v", got)
	}
	if got.PendingTickets != 1 {
		t.Fatalf("pending tickets %d", got.PendingTickets)
	}
	if len(got.RecentSessions) != 5 || got.RecentSessions[0].ID != "sf" {
		t.Fatalf("recent sessions %d first %q", len(got.RecentSessions), got.RecentSessions[0].ID)
	}
}
