package service

import (
	"context"
	"math"
	"time"

	"github.com/spec-kit/complaint-service/internal/clock"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/slapolicy"
	apperrors "github.com/spec-kit/complaint-service/pkg/util/errorutil"
)

// CalcTrend is the percent change from previous to current. A zero
// previous value yields 100 when current is non-zero, else 0.
func CalcTrend(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return round1((current - previous) / previous * 100)
}

// CSAT is the share of feedback rated 4 or 5, in percent.
func CSAT(feedback []domain.Feedback) float64 {
	if len(feedback) == 0 {
		return 0
	}
	satisfied := 0
	for _, fb := range feedback {
		if fb.Satisfied() {
			satisfied++
		}
	}
	return round1(float64(satisfied) / float64(len(feedback)) * 100)
}

// AverageRating averages ratings above zero. Zero means "not rated".
func AverageRating(feedback []domain.Feedback) float64 {
	sum, n := 0, 0
	for _, fb := range feedback {
		if fb.Rating > 0 {
			sum += fb.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round1(float64(sum) / float64(n))
}

// SLACompliance is the share of resolved tickets closed within their
// target, in percent. The target is the hours frozen on the ticket, or the
// policy value for its priority when none was recorded.
func SLACompliance(tickets []domain.Ticket, policy slapolicy.Policy) float64 {
	resolved, within := 0, 0
	for _, t := range tickets {
		if t.Status != domain.TicketStatusResolved || t.ResolvedAt == nil {
			continue
		}
		resolved++
		target := t.SLAHours
		if target <= 0 {
			target = policy.Hours(t.Priority)
		}
		if t.ResolvedAt.Sub(t.CreatedAt).Hours() <= target {
			within++
		}
	}
	if resolved == 0 {
		return 0
	}
	return round1(float64(within) / float64(resolved) * 100)
}

// AverageResolutionHours averages resolved_at - created_at over resolved
// tickets.
func AverageResolutionHours(tickets []domain.Ticket) float64 {
	var total float64
	n := 0
	for _, t := range tickets {
		if t.Status != domain.TicketStatusResolved || t.ResolvedAt == nil {
			continue
		}
		total += t.ResolvedAt.Sub(t.CreatedAt).Hours()
		n++
	}
	if n == 0 {
		return 0
	}
	return round1(total / float64(n))
}

// ResolutionRate is the share of sessions resolved without escalation.
func ResolutionRate(sessions []domain.Session) float64 {
	if len(sessions) == 0 {
		return 0
	}
	resolved := 0
	for _, s := range sessions {
		if s.Status == domain.SessionStatusResolved {
			resolved++
		}
	}
	return round1(float64(resolved) / float64(len(sessions)) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Overview is a point-in-time operational snapshot.
type Overview struct {
	TotalSessions          int
	SessionsByStatus       map[domain.SessionStatus]int
	SessionsByCategory     map[string]int
	TotalTickets           int
	TicketsByStatus        map[domain.TicketStatus]int
	TicketsByPriority      map[domain.TicketPriority]int
	TicketsByCategory      map[string]int
	CriticalPending        int
	HighPending            int
	BreachedOpen           int
	ResolutionRate         float64
	AverageRating          float64
	CSAT                   float64
	SLACompliance          float64
	AverageResolutionHours float64
	TotalFeedback          int
	TotalCustomers         int
	GeneratedAt            time.Time
}

// TrendMetric compares one figure across two windows.
type TrendMetric struct {
	Current  float64
	Previous float64
	Change   float64
}

func newTrendMetric(current, previous float64) TrendMetric {
	return TrendMetric{Current: current, Previous: previous, Change: CalcTrend(current, previous)}
}

// Trends compares the last window against the one before it.
type Trends struct {
	PeriodDays     int
	From           time.Time
	To             time.Time
	Sessions       TrendMetric
	Tickets        TrendMetric
	ResolutionRate TrendMetric
	CSAT           TrendMetric
	SLACompliance  TrendMetric
}

// MonthlyVolume counts intake for one calendar month.
type MonthlyVolume struct {
	Month    time.Time
	Sessions int
	Tickets  int
}

// CustomerDashboard summarises one customer's activity.
type CustomerDashboard struct {
	TotalSessions  int
	Resolved       int
	Escalated      int
	Active         int
	PendingTickets int
	RecentSessions []domain.Session
}

// ReportService computes read-only statistics.
type ReportService struct {
	sessions repository.SessionRepository
	tickets  repository.TicketRepository
	feedback repository.FeedbackRepository
	users    repository.UserRepository
	policy   *slapolicy.Store
	clock    clock.Clock
}

// ReportDependencies wires the report service.
type ReportDependencies struct {
	SessionRepo  repository.SessionRepository
	TicketRepo   repository.TicketRepository
	FeedbackRepo repository.FeedbackRepository
	UserRepo     repository.UserRepository
	Policy       *slapolicy.Store
	Clock        clock.Clock
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Policy == nil {
		deps.Policy = slapolicy.NewStore(slapolicy.StoreDependencies{})
	}
	return &ReportService{
		sessions: deps.SessionRepo,
		tickets:  deps.TicketRepo,
		feedback: deps.FeedbackRepo,
		users:    deps.UserRepo,
		policy:   deps.Policy,
		clock:    deps.Clock,
	}
}

type window struct {
	from, to *time.Time
}

func (r *ReportService) load(ctx context.Context, w window) ([]domain.Session, []domain.Ticket, []domain.Feedback, error) {
	sessions, err := r.sessions.List(ctx, repository.SessionFilter{CreatedFrom: w.from, CreatedTo: w.to, Limit: repository.NoLimit})
	if err != nil {
		return nil, nil, nil, mapRepoError(err, "session", "")
	}
	tickets, err := r.tickets.List(ctx, repository.TicketFilter{CreatedFrom: w.from, CreatedTo: w.to, Limit: repository.NoLimit})
	if err != nil {
		return nil, nil, nil, mapRepoError(err, "ticket", "")
	}
	feedback, err := r.feedback.List(ctx, repository.FeedbackFilter{CreatedFrom: w.from, CreatedTo: w.to, Limit: repository.NoLimit})
	if err != nil {
		return nil, nil, nil, mapRepoError(err, "feedback", "")
	}
	return sessions, tickets, feedback, nil
}

// Overview returns the current snapshot over all data.
func (r *ReportService) Overview(ctx context.Context) (*Overview, error) {
	sessions, tickets, feedback, err := r.load(ctx, window{})
	if err != nil {
		return nil, err
	}
	out := &Overview{
		TotalSessions:          len(sessions),
		SessionsByStatus:       map[domain.SessionStatus]int{},
		SessionsByCategory:     map[string]int{},
		TotalTickets:           len(tickets),
		TicketsByStatus:        map[domain.TicketStatus]int{},
		TicketsByPriority:      map[domain.TicketPriority]int{},
		TicketsByCategory:      map[string]int{},
		ResolutionRate:         ResolutionRate(sessions),
		AverageRating:          AverageRating(feedback),
		CSAT:                   CSAT(feedback),
		SLACompliance:          SLACompliance(tickets, r.policy.Snapshot()),
		AverageResolutionHours: AverageResolutionHours(tickets),
		TotalFeedback:          len(feedback),
		GeneratedAt:            r.clock.Now(),
	}
	for _, s := range sessions {
		out.SessionsByStatus[s.Status]++
		out.SessionsByCategory[categoryLabel(s.Category)]++
	}
	for _, t := range tickets {
		out.TicketsByStatus[t.Status]++
		out.TicketsByPriority[t.Priority]++
		out.TicketsByCategory[categoryLabel(t.Category)]++
		if t.Status == domain.TicketStatusPending {
			switch t.Priority {
			case domain.TicketPriorityCritical:
				out.CriticalPending++
			case domain.TicketPriorityHigh:
				out.HighPending++
			}
		}
		if t.IsOpen() && t.SLABreached {
			out.BreachedOpen++
		}
	}
	if r.users != nil {
		customers, err := r.users.ListByRole(ctx, domain.RoleCustomer)
		if err != nil {
			return nil, mapRepoError(err, "user", "")
		}
		out.TotalCustomers = len(customers)
	}
	return out, nil
}

// Trends compares the last days against the preceding days.
func (r *ReportService) Trends(ctx context.Context, days int) (*Trends, error) {
	if days <= 0 || days > 366 {
		return nil, apperrors.NewValidationError("period must be between 1 and 366 days", map[string]any{"days": days})
	}
	now := r.clock.Now()
	period := time.Duration(days) * 24 * time.Hour
	curFrom := now.Add(-period)
	prevFrom := curFrom.Add(-period)

	curSessions, curTickets, curFeedback, err := r.load(ctx, window{from: &curFrom})
	if err != nil {
		return nil, err
	}
	prevSessions, prevTickets, prevFeedback, err := r.load(ctx, window{from: &prevFrom, to: &curFrom})
	if err != nil {
		return nil, err
	}
	policy := r.policy.Snapshot()
	return &Trends{
		PeriodDays:     days,
		From:           curFrom,
		To:             now,
		Sessions:       newTrendMetric(float64(len(curSessions)), float64(len(prevSessions))),
		Tickets:        newTrendMetric(float64(len(curTickets)), float64(len(prevTickets))),
		ResolutionRate: newTrendMetric(ResolutionRate(curSessions), ResolutionRate(prevSessions)),
		CSAT:           newTrendMetric(CSAT(curFeedback), CSAT(prevFeedback)),
		SLACompliance:  newTrendMetric(SLACompliance(curTickets, policy), SLACompliance(prevTickets, policy)),
	}, nil
}

// Monthly returns intake volume for the last months calendar months,
// oldest first, including the current one. Empty months are present.
func (r *ReportService) Monthly(ctx context.Context, months int) ([]MonthlyVolume, error) {
	if months <= 0 || months > 36 {
		return nil, apperrors.NewValidationError("months must be between 1 and 36", map[string]any{"months": months})
	}
	now := r.clock.Now().UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := current.AddDate(0, -(months - 1), 0)

	sessions, tickets, _, err := r.load(ctx, window{from: &from})
	if err != nil {
		return nil, err
	}
	out := make([]MonthlyVolume, months)
	index := make(map[time.Time]int, months)
	for i := range out {
		month := from.AddDate(0, i, 0)
		out[i].Month = month
		index[month] = i
	}
	monthOf := func(t time.Time) time.Time {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	for _, s := range sessions {
		if i, ok := index[monthOf(s.CreatedAt)]; ok {
			out[i].Sessions++
		}
	}
	for _, t := range tickets {
		if i, ok := index[monthOf(t.CreatedAt)]; ok {
			out[i].Tickets++
		}
	}
	return out, nil
}

// CustomerDashboard summarises the actor's own sessions and tickets.
func (r *ReportService) CustomerDashboard(ctx context.Context, actor domain.Actor) (*CustomerDashboard, error) {
	sessions, err := r.sessions.List(ctx, repository.SessionFilter{CustomerID: strPtr(actor.UserID), Limit: repository.NoLimit})
	if err != nil {
		return nil, mapRepoError(err, "session", "")
	}
	open, err := r.tickets.List(ctx, repository.TicketFilter{
		CustomerID: strPtr(actor.UserID),
		Statuses:   domain.OpenTicketStatuses,
		Limit:      repository.NoLimit,
	})
	if err != nil {
		return nil, mapRepoError(err, "ticket", "")
	}
	out := &CustomerDashboard{TotalSessions: len(sessions), PendingTickets: len(open)}
	for _, s := range sessions {
		switch s.Status {
		case domain.SessionStatusResolved:
			out.Resolved++
		case domain.SessionStatusEscalated:
			out.Escalated++
		case domain.SessionStatusActive:
			out.Active++
		}
	}
	recent := sessions
	if len(recent) > 5 {
		recent = recent[:5]
	}
	out.RecentSessions = recent
	return out, nil
}

func categoryLabel(c string) string {
	if c == "" {
		return "Unknown"
	}
	return c
}
