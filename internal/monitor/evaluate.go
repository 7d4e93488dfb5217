package monitor

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Evaluate returns the alert due for ticket at now, if any.
//
// Only the highest crossed threshold is considered. When its flag is
// already set nothing is due, so lower thresholds skipped by a coarse sweep
// stay skipped. Closed tickets and tickets without a positive SLA target
// never produce alerts.
func Evaluate(ticket *domain.Ticket, now time.Time) (domain.AlertLevel, bool) {
	if ticket == nil || !ticket.IsOpen() || ticket.SLAHours <= 0 {
		return "", false
	}
	ratio := ticket.ElapsedRatio(now)
	for _, th := range domain.AlertThresholds {
		if ratio < th.Ratio {
			continue
		}
		if ticket.AlertSent(th.Level) {
			return "", false
		}
		return th.Level, true
	}
	return "", false
}
