// Package slapolicy holds per-priority SLA target hours.
//
// A Policy is an immutable snapshot. Ticket creation reads one snapshot and
// freezes sla_hours and sla_deadline on the ticket, so later policy changes
// never move existing deadlines.
package slapolicy

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// Policy maps priorities to target hours.
type Policy struct {
	hours map[domain.TicketPriority]float64
}

// Defaults returns the built-in policy.
func Defaults() Policy {
	return FromHours(4, 12, 48, 120)
}

// FromHours builds a policy from explicit per-priority hours.
func FromHours(critical, high, medium, low float64) Policy {
	return Policy{hours: map[domain.TicketPriority]float64{
		domain.TicketPriorityCritical: critical,
		domain.TicketPriorityHigh:     high,
		domain.TicketPriorityMedium:   medium,
		domain.TicketPriorityLow:      low,
	}}
}

// Hours returns the target for p. Unknown priorities get the low target.
func (p Policy) Hours(pr domain.TicketPriority) float64 {
	if h, ok := p.hours[pr]; ok {
		return h
	}
	return p.hours[domain.TicketPriorityLow]
}

// Deadline returns the target hours and absolute deadline for a ticket
// created at createdAt.
func (p Policy) Deadline(createdAt time.Time, pr domain.TicketPriority) (float64, time.Time) {
	hours := p.Hours(pr)
	return hours, createdAt.Add(time.Duration(hours * float64(time.Hour)))
}

// Map renders the policy keyed by priority name.
func (p Policy) Map() map[string]float64 {
	out := make(map[string]float64, len(p.hours))
	for pr, h := range p.hours {
		out[string(pr)] = h
	}
	return out
}

func (p Policy) with(pr domain.TicketPriority, hours float64) Policy {
	next := make(map[domain.TicketPriority]float64, len(p.hours))
	for k, v := range p.hours {
		next[k] = v
	}
	next[pr] = hours
	return Policy{hours: next}
}
