// Package priority derives a ticket priority from complaint text.
package priority

import (
	"strings"

	"github.com/spec-kit/complaint-service/internal/domain"
)

// tier is checked in order; the first tier with a matching keyword wins.
type tier struct {
	priority domain.TicketPriority
	keywords []string
}

var tiers = []tier{
	{
		priority: domain.TicketPriorityCritical,
		// "escalat" matches escalate, escalated, escalation.
		keywords: []string{"urgent", "critical", "emergency", "business down", "sla breach", "escalat"},
	},
	{
		priority: domain.TicketPriorityHigh,
		keywords: []string{"not working", "failed", "no signal", "dead", "down", "outage"},
	},
	{
		priority: domain.TicketPriorityMedium,
		keywords: []string{"slow", "intermittent", "billing", "wrong charge", "refund"},
	},
}

// Classify maps complaint text and its sub-category label to a priority.
func Classify(text, subCategory string) domain.TicketPriority {
	haystack := strings.ToLower(text + " " + subCategory)
	for _, t := range tiers {
		for _, kw := range t.keywords {
			if strings.Contains(haystack, kw) {
				return t.priority
			}
		}
	}
	return domain.TicketPriorityLow
}
