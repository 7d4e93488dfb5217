package domain

// AlertLevel identifies one step of the graduated SLA alert protocol.
type AlertLevel string

const (
	Alert625    AlertLevel = "sla_62_5"
	Alert750    AlertLevel = "sla_75"
	Alert875    AlertLevel = "sla_87_5"
	AlertBreach AlertLevel = "sla_breach"
)

// AlertThreshold pairs a level with the elapsed ratio that triggers it.
type AlertThreshold struct {
	Level AlertLevel
	Ratio float64
}

// AlertThresholds are ordered breach-first, descending.
var AlertThresholds = []AlertThreshold{
	{Level: AlertBreach, Ratio: 1.0},
	{Level: Alert875, Ratio: 0.875},
	{Level: Alert750, Ratio: 0.75},
	{Level: Alert625, Ratio: 0.625},
}

// Percent renders the level as a human readable share of the SLA window.
func (l AlertLevel) Percent() string {
	switch l {
	case Alert625:
		return "62.5%"
	case Alert750:
		return "75%"
	case Alert875:
		return "87.5%"
	case AlertBreach:
		return "100%"
	}
	return ""
}
