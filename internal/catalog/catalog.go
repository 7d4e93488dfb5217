// Package catalog holds the complaint intake menu: sectors and their
// sub-categories, keyed by the numeric strings clients navigate with.
package catalog

import "sort"

// OthersLabel marks the catch-all sub-category that needs identification.
const OthersLabel = "Others"

// Sector is one top level menu entry.
type Sector struct {
	Key           string
	Name          string
	Icon          string
	SubCategories map[string]string
}

var sectors = map[string]Sector{
	"1": {
		Key:  "1",
		Name: "Mobile Services (Prepaid / Postpaid)",
		Icon: "📱",
		SubCategories: map[string]string{
			"1": "Billing & Payment Issues",
			"2": "Network / Signal Problems",
			"3": "SIM Card & Activation",
			"4": "Data Plan & Recharge Issues",
			"5": "International Roaming",
			"6": "Mobile Number Portability (MNP)",
			"7": "Call / SMS Failures",
			"8": OthersLabel,
		},
	},
	"2": {
		Key:  "2",
		Name: "Broadband / Internet Services",
		Icon: "🌐",
		SubCategories: map[string]string{
			"1": "Slow Speed / No Connectivity",
			"2": "Frequent Disconnections",
			"3": "Billing & Plan Issues",
			"4": "New Connection / Installation",
			"5": "Router / Equipment Problems",
			"6": "IP Address / DNS Issues",
			"7": OthersLabel,
		},
	},
	"3": {
		Key:  "3",
		Name: "DTH / Cable TV Services",
		Icon: "📺",
		SubCategories: map[string]string{
			"1": "Channel Not Working / Missing",
			"2": "Set-Top Box Issues",
			"3": "Billing & Subscription",
			"4": "Signal / Picture Quality",
			"5": "Package / Plan Changes",
			"6": OthersLabel,
		},
	},
	"4": {
		Key:  "4",
		Name: "Landline / Fixed Line Services",
		Icon: "☎️",
		SubCategories: map[string]string{
			"1": "No Dial Tone / Dead Line",
			"2": "Call Quality Issues (Noise / Echo)",
			"3": "Billing & Charges",
			"4": "New Connection / Disconnection",
			"5": "Fault Repair Request",
			"6": OthersLabel,
		},
	},
	"5": {
		Key:  "5",
		Name: "Enterprise / Business Solutions",
		Icon: "🏢",
		SubCategories: map[string]string{
			"1": "SLA Breach / Service Downtime",
			"2": "Leased Line / Dedicated Connection",
			"3": "Bulk / Corporate Plan Issues",
			"4": "Cloud / VPN / MPLS Issues",
			"5": "Technical Support Escalation",
			"6": OthersLabel,
		},
	},
}

// Sectors returns every sector ordered by key.
func Sectors() []Sector {
	out := make([]Sector, 0, len(sectors))
	for _, s := range sectors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Lookup returns the sector for key.
func Lookup(key string) (Sector, bool) {
	s, ok := sectors[key]
	return s, ok
}

// SubCategoryName resolves a sub-category label, empty when unknown.
func SubCategoryName(sectorKey, subKey string) string {
	s, ok := sectors[sectorKey]
	if !ok {
		return ""
	}
	return s.SubCategories[subKey]
}

// SortedKeys returns the sub-category keys of s in menu order.
func (s Sector) SortedKeys() []string {
	keys := make([]string, 0, len(s.SubCategories))
	for k := range s.SubCategories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
