// Package audit checks a finished scope for known item-pairing gaps. It is
// informational only: it never mutates data, it just names what a human
// should double-check before entry into estimating software.
package audit

import (
	"fmt"

	"github.com/scopeline/scopeline/internal/estimate"
)

// pairingRule says: when the trigger code is present anywhere in the scope,
// its companion code should be too
type pairingRule struct {
	trigger   string
	companion string
	message   string
}

// pairingRules is a small, extensible table, not a constraint solver
var pairingRules = []pairingRule{
	{
		trigger:   "WTR EXTW",
		companion: "WTR GRD",
		message:   "Water extraction (WTR EXTW) scoped without antimicrobial application (WTR GRD)",
	},
	{
		trigger:   "FCC CPT",
		companion: "FCC PAD",
		message:   "Carpet replacement (FCC CPT) scoped without carpet pad (FCC PAD)",
	},
	{
		trigger:   "DRY 12",
		companion: "DRY FIN",
		message:   "Drywall hang (DRY 12) scoped without tape and finish (DRY FIN)",
	},
	{
		trigger:   "FCT TILE",
		companion: "FCT GROUT",
		message:   "Tile installation (FCT TILE) scoped without grout (FCT GROUT)",
	},
}

// AuditGaps returns one human-readable warning per violated pairing rule
func AuditGaps(items []estimate.LineItem) []string {
	present := make(map[string]bool, len(items))
	for i := range items {
		present[items[i].Code()] = true
	}

	var warnings []string
	for _, rule := range pairingRules {
		if present[rule.trigger] && !present[rule.companion] {
			warnings = append(warnings, fmt.Sprintf("Possible gap: %s", rule.message))
		}
	}
	return warnings
}

// AuditRooms flattens a room list and audits every item in the final scope
func AuditRooms(rooms []estimate.RoomData) []string {
	var items []estimate.LineItem
	for i := range rooms {
		items = append(items, rooms[i].Items...)
	}
	return AuditGaps(items)
}
