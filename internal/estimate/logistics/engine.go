// Package logistics derives General Conditions line items from the shape of
// a deduplicated scope. The rule set is fixed and deterministic: no model
// output is consulted, only the data already present plus job metadata.
package logistics

import (
	"fmt"
	"math"
	"strings"

	"github.com/scopeline/scopeline/internal/estimate"
)

// Codes of the generated General Conditions items
const (
	CodeDumpster      = "DMO DUMP"
	CodePickupLoad    = "DMO PULOAD"
	CodeToiletRental  = "TMP TOILET"
	CodeSupervision   = "LAB SUPER"
	CodeTempFencing   = "FNC TMP"
	CodeContainment   = "TMP BARR"
	CodeNegativeAir   = "EQU NAFAN"
	CodeEquipSetup    = "EQU SETUP"
	CodeEmergencyCall = "LAB EMERG"
	CodeFloorMasking  = "TMP MASK"
	CodeContentManip  = "CON MANIP"
)

// demoCategories are categories whose items count as demolition volume
// regardless of activity
var demoCategories = map[string]bool{
	"DMO": true,
	"HMR": true,
}

// implicitDemoCategories are install categories whose presence implies prior
// removal of the old material
var implicitDemoCategories = map[string]bool{
	"FCC": true, // flooring adds its own quantity
	"FCV": true,
	"FCW": true,
	"FCT": true,
	"DRY": true, // drywall adds its own quantity
	"CAB": true, // cabinets add a flat allowance per install item
}

// cabinetDemoAllowance is the implicit demolition volume added per cabinet
// install item
const cabinetDemoAllowance = 20.0

// dryingEquipmentCodes mark items whose presence means drying equipment was
// placed in a room
var dryingEquipmentCodes = map[string]bool{
	"EQU DEHU":  true,
	"EQU AIRMV": true,
	"EQU NAFAN": true,
}

// waterCategory marks a job as mitigation work when present anywhere
const waterCategory = "WTR"

// Engine appends General Conditions items derived from the scope
type Engine struct {
	ids estimate.IDGenerator
}

// New creates a logistics engine using the given id generator for the items
// and room it synthesizes
func New(ids estimate.IDGenerator) *Engine {
	return &Engine{ids: ids}
}

// jobProfile is the data gathered once across all non-general rooms
type jobProfile struct {
	demoQuantity       float64 // explicit plus implicit, used by every volume rule
	implicitDemo       float64
	distinctCategories int
	contentsRooms      int // rooms with >=3 items, a proxy for contents present
	dryingRooms        int // rooms containing drying equipment
	hasWaterItems      bool
}

// Enrich returns a copy of the scope with the General Conditions room
// located or created and the rule-derived items appended to it. Idempotent:
// a rule never inserts an item whose code is already present.
func (e *Engine) Enrich(rooms []estimate.RoomData, params estimate.JobParams) []estimate.RoomData {
	out := estimate.CloneRooms(rooms)

	gcAt := -1
	for i := range out {
		if estimate.IsGeneralConditions(out[i].Name) {
			gcAt = i
			break
		}
	}
	if gcAt == -1 {
		gc := estimate.RoomData{
			ID:                 e.ids.NewID(),
			Name:               estimate.GeneralConditionsName,
			NarrativeSynthesis: "Project-wide logistics and general conditions.",
		}
		out = append([]estimate.RoomData{gc}, out...)
		gcAt = 0
	}

	present := make(map[string]bool, len(out[gcAt].Items))
	for i := range out[gcAt].Items {
		present[out[gcAt].Items[i].Code()] = true
	}

	profile := gatherProfile(out)
	mitigation := params.JobType == estimate.JobTypeEmergency || profile.hasWaterItems
	loss := strings.ToLower(params.LossType)

	add := func(code string, quantity float64, unit, reasoning string) {
		if present[code] {
			return
		}
		present[code] = true
		category, selector, _ := strings.Cut(code, " ")
		out[gcAt].Items = append(out[gcAt].Items, estimate.LineItem{
			ID:         e.ids.NewID(),
			Category:   category,
			Selector:   selector,
			Activity:   estimate.ActivityReplace,
			Quantity:   quantity,
			Unit:       unit,
			Confidence: estimate.ConfidenceHigh,
			Reasoning:  reasoning,
		})
	}

	// Rule 1: debris hauling scaled by combined demolition volume
	if profile.demoQuantity > 500 {
		add(CodeDumpster, 1, "EA", fmt.Sprintf(
			"Dumpster load: %.0f combined demolition units exceed pickup capacity", profile.demoQuantity))
	} else if profile.demoQuantity > 0 {
		loads := math.Ceil(profile.demoQuantity / 150)
		if loads < 1 {
			loads = 1
		}
		add(CodePickupLoad, loads, "EA", fmt.Sprintf(
			"Pickup/trailer loads for %.0f demolition units", profile.demoQuantity))
	}

	// Rule 2: portable toilet for fire/smoke losses or near-total severity
	if strings.Contains(loss, "fire") || strings.Contains(loss, "smoke") || params.Severity >= 9 {
		add(CodeToiletRental, 1, "MO", "Portable toilet rental: facilities unusable during restoration")
	}

	// Rule 3: supervision hours scale with trade count
	if profile.distinctCategories > 2 {
		add(CodeSupervision, float64(4*profile.distinctCategories), "HR", fmt.Sprintf(
			"Supervision for %d distinct trade categories", profile.distinctCategories))
	}

	// Rule 4: temporary fencing for severe exterior losses
	if params.Context == estimate.JobContextExterior && params.Severity > 7 {
		add(CodeTempFencing, 100, "LF", "Temporary fencing around severe exterior loss")
	}

	// Rule 5: containment barrier and negative-air fan always co-occur
	if profile.demoQuantity > 0 || params.Severity >= 5 ||
		strings.Contains(loss, "mold") || strings.Contains(loss, "sewage") {
		add(CodeContainment, 150, "SF", "Containment barrier allowance for dust/contaminant control")
		add(CodeNegativeAir, 3, "DA", "Negative air fan to maintain pressure differential in containment")
	}

	// Rule 6: drying equipment setup hours
	if profile.dryingRooms > 0 {
		hours := 2 + 0.5*float64(profile.dryingRooms)
		if hours < 2 {
			hours = 2
		}
		add(CodeEquipSetup, hours, "HR", fmt.Sprintf(
			"Equipment setup and monitoring across %d rooms with drying equipment", profile.dryingRooms))
	}

	// Rule 7: emergency service call
	if mitigation {
		add(CodeEmergencyCall, 1, "EA", "Emergency service call for mitigation response")
	}

	// Rule 8: floor protection
	if profile.demoQuantity > 0 || mitigation {
		add(CodeFloorMasking, 150, "SF", "Mask and protect floors along work paths")
	}

	// Rule 9: content manipulation
	if (mitigation || profile.implicitDemo > 100) && profile.contentsRooms >= 1 {
		add(CodeContentManip, float64(profile.contentsRooms), "EA", fmt.Sprintf(
			"Move and reset contents in %d furnished rooms", profile.contentsRooms))
	}

	return out
}

// gatherProfile walks all non-general rooms once and collects the inputs
// the rules need
func gatherProfile(rooms []estimate.RoomData) jobProfile {
	p := jobProfile{}
	categories := make(map[string]bool)

	for i := range rooms {
		if estimate.IsGeneralConditions(rooms[i].Name) {
			continue
		}
		room := &rooms[i]

		if len(room.Items) >= 3 {
			p.contentsRooms++
		}

		hasDrying := false
		for j := range room.Items {
			item := &room.Items[j]
			categories[item.Category] = true

			if item.Activity == estimate.ActivityRemove || demoCategories[item.Category] {
				p.demoQuantity += item.Quantity
			}

			// Installing new material implies tearing out the old
			if item.Activity == estimate.ActivityReplace && implicitDemoCategories[item.Category] {
				if item.Category == "CAB" {
					p.implicitDemo += cabinetDemoAllowance
				} else {
					p.implicitDemo += item.Quantity
				}
			}

			if dryingEquipmentCodes[item.Code()] {
				hasDrying = true
			}
			if item.Category == waterCategory {
				p.hasWaterItems = true
			}
		}
		if hasDrying {
			p.dryingRooms++
		}
	}

	p.demoQuantity += p.implicitDemo
	p.distinctCategories = len(categories)
	return p
}
