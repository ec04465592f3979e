// Package estimate defines the data model shared by the scope
// post-processing pipeline: line items, rooms, and job parameters.
package estimate

import "strings"

// Activity represents what is done to the scoped material
type Activity string

const (
	ActivityRemove      Activity = "REMOVE"
	ActivityReplace     Activity = "REPLACE"
	ActivityDetachReset Activity = "DETACH_RESET"
)

// Confidence represents how much trust the pipeline places in a line item
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// LineItem is a single estimating entry within a room
type LineItem struct {
	ID         string     `json:"id"`
	Category   string     `json:"category"`
	Selector   string     `json:"selector"`
	Activity   Activity   `json:"activity"`
	Quantity   float64    `json:"quantity"`
	Unit       string     `json:"unit"`
	Confidence Confidence `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
}

// Code returns the functional dedup key "{category} {selector}"
func (li *LineItem) Code() string {
	return li.Category + " " + li.Selector
}

// RoomData is one physical space with its scoped line items
type RoomData struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	TimestampIn        string     `json:"timestamp_in,omitempty"`
	TimestampOut       string     `json:"timestamp_out,omitempty"`
	NarrativeSynthesis string     `json:"narrative_synthesis"`
	FlaggedIssues      []string   `json:"flagged_issues"`
	Items              []LineItem `json:"items"`
}

// Clone returns a deep copy of the room so pipeline stages never
// mutate caller-owned data
func (r *RoomData) Clone() RoomData {
	out := *r
	out.FlaggedIssues = append([]string(nil), r.FlaggedIssues...)
	out.Items = append([]LineItem(nil), r.Items...)
	return out
}

// CloneRooms deep-copies a room list
func CloneRooms(rooms []RoomData) []RoomData {
	out := make([]RoomData, 0, len(rooms))
	for i := range rooms {
		out = append(out, rooms[i].Clone())
	}
	return out
}

// GeneralConditionsName is the display name used when the pipeline has to
// synthesize the logistics container room
const GeneralConditionsName = "General Conditions"

// IsGeneralConditions reports whether a room name identifies the
// project-wide logistics container
func IsGeneralConditions(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "general") || strings.Contains(lower, "logistics")
}

// JobContext indicates which part of the structure the loss affects
type JobContext string

const (
	JobContextInterior JobContext = "Interior"
	JobContextExterior JobContext = "Exterior"
	JobContextBoth     JobContext = "Both"
)

// JobType distinguishes reconstruction from emergency mitigation work
type JobType string

const (
	JobTypeReconstruction JobType = "R"
	JobTypeEmergency      JobType = "E"
)

// JobParams carries the scalar inputs that gate the logistics rules
type JobParams struct {
	Severity int        `json:"severity"` // 1..10
	Context  JobContext `json:"context"`
	LossType string     `json:"loss_type"` // free text, keyword matched
	JobType  JobType    `json:"job_type"`
}

// Result is the output of one pipeline invocation
type Result struct {
	Rooms      []RoomData `json:"rooms"`
	Warnings   []string   `json:"warnings"`
	MergeCount int        `json:"merge_count"`
}
