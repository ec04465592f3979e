package api

import (
	"time"

	"github.com/scopeline/scopeline/internal/database"
)

// ========== Estimate Run Types ==========

// ItemPayload is one line item as submitted by a caller. Ids are assigned
// server-side and never accepted from input.
type ItemPayload struct {
	Category   string  `json:"category" validate:"required,max=16"`
	Selector   string  `json:"selector" validate:"omitempty,max=16"`
	Activity   string  `json:"activity" validate:"omitempty,oneof=REMOVE REPLACE DETACH_RESET"`
	Quantity   float64 `json:"quantity" validate:"min=0"`
	Unit       string  `json:"unit" validate:"omitempty,max=8"`
	Confidence string  `json:"confidence" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Reasoning  string  `json:"reasoning"`
}

// RoomPayload is one room as submitted by a caller
type RoomPayload struct {
	Name               string        `json:"name" validate:"required,max=255"`
	TimestampIn        string        `json:"timestamp_in"`
	TimestampOut       string        `json:"timestamp_out"`
	NarrativeSynthesis string        `json:"narrative_synthesis"`
	FlaggedIssues      []string      `json:"flagged_issues"`
	Items              []ItemPayload `json:"items" validate:"dive"`
}

// ProcessRunRequest is the request body for POST /api/runs
type ProcessRunRequest struct {
	Label    string        `json:"label" validate:"omitempty,max=255"`
	Severity int           `json:"severity" validate:"required,min=1,max=10"`
	Context  string        `json:"context" validate:"required,oneof=Interior Exterior Both"`
	LossType string        `json:"loss_type" validate:"omitempty,max=255"`
	JobType  string        `json:"job_type" validate:"required,oneof=R E"`
	Rooms    []RoomPayload `json:"rooms" validate:"dive"`
}

// ExtractRunRequest is the request body for POST /api/extract. The extracted
// scope is fed straight through the post-processing pipeline.
type ExtractRunRequest struct {
	Label      string `json:"label" validate:"omitempty,max=255"`
	Transcript string `json:"transcript" validate:"required"`
	Severity   int    `json:"severity" validate:"required,min=1,max=10"`
	Context    string `json:"context" validate:"required,oneof=Interior Exterior Both"`
	LossType   string `json:"loss_type" validate:"omitempty,max=255"`
	JobType    string `json:"job_type" validate:"required,oneof=R E"`
}

// RunListItem is a compact run representation for list endpoints. It omits
// the full room payload to keep list responses small.
type RunListItem struct {
	ID              uint      `json:"id"`
	UUID            string    `json:"uuid"`
	Label           string    `json:"label"`
	Severity        int       `json:"severity"`
	Context         string    `json:"context"`
	LossType        string    `json:"loss_type"`
	JobType         string    `json:"job_type"`
	InputRoomCount  int       `json:"input_room_count"`
	OutputRoomCount int       `json:"output_room_count"`
	MergeCount      int       `json:"merge_count"`
	WarningCount    int       `json:"warning_count"`
	DurationMs      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// RunListResponse is the paginated response for GET /api/runs
type RunListResponse struct {
	Runs       []RunListItem `json:"runs"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// ========== Settings Types ==========

// UpdatePipelineSettingsRequest is the request body for PUT /api/settings/pipeline
type UpdatePipelineSettingsRequest struct {
	MergeThreshold  float64 `json:"merge_threshold" validate:"required,gt=0,lte=1"`
	ReviewThreshold float64 `json:"review_threshold" validate:"required,gt=0,lte=1"`
	MaxMergePasses  int     `json:"max_merge_passes" validate:"required,min=1,max=20"`
}

// UpdateSlackSettingsRequest is the request body for PUT /api/settings/slack
type UpdateSlackSettingsRequest struct {
	BotToken        string `json:"bot_token"`
	WarningsChannel string `json:"warnings_channel"`
	Enabled         bool   `json:"enabled"`
}

// RunToListItem converts a stored run to its compact list representation
func RunToListItem(run database.EstimateRun) RunListItem {
	return RunListItem{
		ID:              run.ID,
		UUID:            run.UUID,
		Label:           run.Label,
		Severity:        run.Severity,
		Context:         run.Context,
		LossType:        run.LossType,
		JobType:         run.JobType,
		InputRoomCount:  run.InputRoomCount,
		OutputRoomCount: run.OutputRoomCount,
		MergeCount:      run.MergeCount,
		WarningCount:    len(run.Warnings),
		DurationMs:      run.DurationMs,
		CreatedAt:       run.CreatedAt,
	}
}

// RunsToListItems converts a slice of stored runs to list items
func RunsToListItems(runs []database.EstimateRun) []RunListItem {
	items := make([]RunListItem, len(runs))
	for i, run := range runs {
		items[i] = RunToListItem(run)
	}
	return items
}
