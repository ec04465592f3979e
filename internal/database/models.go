package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/scopeline/scopeline/internal/estimate"
)

// StringList is a custom type storing a string slice as a JSONB column
type StringList []string

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// RoomList stores the final room set of a run as a JSONB column
type RoomList []estimate.RoomData

// Scan implements the sql.Scanner interface
func (r *RoomList) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, r)
}

// Value implements the driver.Valuer interface
func (r RoomList) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// EstimateRun records one pipeline invocation for telemetry and review
type EstimateRun struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UUID            string     `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Label           string     `gorm:"type:varchar(255)" json:"label"` // caller-supplied, e.g. property address
	Severity        int        `json:"severity"`
	Context         string     `gorm:"type:varchar(20)" json:"context"`
	LossType        string     `gorm:"type:varchar(255)" json:"loss_type"`
	JobType         string     `gorm:"type:varchar(5)" json:"job_type"`
	InputRoomCount  int        `json:"input_room_count"`
	OutputRoomCount int        `json:"output_room_count"`
	MergeCount      int        `json:"merge_count"`
	Warnings        StringList `gorm:"type:jsonb" json:"warnings"`
	Rooms           RoomList   `gorm:"type:jsonb" json:"rooms"`
	DurationMs      int64      `json:"duration_ms"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (EstimateRun) TableName() string {
	return "estimate_runs"
}

// RoomMergeRecord tracks one ghost-room merge performed during a run.
// This is the audit trail for merge operations: which room survived, which
// was folded in, and at what similarity.
type RoomMergeRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RunID         uint      `gorm:"not null;index" json:"run_id"`
	PrimaryRoomID string    `gorm:"type:varchar(64);not null" json:"primary_room_id"`
	PrimaryName   string    `gorm:"type:varchar(255)" json:"primary_name"`
	MergedRoomID  string    `gorm:"type:varchar(64);not null" json:"merged_room_id"`
	MergedName    string    `gorm:"type:varchar(255)" json:"merged_name"`
	Similarity    float64   `gorm:"type:decimal(4,3)" json:"similarity"`
	CreatedAt     time.Time `json:"created_at"`

	// Belongs to EstimateRun
	Run EstimateRun `gorm:"foreignKey:RunID" json:"-"`
}

func (RoomMergeRecord) TableName() string {
	return "room_merge_records"
}

// SlackSettings stores the notifier configuration
type SlackSettings struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	BotToken        string    `gorm:"type:text" json:"bot_token"`
	WarningsChannel string    `gorm:"type:varchar(255)" json:"warnings_channel"`
	Enabled         bool      `gorm:"default:false" json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (SlackSettings) TableName() string {
	return "slack_settings"
}

// IsConfigured returns true if the token and channel are set
func (s *SlackSettings) IsConfigured() bool {
	return s.BotToken != "" && s.WarningsChannel != ""
}

// IsActive returns true if the notifier is enabled and configured
func (s *SlackSettings) IsActive() bool {
	return s.Enabled && s.IsConfigured()
}
