package database

import (
	"time"

	"gorm.io/gorm"
)

// PipelineSettings controls the deduplication thresholds. The defaults are
// the stock values; they are stored rather than hard-coded so they can be
// recalibrated against labeled duplicate/non-duplicate room pairs.
type PipelineSettings struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MergeThreshold  float64   `gorm:"type:decimal(3,2);default:0.75" json:"merge_threshold"`
	ReviewThreshold float64   `gorm:"type:decimal(3,2);default:0.60" json:"review_threshold"`
	MaxMergePasses  int       `gorm:"default:5" json:"max_merge_passes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (PipelineSettings) TableName() string {
	return "pipeline_settings"
}

// NewDefaultPipelineSettings returns settings with default values
func NewDefaultPipelineSettings() *PipelineSettings {
	return &PipelineSettings{
		MergeThreshold:  0.75,
		ReviewThreshold: 0.60,
		MaxMergePasses:  5,
	}
}

// GetOrCreatePipelineSettings retrieves or creates pipeline settings
// (singleton). Accepts a db parameter rather than using the global DB to
// support dependency injection and testing.
func GetOrCreatePipelineSettings(db *gorm.DB) (*PipelineSettings, error) {
	var settings PipelineSettings
	result := db.First(&settings)
	if result.Error == gorm.ErrRecordNotFound {
		settings = *NewDefaultPipelineSettings()
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
	} else if result.Error != nil {
		return nil, result.Error
	}
	return &settings, nil
}

// UpdatePipelineSettings updates pipeline settings
func UpdatePipelineSettings(db *gorm.DB, settings *PipelineSettings) error {
	return db.Save(settings).Error
}

// GetOrCreateSlackSettings retrieves or creates the Slack notifier settings
// (singleton)
func GetOrCreateSlackSettings(db *gorm.DB) (*SlackSettings, error) {
	var settings SlackSettings
	result := db.First(&settings)
	if result.Error == gorm.ErrRecordNotFound {
		settings = SlackSettings{Enabled: false}
		if err := db.Create(&settings).Error; err != nil {
			return nil, err
		}
	} else if result.Error != nil {
		return nil, result.Error
	}
	return &settings, nil
}

// UpdateSlackSettings updates the Slack notifier settings
func UpdateSlackSettings(db *gorm.DB, settings *SlackSettings) error {
	return db.Save(settings).Error
}
