package services

import (
	"gorm.io/gorm"

	"github.com/scopeline/scopeline/internal/database"
)

// RunService reads back stored estimate runs
type RunService struct {
	db *gorm.DB
}

// NewRunService creates a run service
func NewRunService(db *gorm.DB) *RunService {
	return &RunService{db: db}
}

// ListRuns returns runs newest first, plus the total count for pagination
func (s *RunService) ListRuns(limit, offset int) ([]database.EstimateRun, int64, error) {
	var total int64
	if err := s.db.Model(&database.EstimateRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []database.EstimateRun
	err := s.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&runs).Error
	return runs, total, err
}

// GetRunByUUID returns a single run
func (s *RunService) GetRunByUUID(uuid string) (*database.EstimateRun, error) {
	var run database.EstimateRun
	err := s.db.Where("uuid = ?", uuid).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunMerges returns the merge audit trail for a run
func (s *RunService) GetRunMerges(runID uint) ([]database.RoomMergeRecord, error) {
	var merges []database.RoomMergeRecord
	err := s.db.Where("run_id = ?", runID).Order("id ASC").Find(&merges).Error
	return merges, err
}
