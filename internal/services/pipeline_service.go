package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scopeline/scopeline/internal/database"
	"github.com/scopeline/scopeline/internal/estimate"
	"github.com/scopeline/scopeline/internal/estimate/audit"
	"github.com/scopeline/scopeline/internal/estimate/dedup"
	"github.com/scopeline/scopeline/internal/estimate/logistics"
	"github.com/scopeline/scopeline/internal/estimate/sanitize"
	"github.com/scopeline/scopeline/internal/utils"
	"github.com/scopeline/scopeline/internal/vocabulary"
)

// PipelineService runs the scope post-processing pipeline and persists run
// telemetry. The pipeline itself is pure; this service owns the edges:
// settings lookup, persistence, logging.
type PipelineService struct {
	db    *gorm.DB
	vocab *vocabulary.Vocabulary
	ids   estimate.IDGenerator
}

// NewPipelineService creates a pipeline service
func NewPipelineService(db *gorm.DB, vocab *vocabulary.Vocabulary, ids estimate.IDGenerator) *PipelineService {
	return &PipelineService{db: db, vocab: vocab, ids: ids}
}

// Process applies Sanitizer -> Deduplicator -> Logistics -> GapAuditor in
// strict order, records the run, and returns both the stored record and the
// pipeline result. Warnings from upstream collaborators (such as the scope
// extractor) lead the warning list so the stored record matches what the
// caller is shown. Bad input degrades the estimate and adds warnings; it
// never fails the run.
func (s *PipelineService) Process(label string, rooms []estimate.RoomData, params estimate.JobParams, upstream []string) (*database.EstimateRun, *estimate.Result, error) {
	started := time.Now()

	if params.Severity < 1 {
		params.Severity = 1
	}
	if params.Severity > 10 {
		params.Severity = 10
	}

	settings, err := database.GetOrCreatePipelineSettings(s.db)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load pipeline settings: %w", err)
	}

	sanitizer := sanitize.New(s.vocab)
	clean := sanitizer.SanitizeAll(rooms)

	deduplicator := dedup.New(dedup.Settings{
		MergeThreshold:  settings.MergeThreshold,
		ReviewThreshold: settings.ReviewThreshold,
		MaxPasses:       settings.MaxMergePasses,
	})
	deduped := deduplicator.SanitizeRooms(clean)

	engine := logistics.New(s.ids)
	final := engine.Enrich(deduped.Rooms, params)

	warnings := append([]string{}, upstream...)
	warnings = append(warnings, deduped.Warnings...)
	warnings = append(warnings, audit.AuditRooms(final)...)

	result := &estimate.Result{
		Rooms:      final,
		Warnings:   warnings,
		MergeCount: deduped.MergeCount,
	}

	run := &database.EstimateRun{
		UUID:            uuid.NewString(),
		Label:           label,
		Severity:        params.Severity,
		Context:         string(params.Context),
		LossType:        params.LossType,
		JobType:         string(params.JobType),
		InputRoomCount:  len(rooms),
		OutputRoomCount: len(final),
		MergeCount:      deduped.MergeCount,
		Warnings:        database.StringList(warnings),
		Rooms:           database.RoomList(final),
		DurationMs:      time.Since(started).Milliseconds(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return err
		}
		for _, m := range deduped.Merges {
			record := &database.RoomMergeRecord{
				RunID:         run.ID,
				PrimaryRoomID: m.PrimaryRoomID,
				PrimaryName:   m.PrimaryName,
				MergedRoomID:  m.MergedRoomID,
				MergedName:    m.MergedName,
				Similarity:    m.Similarity,
			}
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to persist estimate run: %w", err)
	}

	log.Printf("Processed estimate run %s: %d rooms in, %d out, %d merged, %d warnings (%s)",
		run.UUID, run.InputRoomCount, run.OutputRoomCount, run.MergeCount, len(warnings),
		utils.FormatDuration(time.Since(started)))

	return run, result, nil
}
