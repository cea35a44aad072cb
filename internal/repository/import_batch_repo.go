package repository

import (
	"errors"
	"time"

	"github.com/tradejournal/internal/models"
	"gorm.io/gorm"
)

var (
	ErrImportBatchNotFound = errors.New("import batch not found")
)

// ImportBatchRepository handles import batch data access
type ImportBatchRepository struct {
	db *gorm.DB
}

// NewImportBatchRepository creates a new ImportBatchRepository
func NewImportBatchRepository(db *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

// Create creates a new import batch
func (r *ImportBatchRepository) Create(batch *models.ImportBatch) error {
	return r.db.Create(batch).Error
}

// GetByPublicID retrieves an import batch by its public id
func (r *ImportBatchRepository) GetByPublicID(userID uint, publicID string) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	result := r.db.Where("user_id = ? AND public_id = ?", userID, publicID).First(&batch)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrImportBatchNotFound
		}
		return nil, result.Error
	}
	return &batch, nil
}

// GetByUserID retrieves a user's import batches, newest first
func (r *ImportBatchRepository) GetByUserID(userID uint, limit int) ([]models.ImportBatch, error) {
	var batches []models.ImportBatch
	result := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&batches)
	return batches, result.Error
}

// MarkSuccess finalizes a batch with its counts
func (r *ImportBatchRepository) MarkSuccess(batch *models.ImportBatch) error {
	now := time.Now().UTC()
	batch.Status = models.BatchStatusSuccess
	batch.FinishedAt = &now
	return r.db.Model(batch).Updates(map[string]interface{}{
		"status":          models.BatchStatusSuccess,
		"inserted_count":  batch.InsertedCount,
		"updated_count":   batch.UpdatedCount,
		"duplicate_count": batch.DuplicateCount,
		"skipped_count":   batch.SkippedCount,
		"finished_at":     now,
	}).Error
}

// MarkFailed finalizes a batch as failed with the captured message
func (r *ImportBatchRepository) MarkFailed(batch *models.ImportBatch, message string) error {
	now := time.Now().UTC()
	batch.Status = models.BatchStatusFailed
	batch.ErrorMessage = message
	batch.FinishedAt = &now
	return r.db.Model(batch).Updates(map[string]interface{}{
		"status":        models.BatchStatusFailed,
		"error_message": message,
		"finished_at":   now,
	}).Error
}

// FindStaleProcessing returns batches stuck in processing longer than maxAge
func (r *ImportBatchRepository) FindStaleProcessing(maxAge time.Duration) ([]models.ImportBatch, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	var batches []models.ImportBatch
	result := r.db.Where("status = ? AND created_at < ?", models.BatchStatusProcessing, cutoff).
		Find(&batches)
	return batches, result.Error
}
