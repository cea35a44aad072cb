package repository

import (
	"time"

	"github.com/tradejournal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// defaultHashChunkSize bounds IN-clause sizes for hash existence queries
const defaultHashChunkSize = 800

// FillRepository handles fill data access
type FillRepository struct {
	db        *gorm.DB
	chunkSize int
}

// NewFillRepository creates a new FillRepository
func NewFillRepository(db *gorm.DB) *FillRepository {
	return &FillRepository{db: db, chunkSize: defaultHashChunkSize}
}

// ExistingTradeHashes returns which of the given trade hashes are already
// persisted for the user. Lookups run in bounded chunks to respect backend
// query limits.
func (r *FillRepository) ExistingTradeHashes(userID uint, hashes []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(hashes))

	for start := 0; start < len(hashes); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(hashes) {
			end = len(hashes)
		}

		var found []string
		result := r.db.Model(&models.Fill{}).
			Where("user_id = ? AND trade_hash IN ?", userID, hashes[start:end]).
			Pluck("trade_hash", &found)
		if result.Error != nil {
			return nil, result.Error
		}
		for _, h := range found {
			existing[h] = true
		}
	}
	return existing, nil
}

// UpsertBatch persists fills keyed by trade hash: new hashes insert, known
// hashes refresh the mutable execution fields so a re-import updates
// instead of duplicating.
func (r *FillRepository) UpsertBatch(fills []models.Fill) error {
	if len(fills) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trade_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quantity", "price", "executed_at", "commissions", "fees", "import_batch_id", "updated_at",
		}),
	}).CreateInBatches(fills, r.chunkSize).Error
}

// GetForUserDay retrieves a user's fills for one UTC day, ordered the way
// the reconciliation engine consumes them: contract key first, then
// execution time.
func (r *FillRepository) GetForUserDay(userID uint, day time.Time) ([]models.Fill, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	var fills []models.Fill
	result := r.db.
		Where("user_id = ? AND executed_at >= ? AND executed_at < ?", userID, start, end).
		Order("underlying_symbol ASC, contract_code ASC, executed_at ASC, id ASC").
		Find(&fills)
	return fills, result.Error
}

// CountByBatch returns the number of fills attached to an import batch
func (r *FillRepository) CountByBatch(batchID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Fill{}).Where("import_batch_id = ?", batchID).Count(&count).Error
	return count, err
}
