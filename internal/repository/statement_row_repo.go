package repository

import (
	"github.com/tradejournal/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatementRowRepository handles the raw-row hash ledger
type StatementRowRepository struct {
	db        *gorm.DB
	chunkSize int
}

// NewStatementRowRepository creates a new StatementRowRepository
func NewStatementRowRepository(db *gorm.DB) *StatementRowRepository {
	return &StatementRowRepository{db: db, chunkSize: defaultHashChunkSize}
}

// ExistingRowHashes returns which of the given raw-row hashes have been
// ingested before, looked up in bounded chunks.
func (r *StatementRowRepository) ExistingRowHashes(userID uint, hashes []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(hashes))

	for start := 0; start < len(hashes); start += r.chunkSize {
		end := start + r.chunkSize
		if end > len(hashes) {
			end = len(hashes)
		}

		var found []string
		result := r.db.Model(&models.StatementRow{}).
			Where("user_id = ? AND row_hash IN ?", userID, hashes[start:end]).
			Pluck("row_hash", &found)
		if result.Error != nil {
			return nil, result.Error
		}
		for _, h := range found {
			existing[h] = true
		}
	}
	return existing, nil
}

// InsertBatch records new raw-row hashes. Conflicting hashes are ignored so
// concurrent imports of the same statement stay safe.
func (r *StatementRowRepository) InsertBatch(rows []models.StatementRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "row_hash"}},
		DoNothing: true,
	}).CreateInBatches(rows, r.chunkSize).Error
}
