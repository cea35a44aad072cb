package models

import (
	"time"
)

// StatementRow records the content hash of one raw statement line so an
// identical line is never ingested twice across imports.
type StatementRow struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"`
	Broker        string    `gorm:"size:50;not null" json:"broker"`
	ImportBatchID uint      `gorm:"index" json:"import_batch_id"`
	RowHash       string    `gorm:"size:64;not null;uniqueIndex" json:"row_hash"`
	Description   string    `gorm:"size:500" json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for StatementRow model
func (StatementRow) TableName() string {
	return "statement_rows"
}
