package models

import (
	"time"
)

// BatchStatus represents the lifecycle state of an import batch
type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusSuccess    BatchStatus = "SUCCESS"
	BatchStatusFailed     BatchStatus = "FAILED"
)

// ImportBatch groups all fills produced by one statement upload
type ImportBatch struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	PublicID       string      `gorm:"size:36;not null;uniqueIndex" json:"public_id"`
	UserID         uint        `gorm:"index;not null" json:"user_id"`
	Broker         string      `gorm:"size:50;not null" json:"broker"`
	Filename       string      `gorm:"size:255" json:"filename"`
	Comment        string      `gorm:"size:500" json:"comment,omitempty"`
	Status         BatchStatus `gorm:"size:20;not null;default:'PROCESSING'" json:"status"`
	InsertedCount  int         `json:"inserted_count"`
	UpdatedCount   int         `json:"updated_count"`
	DuplicateCount int         `json:"duplicate_count"`
	SkippedCount   int         `json:"skipped_count"`
	ErrorMessage   string      `gorm:"size:1000" json:"error_message,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	FinishedAt     *time.Time  `json:"finished_at,omitempty"`
}

// TableName specifies the table name for ImportBatch model
func (ImportBatch) TableName() string {
	return "import_batches"
}
