package models

import (
	"time"
)

// InstrumentType classifies the traded instrument
type InstrumentType string

const (
	InstrumentOption  InstrumentType = "OPTION"
	InstrumentFutures InstrumentType = "FUTURES"
	InstrumentForex   InstrumentType = "FOREX"
	InstrumentCrypto  InstrumentType = "CRYPTO"
	InstrumentStock   InstrumentType = "STOCK"
	InstrumentUnknown InstrumentType = "UNKNOWN"
)

// Side represents the fill side
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OptionRight represents the option right
type OptionRight string

const (
	RightCall OptionRight = "CALL"
	RightPut  OptionRight = "PUT"
)

// Fill represents a normalized broker execution event. A persisted fill is
// immutable; re-imports upsert by trade hash instead of inserting twice.
type Fill struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"index;not null" json:"user_id"`
	Broker           string         `gorm:"size:50;not null;index" json:"broker"`
	ImportBatchID    uint           `gorm:"index" json:"import_batch_id"`
	InstrumentType   InstrumentType `gorm:"size:10;not null" json:"instrument_type"`
	UnderlyingSymbol string         `gorm:"size:20;index" json:"underlying_symbol"`
	ContractCode     string         `gorm:"size:40;index" json:"contract_code"`
	Expiry           *time.Time     `json:"expiry,omitempty"`
	Strike           *float64       `gorm:"type:decimal(20,8)" json:"strike,omitempty"`
	Right            OptionRight    `gorm:"size:4" json:"right,omitempty"`
	Side             Side           `gorm:"size:4;not null" json:"side"`
	Quantity         float64        `gorm:"type:decimal(20,8);not null" json:"quantity"`
	Price            float64        `gorm:"type:decimal(20,8);not null" json:"price"`
	ExecutedAt       time.Time      `gorm:"index;not null" json:"executed_at"`
	Commissions      float64        `gorm:"type:decimal(20,8)" json:"commissions"`
	Fees             float64        `gorm:"type:decimal(20,8)" json:"fees"`
	TradeHash        string         `gorm:"size:64;not null;uniqueIndex" json:"trade_hash"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName specifies the table name for Fill model
func (Fill) TableName() string {
	return "fills"
}

// ContractKey groups fills into one position stream: the underlying symbol
// for linear instruments, underlying+expiry+strike+right for options.
func (f *Fill) ContractKey() string {
	if f.InstrumentType == InstrumentOption && f.ContractCode != "" {
		return f.ContractCode
	}
	return f.UnderlyingSymbol
}
