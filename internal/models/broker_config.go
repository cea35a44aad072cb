package models

import (
	"time"
)

// PatternRule is one broker-supplied instrument classification rule,
// evaluated in ascending priority order.
type PatternRule struct {
	InstrumentType InstrumentType `json:"instrument_type"`
	Pattern        string         `json:"pattern"`
	Priority       int            `json:"priority"`
}

// BrokerConfig holds the per-broker parsing configuration: weekly option
// root remaps, instrument pattern rules, contract-code template and
// futures multipliers. Brokers without a stored row fall back to defaults.
type BrokerConfig struct {
	ID                   uint               `gorm:"primaryKey" json:"id"`
	Broker               string             `gorm:"size:50;not null;uniqueIndex" json:"broker"`
	WeeklyKeywords       []string           `gorm:"serializer:json" json:"weekly_keywords"`
	WeeklyRootMap        map[string]string  `gorm:"serializer:json" json:"weekly_root_map"`
	PatternRules         []PatternRule      `gorm:"serializer:json" json:"pattern_rules"`
	ContractCodeTemplate string             `gorm:"size:100" json:"contract_code_template"`
	FuturesMultipliers   map[string]float64 `gorm:"serializer:json" json:"futures_multipliers"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// TableName specifies the table name for BrokerConfig model
func (BrokerConfig) TableName() string {
	return "broker_configs"
}
