package repository

import (
	"errors"

	"github.com/tradejournal/internal/models"
	"gorm.io/gorm"
)

var (
	ErrBrokerConfigNotFound = errors.New("broker configuration not found")
)

// BrokerConfigRepository handles broker configuration data access
type BrokerConfigRepository struct {
	db *gorm.DB
}

// NewBrokerConfigRepository creates a new BrokerConfigRepository
func NewBrokerConfigRepository(db *gorm.DB) *BrokerConfigRepository {
	return &BrokerConfigRepository{db: db}
}

// GetByBroker retrieves the configuration for a broker name
func (r *BrokerConfigRepository) GetByBroker(broker string) (*models.BrokerConfig, error) {
	var cfg models.BrokerConfig
	result := r.db.Where("broker = ?", broker).First(&cfg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBrokerConfigNotFound
		}
		return nil, result.Error
	}
	return &cfg, nil
}

// Upsert creates or replaces a broker's configuration
func (r *BrokerConfigRepository) Upsert(cfg *models.BrokerConfig) error {
	existing, err := r.GetByBroker(cfg.Broker)
	if err != nil {
		if errors.Is(err, ErrBrokerConfigNotFound) {
			return r.db.Create(cfg).Error
		}
		return err
	}
	cfg.ID = existing.ID
	return r.db.Save(cfg).Error
}
