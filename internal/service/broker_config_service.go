package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradejournal/internal/instrument"
	"github.com/tradejournal/internal/models"
	"github.com/tradejournal/internal/repository"
)

// brokerConfigTTL bounds how long a resolved configuration stays cached
const brokerConfigTTL = 10 * time.Minute

// BrokerConfigService resolves per-broker parsing configuration, caching
// resolved configs in redis so bulk imports don't hit the database per call.
type BrokerConfigService struct {
	repo  *repository.BrokerConfigRepository
	redis *redis.Client
}

// NewBrokerConfigService creates a new BrokerConfigService
func NewBrokerConfigService(repo *repository.BrokerConfigRepository, redisClient *redis.Client) *BrokerConfigService {
	return &BrokerConfigService{repo: repo, redis: redisClient}
}

// Resolve returns the configuration for a broker name, falling back to the
// built-in defaults when the broker has no stored configuration.
func (s *BrokerConfigService) Resolve(ctx context.Context, broker string) (*models.BrokerConfig, error) {
	key := fmt.Sprintf("brokercfg:%s", broker)

	if s.redis != nil {
		if data, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var cfg models.BrokerConfig
			if err := json.Unmarshal(data, &cfg); err == nil {
				return &cfg, nil
			}
			// A stale or corrupt cache entry falls through to the repo.
		}
	}

	cfg, err := s.repo.GetByBroker(broker)
	if err != nil {
		if !errors.Is(err, repository.ErrBrokerConfigNotFound) {
			return nil, err
		}
		def := instrument.DefaultBrokerConfig()
		def.Broker = broker
		cfg = &def
	}

	if s.redis != nil {
		if data, err := json.Marshal(cfg); err == nil {
			if err := s.redis.Set(ctx, key, data, brokerConfigTTL).Err(); err != nil {
				log.Printf("[BrokerConfig] Failed to cache config for %s: %v", broker, err)
			}
		}
	}
	return cfg, nil
}

// Invalidate drops the cached configuration for a broker
func (s *BrokerConfigService) Invalidate(ctx context.Context, broker string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, fmt.Sprintf("brokercfg:%s", broker)).Err(); err != nil {
		log.Printf("[BrokerConfig] Failed to invalidate cache for %s: %v", broker, err)
	}
}
