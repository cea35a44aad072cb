package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tradejournal/internal/fifo"
	"github.com/tradejournal/internal/instrument"
	"github.com/tradejournal/internal/models"
)

// FillReader loads persisted fills for reconciliation
type FillReader interface {
	GetForUserDay(userID uint, day time.Time) ([]models.Fill, error)
}

// ReconcileResult is the payload returned for one user+day reconciliation
type ReconcileResult struct {
	Entries     []fifo.Leg `json:"entries"`
	Exits       []fifo.Leg `json:"exits"`
	GrossPnl    float64    `json:"gross_pnl"`
	NetPnl      float64    `json:"net_pnl"`
	Commissions float64    `json:"commissions"`
	Fees        float64    `json:"fees"`
	Skipped     int        `json:"skipped"`
	Message     string     `json:"message"`
}

// ReconcileService runs the FIFO engine over a user's fills for one day.
// Each call owns its own lot state, so runs for different users or days are
// independent and safe to execute concurrently.
type ReconcileService struct {
	fills   FillReader
	configs ConfigResolver
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(fills FillReader, configs ConfigResolver) *ReconcileService {
	return &ReconcileService{fills: fills, configs: configs}
}

// ReconcileDay loads the user's fills for one UTC day, ordered by contract
// key and execution time, and reconciles them into entry/exit legs and P&L.
func (s *ReconcileService) ReconcileDay(ctx context.Context, userID uint, day time.Time) (*ReconcileResult, error) {
	fills, err := s.fills.GetForUserDay(userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load fills: %w", err)
	}

	if len(fills) == 0 {
		return &ReconcileResult{
			Message: fmt.Sprintf("no fills for %s", day.UTC().Format("2006-01-02")),
		}, nil
	}

	// Broker configs resolved once per broker seen in the day's fills.
	configs := make(map[string]*models.BrokerConfig)
	for i := range fills {
		broker := fills[i].Broker
		if _, ok := configs[broker]; ok {
			continue
		}
		cfg, err := s.configs.Resolve(ctx, broker)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve broker config for %s: %w", broker, err)
		}
		configs[broker] = cfg
	}

	ordered := make([]*models.Fill, len(fills))
	for i := range fills {
		ordered[i] = &fills[i]
	}

	run := fifo.Run(ordered, func(f *models.Fill) float64 {
		return instrument.Multiplier(configs[f.Broker], f.InstrumentType, f.UnderlyingSymbol)
	})

	sortLegs(run.Entries)
	sortLegs(run.Exits)

	contracts := make(map[string]bool)
	expiries := make(map[string]*time.Time)
	for i := range fills {
		key := fills[i].ContractKey()
		contracts[key] = true
		if fills[i].Expiry != nil {
			expiries[key] = fills[i].Expiry
		}
	}
	annotateExpiry(run.Entries, expiries)
	annotateExpiry(run.Exits, expiries)

	return &ReconcileResult{
		Entries:     run.Entries,
		Exits:       run.Exits,
		GrossPnl:    run.GrossPnl,
		NetPnl:      run.NetPnl,
		Commissions: run.Commissions,
		Fees:        run.Fees,
		Skipped:     run.Skipped,
		Message: fmt.Sprintf("reconciled %d fills across %d contracts for %s",
			len(fills)-run.Skipped, len(contracts), day.UTC().Format("2006-01-02")),
	}, nil
}

// annotateExpiry stamps option legs with their days-to-expiry at leg time.
func annotateExpiry(legs []fifo.Leg, expiries map[string]*time.Time) {
	for i := range legs {
		if expiry, ok := expiries[legs[i].ContractKey]; ok {
			legs[i].DaysToExpiry = instrument.DaysToExpiry(expiry, legs[i].Timestamp)
		}
	}
}

func sortLegs(legs []fifo.Leg) {
	sort.SliceStable(legs, func(i, j int) bool {
		return legs[i].Timestamp.Before(legs[j].Timestamp)
	})
}
