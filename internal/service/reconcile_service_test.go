package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradejournal/internal/models"
)

type fakeFillReader struct {
	fills map[uint][]models.Fill
	err   error
}

func (f *fakeFillReader) GetForUserDay(userID uint, day time.Time) ([]models.Fill, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fills[userID], nil
}

func optionFill(userID uint, side models.Side, qty, price float64, at time.Time) models.Fill {
	expiry := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	strike := 4500.0
	return models.Fill{
		UserID:           userID,
		Broker:           "tastytrade",
		InstrumentType:   models.InstrumentOption,
		UnderlyingSymbol: "SPX",
		ContractCode:     "SPX250117C4500",
		Expiry:           &expiry,
		Strike:           &strike,
		Right:            models.RightCall,
		Side:             side,
		Quantity:         qty,
		Price:            price,
		ExecutedAt:       at,
		Commissions:      0.65,
		Fees:             0.42,
	}
}

var tradingDay = time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)

func TestReconcileDayNoFills(t *testing.T) {
	svc := NewReconcileService(&fakeFillReader{fills: map[uint][]models.Fill{}}, fakeResolver{})

	result, err := svc.ReconcileDay(context.Background(), 7, tradingDay)
	require.NoError(t, err)

	assert.Empty(t, result.Entries)
	assert.Empty(t, result.Exits)
	assert.Equal(t, "no fills for 2025-01-17", result.Message)
}

func TestReconcileDayRoundTrip(t *testing.T) {
	reader := &fakeFillReader{fills: map[uint][]models.Fill{
		7: {
			optionFill(7, models.SideBuy, 1, 23.25, tradingDay.Add(9*time.Hour+31*time.Minute)),
			optionFill(7, models.SideSell, 1, 24.10, tradingDay.Add(10*time.Hour+2*time.Minute)),
		},
	}}
	svc := NewReconcileService(reader, fakeResolver{})

	result, err := svc.ReconcileDay(context.Background(), 7, tradingDay)
	require.NoError(t, err)

	require.Len(t, result.Entries, 1)
	require.Len(t, result.Exits, 1)
	assert.Equal(t, "SPX250117C4500", result.Exits[0].ContractKey)
	require.NotNil(t, result.Exits[0].DaysToExpiry)
	assert.Equal(t, 0, *result.Exits[0].DaysToExpiry)

	// (24.10 - 23.25) * 1 * 100 contract multiplier.
	assert.InDelta(t, 85.0, result.GrossPnl, 1e-9)
	assert.InDelta(t, 1.30, result.Commissions, 1e-9)
	assert.InDelta(t, 0.84, result.Fees, 1e-9)
	assert.InDelta(t, 85.0-1.30-0.84, result.NetPnl, 1e-9)
	assert.Equal(t, "reconciled 2 fills across 1 contracts for 2025-01-17", result.Message)
}

func TestReconcileDayPositionFlip(t *testing.T) {
	reader := &fakeFillReader{fills: map[uint][]models.Fill{
		7: {
			optionFill(7, models.SideBuy, 5, 23.00, tradingDay.Add(9*time.Hour)),
			optionFill(7, models.SideSell, 8, 24.00, tradingDay.Add(10*time.Hour)),
		},
	}}
	svc := NewReconcileService(reader, fakeResolver{})

	result, err := svc.ReconcileDay(context.Background(), 7, tradingDay)
	require.NoError(t, err)

	// The oversized sell closes the long and opens a short remainder.
	require.Len(t, result.Exits, 1)
	assert.InDelta(t, 5, result.Exits[0].Quantity, 1e-9)
	require.Len(t, result.Entries, 2)
	assert.InDelta(t, 3, result.Entries[1].Quantity, 1e-9)
	assert.Equal(t, models.SideSell, result.Entries[1].Side)

	// (24 - 23) * 5 * 100.
	assert.InDelta(t, 500.0, result.GrossPnl, 1e-9)
}

func TestReconcileDayLegsSortedByTimestamp(t *testing.T) {
	reader := &fakeFillReader{fills: map[uint][]models.Fill{
		7: {
			optionFill(7, models.SideBuy, 1, 23.00, tradingDay.Add(9*time.Hour)),
			optionFill(7, models.SideBuy, 1, 23.50, tradingDay.Add(11*time.Hour)),
			optionFill(7, models.SideBuy, 1, 23.25, tradingDay.Add(10*time.Hour)),
		},
	}}
	svc := NewReconcileService(reader, fakeResolver{})

	result, err := svc.ReconcileDay(context.Background(), 7, tradingDay)
	require.NoError(t, err)

	require.Len(t, result.Entries, 3)
	for i := 1; i < len(result.Entries); i++ {
		assert.False(t, result.Entries[i].Timestamp.Before(result.Entries[i-1].Timestamp))
	}
}

func TestReconcileDayReaderError(t *testing.T) {
	svc := NewReconcileService(&fakeFillReader{err: errors.New("db down")}, fakeResolver{})

	_, err := svc.ReconcileDay(context.Background(), 7, tradingDay)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load fills")
}

func TestReconcileDayUsersAreIsolated(t *testing.T) {
	reader := &fakeFillReader{fills: map[uint][]models.Fill{}}
	for u := uint(1); u <= 8; u++ {
		price := 20.0 + float64(u)
		reader.fills[u] = []models.Fill{
			optionFill(u, models.SideBuy, 1, price, tradingDay.Add(9*time.Hour)),
			optionFill(u, models.SideSell, 1, price+1, tradingDay.Add(10*time.Hour)),
		}
	}
	svc := NewReconcileService(reader, fakeResolver{})

	var wg sync.WaitGroup
	results := make([]*ReconcileResult, 9)
	for u := uint(1); u <= 8; u++ {
		wg.Add(1)
		go func(u uint) {
			defer wg.Done()
			result, err := svc.ReconcileDay(context.Background(), u, tradingDay)
			if err == nil {
				results[u] = result
			}
		}(u)
	}
	wg.Wait()

	for u := uint(1); u <= 8; u++ {
		require.NotNil(t, results[u], fmt.Sprintf("user %d", u))
		// Every user closed 1 contract for a 1.00 move at 100x.
		assert.InDelta(t, 100.0, results[u].GrossPnl, 1e-9)
	}
}
