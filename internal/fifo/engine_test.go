package fifo

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradejournal/internal/models"
)

var baseTime = time.Date(2025, 1, 17, 14, 30, 0, 0, time.UTC)

func makeFill(side models.Side, qty, price float64, offsetSec int) *models.Fill {
	return &models.Fill{
		UserID:           1,
		Broker:           "tos",
		InstrumentType:   models.InstrumentStock,
		UnderlyingSymbol: "AAPL",
		ContractCode:     "AAPL",
		Side:             side,
		Quantity:         qty,
		Price:            price,
		ExecutedAt:       baseTime.Add(time.Duration(offsetSec) * time.Second),
	}
}

func unitMultiplier(*models.Fill) float64 { return 1 }

func TestBookFlatOpenLong(t *testing.T) {
	book := NewBook("AAPL", 1)

	legs, skipped := book.Step(makeFill(models.SideBuy, 5, 100, 0))
	require.False(t, skipped)
	require.Len(t, legs, 1)

	assert.Equal(t, LegEntry, legs[0].Kind)
	assert.Equal(t, models.SideBuy, legs[0].Side)
	assert.Equal(t, 5.0, legs[0].Quantity)
	assert.Equal(t, 5.0, book.Position())
}

func TestBookFirstFillMayOpenShort(t *testing.T) {
	book := NewBook("AAPL", 1)

	legs, skipped := book.Step(makeFill(models.SideSell, 3, 50, 0))
	require.False(t, skipped)
	require.Len(t, legs, 1)

	assert.Equal(t, LegEntry, legs[0].Kind)
	assert.Equal(t, models.SideSell, legs[0].Side)
	assert.Equal(t, -3.0, book.Position())

	// Buying back below the entry realizes a short profit.
	legs, skipped = book.Step(makeFill(models.SideBuy, 3, 45, 10))
	require.False(t, skipped)
	require.Len(t, legs, 1)
	assert.Equal(t, LegExit, legs[0].Kind)
	assert.InDelta(t, 15.0, legs[0].RealizedPnl, 1e-9)
	assert.Equal(t, 0.0, book.Position())
}

func TestBookFIFOConsumesOldestLotsFirst(t *testing.T) {
	book := NewBook("AAPL", 1)

	for i, price := range []float64{10, 12, 14} {
		_, skipped := book.Step(makeFill(models.SideBuy, 1, price, i))
		require.False(t, skipped)
	}

	legs, skipped := book.Step(makeFill(models.SideSell, 2, 20, 10))
	require.False(t, skipped)
	require.Len(t, legs, 1)

	// Oldest lots (10, 12) close first: (20-10) + (20-12).
	assert.InDelta(t, 18.0, legs[0].RealizedPnl, 1e-9)
	assert.Equal(t, 1.0, book.Position())
}

func TestBookFlipEmitsExitAndEntry(t *testing.T) {
	book := NewBook("AAPL", 1)

	_, skipped := book.Step(makeFill(models.SideBuy, 5, 100, 0))
	require.False(t, skipped)

	legs, skipped := book.Step(makeFill(models.SideSell, 8, 110, 10))
	require.False(t, skipped)
	require.Len(t, legs, 2)

	exit, entry := legs[0], legs[1]
	assert.Equal(t, LegExit, exit.Kind)
	assert.Equal(t, 5.0, exit.Quantity)
	assert.InDelta(t, 50.0, exit.RealizedPnl, 1e-9)

	assert.Equal(t, LegEntry, entry.Kind)
	assert.Equal(t, 3.0, entry.Quantity)
	assert.Equal(t, 110.0, entry.Price)
	assert.Equal(t, -3.0, book.Position())
}

func TestBookAppliesMultiplier(t *testing.T) {
	book := NewBook("/ES", 50)

	_, skipped := book.Step(makeFill(models.SideBuy, 2, 5000, 0))
	require.False(t, skipped)

	legs, skipped := book.Step(makeFill(models.SideSell, 2, 5010, 10))
	require.False(t, skipped)
	require.Len(t, legs, 1)

	// 10 points x 2 contracts x $50.
	assert.InDelta(t, 1000.0, legs[0].RealizedPnl, 1e-9)
}

func TestBookSkipsInvalidFills(t *testing.T) {
	book := NewBook("AAPL", 1)

	legs, skipped := book.Step(makeFill(models.SideBuy, 0, 100, 0))
	assert.True(t, skipped)
	assert.Nil(t, legs)

	legs, skipped = book.Step(makeFill(models.SideBuy, 5, 0, 0))
	assert.True(t, skipped)
	assert.Nil(t, legs)

	assert.Equal(t, 0.0, book.Position())
}

func TestBookPartialLotClose(t *testing.T) {
	book := NewBook("AAPL", 1)

	_, _ = book.Step(makeFill(models.SideBuy, 10, 100, 0))

	legs, skipped := book.Step(makeFill(models.SideSell, 4, 105, 10))
	require.False(t, skipped)
	require.Len(t, legs, 1)
	assert.InDelta(t, 20.0, legs[0].RealizedPnl, 1e-9)
	assert.Equal(t, 6.0, book.Position())

	// The shrunken lot keeps its original entry price.
	legs, skipped = book.Step(makeFill(models.SideSell, 6, 110, 20))
	require.False(t, skipped)
	require.Len(t, legs, 1)
	assert.InDelta(t, 60.0, legs[0].RealizedPnl, 1e-9)
	assert.Equal(t, 0.0, book.Position())
}

func TestRunNetZeroAtConstantPrice(t *testing.T) {
	fills := []*models.Fill{
		makeFill(models.SideBuy, 5, 100, 0),
		makeFill(models.SideSell, 2, 100, 10),
		makeFill(models.SideSell, 3, 100, 20),
	}
	fills[0].Commissions = 1.3
	fills[1].Commissions = -0.65 // brokers sign costs inconsistently
	fills[2].Fees = 0.42

	res := Run(fills, unitMultiplier)

	assert.InDelta(t, 0.0, res.GrossPnl, 1e-9)
	assert.InDelta(t, 1.95, res.Commissions, 1e-9)
	assert.InDelta(t, 0.42, res.Fees, 1e-9)
	assert.InDelta(t, -(res.Commissions + res.Fees), res.NetPnl, 1e-9)
}

func TestRunKeepsContractsIsolated(t *testing.T) {
	aapl := makeFill(models.SideBuy, 5, 100, 0)
	tsla := makeFill(models.SideBuy, 2, 200, 1)
	tsla.UnderlyingSymbol = "TSLA"
	tsla.ContractCode = "TSLA"
	aaplExit := makeFill(models.SideSell, 5, 110, 10)
	tslaExit := makeFill(models.SideSell, 2, 190, 11)
	tslaExit.UnderlyingSymbol = "TSLA"
	tslaExit.ContractCode = "TSLA"

	res := Run([]*models.Fill{aapl, aaplExit, tsla, tslaExit}, unitMultiplier)

	require.Len(t, res.Exits, 2)
	assert.InDelta(t, 50.0-20.0, res.GrossPnl, 1e-9)
}

func TestRunCountsSkippedRows(t *testing.T) {
	fills := []*models.Fill{
		makeFill(models.SideBuy, 5, 100, 0),
		makeFill(models.SideBuy, 0, 100, 1),
		makeFill(models.SideSell, 5, 100, 2),
	}
	fills[1].Commissions = 99 // excluded along with the row

	res := Run(fills, unitMultiplier)

	assert.Equal(t, 1, res.Skipped)
	assert.InDelta(t, 0.0, res.Commissions, 1e-9)
}

func TestConcurrentRunsShareNoState(t *testing.T) {
	makeSeq := func(entry, exit float64) []*models.Fill {
		return []*models.Fill{
			makeFill(models.SideBuy, 10, entry, 0),
			makeFill(models.SideSell, 10, exit, 10),
		}
	}

	var wg sync.WaitGroup
	results := make([]*Result, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = Run(makeSeq(100, 100+float64(n)), unitMultiplier)
		}(i)
	}
	wg.Wait()

	for n, res := range results {
		assert.InDelta(t, float64(n)*10, res.GrossPnl, 1e-9)
	}
}
