package instrument

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradejournal/internal/models"
)

func TestMultiplierOptions(t *testing.T) {
	assert.Equal(t, 100.0, Multiplier(nil, models.InstrumentOption, "SPX"))
}

func TestMultiplierFutures(t *testing.T) {
	tests := []struct {
		symbol string
		want   float64
	}{
		{"/ESH24", 50},
		{"ES", 50},
		{"/MESM5", 5},
		{"/NQZ24", 20},
		{"/ZZZH24", 1}, // unknown root defaults to 1, no error
		{"ZZZ", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Multiplier(nil, models.InstrumentFutures, tt.symbol), tt.symbol)
	}
}

func TestMultiplierLinearInstruments(t *testing.T) {
	assert.Equal(t, 1.0, Multiplier(nil, models.InstrumentStock, "AAPL"))
	assert.Equal(t, 1.0, Multiplier(nil, models.InstrumentForex, "EURUSD"))
	assert.Equal(t, 1.0, Multiplier(nil, models.InstrumentCrypto, "BTCUSD"))
}

func TestMultiplierUsesBrokerTable(t *testing.T) {
	cfg := &models.BrokerConfig{
		FuturesMultipliers: map[string]float64{"ES": 25},
	}
	assert.Equal(t, 25.0, Multiplier(cfg, models.InstrumentFutures, "/ESH24"))
	// Roots outside the broker table still default to 1.
	assert.Equal(t, 1.0, Multiplier(cfg, models.InstrumentFutures, "/NQZ24"))
}

func TestOptionContractCode(t *testing.T) {
	expiry := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)

	code := OptionContractCode("", "SPX", expiry, models.RightCall, 4500)
	assert.Equal(t, "SPX250117C4500", code)

	code = OptionContractCode("", "SPX", expiry, models.RightPut, 4500.5)
	assert.Equal(t, "SPX250117P45005", code)
}

func TestOptionContractCodeCustomTemplate(t *testing.T) {
	expiry := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)

	code := OptionContractCode("{root}-{yymmdd}-{cp}-{strike}", "SPX", expiry, models.RightCall, 4500)
	assert.Equal(t, "SPX-250117-C-4500", code)
}

func TestDaysToExpiry(t *testing.T) {
	expiry := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	trade := time.Date(2025, 1, 10, 15, 45, 0, 0, time.UTC)

	dte := DaysToExpiry(&expiry, trade)
	require.NotNil(t, dte)
	assert.Equal(t, 7, *dte)

	assert.Nil(t, DaysToExpiry(nil, trade))

	// Same day expiry.
	sameDay := DaysToExpiry(&expiry, time.Date(2025, 1, 17, 9, 30, 0, 0, time.UTC))
	require.NotNil(t, sameDay)
	assert.Equal(t, 0, *sameDay)
}
