package instrument

import (
	"github.com/tradejournal/internal/models"
)

// DefaultBrokerConfig returns the parsing configuration used for brokers
// without a stored configuration row.
func DefaultBrokerConfig() models.BrokerConfig {
	return models.BrokerConfig{
		Broker:         "default",
		WeeklyKeywords: []string{"weekly", "weeklys", "wk"},
		WeeklyRootMap: map[string]string{
			"SPX": "SPXW",
			"NDX": "NDXP",
			"RUT": "RUTW",
			"XSP": "XSPW",
		},
		PatternRules: []models.PatternRule{
			{
				InstrumentType: models.InstrumentFutures,
				Pattern:        `(?i)\s/(?P<root>[A-Z0-9]+?)(?P<code>[FGHJKMNQUVXZ]\d{1,2})\b`,
				Priority:       10,
			},
			{
				InstrumentType: models.InstrumentCrypto,
				Pattern:        `\b(?P<base>BTC|ETH|SOL|ADA|DOGE|XRP|LTC|AVAX|DOT|LINK)[/-]?(?P<quote>USDT|USDC|USD)\b`,
				Priority:       20,
			},
			{
				InstrumentType: models.InstrumentForex,
				Pattern:        `\b(?P<base>[A-Z]{3})/(?P<quote>[A-Z]{3})\b`,
				Priority:       30,
			},
		},
		ContractCodeTemplate: DefaultContractCodeTemplate,
		FuturesMultipliers:   defaultFuturesMultipliers,
	}
}
