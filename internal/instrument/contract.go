package instrument

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tradejournal/internal/models"
)

// OptionMultiplier is the fixed dollar multiplier for equity/index options.
const OptionMultiplier = 100.0

// DefaultContractCodeTemplate renders codes like SPX250117C4500.
const DefaultContractCodeTemplate = "{root}{yymmdd}{cp}{strike}"

// futuresSymbolRe matches ROOT + single-letter month code + year digits,
// e.g. ESH24, MNQM5, after any leading slash is stripped.
var futuresSymbolRe = regexp.MustCompile(`^([A-Z0-9]+?)([FGHJKMNQUVXZ])(\d{1,2})$`)

// defaultFuturesMultipliers is used when a broker has no configured table.
var defaultFuturesMultipliers = map[string]float64{
	"ES":  50,
	"MES": 5,
	"NQ":  20,
	"MNQ": 2,
	"RTY": 50,
	"M2K": 5,
	"YM":  5,
	"MYM": 0.5,
	"CL":  1000,
	"MCL": 100,
	"GC":  100,
	"MGC": 10,
	"SI":  5000,
	"ZB":  1000,
	"ZN":  1000,
	"6E":  125000,
}

// Multiplier returns the dollar value of one point of price movement for
// the given instrument. Unknown futures roots default to 1.
func Multiplier(cfg *models.BrokerConfig, instrumentType models.InstrumentType, symbol string) float64 {
	switch instrumentType {
	case models.InstrumentOption:
		return OptionMultiplier
	case models.InstrumentFutures:
		return futuresMultiplier(cfg, symbol)
	default:
		return 1
	}
}

func futuresMultiplier(cfg *models.BrokerConfig, symbol string) float64 {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(symbol)), "/")

	root := s
	if m := futuresSymbolRe.FindStringSubmatch(s); m != nil {
		root = m[1]
	}

	table := defaultFuturesMultipliers
	if cfg != nil && len(cfg.FuturesMultipliers) > 0 {
		table = cfg.FuturesMultipliers
	}
	if mult, ok := table[root]; ok {
		return mult
	}
	return 1
}

// OptionContractCode renders the canonical option contract code through the
// broker's template. Placeholders: {root}, {yymmdd}, {cp}, {strike}.
func OptionContractCode(template, root string, expiry time.Time, right models.OptionRight, strike float64) string {
	if template == "" {
		template = DefaultContractCodeTemplate
	}

	cp := "C"
	if right == models.RightPut {
		cp = "P"
	}

	// Strike rendered without its decimal point: 4500 -> "4500", 4500.5 -> "45005".
	strikeStr := strings.Replace(strconv.FormatFloat(strike, 'f', -1, 64), ".", "", 1)

	r := strings.NewReplacer(
		"{root}", root,
		"{yymmdd}", expiry.Format("060102"),
		"{cp}", cp,
		"{strike}", strikeStr,
	)
	return r.Replace(template)
}

// DaysToExpiry computes the whole-day distance between the trade date and
// expiry, both truncated to UTC midnight. Returns nil without an expiry.
// Near session boundaries this can differ by a day from the local trading
// calendar; downstream analytics rely on the UTC convention.
func DaysToExpiry(expiry *time.Time, tradeDate time.Time) *int {
	if expiry == nil {
		return nil
	}
	e := expiry.UTC().Truncate(24 * time.Hour)
	t := tradeDate.UTC().Truncate(24 * time.Hour)
	days := int(e.Sub(t).Round(24*time.Hour) / (24 * time.Hour))
	return &days
}
