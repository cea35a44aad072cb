package instrument

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tradejournal/internal/models"
)

// Parsed is the best-effort classification of one transaction description.
// There is no failure mode at this level: an unrecognizable line comes back
// as InstrumentUnknown so one bad row can never abort a bulk import.
type Parsed struct {
	InstrumentType models.InstrumentType
	Side           models.Side
	Quantity       float64
	Underlying     string
	ContractCode   string
	Expiry         *time.Time
	Strike         *float64
	Right          models.OptionRight
	Base           string
	Quote          string
	Exchange       string
	Price          float64
}

// optionGrammarRe parses the fixed option fill pattern:
// BOT/SOLD <qty> <ROOT> <mult> [(desc)] <day> <MON> <yy> <strike> CALL|PUT <exchange>
var optionGrammarRe = regexp.MustCompile(
	`(?i)^\s*(BOT|SOLD)\s+([+-]?[\d,]+)\s+([A-Z]+)\s+(\d+)` +
		`(?:\s+\(([^)]*)\))?` +
		`\s+(\d{1,2})\s+([A-Z]{3})\s+(\d{2})\s+([\d.]+)\s+(CALL|PUT)\s+(\S+)`)

// sideQtyRe extracts side and quantity from non-option fill descriptions.
var sideQtyRe = regexp.MustCompile(`(?i)^\s*(BOT|SOLD)\s+([+-]?[\d,.]+)`)

// stockTickerRe matches a short alphabetic token usable as a ticker.
var stockTickerRe = regexp.MustCompile(`^[A-Z]{1,5}$`)

// atPriceRe captures an execution price token, e.g. "@4800.25".
var atPriceRe = regexp.MustCompile(`@\s*([\d,]+(?:\.\d+)?)`)

var monthsByAbbrev = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// Rule is one compiled broker pattern-table entry
type Rule struct {
	InstrumentType models.InstrumentType
	re             *regexp.Regexp
}

// RuleSet is a broker's pattern table, compiled once per batch
type RuleSet struct {
	rules []Rule
}

// CompileRules compiles a broker's pattern table in priority order. A rule
// whose pattern fails to compile is skipped; a bad configuration entry must
// never abort an import.
func CompileRules(rules []models.PatternRule) *RuleSet {
	ordered := make([]models.PatternRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	rs := &RuleSet{}
	for _, r := range ordered {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			continue
		}
		rs.rules = append(rs.rules, Rule{InstrumentType: r.InstrumentType, re: re})
	}
	return rs
}

// Parser applies the matcher chain for one broker configuration
type Parser struct {
	cfg   *models.BrokerConfig
	rules *RuleSet
}

// NewParser builds a Parser for the given broker configuration,
// compiling its pattern table once.
func NewParser(cfg *models.BrokerConfig) *Parser {
	if cfg == nil {
		def := DefaultBrokerConfig()
		cfg = &def
	}
	return &Parser{cfg: cfg, rules: CompileRules(cfg.PatternRules)}
}

// Parse classifies a transaction description, applying matchers in strict
// priority order: option grammar, broker pattern table, stock fallback.
func (p *Parser) Parse(description string) Parsed {
	if parsed, ok := p.parseOption(description); ok {
		return parsed
	}
	if parsed, ok := p.parsePatternTable(description); ok {
		return parsed
	}
	return p.parseStockFallback(description)
}

func (p *Parser) parseOption(description string) (Parsed, bool) {
	m := optionGrammarRe.FindStringSubmatch(description)
	if m == nil {
		return Parsed{}, false
	}

	qty, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
	if err != nil {
		return Parsed{}, false
	}
	if qty < 0 {
		qty = -qty
	}

	day, err := strconv.Atoi(m[6])
	if err != nil {
		return Parsed{}, false
	}
	month, ok := monthsByAbbrev[strings.ToUpper(m[7])]
	if !ok {
		return Parsed{}, false
	}
	yy, err := strconv.Atoi(m[8])
	if err != nil {
		return Parsed{}, false
	}
	expiry := time.Date(2000+yy, month, day, 0, 0, 0, 0, time.UTC)

	strike, err := strconv.ParseFloat(m[9], 64)
	if err != nil {
		return Parsed{}, false
	}

	root := strings.ToUpper(m[3])
	if p.matchesWeekly(m[5]) {
		if remapped, ok := p.cfg.WeeklyRootMap[root]; ok {
			root = remapped
		}
	}

	right := models.RightCall
	if strings.EqualFold(m[10], "PUT") {
		right = models.RightPut
	}

	return Parsed{
		InstrumentType: models.InstrumentOption,
		Side:           sideFromVerb(m[1]),
		Quantity:       qty,
		Underlying:     root,
		ContractCode:   OptionContractCode(p.cfg.ContractCodeTemplate, root, expiry, right, strike),
		Expiry:         &expiry,
		Strike:         &strike,
		Right:          right,
		Exchange:       strings.ToUpper(m[11]),
	}, true
}

// matchesWeekly reports whether the parenthesized description marks a
// weekly-settled contract. Each configured keyword is checked both as a
// case-insensitive substring and as a regex; a keyword that hits on both
// still counts once, and one that fails to compile is ignored as a regex.
func (p *Parser) matchesWeekly(desc string) bool {
	if desc == "" {
		return false
	}
	lower := strings.ToLower(desc)

	matched := make(map[string]bool)
	for _, kw := range p.cfg.WeeklyKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched[kw] = true
			continue
		}
		if re, err := regexp.Compile("(?i)" + kw); err == nil && re.MatchString(desc) {
			matched[kw] = true
		}
	}
	return len(matched) > 0
}

func (p *Parser) parsePatternTable(description string) (Parsed, bool) {
	for _, rule := range p.rules.rules {
		m := rule.re.FindStringSubmatch(description)
		if m == nil {
			continue
		}
		captures := namedCaptures(rule.re, m)

		parsed := Parsed{InstrumentType: rule.InstrumentType}
		parsed.Side, parsed.Quantity = sideQty(description)
		parsed.Price = atPrice(description)

		switch rule.InstrumentType {
		case models.InstrumentFutures:
			root := strings.ToUpper(captures["root"])
			code := strings.ToUpper(captures["code"])
			if root == "" {
				continue
			}
			parsed.Underlying = "/" + root
			parsed.ContractCode = "/" + root + code
		case models.InstrumentForex, models.InstrumentCrypto:
			base := strings.ToUpper(captures["base"])
			quote := strings.ToUpper(captures["quote"])
			if base == "" || quote == "" {
				continue
			}
			parsed.Base = base
			parsed.Quote = quote
			parsed.Underlying = base + quote
			parsed.ContractCode = base + quote
		default:
			continue
		}
		return parsed, true
	}
	return Parsed{}, false
}

func (p *Parser) parseStockFallback(description string) Parsed {
	parsed := Parsed{InstrumentType: models.InstrumentUnknown}
	parsed.Side, parsed.Quantity = sideQty(description)

	// Skip the leading BOT/SOLD verb and quantity. Only the token that
	// follows may be a ticker; an incidental short word later in a
	// non-trade line must not classify the row as a stock fill.
	rest := sideQtyRe.ReplaceAllString(description, "")
	fields := strings.Fields(rest)
	if len(fields) > 0 {
		ticker := strings.ToUpper(fields[0])
		if stockTickerRe.MatchString(ticker) {
			parsed.InstrumentType = models.InstrumentStock
			parsed.Underlying = ticker
			parsed.ContractCode = ticker
			parsed.Price = atPrice(description)
		}
	}
	return parsed
}

func namedCaptures(re *regexp.Regexp, match []string) map[string]string {
	out := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			out[name] = match[i]
		}
	}
	return out
}

// atPrice extracts the execution price when the description carries one.
// Returns 0 when no price token is present; callers derive a price from
// the statement's amount column instead.
func atPrice(description string) float64 {
	m := atPriceRe.FindStringSubmatch(description)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func sideQty(description string) (models.Side, float64) {
	m := sideQtyRe.FindStringSubmatch(description)
	if m == nil {
		return "", 0
	}
	qty, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
	if err != nil {
		return "", 0
	}
	if qty < 0 {
		qty = -qty
	}
	return sideFromVerb(m[1]), qty
}

func sideFromVerb(verb string) models.Side {
	if strings.EqualFold(verb, "SOLD") {
		return models.SideSell
	}
	return models.SideBuy
}
