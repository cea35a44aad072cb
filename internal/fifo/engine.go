// Package fifo implements the reconciliation core: a per-contract state
// machine that consumes time-ordered fills and emits entry/exit legs with
// realized P&L under First-In-First-Out lot accounting. The engine is pure
// in-memory computation; it never touches storage.
package fifo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradejournal/internal/models"
)

// LegKind distinguishes opening and closing legs
type LegKind string

const (
	LegEntry LegKind = "ENTRY"
	LegExit  LegKind = "EXIT"
)

// Leg is a derived entry or exit produced from one fill. A single fill that
// flips the position sign yields both an exit leg and an entry leg.
type Leg struct {
	ContractKey  string                `json:"contract_key"`
	Kind         LegKind               `json:"kind"`
	Side         models.Side           `json:"side"`
	Quantity     float64               `json:"quantity"`
	Price        float64               `json:"price"`
	Timestamp    time.Time             `json:"timestamp"`
	RealizedPnl  float64               `json:"realized_pnl,omitempty"`
	Instrument   models.InstrumentType `json:"instrument_type"`
	DaysToExpiry *int                  `json:"days_to_expiry,omitempty"`
}

// lot is one unclosed slice of a position. Quantity keeps the position
// sign: positive long, negative short.
type lot struct {
	qty   decimal.Decimal
	price decimal.Decimal
}

// Book holds the FIFO lot state for one contract key within one
// reconciliation run. Lots live only for the duration of the run.
type Book struct {
	key        string
	multiplier decimal.Decimal
	position   decimal.Decimal
	lots       []lot
	realized   decimal.Decimal
}

// NewBook creates an empty book for a contract key with its dollar multiplier
func NewBook(key string, multiplier float64) *Book {
	return &Book{
		key:        key,
		multiplier: decimal.NewFromFloat(multiplier),
	}
}

// Position returns the signed running quantity
func (b *Book) Position() float64 {
	f, _ := b.position.Float64()
	return f
}

// Realized returns the gross P&L realized by this book so far
func (b *Book) Realized() float64 {
	f, _ := b.realized.Float64()
	return f
}

// Step applies one fill to the book in execution order and returns the legs
// it produces. A fill with non-positive quantity or zero price is skipped:
// no legs, no state change, skipped=true.
func (b *Book) Step(f *models.Fill) (legs []Leg, skipped bool) {
	if f.Quantity <= 0 || f.Price == 0 {
		return nil, true
	}

	qty := decimal.NewFromFloat(f.Quantity)
	price := decimal.NewFromFloat(f.Price)

	delta := qty
	if f.Side == models.SideSell {
		delta = qty.Neg()
	}

	prev := b.position
	next := prev.Add(delta)

	switch {
	case prev.IsZero() || prev.Sign() == delta.Sign():
		// Flat open or same-direction add: one new lot, one entry leg.
		b.lots = append(b.lots, lot{qty: delta, price: price})
		legs = append(legs, b.entryLeg(f, delta.Abs(), price))

	default:
		// Opposite direction: close oldest lots first, then any remainder
		// opens a new position on the other side.
		closeQty := decimal.Min(prev.Abs(), delta.Abs())
		if closeQty.Sign() > 0 {
			realized := b.closeFIFO(closeQty, price, prev.Sign() > 0)
			b.realized = b.realized.Add(realized)

			pnl, _ := realized.Float64()
			cq, _ := closeQty.Float64()
			pr, _ := price.Float64()
			legs = append(legs, Leg{
				ContractKey: b.key,
				Kind:        LegExit,
				Side:        f.Side,
				Quantity:    cq,
				Price:       pr,
				Timestamp:   f.ExecutedAt,
				RealizedPnl: pnl,
				Instrument:  f.InstrumentType,
			})
		}

		if remainder := delta.Abs().Sub(closeQty); remainder.Sign() > 0 {
			opening := remainder
			if delta.Sign() < 0 {
				opening = remainder.Neg()
			}
			b.lots = append(b.lots, lot{qty: opening, price: price})
			legs = append(legs, b.entryLeg(f, remainder, price))
		}
	}

	b.position = next
	return legs, false
}

func (b *Book) entryLeg(f *models.Fill, qty, price decimal.Decimal) Leg {
	q, _ := qty.Float64()
	p, _ := price.Float64()
	return Leg{
		ContractKey: b.key,
		Kind:        LegEntry,
		Side:        f.Side,
		Quantity:    q,
		Price:       p,
		Timestamp:   f.ExecutedAt,
		Instrument:  f.InstrumentType,
	}
}

// closeFIFO consumes oldest lots first until closeQty is filled and returns
// the realized P&L. sign is +1 closing a long (selling into it), -1 closing
// a short (buying it back).
func (b *Book) closeFIFO(closeQty, closePrice decimal.Decimal, closingLong bool) decimal.Decimal {
	sign := decimal.NewFromInt(1)
	if !closingLong {
		sign = decimal.NewFromInt(-1)
	}

	realized := decimal.Zero
	remaining := closeQty

	for remaining.Sign() > 0 && len(b.lots) > 0 {
		oldest := &b.lots[0]
		lotAbs := oldest.qty.Abs()
		used := decimal.Min(remaining, lotAbs)

		realized = realized.Add(
			closePrice.Sub(oldest.price).Mul(used).Mul(b.multiplier).Mul(sign),
		)

		remaining = remaining.Sub(used)
		if used.Equal(lotAbs) {
			b.lots = b.lots[1:]
		} else {
			if oldest.qty.Sign() > 0 {
				oldest.qty = oldest.qty.Sub(used)
			} else {
				oldest.qty = oldest.qty.Add(used)
			}
		}
	}
	return realized
}

// Result is the output of one reconciliation run
type Result struct {
	Entries     []Leg   `json:"entries"`
	Exits       []Leg   `json:"exits"`
	GrossPnl    float64 `json:"gross_pnl"`
	Commissions float64 `json:"commissions"`
	Fees        float64 `json:"fees"`
	NetPnl      float64 `json:"net_pnl"`
	Skipped     int     `json:"skipped"`
}

// MultiplierFunc resolves the dollar multiplier for a fill's contract
type MultiplierFunc func(*models.Fill) float64

// Run reconciles fills ordered by (contract key, execution time) into legs
// and P&L. Each contract key gets its own isolated book; state is discarded
// when the run returns. Commissions and fees accumulate as positive
// magnitudes regardless of how the broker signs them.
func Run(fills []*models.Fill, multiplierFor MultiplierFunc) *Result {
	res := &Result{}
	books := make(map[string]*Book)

	gross := decimal.Zero
	commissions := decimal.Zero
	fees := decimal.Zero

	for _, f := range fills {
		key := f.ContractKey()
		book, ok := books[key]
		if !ok {
			book = NewBook(key, multiplierFor(f))
			books[key] = book
		}

		legs, skipped := book.Step(f)
		if skipped {
			res.Skipped++
			continue
		}

		commissions = commissions.Add(decimal.NewFromFloat(f.Commissions).Abs())
		fees = fees.Add(decimal.NewFromFloat(f.Fees).Abs())

		for _, leg := range legs {
			if leg.Kind == LegExit {
				gross = gross.Add(decimal.NewFromFloat(leg.RealizedPnl))
				res.Exits = append(res.Exits, leg)
			} else {
				res.Entries = append(res.Entries, leg)
			}
		}
	}

	res.GrossPnl, _ = gross.Float64()
	res.Commissions, _ = commissions.Float64()
	res.Fees, _ = fees.Float64()
	res.NetPnl, _ = gross.Sub(commissions).Sub(fees).Float64()
	return res
}
