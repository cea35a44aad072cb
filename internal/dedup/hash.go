// Package dedup computes the content hashes that make statement imports
// idempotent. Two independent hash domains exist: raw statement lines and
// normalized trades, so the same logical fill is caught even when its raw
// description differs between exports.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/tradejournal/internal/models"
)

// fieldSep joins hash fields; a control character avoids ambiguity between
// adjacent free-text fields.
const fieldSep = "\x1f"

// RowHash hashes one raw statement line as exported by the broker.
func RowHash(broker string, userID uint, date, clock, ref, description, amount, balance string) string {
	return digest(
		broker,
		strconv.FormatUint(uint64(userID), 10),
		date,
		clock,
		ref,
		description,
		amount,
		balance,
	)
}

// TradeHash hashes the normalized fill so re-importing the same logical
// execution upserts instead of duplicating.
func TradeHash(userID uint, broker string, f *models.Fill) string {
	expiry := ""
	if f.Expiry != nil {
		expiry = f.Expiry.UTC().Format("2006-01-02")
	}
	strike := ""
	if f.Strike != nil {
		strike = strconv.FormatFloat(*f.Strike, 'f', -1, 64)
	}
	return digest(
		strconv.FormatUint(uint64(userID), 10),
		broker,
		string(f.InstrumentType),
		f.UnderlyingSymbol,
		f.ContractCode,
		expiry,
		strike,
		string(f.Right),
		string(f.Side),
		strconv.FormatFloat(f.Quantity, 'f', -1, 64),
		strconv.FormatFloat(f.Price, 'f', -1, 64),
		f.ExecutedAt.UTC().Format(time.RFC3339),
	)
}

func digest(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, fieldSep)))
	return hex.EncodeToString(sum[:])
}
