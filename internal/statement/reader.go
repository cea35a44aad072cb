package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnrecognizedFormat = errors.New("unrecognized statement format")
	ErrHeaderNotFound     = errors.New("statement header row not found")
	ErrInvalidDate        = errors.New("invalid date or time cell")
	ErrEmptyStatement     = errors.New("statement contains no rows")
)

// Format identifies the declared statement file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// headerScanLimit bounds how many leading rows are searched for the header.
const headerScanLimit = 80

// Grid is a parsed statement as a 2D grid of string cells
type Grid struct {
	Rows [][]string
}

// ColumnMap holds resolved column indexes for the recognized header.
// Optional columns are -1 when the statement does not carry them.
type ColumnMap struct {
	Date        int
	Time        int
	Type        int
	Description int
	Amount      int
	Ref         int
	Balance     int
	Commissions int
	Fees        int
}

// columnCandidates maps each logical column to the header spellings seen
// across broker exports. Matching is case-insensitive on trimmed cells.
var columnCandidates = map[string][]string{
	"date":        {"date", "exec date", "trade date", "run date"},
	"time":        {"time", "exec time", "trade time"},
	"type":        {"type", "trans type", "transaction type", "action"},
	"description": {"description", "desc", "transaction", "details"},
	"amount":      {"amount", "value", "net amount", "net amt"},
	"ref":         {"ref #", "ref#", "ref", "reference", "order #", "order id"},
	"balance":     {"balance", "running balance"},
	"commissions": {"commissions", "commission", "comm"},
	"fees":        {"misc fees", "fees", "fee"},
}

// DetectFormat maps a filename extension to a statement Format
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnrecognizedFormat, filename)
	}
}

// Read turns raw statement bytes into a cell grid
func Read(data []byte, format Format) (*Grid, error) {
	switch format {
	case FormatCSV:
		return readCSV(data)
	case FormatXLSX:
		return readXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, format)
	}
}

func readCSV(data []byte) (*Grid, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyStatement
	}
	return &Grid{Rows: rows}, nil
}

func readXLSX(data []byte) (*Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyStatement
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyStatement
	}
	return &Grid{Rows: rows}, nil
}

// FindHeader scans the leading rows for one containing the required
// columns (date, time, type, description, amount) and returns its index
// plus the resolved column map.
func (g *Grid) FindHeader() (int, *ColumnMap, error) {
	limit := len(g.Rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}

	for i := 0; i < limit; i++ {
		if cm, ok := matchHeaderRow(g.Rows[i]); ok {
			return i, cm, nil
		}
	}
	return 0, nil, ErrHeaderNotFound
}

func matchHeaderRow(row []string) (*ColumnMap, bool) {
	cm := &ColumnMap{
		Date: -1, Time: -1, Type: -1, Description: -1, Amount: -1,
		Ref: -1, Balance: -1, Commissions: -1, Fees: -1,
	}

	for idx, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		for key, candidates := range columnCandidates {
			matched := false
			for _, cand := range candidates {
				if name == cand {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
			switch key {
			case "date":
				if cm.Date < 0 {
					cm.Date = idx
				}
			case "time":
				if cm.Time < 0 {
					cm.Time = idx
				}
			case "type":
				if cm.Type < 0 {
					cm.Type = idx
				}
			case "description":
				if cm.Description < 0 {
					cm.Description = idx
				}
			case "amount":
				if cm.Amount < 0 {
					cm.Amount = idx
				}
			case "ref":
				if cm.Ref < 0 {
					cm.Ref = idx
				}
			case "balance":
				if cm.Balance < 0 {
					cm.Balance = idx
				}
			case "commissions":
				if cm.Commissions < 0 {
					cm.Commissions = idx
				}
			case "fees":
				if cm.Fees < 0 {
					cm.Fees = idx
				}
			}
		}
	}

	ok := cm.Date >= 0 && cm.Time >= 0 && cm.Type >= 0 && cm.Description >= 0 && cm.Amount >= 0
	return cm, ok
}

// Cell returns the cell at the given column index, or "" when the row is
// too short or the index is unresolved.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// serialEpoch is the spreadsheet serial-number day zero (1899-12-30).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"1/2/06",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02",
	"2-Jan-06",
}

var timeLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
}

// ParseRowTime combines a date cell and a time cell into one UTC instant.
// Both spreadsheet serial numbers and common text formats are accepted.
func ParseRowTime(dateCell, timeCell string) (time.Time, error) {
	day, err := parseDateCell(dateCell)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := parseTimeCell(timeCell)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(clock), nil
}

func parseDateCell(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date cell", ErrInvalidDate)
	}

	// Spreadsheet serial number, possibly with a fractional day part.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, fmt.Errorf("%w: serial %q", ErrInvalidDate, s)
		}
		days := math.Floor(serial)
		return serialEpoch.AddDate(0, 0, int(days)), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidDate, s)
}

func parseTimeCell(cell string) (time.Duration, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, nil
	}

	// Serial fraction of a day.
	if frac, err := strconv.ParseFloat(s, 64); err == nil {
		if frac < 0 || frac >= 1 {
			return 0, fmt.Errorf("%w: time serial %q", ErrInvalidDate, s)
		}
		return time.Duration(frac * 24 * float64(time.Hour)), nil
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("%w: time %q", ErrInvalidDate, s)
}

// ParseAmount parses a numeric cell tolerating currency symbols, thousands
// separators and accounting-style parentheses for negatives.
func ParseAmount(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", "%", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
