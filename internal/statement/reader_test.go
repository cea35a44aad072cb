package statement

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Account Statement for 123-456789
Cash Balance,,,,,

DATE,TIME,TYPE,REF #,DESCRIPTION,COMMISSIONS,MISC FEES,AMOUNT,BALANCE
1/17/25,09:31:22,TRD,1001,BOT +1 SPX 100 17 JAN 25 4500 CALL CBOE,-0.65,-0.42,"-2,325.00","47,675.00"
1/17/25,10:02:05,TRD,1002,SOLD -1 SPX 100 17 JAN 25 4500 CALL CBOE,-0.65,-0.42,"2,410.00","50,085.00"
`

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("statement.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = DetectFormat("Statement.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = DetectFormat("statement.pdf")
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestReadUnknownFormat(t *testing.T) {
	_, err := Read([]byte("x"), Format("parquet"))
	assert.ErrorIs(t, err, ErrUnrecognizedFormat)
}

func TestReadCSVAndFindHeader(t *testing.T) {
	grid, err := Read([]byte(sampleCSV), FormatCSV)
	require.NoError(t, err)

	idx, cols, err := grid.FindHeader()
	require.NoError(t, err)

	// The header sits below the account preamble. The csv reader drops
	// the blank separator line.
	assert.Equal(t, 2, idx)
	assert.Equal(t, 0, cols.Date)
	assert.Equal(t, 1, cols.Time)
	assert.Equal(t, 2, cols.Type)
	assert.Equal(t, 3, cols.Ref)
	assert.Equal(t, 4, cols.Description)
	assert.Equal(t, 5, cols.Commissions)
	assert.Equal(t, 6, cols.Fees)
	assert.Equal(t, 7, cols.Amount)
	assert.Equal(t, 8, cols.Balance)
}

func TestFindHeaderNotFound(t *testing.T) {
	grid, err := Read([]byte("a,b,c\n1,2,3\n"), FormatCSV)
	require.NoError(t, err)

	_, _, err = grid.FindHeader()
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestFindHeaderRequiresAllMandatoryColumns(t *testing.T) {
	// DESCRIPTION and AMOUNT alone are not enough.
	grid, err := Read([]byte("DESCRIPTION,AMOUNT\nfoo,1\n"), FormatCSV)
	require.NoError(t, err)

	_, _, err = grid.FindHeader()
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestFindHeaderSynonyms(t *testing.T) {
	grid, err := Read([]byte("Trade Date,Exec Time,Action,Details,Net Amount\n"), FormatCSV)
	require.NoError(t, err)

	idx, cols, err := grid.FindHeader()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 0, cols.Date)
	assert.Equal(t, 1, cols.Time)
	assert.Equal(t, 2, cols.Type)
	assert.Equal(t, 3, cols.Description)
	assert.Equal(t, 4, cols.Amount)
	assert.Equal(t, -1, cols.Ref)
}

func TestFindHeaderScanBounded(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("preamble,line\n")
	}
	b.WriteString("DATE,TIME,TYPE,DESCRIPTION,AMOUNT\n")

	grid, err := Read([]byte(b.String()), FormatCSV)
	require.NoError(t, err)

	// Header beyond the scan limit is not found.
	_, _, err = grid.FindHeader()
	assert.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestParseRowTimeText(t *testing.T) {
	ts, err := ParseRowTime("1/17/25", "09:31:22")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 17, 9, 31, 22, 0, time.UTC), ts)

	ts, err = ParseRowTime("01/17/2025", "9:31 AM")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 17, 9, 31, 0, 0, time.UTC), ts)

	ts, err = ParseRowTime("2025-01-17", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC), ts)
}

func TestParseRowTimeSerialNumbers(t *testing.T) {
	// 45674 days after 1899-12-30 is 2025-01-17.
	ts, err := ParseRowTime("45674", "0.5")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 17, 12, 0, 0, 0, time.UTC), ts)
}

func TestParseRowTimeInvalid(t *testing.T) {
	_, err := ParseRowTime("not-a-date", "09:31:22")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseRowTime("1/17/25", "half past nine")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseRowTime("", "09:31:22")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"-2,325.00", -2325, true},
		{"$1,234.56", 1234.56, true},
		{"(500)", -500, true},
		{"0.65", 0.65, true},
		{"", 0, false},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}

func TestCellOutOfRange(t *testing.T) {
	row := []string{"a", " b "}
	assert.Equal(t, "a", Cell(row, 0))
	assert.Equal(t, "b", Cell(row, 1))
	assert.Equal(t, "", Cell(row, 5))
	assert.Equal(t, "", Cell(row, -1))
}
