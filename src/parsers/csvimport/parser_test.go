package csvimport

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return v
}

func TestParseValidStatement(t *testing.T) {
	input := strings.Join([]string{
		"date,type,symbol,asset_type,name,exchange,quantity,price,fees",
		"2025-01-10,buy,INFY,stock,Infosys,NSE,10,1500.50,20",
		"2025-02-15,sell,INFY,stock,Infosys,NSE,4,1600,0",
	}, "\n")

	txs, issues, err := NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, txs, 2)

	assert.Equal(t, "buy", txs[0].TransactionType)
	assert.Equal(t, "INFY", txs[0].Symbol)
	assert.Equal(t, "stock", txs[0].AssetType)
	assert.Equal(t, "Infosys", txs[0].Name)
	assert.Equal(t, "NSE", txs[0].Exchange)
	assert.True(t, txs[0].Quantity.Equal(decimalFromString(t, "10")))
	assert.True(t, txs[0].Price.Equal(decimalFromString(t, "1500.50")))
	assert.True(t, txs[0].Fees.Equal(decimalFromString(t, "20")))
	assert.Equal(t, 2025, txs[0].TransactionDate.Year())

	assert.Equal(t, "sell", txs[1].TransactionType)
	assert.True(t, txs[1].Fees.IsZero())
}

func TestParseMatchesColumnsByName(t *testing.T) {
	// Reordered columns with extras must still parse.
	input := strings.Join([]string{
		"broker,price,symbol,irrelevant,quantity,type,date",
		"Zerodha,250,TCS,x,8,BUY,15-03-2025",
	}, "\n")

	txs, issues, err := NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, txs, 1)
	assert.Equal(t, "TCS", txs[0].Symbol)
	assert.Equal(t, "buy", txs[0].TransactionType)
	assert.Equal(t, "Zerodha", txs[0].Broker)
	assert.Equal(t, "stock", txs[0].AssetType, "asset_type defaults to stock")
}

func TestParseMissingRequiredColumn(t *testing.T) {
	input := "date,type,symbol,quantity\n2025-01-10,buy,INFY,10\n"

	_, _, err := NewParser().Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestParseReportsBadRowsAndKeepsGoing(t *testing.T) {
	input := strings.Join([]string{
		"date,type,symbol,quantity,price",
		"not-a-date,buy,INFY,10,1500",
		"2025-01-10,transfer,INFY,10,1500",
		"2025-01-10,buy,INFY,ten,1500",
		"2025-01-10,buy,INFY,10,1500",
	}, "\n")

	txs, issues, err := NewParser().Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Len(t, issues, 3)
	assert.Equal(t, 2, issues[0].Line)
	assert.Equal(t, 3, issues[1].Line)
	assert.Equal(t, 4, issues[2].Line)
	assert.Contains(t, issues[1].Message, "transfer")
}

func TestParseDecimalComma(t *testing.T) {
	// European exports quote comma decimals inside comma-separated files.
	quoted := "date,type,symbol,quantity,price\n" +
		"10-01-2025,buy,SAP,\"2,5\",\"101,25\"\n"

	txs, issues, err := NewParser().Parse(strings.NewReader(quoted))
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Quantity.Equal(decimalFromString(t, "2.5")))
	assert.True(t, txs[0].Price.Equal(decimalFromString(t, "101.25")))
}

func TestParseEmptyFile(t *testing.T) {
	_, _, err := NewParser().Parse(strings.NewReader(""))
	assert.Error(t, err)
}
