package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/finsight/internal/domain"
)

func sampleVanguardGrid() [][]string {
	return [][]string{
		{"ISA", "Other"},
		{"Cash Transactions", ""},
		{"Date", "Details", "Amount"},
		{"2023-01-02", "Regular Deposit", "500.00"},
		{"2023-01-20", "Withdrawal to bank", "-50.00"},
		{"Balance", "1000.00"},
		{"Investment Transactions", ""},
		{"Date", "InvestmentName", "Quantity", "Cost"},
		{"2023-01-05", "LifeStrategy 100% Equity Fund - Accumulation", "10.5", "450.00"},
		{"2023-02-10", "LifeStrategy 100% Equity Fund - Accumulation", "-5.0", "-220.00"},
	}
}

func TestExtractVanguardCash(t *testing.T) {
	rows, err := extractVanguardCash(sampleVanguardGrid())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.TxDeposit, rows[0].Kind)
	assert.InDelta(t, 500.00, rows[0].Value, 1e-9)
	assert.Equal(t, domain.TxWithdraw, rows[1].Kind)
	assert.InDelta(t, 50.00, rows[1].Value, 1e-9)
}

func TestExtractVanguardInvestments(t *testing.T) {
	rows, err := extractVanguardInvestments(sampleVanguardGrid())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.TxBuy, rows[0].Kind)
	assert.Equal(t, "0P0000TKZO.L", rows[0].Ticker)
	assert.InDelta(t, 10.5, rows[0].Shares, 1e-9)
	assert.InDelta(t, 450.00, rows[0].Value, 1e-9)

	assert.Equal(t, domain.TxSell, rows[1].Kind)
	assert.InDelta(t, 5.0, rows[1].Shares, 1e-9)
	assert.InDelta(t, 220.00, rows[1].Value, 1e-9)
}

func TestSortImportRowsByDate(t *testing.T) {
	cash, err := extractVanguardCash(sampleVanguardGrid())
	require.NoError(t, err)
	inv, err := extractVanguardInvestments(sampleVanguardGrid())
	require.NoError(t, err)

	rows := append(cash, inv...)
	sortImportRowsByDate(rows)
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].Date.Before(rows[i-1].Date))
	}
}
