package broker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/finsight/internal/domain"
)

const trading212Sample = `Action,Time,Ticker,No. of shares,Currency (Price / share),Total,Notes
Deposit,2023-01-02 08:00:00,,,GBP,1000.00,
Market buy,2023-01-03 10:15:00,AAPL,2.5,USD,500.00,
Market sell,2023-02-01 14:00:00,AAPL,1.0,USD,210.00,
Dividend (Dividend),2023-02-15 00:00:00,AAPL,,USD,1.20,
Market buy,2023-03-01 09:00:00,VOD,10,GBX,100.00,
`

func TestParseTrading212CSVClassifiesRows(t *testing.T) {
	rows, err := ParseTrading212CSV(strings.NewReader(trading212Sample))
	require.NoError(t, err)
	require.Len(t, rows, 4) // dividend row skipped

	assert.Equal(t, domain.TxDeposit, rows[0].Kind)
	assert.InDelta(t, 1000.00, rows[0].Value, 1e-9)

	assert.Equal(t, domain.TxBuy, rows[1].Kind)
	assert.Equal(t, "AAPL", rows[1].Ticker)
	assert.InDelta(t, 2.5, rows[1].Shares, 1e-9)

	assert.Equal(t, domain.TxSell, rows[2].Kind)
	assert.InDelta(t, 1.0, rows[2].Shares, 1e-9)

	assert.Equal(t, domain.TxBuy, rows[3].Kind)
	assert.Equal(t, "VOD.L", rows[3].Ticker)
	assert.Equal(t, domain.Currency("GBP"), rows[3].Currency)
}

func TestParseTrading212CSVMissingColumnErrors(t *testing.T) {
	_, err := ParseTrading212CSV(strings.NewReader("Action,Time\nDeposit,2023-01-01\n"))
	assert.Error(t, err)
}
