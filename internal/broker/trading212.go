package broker

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/finsight/internal/domain"
)

// trading212Actions maps the documented Trading212 "Action" column
// values to ledger kinds. Anything not listed here (dividends,
// interest, card transactions, ...) is not a ledger-mutating row and
// is skipped by ParseTrading212CSV.
var trading212Actions = map[string]domain.TransactionKind{
	"Deposit":      domain.TxDeposit,
	"Withdrawal":   domain.TxWithdraw,
	"Market buy":   domain.TxBuy,
	"Limit buy":    domain.TxBuy,
	"Stop buy":     domain.TxBuy,
	"Market sell":  domain.TxSell,
	"Limit sell":   domain.TxSell,
	"Stop sell":    domain.TxSell,
}

// ParseTrading212CSV reads a Trading212 statement export and returns
// its deposit/withdrawal/buy/sell rows in file order. GBX-quoted
// prices are treated as GBP, and LSE-listed tickers (GBP-denominated)
// get a ".L" suffix to match this system's ticker convention.
func ParseTrading212CSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read trading212 header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	required := []string{"Action", "Time", "Ticker", "No. of shares", "Currency (Price / share)", "Total"}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("trading212 csv missing column %q", name)
		}
	}

	var rows []ImportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read trading212 row: %w", err)
		}

		action := strings.TrimSpace(record[col["Action"]])
		kind, ok := trading212Actions[action]
		if !ok {
			continue
		}

		date, err := time.Parse("2006-01-02", record[col["Time"]][:10])
		if err != nil {
			return nil, fmt.Errorf("parse trading212 date %q: %w", record[col["Time"]], err)
		}

		currency := strings.TrimSpace(record[col["Currency (Price / share)"]])
		if currency == "GBX" {
			currency = "GBP"
		}

		ticker := strings.TrimSpace(record[col["Ticker"]])
		if currency == "GBP" && ticker != "" {
			ticker += ".L"
		}

		total, err := parseFloat(record[col["Total"]])
		if err != nil {
			return nil, fmt.Errorf("parse trading212 total %q: %w", record[col["Total"]], err)
		}

		row := ImportRow{Kind: kind, Ticker: ticker, Value: total, Currency: domain.Currency(currency), Date: date}
		if kind == domain.TxBuy || kind == domain.TxSell {
			shares, err := parseFloat(record[col["No. of shares"]])
			if err != nil {
				return nil, fmt.Errorf("parse trading212 shares %q: %w", record[col["No. of shares"]], err)
			}
			row.Shares = shares
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
