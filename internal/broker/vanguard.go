package broker

import (
	"fmt"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"github.com/aristath/finsight/internal/domain"
)

// vanguardTickerMap translates Vanguard's free-text fund names to this
// system's ticker convention. New funds require a new entry here.
var vanguardTickerMap = map[string]string{
	"LifeStrategy 100% Equity Fund - Accumulation": "0P0000TKZO.L",
}

// ParseVanguardXLSX reads a Vanguard "Transaction History" statement
// export (the second worksheet, matching the provider's own layout)
// and returns its deposit/withdrawal/buy/sell rows, cash transactions
// first, sorted by date like the original export.
func ParseVanguardXLSX(path string) ([]ImportRow, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open vanguard statement: %w", err)
	}
	if len(file.Sheets) < 2 {
		return nil, fmt.Errorf("vanguard statement missing transactions sheet")
	}
	sheet := file.Sheets[1]

	var grid [][]string
	err = sheet.ForEachRow(func(row *xlsx.Row) error {
		var cells []string
		err := row.ForEachCell(func(cell *xlsx.Cell) error {
			cells = append(cells, strings.TrimSpace(cell.Value))
			return nil
		})
		if err != nil {
			return err
		}
		grid = append(grid, cells)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read vanguard statement: %w", err)
	}

	cashRows, err := extractVanguardCash(grid)
	if err != nil {
		return nil, err
	}
	invRows, err := extractVanguardInvestments(grid)
	if err != nil {
		return nil, err
	}

	rows := append(cashRows, invRows...)
	sortImportRowsByDate(rows)
	return rows, nil
}

func findRowIndex(grid [][]string, marker string) int {
	for i, row := range grid {
		for _, cell := range row {
			if cell == marker {
				return i
			}
		}
	}
	return -1
}

func colIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func extractVanguardCash(grid [][]string) ([]ImportRow, error) {
	start := findRowIndex(grid, "Cash Transactions")
	end := findRowIndex(grid, "Balance")
	if start == -1 || end == -1 || end <= start+1 {
		return nil, nil
	}
	header := grid[start+1]
	dateCol := colIndex(header, "Date")
	detailsCol := colIndex(header, "Details")
	amountCol := colIndex(header, "Amount")
	if dateCol == -1 || detailsCol == -1 || amountCol == -1 {
		return nil, fmt.Errorf("vanguard cash section missing expected columns")
	}

	var rows []ImportRow
	for _, record := range grid[start+2 : end] {
		details := valueAt(record, detailsCol)
		var kind domain.TransactionKind
		switch {
		case strings.Contains(details, "Deposit"):
			kind = domain.TxDeposit
		case strings.Contains(details, "Withdrawal"):
			kind = domain.TxWithdraw
		default:
			continue
		}
		date, err := parseVanguardDate(valueAt(record, dateCol))
		if err != nil {
			return nil, err
		}
		amount, err := parseFloat(valueAt(record, amountCol))
		if err != nil {
			return nil, fmt.Errorf("parse vanguard cash amount: %w", err)
		}
		if amount < 0 {
			amount = -amount
		}
		rows = append(rows, ImportRow{Kind: kind, Value: amount, Date: date})
	}
	return rows, nil
}

func extractVanguardInvestments(grid [][]string) ([]ImportRow, error) {
	start := findRowIndex(grid, "Investment Transactions")
	if start == -1 || start+1 >= len(grid) {
		return nil, nil
	}
	header := grid[start+1]
	dateCol := colIndex(header, "Date")
	nameCol := colIndex(header, "InvestmentName")
	qtyCol := colIndex(header, "Quantity")
	costCol := colIndex(header, "Cost")
	if dateCol == -1 || nameCol == -1 || qtyCol == -1 || costCol == -1 {
		return nil, fmt.Errorf("vanguard investment section missing expected columns")
	}

	var rows []ImportRow
	for _, record := range grid[start+2:] {
		name := valueAt(record, nameCol)
		if name == "" {
			continue
		}
		ticker, ok := vanguardTickerMap[name]
		if !ok {
			continue
		}
		qty, err := parseFloat(valueAt(record, qtyCol))
		if err != nil {
			return nil, fmt.Errorf("parse vanguard quantity: %w", err)
		}
		cost, err := parseFloat(valueAt(record, costCol))
		if err != nil {
			return nil, fmt.Errorf("parse vanguard cost: %w", err)
		}
		date, err := parseVanguardDate(valueAt(record, dateCol))
		if err != nil {
			return nil, err
		}

		kind := domain.TxBuy
		if qty < 0 {
			kind = domain.TxSell
			qty, cost = -qty, -cost
		}
		rows = append(rows, ImportRow{Kind: kind, Ticker: ticker, Shares: qty, Value: cost, Date: date})
	}
	return rows, nil
}

func valueAt(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func parseVanguardDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse vanguard date %q: %w", s, err)
	}
	return t, nil
}

func sortImportRowsByDate(rows []ImportRow) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].Date.Before(rows[j-1].Date); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}
