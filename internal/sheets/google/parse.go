package google

import (
	"fmt"
	"strings"
	"time"

	"esuvi/internal/core"
)

// Column order of the transactions sheet.
var header = []string{"ID", "Owner", "Date", "Type", "Amount", "Description", "Category"}

func rowValues(tx core.Transaction, owner string) []any {
	return []any{
		tx.ID,
		owner,
		tx.Date.UTC().Format(time.RFC3339Nano),
		string(tx.Type),
		tx.Amount.String(),
		tx.Description,
		tx.Category,
	}
}

// parseRows converts a values matrix into the owner's transactions. The
// header row and rows that do not parse are skipped; skipped counts the
// latter.
func parseRows(values [][]any, owner string) (txs []core.Transaction, skipped int) {
	for i, raw := range values {
		cols := toStrings(raw)
		if i == 0 && len(cols) > 0 && strings.EqualFold(cols[0], header[0]) {
			continue
		}
		if isBlank(cols) {
			continue
		}
		tx, err := parseRow(cols)
		if err != nil {
			skipped++
			continue
		}
		if tx.Owner != owner {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped
}

func parseRow(cols []string) (core.Transaction, error) {
	if len(cols) < len(header) {
		return core.Transaction{}, fmt.Errorf("row has %d columns, want %d", len(cols), len(header))
	}
	date, err := time.Parse(time.RFC3339Nano, cols[2])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date: %w", err)
	}
	txType, err := core.ParseTransactionType(cols[3])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseMoney(cols[4])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", cols[4], err)
	}
	return core.Transaction{
		ID:          cols[0],
		Owner:       cols[1],
		Date:        date,
		Type:        txType,
		Amount:      amount,
		Description: cols[5],
		Category:    cols[6],
	}, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}
