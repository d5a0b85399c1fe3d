package core

import "time"

// Summary holds the figures shown on the finance tab.
type Summary struct {
	Balance        Money `json:"balance"`
	MonthlyIncome  Money `json:"monthly_income"`
	MonthlyExpense Money `json:"monthly_expense"`
}

// Summarize derives balance and the income/expense totals of the calendar
// month containing asOf. Dates are compared in asOf's location.
func Summarize(txs []Transaction, asOf time.Time) Summary {
	var s Summary
	year, month, _ := asOf.Date()
	loc := asOf.Location()
	for _, t := range txs {
		s.Balance = s.Balance.Add(t.Signed())

		y, m, _ := t.Date.In(loc).Date()
		if y != year || m != month {
			continue
		}
		switch t.Type {
		case Income:
			s.MonthlyIncome = s.MonthlyIncome.Add(t.Amount)
		case Expense:
			s.MonthlyExpense = s.MonthlyExpense.Add(t.Amount)
		}
	}
	return s
}
