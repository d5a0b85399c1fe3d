package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{"expense", Expense, true},
		{" Expense ", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q expected ErrInvalidType, got %v", tc.in, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	good := Transaction{
		Type:        Expense,
		Amount:      Money{Cents: 100},
		Description: "lunch",
		Category:    "food",
		Date:        date,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "gift", Amount: Money{Cents: 1}, Description: "a", Category: "c", Date: date},
		{Type: Income, Amount: Money{Cents: 0}, Description: "a", Category: "c", Date: date},
		{Type: Income, Amount: Money{Cents: -5}, Description: "a", Category: "c", Date: date},
		{Type: Income, Amount: Money{Cents: 1}, Description: "  ", Category: "c", Date: date},
		{Type: Income, Amount: Money{Cents: 1}, Description: strings.Repeat("x", 201), Category: "c", Date: date},
		{Type: Income, Amount: Money{Cents: 1}, Description: "a", Category: "", Date: date},
		{Type: Income, Amount: Money{Cents: 1}, Description: "a", Category: "c"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionSigned(t *testing.T) {
	in := Transaction{Type: Income, Amount: Money{Cents: 250}}
	out := Transaction{Type: Expense, Amount: Money{Cents: 250}}
	if in.Signed().Cents != 250 {
		t.Fatalf("income signed = %d", in.Signed().Cents)
	}
	if out.Signed().Cents != -250 {
		t.Fatalf("expense signed = %d", out.Signed().Cents)
	}
}
