package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"esuvi/internal/core"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := `
finance:
  maxTransactions: 2
  categories:
    income: [salary]
    expense: [food, rent]
chat:
  temperature: 1
auth:
  publicFeatures: [login, finance]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s := newTestSettings(t)
	if err := s.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if got := s.IntOr(CategoryFinance, KeyMaxTransactions, 0); got != 2 {
		t.Errorf("maxTransactions = %d, want 2", got)
	}
	if got := s.Categories(core.Expense); len(got) != 2 || got[1] != "rent" {
		t.Errorf("expense categories = %v", got)
	}
	if got := s.FloatOr(CategoryChat, KeyTemperature, 0); got != 1 {
		t.Errorf("temperature = %v, want 1", got)
	}
	if s.RequiresIdentity(FeatureFinance) {
		t.Error("finance should be public after override")
	}
}

func TestApply_MergesRecords(t *testing.T) {
	s := newTestSettings(t)
	if err := s.Apply([]byte("finance:\n  categories:\n    income: [salary, bonus]\n")); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := s.Categories(core.Income); len(got) != 2 || got[1] != "bonus" {
		t.Errorf("income categories = %v", got)
	}
	if got := s.Categories(core.Expense); len(got) != 5 {
		t.Errorf("expense categories = %v, want the 5 defaults kept", got)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	s := newTestSettings(t)
	if err := s.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Errorf("LoadFile() error = %v, want nil", err)
	}
}

func TestApply_ReportsAllFailures(t *testing.T) {
	s := newTestSettings(t)
	err := s.Apply([]byte(`
finance:
  budget: 10
  currency: EUR
ui:
  theme: 3
`))
	if err == nil {
		t.Fatal("Apply() error = nil")
	}
	if !errors.Is(err, core.ErrNotFound) || !errors.Is(err, core.ErrTypeMismatch) {
		t.Errorf("Apply() error = %v, want both NotFound and TypeMismatch", err)
	}
	if got := s.StringOr(CategoryFinance, KeyCurrency, ""); got != "EUR" {
		t.Errorf("valid key not applied, currency = %q", got)
	}
}

func TestApply_Malformed(t *testing.T) {
	s := newTestSettings(t)
	if err := s.Apply([]byte("finance: [unterminated")); err == nil {
		t.Error("Apply() error = nil for malformed YAML")
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := newTestSettings(t)
	if err := s.Set(CategoryFinance, KeyCurrency, "EUR"); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(CategoryAuth, KeyPublicFeatures, []string{"login", "chat"}); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loaded := newTestSettings(t)
	if err := loaded.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got, _ := loaded.String(CategoryFinance, KeyCurrency); got != "EUR" {
		t.Errorf("currency = %q, want EUR", got)
	}
	if !loaded.RequiresIdentity(FeatureFinance) || loaded.RequiresIdentity(FeatureChat) {
		t.Error("publicFeatures not restored")
	}
	if got, _ := loaded.Float(CategoryChat, KeyTemperature); got != 0.7 {
		t.Errorf("temperature = %v, want 0.7", got)
	}
}
