package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"esuvi/internal/core"
	"esuvi/internal/identity"
)

func tx(id string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Type:        core.Income,
		Amount:      core.Money{Cents: 10000},
		Description: "pay",
		Category:    "salary",
		Date:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestStore_PutList(t *testing.T) {
	s := New()
	ctx := identity.NewContext(context.Background(), identity.Identity{UserID: "u1"})

	if err := s.Put(ctx, tx("1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, tx("1")); err == nil {
		t.Error("Put() duplicate id should fail")
	}
	if err := s.Put(ctx, core.Transaction{ID: "bad"}); err == nil {
		t.Error("Put() invalid transaction should fail")
	}

	got, err := s.ListAll(ctx)
	if err != nil || len(got) != 1 || got[0].Owner != "u1" {
		t.Fatalf("ListAll() = %+v, %v", got, err)
	}
	if other, _ := s.ListAll(context.Background()); len(other) != 0 {
		t.Errorf("anonymous sees %d rows of u1", len(other))
	}
}

func TestStore_DeleteAll(t *testing.T) {
	s := New()
	u1 := identity.NewContext(context.Background(), identity.Identity{UserID: "u1"})
	u2 := identity.NewContext(context.Background(), identity.Identity{UserID: "u2"})
	_ = s.Put(u1, tx("1"))
	_ = s.Put(u2, tx("2"))

	if err := s.DeleteAll(u1); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.ListAll(u1); len(got) != 0 {
		t.Errorf("u1 still has %d", len(got))
	}
	if got, _ := s.ListAll(u2); len(got) != 1 {
		t.Errorf("u2 has %d, want 1", len(got))
	}
}

func TestStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.json")
	ctx := identity.NewContext(context.Background(), identity.Identity{UserID: "u1"})

	s, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if err := s.Put(ctx, tx("1")); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile() reopen error = %v", err)
	}
	got, _ := reopened.ListAll(ctx)
	if len(got) != 1 || got[0].Amount.Cents != 10000 || !got[0].Date.Equal(tx("1").Date) {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestNewFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFile(path); err == nil {
		t.Error("NewFile() should reject a corrupt snapshot")
	}
}
