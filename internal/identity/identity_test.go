package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"esuvi/internal/log"
	"esuvi/internal/settings"
)

func TestStatic(t *testing.T) {
	if _, ok := Static{UserID: "u1"}.CurrentIdentity(); !ok {
		t.Error("Static with user should be signed in")
	}
	if _, ok := (Static{}).CurrentIdentity(); ok {
		t.Error("Static without user should not be signed in")
	}
	if _, ok := (Anonymous{}).CurrentIdentity(); ok {
		t.Error("Anonymous should not be signed in")
	}
}

func TestContext(t *testing.T) {
	ctx := NewContext(context.Background(), Identity{UserID: "u1", Email: "a@b.c"})
	id, ok := FromContext(ctx)
	if !ok || id.Email != "a@b.c" {
		t.Errorf("FromContext() = %+v, %v", id, ok)
	}
	if Owner(ctx) != "u1" {
		t.Errorf("Owner() = %q", Owner(ctx))
	}
	if Owner(context.Background()) != "" {
		t.Error("Owner() on empty context should be empty")
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestSessions(t *testing.T) {
	cfg := settings.NewDefault(log.Discard())
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSessions(cfg, WithClock(clock.Now))

	if _, ok := s.CurrentIdentity(); ok {
		t.Fatal("new Sessions should be empty")
	}
	if err := s.SignIn(Identity{UserID: "  "}); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("SignIn(blank) error = %v", err)
	}
	if err := s.SignIn(Identity{UserID: "u1"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	clock.t = clock.t.Add(59 * time.Minute)
	if id, ok := s.CurrentIdentity(); !ok || id.UserID != "u1" {
		t.Fatalf("CurrentIdentity() = %+v, %v before timeout", id, ok)
	}

	clock.t = clock.t.Add(time.Minute)
	if _, ok := s.CurrentIdentity(); ok {
		t.Fatal("session should expire after sessionTimeout")
	}
}

func TestSessions_NoTimeout(t *testing.T) {
	cfg := settings.NewDefault(log.Discard())
	if err := cfg.Set(settings.CategoryAuth, settings.KeySessionTimeout, 0); err != nil {
		t.Fatal(err)
	}
	clock := &fakeClock{t: time.Now()}
	s := NewSessions(cfg, WithClock(clock.Now))
	_ = s.SignIn(Identity{UserID: "u1"})

	clock.t = clock.t.Add(1000 * time.Hour)
	if _, ok := s.CurrentIdentity(); !ok {
		t.Error("session with timeout 0 should not expire")
	}

	s.SignOut()
	if _, ok := s.CurrentIdentity(); ok {
		t.Error("SignOut() should clear the session")
	}
}

func TestValidatePassword(t *testing.T) {
	cfg := settings.NewDefault(log.Discard())
	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"strong", "Secr3t!pass", false},
		{"too short", "Ab1!", true},
		{"no upper", "secr3t!pass", true},
		{"no lower", "SECR3T!PASS", true},
		{"no digit", "Secret!pass", true},
		{"no special", "Secr3tpass", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(cfg, tt.pw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrWeakPassword) {
				t.Errorf("error %v is not ErrWeakPassword", err)
			}
		})
	}
}

func TestValidatePassword_Relaxed(t *testing.T) {
	cfg := settings.NewDefault(log.Discard())
	err := cfg.Set(settings.CategoryAuth, settings.KeyPasswordRequirements, map[string]any{"minLength": 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := ValidatePassword(cfg, "abcd"); err != nil {
		t.Errorf("ValidatePassword() error = %v", err)
	}
}
