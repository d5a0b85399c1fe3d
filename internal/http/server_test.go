package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"esuvi/internal/chat"
	"esuvi/internal/core"
	"esuvi/internal/identity"
	"esuvi/internal/ledger"
	"esuvi/internal/log"
	"esuvi/internal/settings"
	"esuvi/internal/storage/memory"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

type failingStore struct{}

func (failingStore) Put(context.Context, core.Transaction) error {
	return errors.New("disk full")
}

func (failingStore) ListAll(context.Context) ([]core.Transaction, error) {
	return nil, nil
}

// flakyStore is a memory store whose reads can be made to fail.
type flakyStore struct {
	*memory.Store
	listErr error
}

func (s *flakyStore) ListAll(ctx context.Context) ([]core.Transaction, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.ListAll(ctx)
}

type fixture struct {
	srv   *Server
	store *memory.Store
	cfg   *settings.Settings
	now   time.Time
}

func newFixture(t *testing.T, store ledger.Store) *fixture {
	t.Helper()
	cfg := settings.NewDefault(log.Discard())
	f := &fixture{cfg: cfg, now: fixedNow}
	now := func() time.Time { return f.now }
	sessions := identity.NewSessions(cfg, identity.WithClock(now))

	if store == nil {
		f.store = memory.New()
		store = f.store
	}

	srv := NewServer(":0", Deps{
		Settings: cfg,
		Ledger:   ledger.New(cfg, store, sessions, ledger.WithClock(now)),
		Sessions: sessions,
		Chat:     chat.New(cfg, chat.Echo{}, sessions, chat.WithClock(now)),
		Now:      now,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	f.srv = srv
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	f.signInAs(t, "u1")
}

func (f *fixture) signInAs(t *testing.T, userID string) {
	t.Helper()
	body := `{"userId":"` + userID + `","email":"` + userID + `@example.com"}`
	if rr := f.do(t, http.MethodPost, "/api/session", body); rr.Code != http.StatusOK {
		t.Fatalf("sign in status = %d body = %s", rr.Code, rr.Body)
	}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndHeaders(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestAddTransaction_RequiresSession(t *testing.T) {
	f := newFixture(t, nil)
	rr := f.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"10","description":"Lunch","category":"food"}`)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	body := decode[errorBody](t, rr)
	if body.Error != core.UserMessage(core.ErrUnauthorized) {
		t.Errorf("error = %q", body.Error)
	}
}

func TestTransactionsFlow(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	rr := f.do(t, http.MethodPost, "/api/transactions",
		`{"type":"income","amount":"2500.50","description":"June salary","category":"salary"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status = %d body = %s", rr.Code, rr.Body)
	}
	tx := decode[core.Transaction](t, rr)
	if tx.Amount.Cents != 250050 || tx.Owner != "u1" {
		t.Errorf("tx = %+v", tx)
	}

	rr = f.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"50.50","description":"Groceries","category":"food","date":"2024-05-20"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status = %d body = %s", rr.Code, rr.Body)
	}

	list := decode[transactionsResponse](t, f.do(t, http.MethodGet, "/api/transactions", ""))
	if list.Count != 2 || list.Transactions[0].Description != "Groceries" {
		t.Errorf("list = %+v, want newest insertion first", list)
	}

	sum := decode[summaryResponse](t, f.do(t, http.MethodGet, "/api/summary", ""))
	if sum.AsOf != "2024-06-15" || sum.Balance.Cents != 245000 || sum.MonthlyIncome.Cents != 250050 || sum.MonthlyExpense.Cents != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Currency != "USD" {
		t.Errorf("currency = %q", sum.Currency)
	}

	may := decode[summaryResponse](t, f.do(t, http.MethodGet, "/api/summary?asOf=2024-05-01", ""))
	if may.MonthlyExpense.Cents != 5050 || may.MonthlyIncome.Cents != 0 {
		t.Errorf("May summary = %+v", may)
	}

	if rr := f.do(t, http.MethodGet, "/api/summary?asOf=June", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad asOf status = %d, want 400", rr.Code)
	}
}

func TestAddTransaction_Errors(t *testing.T) {
	tests := []struct {
		name  string
		store ledger.Store
		body  string
		want  int
	}{
		{"invalid amount", nil, `{"type":"expense","amount":"-3","description":"x","category":"food"}`, http.StatusUnprocessableEntity},
		{"unknown category", nil, `{"type":"expense","amount":"3","description":"x","category":"yachts"}`, http.StatusUnprocessableEntity},
		{"malformed json", nil, `{"type":`, http.StatusBadRequest},
		{"bad date", nil, `{"type":"expense","amount":"3","description":"x","category":"food","date":"15/06/2024"}`, http.StatusBadRequest},
		{"store failure", failingStore{}, `{"type":"expense","amount":"3","description":"x","category":"food"}`, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.store)
			f.signIn(t)
			rr := f.do(t, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body)
			}
			if decode[errorBody](t, rr).Error == "" {
				t.Error("error message missing")
			}
			if n := f.srv.ledger.Len(); n != 0 {
				t.Errorf("ledger has %d entries, want 0", n)
			}
		})
	}
}

func TestAddTransaction_FormEncoded(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions",
		strings.NewReader("type=expense&amount=12.30&description=Bus&category=transport"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)
	f.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"3","description":"Coffee","category":"food"}`)

	if rr := f.do(t, http.MethodDelete, "/api/session", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("sign out status = %d", rr.Code)
	}
	state := decode[sessionResponse](t, f.do(t, http.MethodGet, "/api/session", ""))
	if state.SignedIn || state.Transactions != 0 {
		t.Errorf("after sign out = %+v", state)
	}

	// signing back in reloads from the store
	f.signIn(t)
	state = decode[sessionResponse](t, f.do(t, http.MethodGet, "/api/session", ""))
	if !state.SignedIn || state.UserID != "u1" || state.Transactions != 1 {
		t.Errorf("after sign in = %+v", state)
	}

	if rr := f.do(t, http.MethodPost, "/api/session", `{"userId":"  "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty user status = %d, want 422", rr.Code)
	}
}

func TestSessionExpiry_DropsMemory(t *testing.T) {
	f := newFixture(t, nil)
	f.signInAs(t, "alice")
	f.do(t, http.MethodPost, "/api/transactions",
		`{"type":"income","amount":"10","description":"alice pay","category":"salary"}`)
	f.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`)

	// auth.sessionTimeout defaults to 60 minutes
	f.now = f.now.Add(2 * time.Hour)

	for _, path := range []string{"/api/transactions", "/api/summary", "/api/chat"} {
		if rr := f.do(t, http.MethodGet, path, ""); rr.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401 (body %s)", path, rr.Code, rr.Body)
		}
	}
	state := decode[sessionResponse](t, f.do(t, http.MethodGet, "/api/session", ""))
	if state.SignedIn || state.Transactions != 0 {
		t.Errorf("after expiry = %+v", state)
	}
	if n := f.srv.ledger.Len(); n != 0 {
		t.Errorf("ledger holds %d records after expiry", n)
	}
	if h := f.srv.chat.History(); len(h) != 0 {
		t.Errorf("chat history after expiry = %+v", h)
	}

	// finance made public: anonymous reads work but see nothing of alice
	if err := f.cfg.Set(settings.CategoryAuth, settings.KeyPublicFeatures,
		[]string{"login", "register", "finance"}); err != nil {
		t.Fatal(err)
	}
	list := decode[transactionsResponse](t, f.do(t, http.MethodGet, "/api/transactions", ""))
	if list.Count != 0 {
		t.Errorf("anonymous list = %+v", list)
	}
}

func TestSignIn_LoadFailureStartsEmpty(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	f := newFixture(t, store)
	f.signInAs(t, "alice")
	f.do(t, http.MethodPost, "/api/transactions",
		`{"type":"income","amount":"10","description":"alice pay","category":"salary"}`)

	store.listErr = errors.New("offline")
	rr := f.do(t, http.MethodPost, "/api/session", `{"userId":"bob"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("sign in status = %d, want 503", rr.Code)
	}

	list := decode[transactionsResponse](t, f.do(t, http.MethodGet, "/api/transactions", ""))
	if list.Count != 0 {
		t.Errorf("bob sees %+v", list.Transactions)
	}
	state := decode[sessionResponse](t, f.do(t, http.MethodGet, "/api/session", ""))
	if state.UserID != "bob" || state.Transactions != 0 {
		t.Errorf("state = %+v", state)
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, http.MethodPost, "/api/register", `{"userId":"u2","password":"short"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("weak password status = %d, want 422", rr.Code)
	}
	if !strings.Contains(decode[errorBody](t, rr).Error, "password") {
		t.Errorf("error = %s", rr.Body)
	}

	rr = f.do(t, http.MethodPost, "/api/register", `{"userId":"u2","password":"Str0ng!Pass"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body)
	}
	if !decode[sessionResponse](t, rr).SignedIn {
		t.Error("register should sign in")
	}
}

func TestPurge(t *testing.T) {
	f := newFixture(t, nil)
	f.signIn(t)
	f.do(t, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"3","description":"Coffee","category":"food"}`)

	if rr := f.do(t, http.MethodDelete, "/api/transactions", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("purge status = %d body = %s", rr.Code, rr.Body)
	}
	stored, err := f.store.ListAll(identity.NewContext(context.Background(), identity.Identity{UserID: "u1"}))
	if err != nil || len(stored) != 0 {
		t.Errorf("store after purge = %v, %v", stored, err)
	}
}

func TestPurge_Unsupported(t *testing.T) {
	f := newFixture(t, failingStore{})
	f.signIn(t)
	if rr := f.do(t, http.MethodDelete, "/api/transactions", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	if rr := f.do(t, http.MethodPut, "/api/settings/auth/requireAuth", `{"value":false}`); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous set status = %d, want 401", rr.Code)
	}
	if !f.cfg.RequiresIdentity(settings.FeatureFinance) {
		t.Fatal("anonymous write changed auth.requireAuth")
	}
	f.signIn(t)

	rr := f.do(t, http.MethodGet, "/api/settings/finance/currency", "")
	if rr.Code != http.StatusOK || decode[settingResponse](t, rr).Value != "USD" {
		t.Errorf("get = %d %s", rr.Code, rr.Body)
	}

	if rr := f.do(t, http.MethodGet, "/api/settings/finance/nope", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing key status = %d, want 404", rr.Code)
	}

	if rr := f.do(t, http.MethodPut, "/api/settings/chat/maxMessages", `{"value":"many"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("type mismatch status = %d, want 422", rr.Code)
	}

	if rr := f.do(t, http.MethodPut, "/api/settings/chat/maxMessages", `{}`); rr.Code != http.StatusBadRequest {
		t.Errorf("missing value status = %d, want 400", rr.Code)
	}

	rr = f.do(t, http.MethodPut, "/api/settings/chat/maxMessages", `{"value":5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("set status = %d body = %s", rr.Code, rr.Body)
	}
	if got, _ := f.cfg.Int(settings.CategoryChat, settings.KeyMaxMessages); got != 5 {
		t.Errorf("maxMessages = %d, want 5", got)
	}

	rr = f.do(t, http.MethodPut, "/api/settings/auth/publicFeatures", `{"value":["login","register","chat"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("set list status = %d body = %s", rr.Code, rr.Body)
	}
	if f.cfg.RequiresIdentity(settings.FeatureChat) {
		t.Error("chat should now be public")
	}

	warnings := decode[warningsResponse](t, f.do(t, http.MethodGet, "/api/settings/warnings", ""))
	found := false
	for _, w := range warnings.Warnings {
		if strings.Contains(w, "maxMessages") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a maxMessages warning", warnings.Warnings)
	}

	all := decode[map[string]map[string]any](t, f.do(t, http.MethodGet, "/api/settings", ""))
	if _, ok := all["finance"]["categories"]; !ok {
		t.Errorf("snapshot missing finance.categories: %v", all)
	}
}

func TestChatEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	if rr := f.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous chat status = %d, want 401", rr.Code)
	}

	f.signIn(t)
	if rr := f.do(t, http.MethodPost, "/api/chat", `{"message":"   "}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty message status = %d, want 422", rr.Code)
	}

	rr := f.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body)
	}
	if got := decode[chatReplyResponse](t, rr).Reply.Content; got != chat.EchoReply {
		t.Errorf("reply = %q", got)
	}

	history := decode[chatHistoryResponse](t, f.do(t, http.MethodGet, "/api/chat", ""))
	if len(history.Messages) != 2 {
		t.Errorf("history = %+v", history.Messages)
	}

	f.do(t, http.MethodDelete, "/api/chat", "")
	history = decode[chatHistoryResponse](t, f.do(t, http.MethodGet, "/api/chat", ""))
	if len(history.Messages) != 0 {
		t.Errorf("history after reset = %+v", history.Messages)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := settings.NewDefault(log.Discard())
	sessions := identity.NewSessions(cfg)
	srv := NewServer(":0", Deps{
		Settings:          cfg,
		Ledger:            ledger.New(cfg, memory.New(), sessions),
		Sessions:          sessions,
		Chat:              chat.New(cfg, nil, sessions),
		RequestsPerMinute: 2,
	})
	defer srv.Shutdown(context.Background())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/chat", nil))
		codes = append(codes, rr.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want the third write refused", codes)
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("reads are not limited, got %d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.ErrInvalidRecord, http.StatusUnprocessableEntity},
		{core.ErrTypeMismatch, http.StatusUnprocessableEntity},
		{core.ErrPersistenceFailed, http.StatusServiceUnavailable},
		{core.ErrNotFound, http.StatusNotFound},
		{chat.ErrCompletionFailed, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
	if got := userMessage(errors.New("secret detail")); strings.Contains(got, "secret") {
		t.Errorf("internal errors must not leak: %q", got)
	}
}
