// Package http serves the JSON API used by the browser UI.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"esuvi/internal/chat"
	"esuvi/internal/core"
	"esuvi/internal/identity"
	"esuvi/internal/ledger"
	"esuvi/internal/log"
	"esuvi/internal/middleware/ratelimit"
	"esuvi/internal/middleware/security"
	"esuvi/internal/middleware/trace"
	"esuvi/internal/settings"
)

// Deps are the collaborators the handlers drive. Sessions must be the
// identity provider given to Ledger and Chat.
type Deps struct {
	Settings *settings.Settings
	Ledger   *ledger.Engine
	Sessions *identity.Sessions
	Chat     *chat.Conversation
	Logger   *log.Logger

	// RequestsPerMinute limits writes per client; 0 uses the default.
	RequestsPerMinute int
	// Now overrides time.Now for summaries.
	Now func() time.Time
}

// Server is the HTTP front of the ledger, settings and chat.
type Server struct {
	http.Server

	settings *settings.Settings
	ledger   *ledger.Engine
	sessions *identity.Sessions
	chat     *chat.Conversation
	logger   *log.Logger
	now      func() time.Time

	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		settings: deps.Settings,
		ledger:   deps.Ledger,
		sessions: deps.Sessions,
		chat:     deps.Chat,
		logger:   log.OrDiscard(deps.Logger).WithComponent(log.ComponentHTTP),
		now:      deps.Now,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RequestsPerMinute}),
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.tracer = trace.NewMiddleware(s.logger, security.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("DELETE /api/transactions", s.handlePurgeTransactions)
	mux.HandleFunc("GET /api/summary", s.handleSummary)

	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session", s.handleSignIn)
	mux.HandleFunc("DELETE /api/session", s.handleSignOut)
	mux.HandleFunc("POST /api/register", s.handleRegister)

	mux.HandleFunc("GET /api/settings", s.handleListSettings)
	mux.HandleFunc("GET /api/settings/warnings", s.handleSettingsWarnings)
	mux.HandleFunc("GET /api/settings/{category}/{key}", s.handleGetSetting)
	mux.HandleFunc("PUT /api/settings/{category}/{key}", s.handleSetSetting)

	mux.HandleFunc("GET /api/chat", s.handleChatHistory)
	mux.HandleFunc("POST /api/chat", s.handleChatSend)
	mux.HandleFunc("DELETE /api/chat", s.handleChatReset)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, security.ClientIP(r), log.FieldPath, r.URL.Path)
		MessageResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
	}, http.MethodPost, http.MethodPut, http.MethodDelete)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// authorize reports whether feature may be served to the caller. When the
// feature needs an identity and nobody is signed in, whatever an expired
// session left in memory is dropped and 401 is written.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, feature, op string) bool {
	if !s.settings.RequiresIdentity(feature) {
		return true
	}
	if _, ok := s.sessions.CurrentIdentity(); ok {
		return true
	}
	s.dropSessionState()
	s.fail(w, r, op, core.ErrUnauthorized)
	return false
}

// dropSessionState empties the in-memory ledger and chat. Durable storage is
// untouched.
func (s *Server) dropSessionState() {
	s.ledger.Clear()
	s.chat.Reset()
}

// fail logs err with the request-scoped logger and writes the mapped error
// response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	level := slog.LevelWarn
	msg := "Request rejected"
	if status >= http.StatusInternalServerError {
		level, msg = slog.LevelError, "Request failed"
	}
	log.FromContext(r.Context()).Fields(r.Context(), level, msg,
		log.NewFields().WithOperation(op).WithError(err).
			WithHTTPRequest(r.Method, r.URL.Path, security.ClientIP(r)))
	ErrorResponse(err).Write(w)
}
