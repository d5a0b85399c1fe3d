package http

import (
	"net/http"

	"esuvi/internal/identity"
	"esuvi/internal/log"
	"esuvi/internal/settings"
)

type sessionResponse struct {
	SignedIn     bool   `json:"signedIn"`
	UserID       string `json:"userId,omitempty"`
	Email        string `json:"email,omitempty"`
	Transactions int    `json:"transactions"`
}

// sessionState reports the current session. Memory left by an expired
// session is dropped when finance needs an identity.
func (s *Server) sessionState() sessionResponse {
	id, ok := s.sessions.CurrentIdentity()
	if !ok && s.settings.RequiresIdentity(settings.FeatureFinance) {
		s.dropSessionState()
	}
	return sessionResponse{
		SignedIn:     ok,
		UserID:       id.UserID,
		Email:        id.Email,
		Transactions: s.ledger.Len(),
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.sessionState()).Write(w)
}

// handleSignIn starts a session and loads the user's durable transactions.
// The session stays open with empty memory when loading fails.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.signIn(w, r, identity.Identity{UserID: p.Get("userId"), Email: p.Get("email")})
}

// handleRegister checks the password against auth.passwordRequirements
// before signing in. Credentials are verified by the external identity
// provider, the password is never stored.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	if err := identity.ValidatePassword(s.settings, p.Get("password")); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	s.signIn(w, r, identity.Identity{UserID: p.Get("userId"), Email: p.Get("email")})
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	if err := s.sessions.SignIn(id); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	// the previous user's data must not leak into the new session
	s.dropSessionState()
	if _, err := s.ledger.LoadAll(r.Context()); err != nil {
		s.fail(w, r, log.OpLoad, err)
		return
	}
	NewJSONResponse().Body(s.sessionState()).Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.sessions.SignOut()
	s.dropSessionState()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
