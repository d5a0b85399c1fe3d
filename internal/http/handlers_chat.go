package http

import (
	"net/http"

	"esuvi/internal/chat"
	"esuvi/internal/log"
	"esuvi/internal/settings"
)

type chatHistoryResponse struct {
	Messages []chat.Message `json:"messages"`
}

type chatReplyResponse struct {
	Reply chat.Message `json:"reply"`
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, settings.FeatureChat, log.OpList) {
		return
	}
	msgs := s.chat.History()
	if msgs == nil {
		msgs = []chat.Message{}
	}
	NewJSONResponse().Body(chatHistoryResponse{Messages: msgs}).Write(w)
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	reply, err := s.chat.Send(r.Context(), p.Get("message"))
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Body(chatReplyResponse{Reply: reply}).Write(w)
}

func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request) {
	s.chat.Reset()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
