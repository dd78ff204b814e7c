// Package backendtest runs a fake chat backend for tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ChatCall is one recorded POST /chat body.
type ChatCall struct {
	Message      string `json:"message"`
	Role         string `json:"role"`
	SystemPrompt string `json:"systemPrompt"`
	SessionID    string `json:"session_id"`
}

// Server is a configurable fake. Zero status fields mean 200.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	prompt         string
	reply          string
	sessionID      string
	rawChatBody    string
	chatStatus     int
	setPromptCode  int
	chatCalls      []ChatCall
	setPromptCalls []string
	release        chan struct{}
}

func New(t *testing.T) *Server {
	t.Helper()

	s := &Server{reply: "Hello"}
	r := chi.NewRouter()
	r.Get("/get-prompt", s.handleGetPrompt)
	r.Post("/set-prompt", s.handleSetPrompt)
	r.Post("/chat", s.handleChat)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) SetPrompt(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompt = p
}

func (s *Server) SetReply(reply, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = reply
	s.sessionID = sessionID
	s.rawChatBody = ""
}

// SetRawChatBody makes /chat answer with body verbatim.
func (s *Server) SetRawChatBody(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawChatBody = body
}

func (s *Server) SetChatStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatStatus = code
}

func (s *Server) SetSetPromptStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPromptCode = code
}

// Hold makes /chat block until the returned func is called.
func (s *Server) Hold() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.release = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *Server) ChatCalls() []ChatCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatCall(nil), s.chatCalls...)
}

func (s *Server) SetPromptCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.setPromptCalls...)
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	prompt := s.prompt
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

func (s *Server) handleSetPrompt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPromptCalls = append(s.setPromptCalls, body.Prompt)
	if s.setPromptCode != 0 {
		w.WriteHeader(s.setPromptCode)
		return
	}
	s.prompt = body.Prompt
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var call ChatCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.chatCalls = append(s.chatCalls, call)
	release := s.release
	status, reply, sid, raw := s.chatStatus, s.reply, s.sessionID, s.rawChatBody
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		http.Error(w, "backend failure", status)
		return
	}
	if raw != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(raw))
		return
	}

	resp := map[string]string{"reply": reply}
	if sid != "" {
		resp["session_id"] = sid
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
