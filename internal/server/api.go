package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-ask/internal/agent"
	"github.com/p-n-ai/pai-ask/internal/knowledge"
	"github.com/p-n-ai/pai-ask/internal/session"
)

const maxBodyBytes = 64 << 10

// apiRequest is the body of every POST /api call. The API keeps no state:
// the client sends its session and stores the one returned.
type apiRequest struct {
	UserID    string          `json:"user_id"`
	Session   session.Session `json:"session"`
	Subject   string          `json:"subject"`
	Question  string          `json:"question"`
	RequestID string          `json:"request_id"`

	anonymous bool
}

type apiReply struct {
	RequestID string          `json:"request_id,omitempty"`
	Answer    string          `json:"answer"`
	Source    agent.Source    `json:"source"`
	Session   session.Session `json:"session"`
	Stale     bool            `json:"stale,omitempty"`
}

type subjectInfo struct {
	ID        knowledge.SubjectID `json:"id"`
	Name      string              `json:"name"`
	Questions []string            `json:"questions"`
}

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	kb := s.engine.Knowledge()
	var out []subjectInfo
	for _, id := range kb.Subjects() {
		bank, _ := kb.Bank(id)
		out = append(out, subjectInfo{ID: id, Name: id.DisplayName(), Questions: bank.Questions()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleKnowledgeExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := knowledge.WriteWorkbook(s.engine.Knowledge(), &buf); err != nil {
		slog.Error("failed to export knowledge workbook", "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="knowledge.xlsx"`)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleSubject(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	subject, err := knowledge.ParseSubject(req.Subject)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := s.engine.SwitchSubject(req.UserID, req.Session, subject)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toAPIReply(reply))
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	reply, err := s.engine.Answer(r.Context(), req.UserID, req.Session, req.RequestID, req.Question)
	if errors.Is(err, agent.ErrEmptyQuestion) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("answer failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, agent.TechnicalErrorReply)
		return
	}
	writeJSON(w, http.StatusOK, toAPIReply(reply))
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAPIReply(s.engine.RandomQuestion(req.UserID, req.Session)))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	if req.anonymous || req.RequestID == "" {
		writeError(w, http.StatusBadRequest, "user_id and request_id are required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.engine.Cancel(req.UserID, req.RequestID)})
}

// decodeRequest reads an apiRequest (an empty body is a zero request) and rejects sessions naming an unknown
// subject. Callers without a user id get a fresh one so their fallbacks are
// never cancelled by another anonymous caller.
func decodeRequest(w http.ResponseWriter, r *http.Request) (apiRequest, bool) {
	var req apiRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return apiRequest{}, false
	}
	if req.Session.Subject.IsSet() {
		subject, err := knowledge.ParseSubject(string(req.Session.Subject))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return apiRequest{}, false
		}
		req.Session.Subject = subject
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		req.UserID = "api-" + uuid.NewString()
		req.anonymous = true
	}
	return req, true
}

func toAPIReply(reply agent.Reply) apiReply {
	return apiReply{
		RequestID: reply.RequestID,
		Answer:    reply.Text,
		Source:    reply.Source,
		Session:   reply.Session,
		Stale:     reply.Stale,
	}
}
