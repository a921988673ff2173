package httpapi

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roshnidevi/bhojan/internal/intent"
	"github.com/roshnidevi/bhojan/internal/language"
	"github.com/roshnidevi/bhojan/internal/session"
)

type processRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	SessionID string `json:"session_id,omitempty"`
}

type processResponse struct {
	Response    string        `json:"response"`
	Audio       string        `json:"audio,omitempty"`
	AudioFormat string        `json:"audio_format,omitempty"`
	Intent      intent.Result `json:"intent"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "missing_text", "text is required")
		return
	}

	userID := bearerUser(r)
	if userID == "" {
		userID = "anonymous"
	}

	res, audio, format, err := s.orchestrator.ProcessText(r.Context(), userID, req.SessionID, req.Text, req.Language)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	resp := processResponse{Response: res.Response, Intent: res}
	if len(audio) > 0 {
		resp.Audio = base64.StdEncoding.EncodeToString(audio)
		resp.AudioFormat = format
	}
	respondJSON(w, http.StatusOK, resp)
}

// respondPipelineError maps analyzer errors onto HTTP responses. Credential
// detail stays in operator logs; clients get a generic code.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intent.ErrQuotaExceeded):
		respondError(w, http.StatusTooManyRequests, "quota_exceeded", "the assistant is busy, please retry shortly")
	case errors.Is(err, intent.ErrInvalidCredentials):
		log.Printf("intent analysis credential failure: %v", err)
		respondError(w, http.StatusBadGateway, "assistant_unavailable", "the assistant is temporarily unavailable")
	case errors.Is(err, intent.ErrAnalysisFailed):
		respondError(w, http.StatusBadGateway, "analysis_failed", "could not understand the request, please retry")
	default:
		respondError(w, http.StatusInternalServerError, "unknown_error", "unexpected failure, please retry")
	}
}

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type ttsResponse struct {
	Data ttsResponseData `json:"data"`
}

type ttsResponseData struct {
	Audio  string `json:"audio"`
	Format string `json:"format"`
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "missing_text", "text is required")
		return
	}
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = language.DefaultCode
	}

	audio, format, err := s.synth.Synthesize(r.Context(), req.Text, lang)
	if err != nil {
		s.metrics.ProviderErrors.WithLabelValues("tts", "synthesis_failed").Inc()
		respondError(w, http.StatusBadGateway, "synthesis_failed", "speech synthesis failed, please retry")
		return
	}

	respondJSON(w, http.StatusOK, ttsResponse{Data: ttsResponseData{
		Audio:  base64.StdEncoding.EncodeToString(audio),
		Format: format,
	}})
}

type listLanguagesResponse struct {
	Default   string               `json:"default"`
	Languages []language.Supported `json:"languages"`
}

func (s *Server) handleListLanguages(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, listLanguagesResponse{
		Default:   language.DefaultCode,
		Languages: language.All(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := bearerUser(r)
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user", "bearer token or user_id is required")
		return
	}

	limit := 20
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer in [1,200]")
			return
		}
		limit = n
	}

	items, err := s.store.RecentForUser(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history_unavailable", "could not load interaction history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"interactions": items})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if user := bearerUser(r); user != "" {
		req.UserID = user
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}
	if lang := strings.TrimSpace(req.Language); lang != "" && !language.IsSupported(lang) {
		respondError(w, http.StatusBadRequest, "unsupported_language", "language must be one of the supported codes")
		return
	}

	sess := s.sessions.Create(req.UserID, strings.TrimSpace(req.Language))
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Status:          sess.Status,
		Language:        sess.Language,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}
