package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/features"
	"github.com/lazypower/rapport/internal/store"
	"github.com/lazypower/rapport/internal/transcript"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, errA := strconv.ParseInt(q.Get("user_a_id"), 10, 64)
	b, errB := strconv.ParseInt(q.Get("user_b_id"), 10, 64)
	if errA != nil || errB != nil {
		writeError(w, http.StatusBadRequest, "user_a_id and user_b_id must be integers")
		return
	}

	res, err := s.engine.Infer(r.Context(), a, b)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []features.Message `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Analyze(req.Messages))
}

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var rec transcript.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	pm, err := rec.Validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := &store.Message{
		SenderID:   pm.SenderID,
		ReceiverID: pm.ReceiverID,
		Body:       pm.Text,
		SentAt:     pm.SentAt,
	}
	id, err := s.db.AddMessage(r.Context(), m)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       id,
		"pair_key": engine.PairKey(m.SenderID, m.ReceiverID),
		"sent_at":  m.SentAt,
	})
}

type runView struct {
	RunID        string `json:"run_id"`
	Label        string `json:"label"`
	Confidence   int    `json:"confidence"`
	Source       string `json:"source"`
	Reason       string `json:"reason"`
	MessageCount int    `json:"message_count"`
	CreatedAt    int64  `json:"created_at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	a, b, err := engine.ParsePairKey(chi.URLParam(r, "pairKey"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := engine.PairKey(a, b)

	limit := defaultHistoryLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxHistoryLimit)
		}
	}

	runs, err := s.db.PairRuns(r.Context(), key, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]runView, len(runs))
	for i, run := range runs {
		out[i] = runView{
			RunID:        run.RunID,
			Label:        run.Label,
			Confidence:   run.Confidence,
			Source:       run.Source,
			Reason:       run.Reason,
			MessageCount: run.MessageCount,
			CreatedAt:    run.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pair_key": key,
		"runs":     out,
	})
}
