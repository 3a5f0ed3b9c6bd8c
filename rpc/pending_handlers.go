package rpc

import (
	"net/http"
)

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	var req SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := s.ledger.Submit(r.Context(), caller, req.Name, req.Content, req.ContentRef)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

func (s *Server) handlePendingList(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.PendingJokes(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	out := make([]PendingView, 0, len(list))
	for _, p := range list {
		out = append(out, pendingView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePendingGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	pending, err := s.ledger.PendingJoke(r.Context(), id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pendingView(pending))
}

func (s *Server) handleVotePending(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	score, err := s.ledger.VotePending(r.Context(), id, caller)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ScoreResponse{Score: score})
}

// handleFinalize is open to any authenticated caller; the outcome depends only
// on the recorded votes and the clock.
func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireCaller(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := s.ledger.Finalize(r.Context(), id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeView(res))
}
