package rpc

import (
	"net/http"

	"jokeledger/native/jokes"
)

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req CreditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := jokes.ParseAddress(req.Account)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	balance, err := s.ledger.Credit(r.Context(), account, amount)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.logger.Info("account credited", "account", req.Account, "amount", amount.String())
	writeJSON(w, http.StatusOK, BalanceResponse{Account: jokes.FormatAddress(account), Balance: balance.String()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req PauseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.ledger.SetPaused(req.Paused)
	writeJSON(w, http.StatusOK, PauseResponse{Paused: s.ledger.Paused()})
}

func (s *Server) handlePauseStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PauseResponse{Paused: s.ledger.Paused()})
}
