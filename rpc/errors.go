package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"jokeledger/native/jokes"
)

const (
	codeUnauthorized = "Unauthorized"
	codeUnavailable  = "Unavailable"
)

var errMissingCaller = errors.New("caller identity required")

// statusForCode maps ledger error codes onto HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case jokes.CodeInvalidArgument:
		return http.StatusBadRequest
	case jokes.CodeInsufficientPayment, jokes.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case jokes.CodeSelfVoteForbidden, jokes.CodeSelfPurchase, jokes.CodeNotOwner:
		return http.StatusForbidden
	case jokes.CodeNotFound:
		return http.StatusNotFound
	case jokes.CodeAlreadyVoted,
		jokes.CodeNotListed,
		jokes.CodeVotingStillOpen,
		jokes.CodeTierMismatch,
		jokes.CodeTierMaxed,
		jokes.CodeInvalidExchangeCombination,
		jokes.CodeJokeRetired:
		return http.StatusConflict
	case jokes.CodeStillLocked, jokes.CodeJokeLocked:
		return http.StatusLocked
	case jokes.CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case jokes.CodeModulePaused, codeUnavailable:
		return http.StatusServiceUnavailable
	case codeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code, message string) {
	writeJSON(w, statusForCode(code), ErrorResponse{Code: code, Message: message})
}

// writeLedgerError renders err using the ledger taxonomy. Internal failures
// are logged and reported without detail.
func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, codeUnavailable, "request cancelled")
		return
	}
	code := jokes.Code(err)
	if code == jokes.CodeInternal {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, strings.TrimPrefix(err.Error(), "jokes: "))
}
