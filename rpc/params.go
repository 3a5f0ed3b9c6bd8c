package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"jokeledger/gateway/middleware"
	"jokeledger/native/jokes"
)

// caller resolves the identity acting on a mutating request. With auth
// enabled it is the token subject; otherwise the X-Caller header.
func (s *Server) caller(r *http.Request) ([20]byte, error) {
	raw := ""
	if s.auth.Enabled() {
		raw, _ = middleware.Subject(r.Context())
	} else {
		raw = r.Header.Get(headerCaller)
	}
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, errMissingCaller
	}
	return jokes.ParseAddress(raw)
}

// requireCaller writes the error response itself and reports whether the
// handler should continue.
func (s *Server) requireCaller(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	addr, err := s.caller(r)
	if errors.Is(err, errMissingCaller) {
		writeError(w, codeUnauthorized, err.Error())
		return addr, false
	}
	if err != nil {
		writeError(w, codeUnauthorized, "caller identity is not a valid address")
		return addr, false
	}
	return addr, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, jokes.CodeInvalidArgument, "request body too large")
			return false
		}
		writeError(w, jokes.CodeInvalidArgument, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		writeError(w, jokes.CodeInvalidArgument, fmt.Sprintf("invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func pathIdentity(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	addr, err := jokes.ParseAddress(chi.URLParam(r, "identity"))
	if err != nil {
		writeError(w, jokes.CodeInvalidArgument, "invalid identity")
		return addr, false
	}
	return addr, true
}

// parseAmount reads a base-10 amount. Empty strings are zero.
func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid amount %q", jokes.ErrInvalidArgument, raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", jokes.ErrInvalidArgument)
	}
	return amount, nil
}
