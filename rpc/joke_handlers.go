package rpc

import (
	"net/http"
	"strconv"
	"strings"

	"jokeledger/native/jokes"
)

// handleJokeList serves every approved joke, narrowed by the owner, listed
// and active query parameters.
func (s *Server) handleJokeList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var (
		list []*jokes.Joke
		err  error
	)
	switch {
	case strings.TrimSpace(query.Get("owner")) != "":
		owner, parseErr := jokes.ParseAddress(query.Get("owner"))
		if parseErr != nil {
			writeError(w, jokes.CodeInvalidArgument, "invalid owner")
			return
		}
		list, err = s.ledger.JokesOwnedBy(r.Context(), owner)
	case queryFlag(query.Get("listed")):
		list, err = s.ledger.ListedJokes(r.Context())
	default:
		list, err = s.ledger.Jokes(r.Context(), queryFlag(query.Get("active")))
	}
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jokeViews(list))
}

func queryFlag(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}

func (s *Server) handleJokeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	joke, err := s.ledger.Joke(r.Context(), id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jokeView(joke))
}

func (s *Server) handleOwnerOf(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	owner, err := s.ledger.OwnerOf(r.Context(), id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OwnerResponse{Owner: jokes.FormatAddress(owner)})
}

func (s *Server) handleVoters(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	voters, err := s.ledger.AuthorizedVoters(r.Context(), id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VotersResponse{Voters: addressList(voters)})
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	voter, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	voted, err := s.ledger.HasVoted(r.Context(), id, voter)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HasVotedResponse{Voted: voted})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	summary, err := s.ledger.Account(r.Context(), addr)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountView(summary))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Stats(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsView{
		LastID:   stats.LastID,
		Pending:  stats.Pending,
		Approved: stats.Approved,
		Rejected: stats.Rejected,
		Fused:    stats.Fused,
		Paused:   s.ledger.Paused(),
	})
}

func (s *Server) handleVoteApproved(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	payment, err := parseAmount(req.Payment)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	score, err := s.ledger.VoteApproved(r.Context(), id, caller, payment)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ScoreResponse{Score: score})
}

func (s *Server) handleListForSale(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ListingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	price, err := parseAmount(req.Price)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	if err := s.ledger.ListForSale(r.Context(), id, caller, price); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.respondJoke(w, r, id)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	payment, err := parseAmount(req.Payment)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	if err := s.ledger.Buy(r.Context(), id, caller, payment); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.respondJoke(w, r, id)
}

func (s *Server) handleUse(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	joke, err := s.ledger.Use(r.Context(), id, caller)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jokeView(joke))
}

func (s *Server) handleFuse(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	var req FuseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := s.ledger.Fuse(r.Context(), req.JokeA, req.JokeB, caller)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireCaller(w, r)
	if !ok {
		return
	}
	var req ExchangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	counterparty, err := jokes.ParseAddress(req.Counterparty)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	if err := s.ledger.Exchange(r.Context(), req.Give, req.Take, counterparty, caller); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondJoke(w http.ResponseWriter, r *http.Request, id uint64) {
	joke, err := s.ledger.Joke(r.Context(), id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jokeView(joke))
}
