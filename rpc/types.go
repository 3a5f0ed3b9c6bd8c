package rpc

import (
	"math/big"

	"jokeledger/core"
	"jokeledger/native/jokes"
	"jokeledger/storage/journal"
)

// JokeView is the wire form of an approved joke.
type JokeView struct {
	ID               uint64   `json:"id"`
	Name             string   `json:"name"`
	Content          string   `json:"content"`
	ContentRef       string   `json:"contentRef,omitempty"`
	Tier             string   `json:"tier"`
	Value            string   `json:"value"`
	Price            string   `json:"price"`
	Listed           bool     `json:"listed"`
	Author           string   `json:"author"`
	Owner            string   `json:"owner"`
	Score            uint64   `json:"score"`
	AuthorizedVoters []string `json:"authorizedVoters"`
	CreatedAt        int64    `json:"createdAt"`
	LastTransferAt   int64    `json:"lastTransferAt"`
	LastUsedAt       int64    `json:"lastUsedAt,omitempty"`
	UsageCount       uint64   `json:"usageCount"`
	Status           string   `json:"status"`
	FusedInto        uint64   `json:"fusedInto,omitempty"`
	Parents          []uint64 `json:"parents,omitempty"`
}

// PendingView is the wire form of a submission. Finalized submissions are
// returned with only their id and status.
type PendingView struct {
	ID             uint64   `json:"id"`
	Name           string   `json:"name"`
	Content        string   `json:"content"`
	ContentRef     string   `json:"contentRef,omitempty"`
	Author         string   `json:"author,omitempty"`
	Score          uint64   `json:"score"`
	Voters         []string `json:"voters"`
	CreatedAt      int64    `json:"createdAt,omitempty"`
	VotingDeadline int64    `json:"votingDeadline,omitempty"`
	Status         string   `json:"status"`
}

type AccountView struct {
	Address   string     `json:"address"`
	Balance   string     `json:"balance"`
	JokeCount uint64     `json:"jokeCount"`
	Jokes     []JokeView `json:"jokes"`
}

type StatsView struct {
	LastID   uint64 `json:"lastId"`
	Pending  uint64 `json:"pending"`
	Approved uint64 `json:"approved"`
	Rejected uint64 `json:"rejected"`
	Fused    uint64 `json:"fused"`
	Paused   bool   `json:"paused"`
}

type FinalizeView struct {
	PendingID uint64 `json:"pendingId"`
	Outcome   string `json:"outcome"`
	Score     uint64 `json:"score"`
	JokeID    uint64 `json:"jokeId,omitempty"`
}

type EventView struct {
	Seq        uint64            `json:"seq"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Time       int64             `json:"time"`
	Hash       string            `json:"hash"`
}

type EventsPage struct {
	Events []EventView `json:"events"`
	Next   uint64      `json:"next"`
}

type SubmitRequest struct {
	Name       string `json:"name"`
	Content    string `json:"content"`
	ContentRef string `json:"contentRef,omitempty"`
}

type PaymentRequest struct {
	Payment string `json:"payment"`
}

type ListingRequest struct {
	Price string `json:"price"`
}

type FuseRequest struct {
	JokeA uint64 `json:"jokeA"`
	JokeB uint64 `json:"jokeB"`
}

type ExchangeRequest struct {
	Give         []uint64 `json:"give"`
	Take         []uint64 `json:"take"`
	Counterparty string   `json:"counterparty"`
}

type CreditRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type PauseRequest struct {
	Paused bool `json:"paused"`
}

type IDResponse struct {
	ID uint64 `json:"id"`
}

type ScoreResponse struct {
	Score uint64 `json:"score"`
}

type OwnerResponse struct {
	Owner string `json:"owner"`
}

type VotersResponse struct {
	Voters []string `json:"voters"`
}

type HasVotedResponse struct {
	Voted bool `json:"voted"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

type PauseResponse struct {
	Paused bool `json:"paused"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addressList(addrs [][20]byte) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, jokes.FormatAddress(addr))
	}
	return out
}

func jokeView(j *jokes.Joke) JokeView {
	return JokeView{
		ID:               j.ID,
		Name:             j.Name,
		Content:          j.Content,
		ContentRef:       j.ContentRef,
		Tier:             j.Tier.String(),
		Value:            amountString(j.Value),
		Price:            amountString(j.Price),
		Listed:           j.Listed(),
		Author:           jokes.FormatAddress(j.Author),
		Owner:            jokes.FormatAddress(j.Owner),
		Score:            j.Score,
		AuthorizedVoters: addressList(j.AuthorizedVoters),
		CreatedAt:        j.CreatedAt,
		LastTransferAt:   j.LastTransferAt,
		LastUsedAt:       j.LastUsedAt,
		UsageCount:       j.UsageCount,
		Status:           j.Status.String(),
		FusedInto:        j.FusedInto,
		Parents:          append([]uint64(nil), j.Parents...),
	}
}

func jokeViews(list []*jokes.Joke) []JokeView {
	out := make([]JokeView, 0, len(list))
	for _, j := range list {
		out = append(out, jokeView(j))
	}
	return out
}

func pendingView(p *jokes.PendingJoke) PendingView {
	view := PendingView{
		ID:     p.ID,
		Status: p.Status.String(),
		Score:  p.Score,
		Voters: addressList(p.Voters),
	}
	if !p.Active() {
		return view
	}
	view.Name = p.Name
	view.Content = p.Content
	view.ContentRef = p.ContentRef
	view.Author = jokes.FormatAddress(p.Author)
	view.CreatedAt = p.CreatedAt
	view.VotingDeadline = p.VotingDeadline
	return view
}

func accountView(summary *core.AccountSummary) AccountView {
	return AccountView{
		Address:   jokes.FormatAddress(summary.Address),
		Balance:   amountString(summary.Balance),
		JokeCount: summary.JokeCount,
		Jokes:     jokeViews(summary.Owned),
	}
}

func finalizeView(res *jokes.FinalizeResult) FinalizeView {
	return FinalizeView{
		PendingID: res.PendingID,
		Outcome:   res.Outcome.String(),
		Score:     res.Score,
		JokeID:    res.JokeID,
	}
}

func eventView(entry journal.Entry) (EventView, error) {
	evt, err := entry.Event()
	if err != nil {
		return EventView{}, err
	}
	return EventView{
		Seq:        entry.Seq,
		Type:       entry.Type,
		Attributes: evt.Attributes,
		Time:       entry.EventTime,
		Hash:       entry.Hash,
	}, nil
}
