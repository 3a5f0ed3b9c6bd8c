package client

import (
	"context"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jokeledger/rpc"
)

// JokeFilter narrows Jokes. Owner takes precedence over Listed.
type JokeFilter struct {
	Owner      string
	Listed     bool
	ActiveOnly bool
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Submit proposes a joke and returns its pending id.
func (c *Client) Submit(ctx context.Context, name, content, contentRef string) (uint64, error) {
	var resp rpc.IDResponse
	req := rpc.SubmitRequest{Name: name, Content: content, ContentRef: contentRef}
	if err := c.do(ctx, http.MethodPost, "/v1/pending", nil, req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// VotePending casts the caller's free vote on a submission.
func (c *Client) VotePending(ctx context.Context, id uint64) (uint64, error) {
	var resp rpc.ScoreResponse
	if err := c.do(ctx, http.MethodPost, idPath("/v1/pending/%s/votes", id), nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Score, nil
}

// Finalize settles a submission.
func (c *Client) Finalize(ctx context.Context, id uint64) (*rpc.FinalizeView, error) {
	var resp rpc.FinalizeView
	if err := c.do(ctx, http.MethodPost, idPath("/v1/pending/%s/finalize", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) PendingJokes(ctx context.Context) ([]rpc.PendingView, error) {
	var resp []rpc.PendingView
	if err := c.do(ctx, http.MethodGet, "/v1/pending", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) PendingJoke(ctx context.Context, id uint64) (*rpc.PendingView, error) {
	var resp rpc.PendingView
	if err := c.do(ctx, http.MethodGet, idPath("/v1/pending/%s", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Jokes lists approved jokes.
func (c *Client) Jokes(ctx context.Context, filter JokeFilter) ([]rpc.JokeView, error) {
	query := url.Values{}
	switch {
	case strings.TrimSpace(filter.Owner) != "":
		query.Set("owner", strings.TrimSpace(filter.Owner))
	case filter.Listed:
		query.Set("listed", "true")
	case filter.ActiveOnly:
		query.Set("active", "true")
	}
	var resp []rpc.JokeView
	if err := c.do(ctx, http.MethodGet, "/v1/jokes", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Joke(ctx context.Context, id uint64) (*rpc.JokeView, error) {
	var resp rpc.JokeView
	if err := c.do(ctx, http.MethodGet, idPath("/v1/jokes/%s", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) OwnerOf(ctx context.Context, id uint64) (string, error) {
	var resp rpc.OwnerResponse
	if err := c.do(ctx, http.MethodGet, idPath("/v1/jokes/%s/owner", id), nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Owner, nil
}

func (c *Client) AuthorizedVoters(ctx context.Context, id uint64) ([]string, error) {
	var resp rpc.VotersResponse
	if err := c.do(ctx, http.MethodGet, idPath("/v1/jokes/%s/voters", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Voters, nil
}

func (c *Client) HasVoted(ctx context.Context, id uint64, voter string) (bool, error) {
	var resp rpc.HasVotedResponse
	path := idPath("/v1/jokes/%s/voters/", id) + url.PathEscape(strings.TrimSpace(voter))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.Voted, nil
}

// VoteApproved casts a paid dadness vote and returns the new score.
func (c *Client) VoteApproved(ctx context.Context, id uint64, payment *big.Int) (uint64, error) {
	var resp rpc.ScoreResponse
	req := rpc.PaymentRequest{Payment: amount(payment)}
	if err := c.do(ctx, http.MethodPost, idPath("/v1/jokes/%s/votes", id), nil, req, &resp); err != nil {
		return 0, err
	}
	return resp.Score, nil
}

// ListForSale sets the asking price; zero withdraws the listing.
func (c *Client) ListForSale(ctx context.Context, id uint64, price *big.Int) (*rpc.JokeView, error) {
	var resp rpc.JokeView
	req := rpc.ListingRequest{Price: amount(price)}
	if err := c.do(ctx, http.MethodPost, idPath("/v1/jokes/%s/listing", id), nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Buy(ctx context.Context, id uint64, payment *big.Int) (*rpc.JokeView, error) {
	var resp rpc.JokeView
	req := rpc.PaymentRequest{Payment: amount(payment)}
	if err := c.do(ctx, http.MethodPost, idPath("/v1/jokes/%s/purchase", id), nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Use(ctx context.Context, id uint64) (*rpc.JokeView, error) {
	var resp rpc.JokeView
	if err := c.do(ctx, http.MethodPost, idPath("/v1/jokes/%s/use", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fuse combines two jokes of the same tier and returns the new joke id.
func (c *Client) Fuse(ctx context.Context, jokeA, jokeB uint64) (uint64, error) {
	var resp rpc.IDResponse
	req := rpc.FuseRequest{JokeA: jokeA, JokeB: jokeB}
	if err := c.do(ctx, http.MethodPost, "/v1/fusions", nil, req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// Exchange swaps the caller's give set for the counterparty's take set.
func (c *Client) Exchange(ctx context.Context, give, take []uint64, counterparty string) error {
	req := rpc.ExchangeRequest{Give: give, Take: take, Counterparty: counterparty}
	return c.do(ctx, http.MethodPost, "/v1/exchanges", nil, req, nil)
}

func (c *Client) Account(ctx context.Context, address string) (*rpc.AccountView, error) {
	var resp rpc.AccountView
	path := "/v1/accounts/" + url.PathEscape(strings.TrimSpace(address))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Stats(ctx context.Context) (*rpc.StatsView, error) {
	var resp rpc.StatsView
	if err := c.do(ctx, http.MethodGet, "/v1/stats", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events pages through the journal after the given sequence number.
func (c *Client) Events(ctx context.Context, after uint64, limit int) (*rpc.EventsPage, error) {
	query := url.Values{}
	if after > 0 {
		query.Set("after", strconv.FormatUint(after, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp rpc.EventsPage
	if err := c.do(ctx, http.MethodGet, "/v1/events", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Credit funds an account. Requires the admin scope when auth is enabled.
func (c *Client) Credit(ctx context.Context, account string, value *big.Int) (*big.Int, error) {
	var resp rpc.BalanceResponse
	req := rpc.CreditRequest{Account: account, Amount: amount(value)}
	if err := c.do(ctx, http.MethodPost, "/v1/admin/credit", nil, req, &resp); err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(resp.Balance, 10)
	if !ok {
		return nil, &APIError{Status: http.StatusOK, Message: "malformed balance " + strconv.Quote(resp.Balance)}
	}
	return balance, nil
}

func (c *Client) SetPaused(ctx context.Context, paused bool) (bool, error) {
	var resp rpc.PauseResponse
	if err := c.do(ctx, http.MethodPost, "/v1/admin/pause", nil, rpc.PauseRequest{Paused: paused}, &resp); err != nil {
		return false, err
	}
	return resp.Paused, nil
}

func (c *Client) Paused(ctx context.Context) (bool, error) {
	var resp rpc.PauseResponse
	if err := c.do(ctx, http.MethodGet, "/v1/admin/pause", nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.Paused, nil
}

// Health returns the server status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}
