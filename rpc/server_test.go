package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"nhooyr.io/websocket"

	"jokeledger/core"
	"jokeledger/core/events"
	"jokeledger/gateway/middleware"
	"jokeledger/native/jokes"
	"jokeledger/storage"
	"jokeledger/storage/journal"
)

const (
	author = "0x1000000000000000000000000000000000000001"
	voter1 = "0x2000000000000000000000000000000000000002"
	voter2 = "0x3000000000000000000000000000000000000003"
	buyer  = "0x5000000000000000000000000000000000000005"
)

type harness struct {
	t      *testing.T
	server *httptest.Server
	ledger *core.Ledger
	now    time.Time
	token  func(subject string, scopes ...string) string
}

func newHarness(t *testing.T, auth *middleware.Authenticator) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	j, err := journal.New(gdb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	h := &harness{t: t, now: time.Unix(1_000, 0)}
	ledger, err := core.NewLedger(storage.NewMemDB(), core.Options{
		Clock:   func() time.Time { return h.now },
		Journal: j,
	})
	require.NoError(t, err)
	h.ledger = ledger
	t.Cleanup(ledger.Feed().Close)

	srv, err := New(Config{}, ledger, Options{Authenticator: auth, Events: j})
	require.NoError(t, err)
	h.server = httptest.NewServer(srv.Handler())
	t.Cleanup(h.server.Close)
	if auth != nil {
		h.token = func(subject string, scopes ...string) string {
			token, err := auth.IssueToken(subject, scopes, time.Hour)
			require.NoError(t, err)
			return token
		}
	}
	return h
}

// do issues a request. caller is sent as X-Caller, or as a bearer token when
// the harness was built with an authenticator.
func (h *harness) do(method, path, caller string, body interface{}, out interface{}) int {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		if h.token != nil {
			req.Header.Set("Authorization", "Bearer "+caller)
		} else {
			req.Header.Set(headerCaller, caller)
		}
	}
	res, err := h.server.Client().Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	if out != nil && res.StatusCode != http.StatusNoContent {
		require.NoError(h.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func (h *harness) approve(name string) uint64 {
	h.t.Helper()
	var created IDResponse
	require.Equal(h.t, http.StatusCreated, h.do(http.MethodPost, "/v1/pending", author, SubmitRequest{Name: name, Content: "content " + name, ContentRef: "ref/" + name}, &created))
	path := fmt.Sprintf("/v1/pending/%d", created.ID)
	require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, path+"/votes", voter1, nil, nil))
	require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, path+"/votes", voter2, nil, nil))
	var res FinalizeView
	require.Equal(h.t, http.StatusOK, h.do(http.MethodPost, path+"/finalize", voter1, nil, &res))
	require.Equal(h.t, "APPROVED", res.Outcome)
	return res.JokeID
}

func TestJokeLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, nil)

	var balance BalanceResponse
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/admin/credit", "", CreditRequest{Account: buyer, Amount: "1000"}, &balance))
	require.Equal(t, "1000", balance.Balance)

	id := h.approve("J1")
	path := fmt.Sprintf("/v1/jokes/%d", id)

	var joke JokeView
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, path, "", nil, &joke))
	require.Equal(t, "BASIC", joke.Tier)
	require.Equal(t, "0", joke.Value)
	require.True(t, strings.EqualFold(author, joke.Owner))
	require.Empty(t, joke.AuthorizedVoters)

	var score ScoreResponse
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, path+"/votes", voter1, PaymentRequest{Payment: "0"}, &score))
	require.EqualValues(t, 1, score.Score)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, path+"/listing", author, ListingRequest{Price: "400"}, &joke))
	require.Equal(t, "400", joke.Price)
	require.True(t, joke.Listed)

	var listed []JokeView
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/jokes?listed=true", "", nil, &listed))
	require.Len(t, listed, 1)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, path+"/purchase", buyer, PaymentRequest{Payment: "400"}, &joke))
	require.True(t, strings.EqualFold(buyer, joke.Owner))
	require.False(t, joke.Listed)

	var account AccountView
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/accounts/"+buyer, "", nil, &account))
	require.Equal(t, "600", account.Balance)
	require.EqualValues(t, 1, account.JokeCount)
	require.Len(t, account.Jokes, 1)

	var owner OwnerResponse
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, path+"/owner", "", nil, &owner))
	require.True(t, strings.EqualFold(buyer, owner.Owner))

	var voted HasVotedResponse
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, path+"/voters/"+voter1, "", nil, &voted))
	require.True(t, voted.Voted)

	var stats StatsView
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/stats", "", nil, &stats))
	require.EqualValues(t, 1, stats.Approved)
	require.Zero(t, stats.Pending)
}

func TestErrorsMapToStatusAndCode(t *testing.T) {
	h := newHarness(t, nil)
	id := h.approve("J1")
	path := fmt.Sprintf("/v1/jokes/%d", id)

	cases := []struct {
		name   string
		method string
		path   string
		caller string
		body   interface{}
		status int
		code   string
	}{
		{"missing caller", http.MethodPost, "/v1/pending", "", SubmitRequest{Name: "x", Content: "y", ContentRef: "z"}, http.StatusUnauthorized, codeUnauthorized},
		{"bad id", http.MethodGet, "/v1/jokes/abc", "", nil, http.StatusBadRequest, jokes.CodeInvalidArgument},
		{"unknown joke", http.MethodGet, "/v1/jokes/99", "", nil, http.StatusNotFound, jokes.CodeNotFound},
		{"empty name", http.MethodPost, "/v1/pending", author, SubmitRequest{Content: "y", ContentRef: "z"}, http.StatusBadRequest, jokes.CodeInvalidArgument},
		{"self vote", http.MethodPost, path + "/votes", author, PaymentRequest{Payment: "0"}, http.StatusForbidden, jokes.CodeSelfVoteForbidden},
		{"not listed", http.MethodPost, path + "/purchase", buyer, PaymentRequest{Payment: "1"}, http.StatusConflict, jokes.CodeNotListed},
		{"still locked", http.MethodPost, path + "/use", author, nil, http.StatusLocked, jokes.CodeStillLocked},
		{"not owner", http.MethodPost, path + "/use", buyer, nil, http.StatusForbidden, jokes.CodeNotOwner},
		{"negative price", http.MethodPost, path + "/listing", author, ListingRequest{Price: "-1"}, http.StatusBadRequest, jokes.CodeInvalidArgument},
		{"unknown field", http.MethodPost, "/v1/fusions", author, map[string]int{"bogus": 1}, http.StatusBadRequest, jokes.CodeInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body ErrorResponse
			status := h.do(tc.method, tc.path, tc.caller, tc.body, &body)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.code, body.Code)
			require.NotEmpty(t, body.Message)
		})
	}
}

func TestPausedLedgerRejectsWrites(t *testing.T) {
	h := newHarness(t, nil)
	var paused PauseResponse
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/admin/pause", "", PauseRequest{Paused: true}, &paused))
	require.True(t, paused.Paused)

	var body ErrorResponse
	require.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodPost, "/v1/pending", author, SubmitRequest{Name: "J", Content: "C", ContentRef: "R"}, &body))
	require.Equal(t, jokes.CodeModulePaused, body.Code)

	var pending []PendingView
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/pending", "", nil, &pending))
	require.Empty(t, pending)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/admin/pause", "", PauseRequest{Paused: false}, &paused))
	require.False(t, paused.Paused)
}

func TestAuthenticatedCallerComesFromToken(t *testing.T) {
	auth := middleware.NewAuthenticator(middleware.AuthConfig{Enabled: true, HMACSecret: "secret"}, nil)
	h := newHarness(t, auth)

	var created IDResponse
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/v1/pending", h.token(author), SubmitRequest{Name: "J", Content: "C", ContentRef: "R"}, &created))

	var pending PendingView
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, fmt.Sprintf("/v1/pending/%d", created.ID), "", nil, &pending))
	require.True(t, strings.EqualFold(author, pending.Author))

	// Without a token the write is refused before reaching the ledger.
	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/v1/pending", "", SubmitRequest{Name: "J", Content: "C", ContentRef: "R"}, nil))

	var body ErrorResponse
	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/v1/pending", h.token("not-an-address"), SubmitRequest{Name: "J", Content: "C", ContentRef: "R"}, &body))
	require.Equal(t, codeUnauthorized, body.Code)

	require.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/v1/admin/credit", h.token(author), CreditRequest{Account: buyer, Amount: "1"}, nil))
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/v1/admin/credit", h.token("ops", "admin"), CreditRequest{Account: buyer, Amount: "1"}, nil))
}

func TestEventsPolling(t *testing.T) {
	h := newHarness(t, nil)
	h.approve("J1")

	var page EventsPage
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/events?limit=2", "", nil, &page))
	require.Len(t, page.Events, 2)
	require.Equal(t, jokes.EventTypeSubmissionCreated, page.Events[0].Type)
	require.EqualValues(t, 2, page.Next)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, fmt.Sprintf("/v1/events?after=%d", page.Next), "", nil, &page))
	require.Len(t, page.Events, 3)
	require.Equal(t, jokes.EventTypeVotingFinalized, page.Events[2].Type)
	require.Equal(t, "approved", page.Events[2].Attributes["outcome"])
}

func TestEventStreamReplaysBacklogThenLive(t *testing.T) {
	h := newHarness(t, nil)
	var created IDResponse
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/v1/pending", author, SubmitRequest{Name: "J", Content: "C", ContentRef: "R"}, &created))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/v1/events/stream?cursor=1"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	read := func() events.Record {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var rec events.Record
		require.NoError(t, json.Unmarshal(data, &rec))
		return rec
	}

	rec := read()
	require.EqualValues(t, 2, rec.Sequence)
	require.Equal(t, jokes.EventTypeUserCountChanged, rec.Event.Type)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, fmt.Sprintf("/v1/pending/%d/votes", created.ID), voter1, nil, nil))
	rec = read()
	require.EqualValues(t, 3, rec.Sequence)
	require.Equal(t, jokes.EventTypePendingVoted, rec.Event.Type)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	var body map[string]string
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", "", nil, &body))
	require.Equal(t, "ok", body["status"])
}

func TestStatusForCodeCoversTaxonomy(t *testing.T) {
	require.Equal(t, http.StatusPaymentRequired, statusForCode(jokes.CodeInsufficientFunds))
	require.Equal(t, http.StatusLocked, statusForCode(jokes.CodeJokeLocked))
	require.Equal(t, http.StatusTooManyRequests, statusForCode(jokes.CodeQuotaExceeded))
	require.Equal(t, http.StatusConflict, statusForCode(jokes.CodeInvalidExchangeCombination))
	require.Equal(t, http.StatusInternalServerError, statusForCode(jokes.CodeInternal))
}
