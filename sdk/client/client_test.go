package client

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"jokeledger/core"
	"jokeledger/core/events"
	"jokeledger/native/jokes"
	"jokeledger/rpc"
	"jokeledger/storage"
	"jokeledger/storage/journal"
)

const (
	author = "0x1000000000000000000000000000000000000001"
	voter1 = "0x2000000000000000000000000000000000000002"
	voter2 = "0x3000000000000000000000000000000000000003"
	buyer  = "0x5000000000000000000000000000000000000005"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	j, err := journal.New(gdb)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	now := time.Unix(10_000, 0)
	ledger, err := core.NewLedger(storage.NewMemDB(), core.Options{
		Clock:   func() time.Time { return now },
		Journal: j,
	})
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	t.Cleanup(ledger.Feed().Close)
	srv, err := rpc.New(rpc.Config{}, ledger, rpc.Options{Events: j})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	return server
}

func as(t *testing.T, server *httptest.Server, caller string) *Client {
	t.Helper()
	c, err := New(server.URL, WithHTTPClient(server.Client()), WithCaller(caller))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClientLifecycle(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()
	admin := as(t, server, "")

	balance, err := admin.Credit(ctx, buyer, big.NewInt(500))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if balance.Int64() != 500 {
		t.Fatalf("unexpected balance %s", balance)
	}

	pendingID, err := as(t, server, author).Submit(ctx, "Atoms", "They make up everything.", "ipfs://atoms")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	for _, voter := range []string{voter1, voter2} {
		if _, err := as(t, server, voter).VotePending(ctx, pendingID); err != nil {
			t.Fatalf("vote pending: %v", err)
		}
	}
	pending, err := admin.PendingJoke(ctx, pendingID)
	if err != nil {
		t.Fatalf("pending joke: %v", err)
	}
	if pending.Score != 2 || len(pending.Voters) != 2 {
		t.Fatalf("unexpected pending view: %+v", pending)
	}
	res, err := as(t, server, voter1).Finalize(ctx, pendingID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if res.Outcome != "APPROVED" || res.JokeID == 0 {
		t.Fatalf("unexpected finalize result: %+v", res)
	}

	owner := as(t, server, author)
	if _, err := owner.VoteApproved(ctx, res.JokeID, big.NewInt(0)); !IsCode(err, jokes.CodeSelfVoteForbidden) {
		t.Fatalf("expected self vote error, got %v", err)
	}
	if _, err := owner.ListForSale(ctx, res.JokeID, big.NewInt(300)); err != nil {
		t.Fatalf("list: %v", err)
	}
	listed, err := admin.Jokes(ctx, JokeFilter{Listed: true})
	if err != nil {
		t.Fatalf("listed jokes: %v", err)
	}
	if len(listed) != 1 || listed[0].Price != "300" {
		t.Fatalf("unexpected listing: %+v", listed)
	}
	bought, err := as(t, server, buyer).Buy(ctx, res.JokeID, big.NewInt(300))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !strings.EqualFold(bought.Owner, buyer) {
		t.Fatalf("owner not updated: %s", bought.Owner)
	}
	ownerAddr, err := admin.OwnerOf(ctx, res.JokeID)
	if err != nil || !strings.EqualFold(ownerAddr, buyer) {
		t.Fatalf("owner of: %s %v", ownerAddr, err)
	}

	account, err := admin.Account(ctx, author)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Balance != "300" || account.JokeCount != 0 {
		t.Fatalf("unexpected seller account: %+v", account)
	}
	stats, err := admin.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Approved != 1 || stats.Pending != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	page, err := admin.Events(ctx, 0, 3)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(page.Events) != 3 || page.Next != page.Events[2].Seq {
		t.Fatalf("unexpected page: %+v", page)
	}
	next, err := admin.Events(ctx, page.Next, 0)
	if err != nil {
		t.Fatalf("events page 2: %v", err)
	}
	if len(next.Events) == 0 || next.Events[0].Seq != page.Next+1 {
		t.Fatalf("second page should continue after %d: %+v", page.Next, next)
	}
}

func TestClientStreamReplaysBacklog(t *testing.T) {
	server := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := as(t, server, author).Submit(ctx, "Stream", "content", "ref"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	var seen []events.Record
	err := as(t, server, "").Stream(ctx, "", func(rec events.Record) error {
		seen = append(seen, rec)
		if len(seen) == 2 {
			return ErrStopStream
		}
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if seen[0].Event.Type != jokes.EventTypeSubmissionCreated {
		t.Fatalf("unexpected first record: %+v", seen[0].Event)
	}
	if seen[1].Sequence != seen[0].Sequence+1 {
		t.Fatalf("records out of order: %d then %d", seen[0].Sequence, seen[1].Sequence)
	}
}

func TestClientSendsIdentityHeaders(t *testing.T) {
	var captured http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	c, err := New(server.URL, WithHTTPClient(server.Client()), WithToken("tok"), WithCaller(author), WithAPIKey("key-1"))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	status, err := c.Health(context.Background())
	if err != nil || status != "ok" {
		t.Fatalf("health: %s %v", status, err)
	}
	if captured.Get("Authorization") != "Bearer tok" {
		t.Fatalf("missing bearer token: %v", captured)
	}
	if captured.Get("X-Caller") != author || captured.Get("X-API-Key") != "key-1" {
		t.Fatalf("missing identity headers: %v", captured)
	}
}

func TestClientDecodesPlainTextErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
	}))
	defer server.Close()

	c, err := New(server.URL, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Stats(context.Background())
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusTooManyRequests || apiErr.Code != "" || apiErr.Message != "Too Many Requests" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestNewValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"", "  ", "ftp://example.com", "://bad"} {
		if _, err := New(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
