package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"jokeledger/core/events"
	"jokeledger/native/jokes"
)

const (
	wsWriteTimeout = 10 * time.Second
)

// handleEvents pages through the journal: ?after=<seq>&limit=<n>.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, codeUnavailable, "event journal disabled")
		return
	}
	query := r.URL.Query()
	var after uint64
	if raw := strings.TrimSpace(query.Get("after")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, jokes.CodeInvalidArgument, "invalid after cursor")
			return
		}
		after = parsed
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, jokes.CodeInvalidArgument, "invalid limit")
			return
		}
		limit = parsed
	}
	entries, err := s.events.List(r.Context(), after, limit)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	page := EventsPage{Events: make([]EventView, 0, len(entries)), Next: after}
	for _, entry := range entries {
		view, err := eventView(entry)
		if err != nil {
			s.writeLedgerError(w, r, err)
			return
		}
		page.Events = append(page.Events, view)
		page.Next = entry.Seq
	}
	writeJSON(w, http.StatusOK, page)
}

// handleEventStream upgrades to a websocket and forwards feed records,
// starting with the retained backlog newer than ?cursor=.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns()})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor string) error {
	records, cancel, backlog := s.ledger.Feed().Subscribe(ctx, cursor)
	defer cancel()

	for _, rec := range backlog {
		if err := writeRecord(ctx, conn, rec); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			if err := writeRecord(ctx, conn, rec); err != nil {
				return err
			}
		}
	}
}

func writeRecord(ctx context.Context, conn *websocket.Conn, rec events.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// originPatterns converts the CORS allow list into the host patterns the
// websocket handshake matches Origin against. Like the CORS middleware, an
// empty list admits every origin.
func (s *Server) originPatterns() []string {
	if len(s.cfg.CORS.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(s.cfg.CORS.AllowedOrigins))
	for _, origin := range s.cfg.CORS.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			origin = u.Host
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
