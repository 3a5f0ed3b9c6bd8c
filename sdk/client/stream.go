package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"nhooyr.io/websocket"

	"jokeledger/core/events"
)

// ErrStopStream may be returned by a Stream handler to end the stream
// without error.
var ErrStopStream = errors.New("client: stop stream")

// Stream subscribes to live ledger events. Records newer than cursor that the
// server still retains are delivered first. Stream returns when ctx ends, the
// server closes the stream, or handle returns an error.
func (c *Client) Stream(ctx context.Context, cursor string, handle func(events.Record) error) error {
	query := url.Values{}
	if cursor = strings.TrimSpace(cursor); cursor != "" {
		query.Set("cursor", cursor)
	}
	target, err := url.Parse(c.endpoint("/v1/events/stream", query))
	if err != nil {
		return err
	}
	switch target.Scheme {
	case "https":
		target.Scheme = "wss"
	default:
		target.Scheme = "ws"
	}
	opts := &websocket.DialOptions{HTTPClient: c.httpClient, HTTPHeader: make(map[string][]string)}
	c.authorize(opts.HTTPHeader)
	conn, _, err := websocket.Dial(ctx, target.String(), opts)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read stream: %w", err)
		}
		var rec events.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		if err := handle(rec); err != nil {
			if errors.Is(err, ErrStopStream) {
				return nil
			}
			return err
		}
	}
}
