package events

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"jokeledger/core/types"
)

const (
	defaultFeedHistory = 2048
	subscriberBuffer   = 32
)

// Record is a committed event tagged with its position in the feed.
type Record struct {
	Sequence  uint64       `json:"sequence"`
	Cursor    string       `json:"cursor"`
	Timestamp int64        `json:"timestamp"`
	Event     *types.Event `json:"event"`
}

func cloneRecord(r Record) Record {
	cloned := r
	if r.Event != nil {
		evt := &types.Event{Type: r.Event.Type, Attributes: make(map[string]string, len(r.Event.Attributes))}
		for k, v := range r.Event.Attributes {
			evt.Attributes[k] = v
		}
		cloned.Event = evt
	}
	return cloned
}

// Feed fans committed events out to live subscribers and keeps a bounded
// history so late subscribers can resume from a cursor. Slow subscribers
// miss events instead of blocking the publisher.
type Feed struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	limit   int
	history []Record
	subs    map[uint64]*subscriber
	dropped uint64
}

type subscriber struct {
	ch   chan Record
	done chan struct{}
	once sync.Once
}

// stop closes the subscriber channels. The caller must hold the feed lock.
func (s *subscriber) stop() {
	s.once.Do(func() {
		close(s.ch)
		close(s.done)
	})
}

// NewFeed constructs a feed retaining up to historyLimit records. A
// non-positive limit selects the default.
func NewFeed(historyLimit int) *Feed {
	if historyLimit <= 0 {
		historyLimit = defaultFeedHistory
	}
	return &Feed{limit: historyLimit, subs: make(map[uint64]*subscriber)}
}

// Publish appends evt to the history and delivers it to every subscriber.
func (f *Feed) Publish(evt *types.Event, timestamp int64) Record {
	if f == nil || evt == nil {
		return Record{}
	}
	f.mu.Lock()
	f.seq++
	rec := Record{
		Sequence:  f.seq,
		Cursor:    strconv.FormatUint(f.seq, 10),
		Timestamp: timestamp,
		Event:     evt,
	}
	rec = cloneRecord(rec)
	f.history = append(f.history, rec)
	if len(f.history) > f.limit {
		excess := len(f.history) - f.limit
		trimmed := make([]Record, f.limit)
		copy(trimmed, f.history[excess:])
		f.history = trimmed
	}
	for _, sub := range f.subs {
		select {
		case sub.ch <- cloneRecord(rec):
		default:
			f.dropped++
		}
	}
	f.mu.Unlock()
	return rec
}

// Subscribe registers a subscriber for records after cursor. It returns the
// live channel, a cancel function and the retained backlog newer than the
// cursor. The subscription also ends when ctx is done.
func (f *Feed) Subscribe(ctx context.Context, cursor string) (<-chan Record, func(), []Record) {
	sub := &subscriber{ch: make(chan Record, subscriberBuffer), done: make(chan struct{})}

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		if parsed, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
			since = parsed
		}
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	history := make([]Record, len(f.history))
	copy(history, f.history)
	f.mu.Unlock()

	backlog := make([]Record, 0, len(history))
	for _, entry := range history {
		if entry.Sequence > since {
			backlog = append(backlog, cloneRecord(entry))
		}
	}

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, id)
		sub.stop()
		f.mu.Unlock()
	}

	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-sub.done:
			}
		}()
	}

	return sub.ch, cancel, backlog
}

// Sequence returns the sequence number of the latest published record.
func (f *Feed) Sequence() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (f *Feed) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// Close terminates every live subscription.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, sub := range f.subs {
		delete(f.subs, id)
		sub.stop()
	}
}
