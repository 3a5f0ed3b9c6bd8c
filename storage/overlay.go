package storage

import (
	"errors"
	"sort"
	"sync"
)

var errOverlayClosed = errors.New("storage: overlay already committed or discarded")

// Overlay buffers writes on top of a parent database. Reads see the buffered
// writes first. Nothing reaches the parent until Commit, which applies every
// buffered change through a single parent batch.
type Overlay struct {
	mu     sync.RWMutex
	parent Database
	writes map[string][]byte
	// deletes shadow parent keys until commit
	deletes map[string]struct{}
	done    bool
}

// NewOverlay creates an empty overlay over parent.
func NewOverlay(parent Database) *Overlay {
	return &Overlay{
		parent:  parent,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return errOverlayClosed
	}
	k := string(key)
	delete(o.deletes, k)
	o.writes[k] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	k := string(key)
	if value, ok := o.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	if _, ok := o.deletes[k]; ok {
		return nil, ErrNotFound
	}
	return o.parent.Get(key)
}

func (o *Overlay) Has(key []byte) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	k := string(key)
	if _, ok := o.writes[k]; ok {
		return true, nil
	}
	if _, ok := o.deletes[k]; ok {
		return false, nil
	}
	return o.parent.Has(key)
}

func (o *Overlay) Delete(key []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return errOverlayClosed
	}
	k := string(key)
	delete(o.writes, k)
	o.deletes[k] = struct{}{}
	return nil
}

// NewBatch returns a batch that writes into the overlay, not the parent.
func (o *Overlay) NewBatch() Batch {
	return &overlayBatch{overlay: o}
}

// Close is a no-op; the parent owns the underlying resources.
func (o *Overlay) Close() {}

// Pending reports the number of buffered key changes.
func (o *Overlay) Pending() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.writes) + len(o.deletes)
}

// Commit flushes the buffered changes to the parent in one batch.
func (o *Overlay) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done {
		return errOverlayClosed
	}
	batch := o.parent.NewBatch()
	keys := make([]string, 0, len(o.writes))
	for k := range o.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		batch.Put([]byte(k), o.writes[k])
	}
	for k := range o.deletes {
		batch.Delete([]byte(k))
	}
	if batch.Len() > 0 {
		if err := batch.Write(); err != nil {
			return err
		}
	}
	o.done = true
	return nil
}

// Discard drops every buffered change.
func (o *Overlay) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
	o.done = true
}

type overlayBatch struct {
	overlay *Overlay
	ops     []memOp
}

func (b *overlayBatch) Put(key []byte, value []byte) {
	b.ops = append(b.ops, memOp{key: string(key), value: append([]byte(nil), value...)})
}

func (b *overlayBatch) Delete(key []byte) {
	b.ops = append(b.ops, memOp{key: string(key), delete: true})
}

func (b *overlayBatch) Len() int { return len(b.ops) }

func (b *overlayBatch) Write() error {
	for _, op := range b.ops {
		var err error
		if op.delete {
			err = b.overlay.Delete([]byte(op.key))
		} else {
			err = b.overlay.Put([]byte(op.key), op.value)
		}
		if err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}
