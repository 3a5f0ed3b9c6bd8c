package journal

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"jokeledger/core/types"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultListLimit = 100
	maxListLimit     = 1000
)

var (
	ErrUnknownDriver = errors.New("journal: unknown driver")
	ErrBrokenChain   = errors.New("journal: hash chain broken")
)

// Entry is one committed ledger event. Each entry's hash covers the previous
// entry's hash so the journal can be audited end to end.
type Entry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Seq        uint64    `gorm:"uniqueIndex;not null" json:"seq"`
	Type       string    `gorm:"size:64;index" json:"type"`
	Attributes string    `gorm:"type:text" json:"-"`
	EventTime  int64     `json:"eventTime"`
	PrevHash   string    `gorm:"size:64" json:"prevHash"`
	Hash       string    `gorm:"size:64;uniqueIndex" json:"hash"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName pins the table name independent of gorm naming strategy.
func (Entry) TableName() string { return "ledger_events" }

// Event decodes the stored attributes back into a typed event.
func (e *Entry) Event() (*types.Event, error) {
	evt := &types.Event{Type: e.Type, Attributes: map[string]string{}}
	if strings.TrimSpace(e.Attributes) == "" {
		return evt, nil
	}
	if err := json.Unmarshal([]byte(e.Attributes), &evt.Attributes); err != nil {
		return nil, fmt.Errorf("journal: decode entry %d: %w", e.Seq, err)
	}
	return evt, nil
}

// Journal appends ledger events to a SQL table.
type Journal struct {
	db   *gorm.DB
	mu   sync.Mutex
	seq  uint64
	head string
}

// Open connects to the journal database. Supported drivers are sqlite and
// postgres.
func Open(driver, dsn string) (*Journal, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "":
		if strings.TrimSpace(dsn) == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an existing gorm handle, migrating the schema and loading the
// chain head.
func New(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: nil database")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	j := &Journal{db: db}
	var last Entry
	err := db.Order("seq desc").Limit(1).Take(&last).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("journal: load head: %w", err)
	default:
		j.seq = last.Seq
		j.head = last.Hash
	}
	return j, nil
}

// Append records evt as the next entry in the chain.
func (j *Journal) Append(ctx context.Context, evt *types.Event, at time.Time) (*Entry, error) {
	if evt == nil {
		return nil, fmt.Errorf("journal: nil event")
	}
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return nil, fmt.Errorf("journal: encode attributes: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := &Entry{
		ID:         uuid.New(),
		Seq:        j.seq + 1,
		Type:       evt.Type,
		Attributes: string(attrs),
		EventTime:  at.Unix(),
		PrevHash:   j.head,
	}
	entry.Hash = entryHash(entry)
	if err := j.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("journal: append: %w", err)
	}
	j.seq = entry.Seq
	j.head = entry.Hash
	return entry, nil
}

// List returns up to limit entries with a sequence greater than after.
func (j *Journal) List(ctx context.Context, after uint64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	var entries []Entry
	err := j.db.WithContext(ctx).
		Where("seq > ?", after).
		Order("seq asc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return entries, nil
}

// Head returns the sequence and hash of the latest entry.
func (j *Journal) Head() (uint64, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq, j.head
}

// Verify walks the whole journal and recomputes every hash.
func (j *Journal) Verify(ctx context.Context) error {
	var (
		prev  string
		after uint64
	)
	for {
		batch, err := j.List(ctx, after, maxListLimit)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for i := range batch {
			entry := &batch[i]
			if entry.Seq != after+1 {
				return fmt.Errorf("%w: expected seq %d, found %d", ErrBrokenChain, after+1, entry.Seq)
			}
			if entry.PrevHash != prev || entryHash(entry) != entry.Hash {
				return fmt.Errorf("%w at seq %d", ErrBrokenChain, entry.Seq)
			}
			prev = entry.Hash
			after = entry.Seq
		}
	}
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func entryHash(e *Entry) string {
	h := blake3.New(32, nil)
	var num [8]byte
	h.Write([]byte(e.PrevHash))
	binary.BigEndian.PutUint64(num[:], e.Seq)
	h.Write(num[:])
	h.Write([]byte(e.Type))
	h.Write([]byte{0})
	h.Write([]byte(e.Attributes))
	binary.BigEndian.PutUint64(num[:], uint64(e.EventTime))
	h.Write(num[:])
	return hex.EncodeToString(h.Sum(nil))
}
