// Package ledger keeps a local history of finished transfers in badger.
// Only terminal outcomes are stored; nothing here is used to resume a transfer.
package ledger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/yourorg/spaces-transfer/internal/transfer"
)

// Entry is one finished transfer.
type Entry struct {
	TransferID string    `json:"transfer_id"`
	Key        string    `json:"key"`
	Bucket     string    `json:"bucket"`
	Direction  string    `json:"direction"`
	State      string    `json:"state"`
	Bytes      int64     `json:"bytes"`
	Total      int64     `json:"total"`
	Path       string    `json:"path,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Ledger is safe for concurrent use.
type Ledger struct {
	db  *badger.DB
	log *zap.Logger
	now func() time.Time
}

// Open opens or creates the ledger in dir. An empty dir keeps it in memory.
func Open(dir string, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Ledger{db: db, log: log, now: time.Now}, nil
}

// Close flushes and closes the store.
func (l *Ledger) Close() error { return l.db.Close() }

// Record stores e. Keys are the finish time followed by the transfer id so
// iteration order is chronological.
func (l *Ledger) Record(e Entry) error {
	if e.FinishedAt.IsZero() {
		e.FinishedAt = l.now()
	}
	val, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e), val)
	})
}

func entryKey(e Entry) []byte {
	k := make([]byte, 8, 8+len(e.TransferID))
	binary.BigEndian.PutUint64(k, uint64(e.FinishedAt.UnixNano()))
	return append(k, e.TransferID...)
}

// List returns up to limit entries, newest first. limit <= 0 means all.
func (l *Ledger) List(limit int) ([]Entry, error) {
	var out []Entry
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var e Entry
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &e)
			}); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Find returns the most recent entry for transferID.
func (l *Ledger) Find(transferID string) (Entry, error) {
	entries, err := l.List(0)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.TransferID == transferID {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// ErrNotFound is returned by Find when no entry matches.
var ErrNotFound = errors.New("ledger: entry not found")

// OnEvent records terminal events; it makes Ledger a transfer.Observer.
func (l *Ledger) OnEvent(e transfer.Event) {
	if !e.State.Terminal() {
		return
	}
	entry := Entry{
		TransferID: e.TransferID,
		Key:        e.Key,
		Bucket:     e.Bucket,
		Direction:  e.Direction.String(),
		State:      e.State.String(),
		Bytes:      e.BytesCurrent,
		Total:      e.BytesTotal,
		Path:       e.Path,
	}
	if e.Err != nil {
		entry.Error = e.Err.Error()
	}
	if err := l.Record(entry); err != nil {
		l.log.Warn("ledger record failed", zap.String("transfer_id", e.TransferID), zap.Error(err))
	}
}
