package kvstore

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/getsentry/sentry-go"
)

const (
	chunkPrefix  = "chunk:"
	statusPrefix = "status:"
)

// ErrClosed is returned by every operation while the store is closed.
var ErrClosed = errors.New("kv store is closed")

// Badger keeps chunks and document status in a BadgerDB directory.
// It can be closed and reopened, which is how the working directory gets wiped.
type Badger struct {
	Path     string
	InMemory bool
	Sentry   *sentry.Hub

	log      *logger.Logger
	mu       sync.RWMutex
	db       *badger.DB
	cancelGC context.CancelFunc
}

// NewBadger creates a store for path. Call Open before use.
func NewBadger(path string, inMemory bool, log *logger.Logger) *Badger {
	if log == nil {
		log = logger.Discard()
	}
	return &Badger{Path: path, InMemory: inMemory, log: log}
}

// Open opens the database. Opening an open store is a no-op.
func (b *Badger) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return nil
	}

	opts := badger.DefaultOptions(b.Path).WithLogger(badgerLogger{log: b.log})
	if b.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{log: b.log})
	}
	opts.ValueLogFileSize = 16 << 20
	opts.MemTableSize = 4 << 20
	opts.NumMemtables = 2
	opts.NumLevelZeroTables = 2
	opts.NumLevelZeroTablesStall = 3
	opts.CompactL0OnClose = true
	opts.ValueThreshold = 64 << 10

	db, err := badger.Open(opts)
	if err != nil {
		b.log.Capture(b.Sentry, err, "Failed to open badger database", map[string]interface{}{"path": b.Path})
		return fmt.Errorf("failed to open kv store at %s: %w", b.Path, err)
	}
	b.db = db

	if !b.InMemory {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancelGC = cancel
		go b.valueLogGCWorker(ctx)
	}

	b.log.Info(fmt.Sprintf("KV store opened at %s", b.Path))
	return nil
}

func (b *Badger) valueLogGCWorker(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.mu.RLock()
			db := b.db
			if db == nil {
				b.mu.RUnlock()
				return
			}
			err := db.RunValueLogGC(0.7)
			b.mu.RUnlock()
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
				b.log.Warn(fmt.Sprintf("ValueLog GC failed: %v", err))
			}
		}
	}
}

// Close closes the database. Closing a closed store is a no-op.
func (b *Badger) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	if b.cancelGC != nil {
		b.cancelGC()
		b.cancelGC = nil
	}

	err := b.db.Close()
	b.db = nil
	if err != nil {
		b.log.Capture(b.Sentry, err, "Failed to close BadgerDB", nil)
		return err
	}
	b.log.Info("KV store closed")
	return nil
}

// Add stores chunks keyed by their id.
func (b *Badger) Add(ctx context.Context, docs map[string]*schema.Document) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return ErrClosed
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for id, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode chunk %s: %w", id, err)
		}
		if err := wb.Set([]byte(chunkPrefix+id), data); err != nil {
			return fmt.Errorf("failed to stage chunk %s: %w", id, err)
		}
	}
	if err := wb.Flush(); err != nil {
		b.log.Capture(b.Sentry, err, "Failed to write chunks", map[string]interface{}{"count": len(docs)})
		return fmt.Errorf("failed to write chunks: %w", err)
	}
	return nil
}

// Get returns the chunks that exist among ids. Missing ids are skipped.
func (b *Badger) Get(ctx context.Context, ids []string) (map[string]*schema.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, ErrClosed
	}

	result := make(map[string]*schema.Document, len(ids))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get([]byte(chunkPrefix + id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				var doc schema.Document
				if err := json.Unmarshal(val, &doc); err != nil {
					return err
				}
				result[id] = &doc
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}
	return result, nil
}

// Delete removes chunks by id.
func (b *Badger) Delete(ctx context.Context, ids []string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete([]byte(chunkPrefix + id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetStatus returns the status of docID, or nil when the document was never indexed.
func (b *Badger) GetStatus(ctx context.Context, docID string) (*schema.DocStatus, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, ErrClosed
	}

	var status *schema.DocStatus
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(statusPrefix + docID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var s schema.DocStatus
			if err := json.Unmarshal(val, &s); err != nil {
				return err
			}
			status = &s
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status of %s: %w", docID, err)
	}
	return status, nil
}

// PutStatus records status under its DocID.
func (b *Badger) PutStatus(ctx context.Context, status *schema.DocStatus) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return ErrClosed
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(statusPrefix+status.DocID), data)
	})
}

// badgerLogger forwards badger's own warnings and errors to the service logger.
type badgerLogger struct {
	log *logger.Logger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.log.Error(fmt.Sprintf(f, v...)) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.log.Warn(fmt.Sprintf(f, v...)) }
func (l badgerLogger) Infof(string, ...interface{})        {}
func (l badgerLogger) Debugf(string, ...interface{})       {}

var (
	_ interfaces.DocStore       = (*Badger)(nil)
	_ interfaces.DocStatusStore = (*Badger)(nil)
)
