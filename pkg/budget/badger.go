package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const badgerConflictRetries = 10

// BadgerStore keeps counters in an embedded badger database, for single
// node deployments that want the budget to survive restarts without Redis.
type BadgerStore struct {
	db *badger.DB
	// mu serializes read-modify-write cycles of this process.
	mu sync.Mutex
}

// NewBadgerStore opens (or creates) a badger database at path. An empty
// path opens an in-memory database.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(_ context.Context, key string) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = readCounter(txn, key)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("badger get %s: %w", key, err)
	}
	return n, nil
}

// IncrBy retries on transaction conflicts.
func (s *BadgerStore) IncrBy(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out int64
	for i := 0; i < badgerConflictRetries; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			cur, err := readCounter(txn, key)
			if err != nil {
				return err
			}
			out = cur + n
			e := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(out, 10)))
			if ttl > 0 {
				e = e.WithTTL(ttl)
			}
			return txn.SetEntry(e)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("badger incrby %s: %w", key, err)
		}
		return out, nil
	}
	return 0, fmt.Errorf("badger incrby %s: %w", key, badger.ErrConflict)
}

func readCounter(txn *badger.Txn, key string) (int64, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
