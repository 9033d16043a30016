package ledger

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/pebble"
)

// Store wraps the Pebble database holding asset balances. All access goes
// through the Ledger's mutex.
type Store struct {
	db *pebble.DB
}

// OpenStore opens (or creates) a Pebble database at the given path.
func OpenStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(64 << 20),
		MemTableSize:          32 << 20,
		L0CompactionThreshold: 2,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10,
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the big.Int stored under key, nil if absent. Values are decimal
// text.
func (s *Store) Load(key []byte) (*big.Int, error) {
	data, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()

	v, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return nil, fmt.Errorf("corrupt value under %s: %q", key, data)
	}
	return v, nil
}

// WriteBatch persists a set of key -> amount updates in one atomic batch.
func (s *Store) WriteBatch(updates map[string]*big.Int) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for key, v := range updates {
		if err := batch.Set([]byte(key), []byte(v.String()), nil); err != nil {
			return fmt.Errorf("batch set %s: %w", key, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("batch commit: %w", err)
	}
	return nil
}
