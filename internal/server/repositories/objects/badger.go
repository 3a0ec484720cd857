package objects

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v3"
)

var errKeyExists = errors.New("key exists")

// BadgerStore is a Bucket over an embedded badger database. Compound
// operations run in one optimistic transaction; losing a conflict means
// another writer got there first.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a store in dir. An empty dir keeps
// everything in memory.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (s *BadgerStore) SetIfAbsent(_ context.Context, key string, value []byte) (bool, error) {
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return errKeyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set([]byte(key), value)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errKeyExists), errors.Is(err, badger.ErrConflict):
		return false, nil
	default:
		return false, err
	}
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *BadgerStore) Take(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if value, err = item.ValueCopy(nil); err != nil {
			return err
		}
		return txn.Delete([]byte(key))
	})
	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, badger.ErrKeyNotFound), errors.Is(err, badger.ErrConflict):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

func (s *BadgerStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

func (s *BadgerStore) SetMany(_ context.Context, kvs []KV) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, kv := range kvs {
			if err := txn.Set([]byte(kv.Key), kv.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
