// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound = errors.New("entity not found")
	ErrExists   = errors.New("entity already exists")
	ErrEmptyID  = errors.New("entity ID cannot be empty")
)

// Entity represents any storable entity with an ID
type Entity interface {
	GetID() string
}

// BadgerStore keeps JSON-encoded entities of one kind under "<prefix>:<id>".
type BadgerStore[T Entity] struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore[T Entity](db *badger.DB, prefix string) *BadgerStore[T] {
	return &BadgerStore[T]{
		db:     db,
		prefix: prefix,
	}
}

// Open opens (creating if needed) an on-disk database at path.
func Open(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	return db, nil
}

func (s *BadgerStore[T]) makeKey(id string) []byte {
	return []byte(s.prefix + ":" + id)
}

func (s *BadgerStore[T]) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), s.prefix+":")
}

func (s *BadgerStore[T]) Create(entity T) error {
	id := entity.GetID()
	if id == "" {
		return ErrEmptyID
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}

	key := s.makeKey(id)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrExists, id)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *BadgerStore[T]) Get(id string) (T, error) {
	var entity T
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return entity, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return entity, err
}

func (s *BadgerStore[T]) Delete(id string) error {
	key := s.makeKey(id)
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// List returns every entity under the store's prefix in key order.
func (s *BadgerStore[T]) List() ([]T, error) {
	var results []T
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(s.prefix + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var entity T
				if err := json.Unmarshal(val, &entity); err != nil {
					return fmt.Errorf("decoding %s: %w", s.stripPrefix(item.Key()), err)
				}
				results = append(results, entity)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	return results, nil
}
