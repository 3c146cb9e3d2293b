package flowstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/goccy/go-json"

	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/pkg/retry"
	"github.com/c360/visionflow/workspace"
)

const keyPrefix = "snapshot/"

// Options configures the store
type Options struct {
	// Dir is the database directory. Empty selects an in-memory store.
	Dir    string
	Logger *slog.Logger
	Retry  errors.RetryConfig
}

// Store provides persistence for snapshots using badger
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens or creates the store, retrying transient failures such as a
// directory still locked by a previous process.
func Open(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "flowstore")

	bopts := badger.DefaultOptions(opts.Dir).
		WithLogger(&badgerLogger{logger: logger}).
		WithLoggingLevel(badger.WARNING)
	if opts.Dir == "" {
		bopts = bopts.WithInMemory(true)
	}

	rc := opts.Retry
	if rc.MaxRetries == 0 {
		rc = errors.DefaultRetryConfig()
	}

	db, err := retry.DoWithResult(ctx, rc.ToRetryConfig(), func() (*badger.DB, error) {
		db, err := badger.Open(bopts)
		if err != nil {
			logger.Debug("Store open failed", "dir", opts.Dir, "error", err)
		}
		return db, err
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "flowstore", "Open", "open database")
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "flowstore", "Close", "close database")
	}
	return nil
}

func key(name string) []byte {
	return []byte(keyPrefix + name)
}

// Save stores doc as version 1 of a new snapshot
func (s *Store) Save(ctx context.Context, name, description string, doc workspace.Document) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "flowstore", "Save", "context check")
	}

	now := time.Now()
	snap := &Snapshot{
		Name:        name,
		Description: description,
		Version:     1,
		Document:    doc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, errors.WrapFatal(err, "flowstore", "Save", "marshal snapshot")
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(name)); err == nil {
			return errors.WrapInvalid(fmt.Errorf("%w: snapshot %s already exists", errors.ErrVersionConflict, name),
				"flowstore", "Save", "existence check")
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key(name), data)
	})
	if err != nil {
		if errors.IsInvalid(err) {
			return nil, err
		}
		return nil, errors.WrapTransient(err, "flowstore", "Save", "write snapshot")
	}

	s.logger.Debug("Snapshot saved", "name", name, "windows", len(doc.Windows))
	return snap, nil
}

// Get retrieves a snapshot by name
func (s *Store) Get(ctx context.Context, name string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "flowstore", "Get", "context check")
	}
	if name == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("snapshot name cannot be empty"), "flowstore", "Get", "name validation")
	}

	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, wrapReadErr(err, "Get", name)
	}
	return &snap, nil
}

// Update writes snap when its version matches the stored one, then
// increments snap.Version.
func (s *Store) Update(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "flowstore", "Update", "context check")
	}
	if snap == nil {
		return errors.WrapInvalid(fmt.Errorf("snapshot cannot be nil"), "flowstore", "Update", "input validation")
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	next := *snap
	next.Version++
	next.UpdatedAt = time.Now()

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(snap.Name))
		if err != nil {
			return err
		}
		var current Snapshot
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &current) }); err != nil {
			return errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrDataCorrupted, err), "flowstore", "Update", "decode stored snapshot")
		}
		if current.Version != snap.Version {
			return errors.WrapInvalid(
				fmt.Errorf("%w: expected %d, stored %d", errors.ErrVersionConflict, snap.Version, current.Version),
				"flowstore", "Update", "version check")
		}
		next.CreatedAt = current.CreatedAt
		data, err := json.Marshal(&next)
		if err != nil {
			return errors.WrapFatal(err, "flowstore", "Update", "marshal snapshot")
		}
		return txn.Set(key(snap.Name), data)
	})
	if err != nil {
		return wrapReadErr(err, "Update", snap.Name)
	}

	*snap = next
	s.logger.Debug("Snapshot updated", "name", snap.Name, "version", snap.Version)
	return nil
}

// Delete removes a snapshot. Deleting a missing snapshot is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "flowstore", "Delete", "context check")
	}
	if name == "" {
		return errors.WrapInvalid(fmt.Errorf("snapshot name cannot be empty"), "flowstore", "Delete", "name validation")
	}
	if err := s.db.Update(func(txn *badger.Txn) error { return txn.Delete(key(name)) }); err != nil {
		return errors.WrapTransient(err, "flowstore", "Delete", "delete snapshot")
	}
	return nil
}

// List returns every snapshot sorted by name
func (s *Store) List(ctx context.Context) ([]*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "flowstore", "List", "context check")
	}

	var snaps []*Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var snap Snapshot
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &snap) }); err != nil {
				name := strings.TrimPrefix(string(item.Key()), keyPrefix)
				return errors.WrapFatal(fmt.Errorf("%w: snapshot %s: %v", errors.ErrDataCorrupted, name, err),
					"flowstore", "List", "decode snapshot")
			}
			snaps = append(snaps, &snap)
		}
		return nil
	})
	if err != nil {
		if errors.IsFatal(err) {
			return nil, err
		}
		return nil, errors.WrapTransient(err, "flowstore", "List", "iterate snapshots")
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name < snaps[j].Name })
	return snaps, nil
}

func wrapReadErr(err error, method, name string) error {
	switch {
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return errors.WrapInvalid(fmt.Errorf("%w: snapshot %s", errors.ErrKeyNotFound, name), "flowstore", method, "lookup")
	case errors.IsInvalid(err), errors.IsFatal(err):
		return err
	default:
		return errors.WrapTransient(err, "flowstore", method, "database access")
	}
}
