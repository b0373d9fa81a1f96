// Package store provides the persistent key-value store backing the scan
// result cache, built on LevelDB.
//
// LevelDB supports many concurrent readers alongside a single writer, so
// all mutations are funnelled through one writer goroutine fed by a
// bounded op channel. Readers call the DB directly.
package store

import (
	"fmt"
	"os"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/extscan-toolkit/extscan-runner/pkg/errors"
	"github.com/extscan-toolkit/extscan-runner/pkg/observability"
)

const opQueueSize = 64

// Store is a LevelDB-backed store with a serialized writer path.
type Store struct {
	path string
	db   *leveldb.DB
	log  observability.Logger

	ops  chan writeOp
	done chan struct{}
}

type writeOp struct {
	batch *leveldb.Batch
	reply chan error
}

// Open opens (or creates) the store at path.
//
// If LevelDB reports corruption, the damaged directory is moved aside
// with a timestamped name and an empty store is created in its place.
// No partial repair is attempted: availability wins over recovering
// stale cache data. Failing to open even a fresh store is fatal.
func Open(path string, log observability.Logger) (*Store, error) {
	if log == nil {
		log = observability.Nop()
	}

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		if !ldberrors.IsCorrupted(err) {
			return nil, errors.StoreError(fmt.Sprintf("failed to open store at %s", path), err)
		}

		backup := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405"))
		log.Error("cache store corrupted, moving damaged store aside",
			observability.String("path", path),
			observability.String("backup", backup),
			observability.Err(err))

		if renameErr := os.Rename(path, backup); renameErr != nil {
			return nil, errors.StoreError("failed to quarantine corrupted store", renameErr)
		}
		db, err = leveldb.OpenFile(path, nil)
		if err != nil {
			return nil, errors.StoreError("failed to recreate store after corruption", err)
		}
	}

	s := &Store{
		path: path,
		db:   db,
		log:  log,
		ops:  make(chan writeOp, opQueueSize),
		done: make(chan struct{}),
	}
	go s.writerLoop()
	return s, nil
}

// Close drains pending writes and closes the database.
func (s *Store) Close() error {
	close(s.ops)
	<-s.done
	return s.db.Close()
}

// Path returns the on-disk location of the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) writerLoop() {
	defer close(s.done)
	for op := range s.ops {
		err := s.db.Write(op.batch, nil)
		if err != nil {
			s.log.Error("store write failed", observability.Err(err))
		}
		op.reply <- err
	}
}

// write submits a batch to the writer goroutine and waits for the result.
func (s *Store) write(batch *leveldb.Batch) error {
	op := writeOp{batch: batch, reply: make(chan error, 1)}
	s.ops <- op
	if err := <-op.reply; err != nil {
		return errors.StoreError("store write failed", err)
	}
	return nil
}

// Put stores value under key.
func (s *Store) Put(key, value []byte) error {
	batch := new(leveldb.Batch)
	batch.Put(key, value)
	return s.write(batch)
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key []byte) error {
	batch := new(leveldb.Batch)
	batch.Delete(key)
	return s.write(batch)
}

// WriteBatch applies a pre-built batch atomically through the writer path.
// Migrations use this to commit every transformed entry plus the schema
// bump in one shot.
func (s *Store) WriteBatch(batch *leveldb.Batch) error {
	return s.write(batch)
}

// Get reads the value stored under key. The second return is false when
// the key is absent.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.StoreError("store read failed", err)
	}
	return value, true, nil
}

// IteratePrefix calls fn for every key with the given prefix. The key and
// value slices are only valid for the duration of the call; fn must copy
// what it keeps. Iteration stops on the first error from fn.
func (s *Store) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	it := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	for it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	if err := it.Error(); err != nil {
		return errors.StoreError("store iteration failed", err)
	}
	return nil
}

// CountPrefix returns the number of keys with the given prefix.
func (s *Store) CountPrefix(prefix []byte) (int, error) {
	count := 0
	err := s.IteratePrefix(prefix, func(_, _ []byte) error {
		count++
		return nil
	})
	return count, err
}
