// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage
const (
	objectMetaPrefix = "object_meta:"
	objectDataPrefix = "object_data:"
)

// chunkSize keeps each value well under Badger's per-transaction batch
// limit so that a 10 MiB upload never fails with ErrTxnTooBig.
const chunkSize = 256 << 10

// BadgerStore keeps objects in BadgerDB. Object bytes are written as
// chunks first and the metadata record last; an object without metadata
// does not exist for readers.
type BadgerStore struct {
	db      *badger.DB
	presign *Presigner
	now     func() time.Time
}

// NewBadgerStore wraps an open database. presign may be nil, in which case
// PresignGet fails.
func NewBadgerStore(db *badger.DB, presign *Presigner) *BadgerStore {
	return &BadgerStore{db: db, presign: presign, now: time.Now}
}

// OpenBadger opens the database shared by storage, idempotency records and
// the upload ledger.
func OpenBadger(dir string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func (s *BadgerStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Drop any previous version so a shorter rewrite leaves no stale chunks.
	if err := s.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear previous object: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	chunks := 0
	for off := 0; off < len(data); off += chunkSize {
		end := min(off+chunkSize, len(data))
		buf := make([]byte, end-off)
		copy(buf, data[off:end])
		if err := wb.Set(chunkKey(key, chunks), buf); err != nil {
			return fmt.Errorf("write chunk %d: %w", chunks, err)
		}
		chunks++
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush object data: %w", err)
	}

	info := ObjectInfo{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		Chunks:      chunks,
		CreatedAt:   s.now().UTC(),
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal object metadata: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(objectMetaPrefix+key), meta)
	})
}

func (s *BadgerStore) Get(ctx context.Context, key string) (*Object, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var obj Object
	err := s.db.View(func(txn *badger.Txn) error {
		info, err := readInfo(txn, key)
		if err != nil {
			return err
		}
		obj.ObjectInfo = info
		obj.Data = make([]byte, 0, info.Size)

		for i := 0; i < info.Chunks; i++ {
			item, err := txn.Get(chunkKey(key, i))
			if err != nil {
				return fmt.Errorf("read chunk %d: %w", i, err)
			}
			if err := item.Value(func(val []byte) error {
				obj.Data = append(obj.Data, val...)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var chunks int
	err := s.db.Update(func(txn *badger.Txn) error {
		info, err := readInfo(txn, key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		chunks = info.Chunks
		return txn.Delete([]byte(objectMetaPrefix + key))
	})
	if err != nil {
		return fmt.Errorf("delete object metadata: %w", err)
	}
	if chunks == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i := 0; i < chunks; i++ {
		if err := wb.Delete(chunkKey(key, i)); err != nil {
			return fmt.Errorf("delete chunk %d: %w", i, err)
		}
	}
	return wb.Flush()
}

// List returns the objects whose key starts with prefix, in key order.
func (s *BadgerStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []ObjectInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(objectMetaPrefix + prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var info ObjectInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return err
			}
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) PresignGet(key string, ttl time.Duration) (string, error) {
	if s.presign == nil {
		return "", errors.New("presigning not configured")
	}
	return s.presign.URL(key, ttl)
}

func readInfo(txn *badger.Txn, key string) (ObjectInfo, error) {
	var info ObjectInfo
	item, err := txn.Get([]byte(objectMetaPrefix + key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return info, ErrNotFound
	}
	if err != nil {
		return info, fmt.Errorf("get object metadata: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &info)
	})
	return info, err
}

func chunkKey(key string, i int) []byte {
	var b strings.Builder
	b.Grow(len(objectDataPrefix) + len(key) + 7)
	b.WriteString(objectDataPrefix)
	b.WriteString(key)
	fmt.Fprintf(&b, ":%06d", i)
	return []byte(b.String())
}
