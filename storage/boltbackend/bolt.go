// SPDX-License-Identifier: ISC

// Package boltbackend implements the storage.Handle contract on top
// of a memory-mapped go.etcd.io/bbolt file. This is the default
// backend selected by dbcreate when no explicit type is requested.
package boltbackend

import (
	"bytes"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/storage"
)

func init() {
	storage.Register("bolt", open)
}

var bucketName = []byte("noid")

type handle struct {
	db *bolt.DB
}

func open(path string, mode storage.Mode) (storage.Handle, error) {
	if mode == storage.ModeCreate {
		if err := os.RemoveAll(filepath.Dir(path)); err != nil && !os.IsNotExist(err) {
			return nil, fault.ErrIO
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fault.ErrIO
		}
	}

	readOnly := mode == storage.ModeReadOnly
	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, fault.ErrIO
	}

	if !readOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, e := tx.CreateBucketIfNotExists(bucketName)
			return e
		})
		if err != nil {
			db.Close()
			return nil, fault.ErrIO
		}
	}

	return &handle{db: db}, nil
}

func (h *handle) Close() error {
	if err := h.db.Close(); err != nil {
		return fault.ErrIO
	}
	return nil
}

func (h *handle) Get(k []byte) ([]byte, bool, error) {
	var value []byte
	err := h.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		v := b.Get(k)
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fault.ErrIO
	}
	return value, value != nil, nil
}

func (h *handle) Set(k, v []byte) error {
	err := h.db.Update(func(tx *bolt.Tx) error {
		b, e := tx.CreateBucketIfNotExists(bucketName)
		if e != nil {
			return e
		}
		return b.Put(k, v)
	})
	if err != nil {
		return fault.ErrIO
	}
	return nil
}

func (h *handle) Delete(k []byte) error {
	err := h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		return b.Delete(k)
	})
	if err != nil {
		return fault.ErrIO
	}
	return nil
}

func (h *handle) Exists(k []byte) (bool, error) {
	_, ok, err := h.Get(k)
	return ok, err
}

func (h *handle) Range(prefix []byte, limit int) ([]storage.Pair, error) {
	var pairs []storage.Pair
	err := h.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			pairs = append(pairs, storage.Pair{
				Key:   append([]byte(nil), k...),
				Value: append([]byte(nil), v...),
			})
			if limit > 0 && len(pairs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fault.ErrIO
	}
	return pairs, nil
}

func (h *handle) Import(src storage.Handle) error {
	pairs, err := src.Range(nil, 0)
	if err != nil {
		return err
	}
	err = h.db.Update(func(tx *bolt.Tx) error {
		if e := tx.DeleteBucket(bucketName); e != nil && e != bolt.ErrBucketNotFound {
			return e
		}
		b, e := tx.CreateBucket(bucketName)
		if e != nil {
			return e
		}
		for _, p := range pairs {
			if e := b.Put(p.Key, p.Value); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fault.ErrIO
	}
	return nil
}
