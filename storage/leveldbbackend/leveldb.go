// SPDX-License-Identifier: ISC

// Package leveldbbackend implements the storage.Handle contract on
// top of github.com/syndtr/goleveldb, selectable with `-t leveldb`.
package leveldbbackend

import (
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/storage"
)

func init() {
	storage.Register("leveldb", open)
}

type handle struct {
	db *leveldb.DB
}

func open(path string, mode storage.Mode) (storage.Handle, error) {
	if mode == storage.ModeCreate {
		if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
			return nil, fault.ErrIO
		}
	}

	options := &opt.Options{
		ReadOnly: mode == storage.ModeReadOnly,
	}
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, fault.ErrIO
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
	value, err := h.db.Get(k, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fault.ErrIO
	}
	return value, true, nil
}

func (h *handle) Set(k, v []byte) error {
	if err := h.db.Put(k, v, nil); err != nil {
		return fault.ErrIO
	}
	return nil
}

func (h *handle) Delete(k []byte) error {
	if err := h.db.Delete(k, nil); err != nil {
		return fault.ErrIO
	}
	return nil
}

func (h *handle) Exists(k []byte) (bool, error) {
	ok, err := h.db.Has(k, nil)
	if err != nil {
		return false, fault.ErrIO
	}
	return ok, nil
}

func (h *handle) Range(prefix []byte, limit int) ([]storage.Pair, error) {
	iter := h.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var pairs []storage.Pair
	for iter.Next() {
		k := iter.Key()
		v := iter.Value()
		pairs = append(pairs, storage.Pair{
			Key:   append([]byte(nil), k...),
			Value: append([]byte(nil), v...),
		})
		if limit > 0 && len(pairs) >= limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fault.ErrIO
	}
	return pairs, nil
}

func (h *handle) Import(src storage.Handle) error {
	pairs, err := src.Range(nil, 0)
	if err != nil {
		return err
	}

	all, err := h.Range(nil, 0)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, p := range all {
		batch.Delete(p.Key)
	}
	for _, p := range pairs {
		batch.Put(p.Key, p.Value)
	}
	if err := h.db.Write(batch, nil); err != nil {
		return fault.ErrIO
	}
	return nil
}
