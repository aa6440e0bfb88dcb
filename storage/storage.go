// SPDX-License-Identifier: ISC

// Package storage defines the uniform ordered key/value contract used
// by every higher layer of the minter: a flat byte-string map sorted
// by strict lexicographic key order, with range scans, exposed the
// same way regardless of which backend is opened underneath.
package storage

import (
	"github.com/Daniel-KM/Noid4Php/fault"
)

// Mode selects how Open behaves with respect to any pre-existing store.
type Mode int

const (
	// ModeCreate removes any previous store at the target location
	// before creating a fresh, empty one.
	ModeCreate Mode = iota
	// ModeReadOnly opens an existing store; mutating calls fail.
	ModeReadOnly
	// ModeReadWrite opens an existing store for normal read/write use.
	ModeReadWrite
)

// Pair is one key/value result from a Range scan.
type Pair struct {
	Key   []byte
	Value []byte
}

// Handle is the contract every backend must satisfy.
type Handle interface {
	// Close releases the handle; any later call fails with fault.ErrIO.
	Close() error

	// Get returns the value last Set for k, or ok == false if absent.
	Get(k []byte) (value []byte, ok bool, err error)

	// Set replaces whatever value k mapped to, creating the key if new.
	Set(k, v []byte) error

	// Delete removes k; absence is not an error.
	Delete(k []byte) error

	// Exists reports key membership without fetching the value.
	Exists(k []byte) (bool, error)

	// Range returns every pair whose key has the given prefix, in
	// ascending key order. limit <= 0 means unbounded.
	Range(prefix []byte, limit int) ([]Pair, error)

	// Import erases the receiver then copies every pair from src.
	Import(src Handle) error
}

// Open dispatches to the backend named by driver. Recognised drivers
// are "bolt" (default), "leveldb", "sql" and "xml".
func Open(driver, path string, mode Mode) (Handle, error) {
	opener, ok := drivers[driver]
	if !ok {
		return nil, fault.ErrBadInput
	}
	return opener(path, mode)
}

type openFunc func(path string, mode Mode) (Handle, error)

var drivers = map[string]openFunc{}

// Register makes a backend available under name to Open. Backend
// packages call this from an init function, the way database/sql
// drivers register themselves.
func Register(name string, fn openFunc) {
	drivers[name] = fn
}

// KeyMaxLength is the minimum key length every backend must accept,
// per the storage contract (§4.4): at least 511 bytes.
const KeyMaxLength = 511
