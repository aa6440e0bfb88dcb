// SPDX-License-Identifier: ISC

// Package admincache implements the per-session admin-state cache
// (C5): on open, the immutable admin keys are prefetched once into a
// plain map so hot-path reads never round-trip the backend. Mutable
// keys (oacounter, sub-counter values, held, queued) are never
// cached, so this package holds no TTL or eviction policy at all —
// it lives for exactly one session and is cleared on close.
package admincache

import (
	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/storage"
)

// adminPrefix is the two-byte key prefix marking the administrative
// namespace, per the data model (§3): "R/".
var adminPrefix = []byte("R/")

// Cache holds the admin keys prefetched at session open.
type Cache struct {
	values map[string][]byte
}

// mutableExact lists the admin keys that the spec requires read
// directly from storage on every use, never from this cache, because
// they mutate during normal operation (§4.5, §3).
var mutableExact = map[string]bool{
	"R/oacounter":     true,
	"R/held":          true,
	"R/queued":        true,
	"R/pregenerated":  true,
	"R/fseqnum":       true,
	"R/gseqnum":       true,
	"R/gseqnum_date":  true,
	"R/saclist":       true,
	"R/siclist":       true,
	"R/pregen_head":   true,
	"R/pregen_tail":   true,
}

// mutablePrefixes lists admin key prefixes that are always dynamic
// (queue entries, pregen slots, user notes) and so are never loaded
// into the cache either; sub-counter values are excluded separately
// by their "/value" suffix in isDynamic.
var mutablePrefixes = [][]byte{
	[]byte("R/q/"),
	[]byte("R/p/"),
	[]byte("R/R/"),
}

// Load scans the admin namespace of h and returns a populated Cache
// containing only the keys that are written once at create time and
// thereafter immutable.
func Load(h storage.Handle) (*Cache, error) {
	pairs, err := h.Range(adminPrefix, 0)
	if err != nil {
		return nil, err
	}
	c := &Cache{values: make(map[string][]byte)}
	for _, p := range pairs {
		key := string(p.Key)
		if mutableExact[key] {
			continue
		}
		if isDynamic(p.Key) {
			continue
		}
		c.values[key] = p.Value
	}
	return c, nil
}

func isDynamic(key []byte) bool {
	for _, prefix := range mutablePrefixes {
		if len(key) >= len(prefix) && string(key[:len(prefix)]) == string(prefix) {
			return true
		}
	}
	// R/c<i>/value is dynamic; R/c<i>/top is the only sub-counter
	// field that stays fixed after create.
	if len(key) > len("/value") && string(key[len(key)-len("/value"):]) == "/value" {
		return true
	}
	return false
}

// Get returns the cached value for key, which must be an admin key
// (begin with "R/"). Absence is reported the same way storage.Handle
// reports it: ok == false, no error.
func (c *Cache) Get(key string) (value []byte, ok bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString is Get with a string conversion, for the many admin
// values that are short ASCII strings (mask, firstpart, flags).
func (c *Cache) GetString(key string) (string, bool) {
	v, ok := c.values[key]
	if !ok {
		return "", false
	}
	return string(v), true
}

// MustGetString returns the cached string value or fault.ErrConfig if
// the admin key is missing — used for keys that dbcreate guarantees
// to always write, so absence means a corrupted or pre-schema store.
func (c *Cache) MustGetString(key string) (string, error) {
	v, ok := c.GetString(key)
	if !ok {
		return "", fault.ErrConfig
	}
	return v, nil
}

// Set updates the cached copy of key after a caller has also written
// it to storage. admincache never writes through to storage itself —
// admin keys are written once at create time and the few that do
// mutate later (see §3 invariant list) still go through this so
// later reads in the same session see the update.
func (c *Cache) Set(key string, value []byte) {
	c.values[key] = value
}

// Clear drops every cached entry, called from session.Close.
func (c *Cache) Clear() {
	c.values = nil
}
