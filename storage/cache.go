// SPDX-License-Identifier: ISC

package storage

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// cachedHandle fronts a backend Handle with a short-lived read cache,
// so repeated Get/Exists calls for hot per-identifier keys during a
// single mint or bind burst do not each round-trip the backend.
type cachedHandle struct {
	Handle
	reads *gocache.Cache
}

// Cached wraps h with an in-memory read cache. Writes and deletes
// invalidate the affected key immediately; Range bypasses the cache
// since scans are already backend-ordered and rarely repeated.
func Cached(h Handle) Handle {
	return &cachedHandle{
		Handle: h,
		reads:  gocache.New(5*time.Second, 30*time.Second),
	}
}

func (c *cachedHandle) Get(k []byte) ([]byte, bool, error) {
	if v, found := c.reads.Get(string(k)); found {
		if v == nil {
			return nil, false, nil
		}
		return v.([]byte), true, nil
	}
	value, ok, err := c.Handle.Get(k)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		c.reads.SetDefault(string(k), nil)
		return nil, false, nil
	}
	c.reads.SetDefault(string(k), value)
	return value, true, nil
}

func (c *cachedHandle) Exists(k []byte) (bool, error) {
	_, ok, err := c.Get(k)
	return ok, err
}

func (c *cachedHandle) Set(k, v []byte) error {
	if err := c.Handle.Set(k, v); err != nil {
		return err
	}
	c.reads.SetDefault(string(k), v)
	return nil
}

func (c *cachedHandle) Delete(k []byte) error {
	if err := c.Handle.Delete(k); err != nil {
		return err
	}
	c.reads.Delete(string(k))
	return nil
}

func (c *cachedHandle) Close() error {
	c.reads.Flush()
	return c.Handle.Close()
}
