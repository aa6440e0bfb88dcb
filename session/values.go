// SPDX-License-Identifier: ISC

package session

import (
	"strconv"
	"strings"

	"github.com/Daniel-KM/Noid4Php/fault"
)

// GetString serves key from the session's admin cache first — the
// immutable-at-open snapshot C5 describes — and only round-trips
// storage for keys admincache.Load never captures (the mutable ones:
// oacounter, sub-counter values, held, queued, and so on) or when no
// cache exists yet (create mode).
func (s *Session) GetString(key string) (string, bool, error) {
	if s.cache != nil && strings.HasPrefix(key, "R/") {
		if v, ok := s.cache.GetString(key); ok {
			return v, true, nil
		}
	}
	v, ok, err := s.handle.Get([]byte(key))
	if err != nil {
		return "", false, err
	}
	return string(v), ok, nil
}

// SetString writes key to storage and, if the admin cache happens to
// hold it, refreshes the cached copy too, so a later read in the
// same session never sees a stale snapshot.
func (s *Session) SetString(key, value string) error {
	if err := s.handle.Set([]byte(key), []byte(value)); err != nil {
		return err
	}
	if s.cache != nil {
		if _, ok := s.cache.GetString(key); ok {
			s.cache.Set(key, []byte(value))
		}
	}
	return nil
}

// GetInt64 reads key and parses it as a base-10 integer, returning
// def if the key is absent.
func (s *Session) GetInt64(key string, def int64) (int64, error) {
	v, ok, err := s.GetString(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fault.ErrIO
	}
	return n, nil
}

// SetInt64 writes key as a base-10 integer string.
func (s *Session) SetInt64(key string, value int64) error {
	return s.SetString(key, strconv.FormatInt(value, 10))
}

// IncrInt64 reads, adds delta, writes back, and returns the new
// value.
func (s *Session) IncrInt64(key string, delta int64) (int64, error) {
	v, err := s.GetInt64(key, 0)
	if err != nil {
		return 0, err
	}
	v += delta
	return v, s.SetInt64(key, v)
}
