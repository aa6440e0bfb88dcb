// SPDX-License-Identifier: ISC

// Package pregen implements the pre-generation pool (C7): a FIFO of
// already-computed identifiers, generated ahead of time for
// latency-sensitive callers and handed out by the mint fast path
// before it ever consults the queue or the generator.
package pregen

import (
	"fmt"

	"github.com/Daniel-KM/Noid4Php/circulation"
	"github.com/Daniel-KM/Noid4Php/constants"
	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/session"
)

const poolPrefix = "R/p/"

// Generate is the single-identifier generator the minter engine
// exposes; pregen calls it with circulation status 'p' instead of
// the 'i' a direct mint would use. Implemented by the minter package
// and injected here to avoid a storage<->minter<->pregen import
// cycle (minter's fast path itself calls pregen.Take).
type Generate func(s *session.Session, status circulation.Status, contact string) (string, error)

// Fill generates up to count identifiers via generate and appends
// them to the tail of the pool, stopping early on exhaustion. Cap:
// constants.MaxBatchSize.
func Fill(s *session.Session, count int, generate Generate) ([]string, error) {
	if count <= 0 {
		return nil, fault.ErrInvalidCount
	}
	if count > constants.MaxBatchSize {
		return nil, fault.ErrBatchTooLarge
	}

	s.Lock()
	defer s.Unlock()

	tail, err := s.GetInt64("R/pregen_tail", 0)
	if err != nil {
		return nil, err
	}

	minted := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, err := generate(s, circulation.Pregen, "")
		if err != nil {
			if fault.IsErrExhausted(err) {
				break
			}
			return minted, err
		}
		key := fmt.Sprintf("%s%d", poolPrefix, tail)
		if err := s.Handle().Set([]byte(key), []byte(id)); err != nil {
			return minted, fault.ErrIO
		}
		tail++
		minted = append(minted, id)
	}

	if err := s.SetInt64("R/pregen_tail", tail); err != nil {
		return minted, err
	}
	if _, err := s.IncrInt64("R/pregenerated", int64(len(minted))); err != nil {
		return minted, err
	}
	return minted, nil
}

// Take pops the identifier at the pool head, relabels its circulation
// SVEC leading byte from 'p' to 'i', and returns it. ok is false if
// the pool is empty.
func Take(s *session.Session) (id string, ok bool, err error) {
	head, err := s.GetInt64("R/pregen_head", 0)
	if err != nil {
		return "", false, err
	}
	key := fmt.Sprintf("%s%d", poolPrefix, head)

	raw, exists, err := s.Handle().Get([]byte(key))
	if err != nil {
		return "", false, err
	}
	if !exists {
		return "", false, nil
	}
	id = string(raw)

	if err := s.Handle().Delete([]byte(key)); err != nil {
		return "", false, fault.ErrIO
	}
	if err := s.SetInt64("R/pregen_head", head+1); err != nil {
		return "", false, err
	}
	if _, err := s.IncrInt64("R/pregenerated", -1); err != nil {
		return "", false, err
	}

	circKey := []byte(id + "\tR/c")
	rawRecord, exists, err := s.Handle().Get(circKey)
	if err != nil {
		return "", false, err
	}
	if exists {
		rec, err := circulation.Parse(string(rawRecord))
		if err != nil {
			return "", false, err
		}
		rec.RewriteLeading(circulation.Issued)
		if err := s.Handle().Set(circKey, []byte(rec.String())); err != nil {
			return "", false, fault.ErrIO
		}
	}

	return id, true, nil
}
