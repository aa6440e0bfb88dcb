// SPDX-License-Identifier: ISC

// Package queue implements the recyclable-identifier queue and hold
// subsystem (C6): FIFO re-issue ordering with time-triggered
// ripening, plus a simple hold flag that excludes an identifier from
// both generation and queueing.
package queue

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Daniel-KM/Noid4Php/alphabet"
	"github.com/Daniel-KM/Noid4Php/circulation"
	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/session"
	"github.com/Daniel-KM/Noid4Php/template"
)

const queuePrefix = "R/q/"
const zeroDate = "00000000000000"

// When selects an enqueue mode.
type When string

const (
	Now    When = "now"
	First  When = "first"
	LVF    When = "lvf"
	Delete When = "delete"
)

// ParseWhen accepts "now", "first", "lvf", "delete", or "<N>s"/"<N>d".
func ParseWhen(raw string) (When, time.Duration, error) {
	switch raw {
	case "now", "first", "lvf", "delete":
		return When(raw), 0, nil
	}
	if len(raw) < 2 {
		return "", 0, fault.ErrBadInput
	}
	unit := raw[len(raw)-1]
	n, err := strconv.ParseInt(raw[:len(raw)-1], 10, 64)
	if err != nil {
		return "", 0, fault.ErrBadInput
	}
	switch unit {
	case 's':
		return Now, time.Duration(n) * time.Second, nil
	case 'd':
		return Now, time.Duration(n) * 24 * time.Hour, nil
	}
	return "", 0, fault.ErrBadInput
}

// Enqueue validates and enqueues ids, or removes their queue entries
// if when resolves to Delete.
func Enqueue(s *session.Session, rawWhen string, ids []string) error {
	when, offset, err := ParseWhen(rawWhen)
	if err != nil {
		return s.RecordError(err)
	}

	s.Lock()
	defer s.Unlock()

	if when == Delete {
		for _, id := range ids {
			if err := dequeueOne(s, id); err != nil {
				return s.RecordError(err)
			}
		}
		return nil
	}

	for _, id := range ids {
		if err := enqueueOne(s, when, offset, id); err != nil {
			return s.RecordError(err)
		}
	}
	return nil
}

func enqueueOne(s *session.Session, when When, offset time.Duration, id string) error {
	held, err := isHeld(s, id)
	if err != nil {
		return err
	}
	if held {
		return fault.ErrHoldConflict
	}

	rec, err := currentRecord(s, id)
	if err != nil {
		return err
	}
	if rec.Current() == circulation.Queued {
		return fault.ErrQueueConflict
	}

	if err := validateAgainstTemplate(s, id); err != nil {
		return err
	}

	qdate := zeroDate
	seqnum := int64(0)

	switch when {
	case Now:
		qdate = time.Now().UTC().Add(offset).Format(circulation.DateLayout)
		seqnum, err = nextGSeqnum(s, qdate)
		if err != nil {
			return err
		}
	case First:
		seqnum, err = s.GetInt64("R/fseqnum", 1)
		if err != nil {
			return err
		}
		if err := s.SetInt64("R/fseqnum", seqnum+1); err != nil {
			return err
		}
	case LVF:
		seqnum = 0
	}

	padwidth, err := s.GetInt64("R/padwidth", 0)
	if err != nil {
		return err
	}
	suffix, err := numericSuffix(s, id)
	if err != nil {
		return err
	}
	paddedID := fmt.Sprintf("%0*s", int(padwidth), suffix)

	key := fmt.Sprintf("%s%s/%06d/%s", queuePrefix, qdate, seqnum, paddedID)
	if err := s.Handle().Set([]byte(key), []byte(id)); err != nil {
		return fault.ErrIO
	}

	if _, err := s.IncrInt64("R/queued", 1); err != nil {
		return err
	}

	return transition(s, id, circulation.Queued)
}

func dequeueOne(s *session.Session, id string) error {
	pairs, err := s.Handle().Range([]byte(queuePrefix), 0)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if string(p.Value) == id {
			if err := s.Handle().Delete(p.Key); err != nil {
				return fault.ErrIO
			}
			if _, err := s.IncrInt64("R/queued", -1); err != nil {
				return err
			}
			return transition(s, id, circulation.Unqueued)
		}
	}
	return fault.ErrNotFound
}

// nextGSeqnum advances the real-time lane sequence, resetting it to 1
// whenever qdate differs from the stored gseqnum_date.
func nextGSeqnum(s *session.Session, qdate string) (int64, error) {
	stored, _, err := s.GetString("R/gseqnum_date")
	if err != nil {
		return 0, err
	}
	if stored != qdate {
		if err := s.SetString("R/gseqnum_date", qdate); err != nil {
			return 0, err
		}
		if err := s.SetInt64("R/gseqnum", 2); err != nil {
			return 0, err
		}
		return 1, nil
	}
	n, err := s.GetInt64("R/gseqnum", 1)
	if err != nil {
		return 0, err
	}
	if err := s.SetInt64("R/gseqnum", n+1); err != nil {
		return 0, err
	}
	return n, nil
}

// Entry is one ripe queue head popped by Consume.
type Entry struct {
	ID  string
	Key []byte
}

// Consume scans the queue head and returns the first ripe, valid
// entry, or ok == false if the queue is empty or its head is not yet
// ripe (mint should fall through to the generator path).
func Consume(s *session.Session) (entry *Entry, ok bool, err error) {
	for {
		pairs, err := s.Handle().Range([]byte(queuePrefix), 1)
		if err != nil {
			return nil, false, err
		}
		if len(pairs) == 0 {
			return nil, false, nil
		}

		key := pairs[0].Key
		id := string(pairs[0].Value)

		parts := strings.SplitN(string(key[len(queuePrefix):]), "/", 3)
		if len(parts) != 3 {
			s.Handle().Delete(key)
			continue
		}
		qdate := parts[0]

		if qdate != zeroDate {
			now := time.Now().UTC().Format(circulation.DateLayout)
			if now < qdate {
				return nil, false, nil
			}
		}

		held, err := isHeld(s, id)
		if err != nil {
			return nil, false, err
		}
		if held {
			s.Handle().Delete(key)
			s.IncrInt64("R/queued", -1)
			s.Log().Debugf("queue: dropping held id %s", id)
			if err := normalizeIfDrained(s, qdate); err != nil {
				return nil, false, err
			}
			continue
		}

		rec, err := currentRecord(s, id)
		if err != nil {
			return nil, false, err
		}

		switch rec.Current() {
		case circulation.Queued, 0:
			if rec.Current() == 0 {
				s.Log().Debugf("queue: id %s has no prior circulation record, pre-cycle", id)
			}
			s.Handle().Delete(key)
			if _, err := s.IncrInt64("R/queued", -1); err != nil {
				return nil, false, err
			}
			if err := normalizeIfDrained(s, qdate); err != nil {
				return nil, false, err
			}
			return &Entry{ID: id, Key: key}, true, nil
		case circulation.Issued:
			s.Log().Errorf("queue: id %s already issued while queued, skipping", id)
		case circulation.Unqueued:
			s.Log().Debugf("queue: id %s marked unqueued, skipping", id)
		default:
			s.Log().Debugf("queue: id %s in unexpected state %c, skipping", id, rec.Current())
		}
		s.Handle().Delete(key)
		s.IncrInt64("R/queued", -1)
		if err := normalizeIfDrained(s, qdate); err != nil {
			return nil, false, err
		}
	}
}

// normalizeIfDrained implements spec.md:144's normalize step: once a
// mint has emptied the reserved zero-date lane (the one `first`
// enqueues into), fseqnum resets to 1 rather than continuing to grow
// across the lane's entire lifetime, per spec.md:133 ("reset to 1
// only when the queue empties after a mint").
func normalizeIfDrained(s *session.Session, qdate string) error {
	if qdate != zeroDate {
		return nil
	}
	remaining, err := s.Handle().Range([]byte(queuePrefix+zeroDate+"/"), 1)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return s.SetInt64("R/fseqnum", 1)
	}
	return nil
}

func currentRecord(s *session.Session, id string) (*circulation.Record, error) {
	raw, ok, err := s.Handle().Get([]byte(id + "\tR/c"))
	if err != nil {
		return nil, err
	}
	if !ok {
		return &circulation.Record{}, nil
	}
	return circulation.Parse(string(raw))
}

func transition(s *session.Session, id string, status circulation.Status) error {
	key := []byte(id + "\tR/c")
	raw, ok, err := s.Handle().Get(key)
	if err != nil {
		return err
	}
	if !ok {
		rec := circulation.New(status, "", 0)
		return s.Handle().Set(key, []byte(rec.String()))
	}
	rec, err := circulation.Parse(string(raw))
	if err != nil {
		return err
	}
	if err := rec.Prepend(status); err != nil {
		return err
	}
	return s.Handle().Set(key, []byte(rec.String()))
}

func isHeld(s *session.Session, id string) (bool, error) {
	return s.Handle().Exists([]byte(id + "\tR/h"))
}

// validateAgainstTemplate enforces the precondition that, when
// R/genonly is set, an id re-entering circulation through the queue
// must conform to the minter's template: correct prefix, correct
// body width (fixed-width modes only), and a correct check character
// when one is configured. Mirrors binder's equivalent bind-time check.
func validateAgainstTemplate(s *session.Session, id string) error {
	genonly, err := boolAdmin(s, "R/genonly")
	if err != nil {
		return err
	}
	if !genonly {
		return nil
	}

	tmpl := s.Template()
	if tmpl == nil {
		return fault.ErrBadTemplate
	}

	firstpart, _, err := s.GetString("R/firstpart")
	if err != nil {
		return err
	}
	if !strings.HasPrefix(id, firstpart) {
		return fault.ErrBadInput
	}
	body := id[len(firstpart):]

	addCheck, err := boolAdmin(s, "R/addcheckchar")
	if err != nil {
		return err
	}
	if addCheck {
		if len(body) == 0 {
			return fault.ErrBadInput
		}
		repertoire, ok, err := s.GetString("R/checkrepertoire")
		if err != nil {
			return err
		}
		if !ok || len(repertoire) == 0 {
			return fault.ErrConfig
		}
		// CheckChar is computed over the full id (firstpart included, see
		// minter.generateOne), so Verify must be given the full id too.
		valid, err := alphabet.Verify(alphabet.Name(repertoire[0]), id)
		if err != nil {
			return err
		}
		if !valid {
			return fault.ErrBadInput
		}
		body = body[:len(body)-1]
	}

	if tmpl.Mode != template.SequentialUnbounded && len(body) != tmpl.Width() {
		return fault.ErrBadInput
	}
	return nil
}

func boolAdmin(s *session.Session, key string) (bool, error) {
	v, ok, err := s.GetString(key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return v == "true" || v == "1" || v == "yes", nil
}

func numericSuffix(s *session.Session, id string) (string, error) {
	firstpart, _, err := s.GetString("R/firstpart")
	if err != nil {
		return "", err
	}
	if firstpart != "" && strings.HasPrefix(id, firstpart) {
		return id[len(firstpart):], nil
	}
	return id, nil
}

// Hold sets the hold flag on id, rejecting the call if R/held would
// exceed R/oatop (when bounded). Idempotent: holding an already-held
// id (e.g. one auto-held by a long-term mint) is a no-op.
func Hold(s *session.Session, id string) error {
	s.Lock()
	defer s.Unlock()

	already, err := isHeld(s, id)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	oatop, err := s.GetInt64("R/oatop", -1)
	if err != nil {
		return err
	}
	held, err := s.GetInt64("R/held", 0)
	if err != nil {
		return err
	}
	if oatop != -1 && held+1 > oatop {
		return s.RecordError(fault.ErrExhausted)
	}

	if err := s.Handle().Set([]byte(id+"\tR/h"), []byte("1")); err != nil {
		return s.RecordError(fault.ErrIO)
	}
	_, err = s.IncrInt64("R/held", 1)
	return err
}

// Release clears the hold flag on id.
func Release(s *session.Session, id string) error {
	s.Lock()
	defer s.Unlock()

	exists, err := isHeld(s, id)
	if err != nil {
		return err
	}
	if !exists {
		return s.RecordError(fault.ErrNotFound)
	}
	if err := s.Handle().Delete([]byte(id + "\tR/h")); err != nil {
		return s.RecordError(fault.ErrIO)
	}
	_, err = s.IncrInt64("R/held", -1)
	return err
}
