// SPDX-License-Identifier: ISC

// Package minter implements the single authoritative mint algorithm
// (C8): pre-generation pool fast path, recyclable-queue path, then
// the seeded-random or sequential generator path, with sub-counter
// partitioning for even draw spreading in random mode.
package minter

import (
	"fmt"
	"strings"

	"github.com/Daniel-KM/Noid4Php/alphabet"
	"github.com/Daniel-KM/Noid4Php/circulation"
	"github.com/Daniel-KM/Noid4Php/constants"
	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/pregen"
	"github.com/Daniel-KM/Noid4Php/queue"
	"github.com/Daniel-KM/Noid4Php/session"
	"github.com/Daniel-KM/Noid4Php/template"
)

// Mint produces the next identifier for contact, trying the
// pre-generation pool, then the queue, then the generator, in that
// order, under the session's single process-local lock.
func Mint(s *session.Session, contact string) (string, error) {
	if id, ok, err := tryPregen(s); err != nil {
		return "", s.RecordError(err)
	} else if ok {
		return id, nil
	}

	if id, ok, err := tryQueue(s, contact); err != nil {
		return "", s.RecordError(err)
	} else if ok {
		return id, nil
	}

	id, err := mintGenerated(s, contact)
	if err != nil {
		return "", s.RecordError(err)
	}
	return id, nil
}

// MintMultiple validates count once and repeats Mint up to count
// times, stopping early on exhaustion and returning the prefix of
// successfully minted ids. Upper bound constants.MaxBatchSize.
func MintMultiple(s *session.Session, contact string, count int) ([]string, error) {
	if count <= 0 {
		return nil, s.RecordError(fault.ErrInvalidCount)
	}
	if count > constants.MaxBatchSize {
		return nil, s.RecordError(fault.ErrBatchTooLarge)
	}

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, err := Mint(s, contact)
		if err != nil {
			if fault.IsErrExhausted(err) {
				break
			}
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func tryPregen(s *session.Session) (string, bool, error) {
	s.Lock()
	defer s.Unlock()

	pregenerated, err := s.GetInt64("R/pregenerated", 0)
	if err != nil {
		return "", false, err
	}
	if pregenerated <= 0 {
		return "", false, nil
	}
	return pregen.Take(s)
}

func tryQueue(s *session.Session, contact string) (string, bool, error) {
	s.Lock()
	defer s.Unlock()

	queued, err := s.GetInt64("R/queued", 0)
	if err != nil {
		return "", false, err
	}
	if queued <= 0 {
		return "", false, nil
	}

	entry, ok, err := queue.Consume(s)
	if err != nil || !ok {
		return "", false, err
	}
	if err := commit(s, entry.ID, contact); err != nil {
		return "", false, err
	}
	return entry.ID, true, nil
}

func mintGenerated(s *session.Session, contact string) (string, error) {
	s.Lock()
	defer s.Unlock()

	return generateOne(s, circulation.Issued, contact)
}

// Generate implements the pregen.Generate function type, letting the
// pregeneration pool reuse the same generator-path logic with a
// different circulation status.
func Generate(s *session.Session, status circulation.Status, contact string) (string, error) {
	return generateOne(s, status, contact)
}

// generateOne runs the generator-path loop (§4.8 step 3) until a
// valid candidate is produced or the space is exhausted, committing
// the full circulation record (step f) before returning. It does not
// take the session lock — callers must already hold it.
func generateOne(s *session.Session, status circulation.Status, contact string) (string, error) {
	tmpl := s.Template()
	if tmpl == nil {
		return "", fault.ErrBadInput
	}

	for {
		oacounter, err := s.GetInt64("R/oacounter", 0)
		if err != nil {
			return "", err
		}
		oatop, err := s.GetInt64("R/oatop", -1)
		if err != nil {
			return "", err
		}
		longterm, err := boolAdmin(s, "R/longterm")
		if err != nil {
			return "", err
		}
		wrap, err := boolAdmin(s, "R/wrap")
		if err != nil {
			return "", err
		}

		if oatop != -1 && oacounter == oatop {
			if longterm || !wrap {
				return "", fault.ErrExhausted
			}
			s.Log().Debugf("minter: wrapping identifier space at oacounter=%d", oacounter)
			if err := resetForWrap(s); err != nil {
				return "", err
			}
			continue
		}

		var body string
		if tmpl.Mode == template.Random {
			body, err = randomDraw(s)
		} else {
			body, err = sequentialDraw(s, oacounter)
		}
		if err != nil {
			return "", err
		}

		firstpart, _, err := s.GetString("R/firstpart")
		if err != nil {
			return "", err
		}
		id := firstpart + body

		addCheck, err := boolAdmin(s, "R/addcheckchar")
		if err != nil {
			return "", err
		}
		if addCheck {
			repertoire, ok, err := s.GetString("R/checkrepertoire")
			if err != nil {
				return "", err
			}
			if !ok || len(repertoire) == 0 {
				return "", fault.ErrConfig
			}
			cc, err := alphabet.CheckChar(alphabet.Name(repertoire[0]), id+"+")
			if err != nil {
				return "", err
			}
			id += string(cc)
		}

		accept, err := guard(s, id, longterm, wrap)
		if err != nil {
			return "", err
		}
		if !accept {
			continue
		}

		if err := writeRecord(s, id, status, contact, oacounter); err != nil {
			return "", err
		}
		if status == circulation.Issued && longterm {
			if err := placeHold(s, id); err != nil {
				return "", err
			}
		}
		return id, nil
	}
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

func sequentialDraw(s *session.Session, oacounter int64) (string, error) {
	t := s.Template()
	body, err := alphabet.EncodeMask(maskBody(t.Mask), oacounter)
	if err != nil {
		return "", err
	}
	if _, err := s.IncrInt64("R/oacounter", 1); err != nil {
		return "", err
	}
	return body, nil
}

func maskBody(mask string) string {
	body := mask[1:]
	if len(body) > 0 && body[len(body)-1] == 'k' {
		body = body[:len(body)-1]
	}
	return body
}

func randomDraw(s *session.Session) (string, error) {
	saclistRaw, _, err := s.GetString("R/saclist")
	if err != nil {
		return "", err
	}
	saclist := strings.Fields(saclistRaw)
	if len(saclist) == 0 {
		return "", fault.ErrExhausted
	}

	oacounter, err := s.GetInt64("R/oacounter", 0)
	if err != nil {
		return "", err
	}
	s.PRNG().Seed(uint32(oacounter))
	k := s.PRNG().IntRand(int64(len(saclist)))
	name := saclist[k]

	value, err := s.GetInt64("R/"+name+"/value", 0)
	if err != nil {
		return "", err
	}
	top, err := s.GetInt64("R/"+name+"/top", 0)
	if err != nil {
		return "", err
	}
	if err := s.SetInt64("R/"+name+"/value", value+1); err != nil {
		return "", err
	}
	if _, err := s.IncrInt64("R/oacounter", 1); err != nil {
		return "", err
	}

	if value+1 == top {
		if err := moveSubCounter(s, name, "R/saclist", "R/siclist"); err != nil {
			return "", err
		}
	}

	percounter, err := s.GetInt64("R/percounter", 0)
	if err != nil {
		return "", err
	}
	index, err := subCounterIndex(name)
	if err != nil {
		return "", err
	}

	t := s.Template()
	return alphabet.EncodeMask(maskBody(t.Mask), value+int64(index)*percounter)
}

func subCounterIndex(name string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(name, "c%d", &n); err != nil {
		return 0, fault.ErrIO
	}
	return n, nil
}

func moveSubCounter(s *session.Session, name, fromKey, toKey string) error {
	from, _, err := s.GetString(fromKey)
	if err != nil {
		return err
	}
	to, _, err := s.GetString(toKey)
	if err != nil {
		return err
	}
	var kept []string
	for _, n := range strings.Fields(from) {
		if n != name {
			kept = append(kept, n)
		}
	}
	if err := s.SetString(fromKey, strings.Join(kept, " ")); err != nil {
		return err
	}
	return s.SetString(toKey, strings.TrimSpace(to+" "+name))
}

// guard applies the per-id validation of §4.8 step e: false means the
// generator loop should continue drawing.
func guard(s *session.Session, id string, longterm, wrap bool) (bool, error) {
	held, err := s.Handle().Exists([]byte(id + "\tR/h"))
	if err != nil {
		return false, err
	}
	if held {
		return false, nil
	}

	raw, ok, err := s.Handle().Get([]byte(id + "\tR/c"))
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	rec, err := circulation.Parse(string(raw))
	if err != nil {
		return false, err
	}
	switch rec.Current() {
	case circulation.Queued:
		return false, nil
	case circulation.Issued:
		if longterm || !wrap {
			s.Log().Errorf("minter: generated id %s already issued, skipping", id)
			return false, nil
		}
	case circulation.Unqueued:
		s.Log().Debugf("minter: generated id %s previously unqueued, skipping", id)
		return false, nil
	}
	return true, nil
}

func writeRecord(s *session.Session, id string, status circulation.Status, contact string, counter int64) error {
	rec := circulation.New(status, contact, counter)
	if err := s.Handle().Set([]byte(id+"\tR/c"), []byte(rec.String())); err != nil {
		return fault.ErrIO
	}
	return purgeNonAdminBindings(s, id)
}

func commit(s *session.Session, id, contact string) error {
	raw, ok, err := s.Handle().Get([]byte(id + "\tR/c"))
	if err != nil {
		return err
	}
	var rec *circulation.Record
	if ok {
		rec, err = circulation.Parse(string(raw))
		if err != nil {
			return err
		}
		if err := rec.Prepend(circulation.Issued); err != nil {
			return err
		}
		rec.Contact = contact
	} else {
		rec = circulation.New(circulation.Issued, contact, 0)
	}
	if err := s.Handle().Set([]byte(id+"\tR/c"), []byte(rec.String())); err != nil {
		return fault.ErrIO
	}

	longterm, err := boolAdmin(s, "R/longterm")
	if err != nil {
		return err
	}
	if longterm {
		if err := placeHold(s, id); err != nil {
			return err
		}
	}
	return nil
}

func placeHold(s *session.Session, id string) error {
	if err := s.Handle().Set([]byte(id+"\tR/h"), []byte("1")); err != nil {
		return fault.ErrIO
	}
	_, err := s.IncrInt64("R/held", 1)
	return err
}

func purgeNonAdminBindings(s *session.Session, id string) error {
	pairs, err := s.Handle().Range([]byte(id+"\t"), 0)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		suffix := string(p.Key[len(id)+1:])
		if strings.HasPrefix(suffix, "R/") {
			continue
		}
		if err := s.Handle().Delete(p.Key); err != nil {
			return fault.ErrIO
		}
	}
	return nil
}

func resetForWrap(s *session.Session) error {
	t := s.Template()
	if t.Mode == template.Sequential {
		return s.SetInt64("R/oacounter", 0)
	}

	pairs, err := s.Handle().Range([]byte("R/c"), 0)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		key := string(p.Key)
		if strings.HasSuffix(key, "/value") {
			if err := s.Handle().Set(p.Key, []byte("0")); err != nil {
				return fault.ErrIO
			}
		}
	}

	var names []string
	for i := 0; ; i++ {
		name := fmt.Sprintf("c%d", i)
		if _, ok, _ := s.GetString("R/" + name + "/top"); !ok {
			break
		}
		names = append(names, name)
	}
	if err := s.SetString("R/saclist", strings.Join(names, " ")); err != nil {
		return err
	}
	return s.SetString("R/siclist", "")
}
