// SPDX-License-Identifier: ISC

// Package binder implements the binding engine (C9): associating a
// (id, elem) pair with a value under one of a small set of
// read-modify-write operations, the :idmap indirection fetches fall
// back to when no direct binding exists, and the long-term
// circulation guard that forbids binding an unissued, unheld
// identifier on a durable minter.
package binder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Daniel-KM/Noid4Php/alphabet"
	"github.com/Daniel-KM/Noid4Php/constants"
	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/minter"
	"github.com/Daniel-KM/Noid4Php/session"
	"github.com/Daniel-KM/Noid4Php/template"
)

// How selects a binding operation.
type How string

const (
	Set     How = "set"
	New     How = "new"
	Replace How = "replace"
	Append  How = "append"
	Add     How = "add"
	Prepend How = "prepend"
	Insert  How = "insert"
	Delete  How = "delete"
	Purge   How = "purge"
	Mint    How = "mint"
)

// MintSentinel is the literal identifier a Mint entry must carry;
// the real identifier is substituted in once minting succeeds.
const MintSentinel = "new"

// ParseHow validates raw against the known operation vocabulary.
func ParseHow(raw string) (How, error) {
	switch How(raw) {
	case Set, New, Replace, Append, Add, Prepend, Insert, Delete, Purge, Mint:
		return How(raw), nil
	}
	return "", fault.ErrBadHow
}

// Entry is one requested binding operation.
type Entry struct {
	ID       string
	Elem     string
	Value    string
	How      How
	Validate bool // if true and R/genonly is set, id must conform to the template
}

// Result is one entry's outcome, nil if the entry was rejected.
type Result struct {
	ID    string
	Elem  string
	Value string
}

// Bind applies one binding operation under the session lock, minting
// a fresh identifier first when entry.How is Mint. The mint itself
// happens outside any lock this package holds — minter.Mint manages
// its own locking — so the session lock is only held for the
// guard-and-apply sequence that follows.
func Bind(s *session.Session, contact string, entry Entry) (*Result, error) {
	if err := validateStatic(entry); err != nil {
		return nil, s.RecordError(err)
	}

	if entry.How == Mint {
		id, err := minter.Mint(s, contact)
		if err != nil {
			return nil, err
		}
		entry.ID = id
		entry.How = New
	}

	s.Lock()
	defer s.Unlock()

	if entry.Validate {
		if err := validateAgainstTemplate(s, entry.ID); err != nil {
			return nil, s.RecordError(err)
		}
	}
	if err := checkLongtermGuard(s, entry.ID); err != nil {
		return nil, s.RecordError(err)
	}
	value, err := apply(s, entry)
	if err != nil {
		return nil, s.RecordError(err)
	}
	return &Result{ID: entry.ID, Elem: entry.Elem, Value: value}, nil
}

// BindMultiple pre-validates every entry's static preconditions
// outside any lock, resolves any Mint entries (each taking and
// releasing its own lock), and then applies every resolved entry
// under a single lock acquisition. Results are returned in input
// order; a rejected entry's slot is nil. Limit constants.MaxBatchSize.
func BindMultiple(s *session.Session, contact string, entries []Entry) ([]*Result, error) {
	if len(entries) == 0 {
		return nil, s.RecordError(fault.ErrBatchEmpty)
	}
	if len(entries) > constants.MaxBatchSize {
		return nil, s.RecordError(fault.ErrBatchTooLarge)
	}

	resolved := make([]Entry, len(entries))
	ok := make([]bool, len(entries))
	for i, e := range entries {
		if err := validateStatic(e); err != nil {
			continue
		}
		if e.How == Mint {
			id, err := minter.Mint(s, contact)
			if err != nil {
				continue
			}
			e.ID = id
			e.How = New
		}
		resolved[i] = e
		ok[i] = true
	}

	results := make([]*Result, len(entries))

	s.Lock()
	defer s.Unlock()

	for i, e := range resolved {
		if !ok[i] {
			continue
		}
		if e.Validate {
			if err := validateAgainstTemplate(s, e.ID); err != nil {
				continue
			}
		}
		if err := checkLongtermGuard(s, e.ID); err != nil {
			continue
		}
		value, err := apply(s, e)
		if err != nil {
			continue
		}
		results[i] = &Result{ID: e.ID, Elem: e.Elem, Value: value}
	}
	return results, nil
}

func validateStatic(e Entry) error {
	if e.Elem == "" {
		return fault.ErrEmptyElement
	}
	if e.How == Mint {
		if e.ID != MintSentinel {
			return fault.ErrBadInput
		}
		return nil
	}
	if e.ID == "" {
		return fault.ErrEmptyIdentifier
	}
	switch e.How {
	case Set, New, Replace, Append, Add, Prepend, Insert, Delete, Purge:
		return nil
	default:
		return fault.ErrBadHow
	}
}

// validateAgainstTemplate enforces the precondition that, when
// R/genonly is set and the caller requested validation, id must
// conform to the minter's template: correct prefix, correct body
// width (fixed-width modes only), and a correct check character when
// one is configured.
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

// checkLongtermGuard enforces that a durable (longterm) minter never
// accepts a binding on an identifier that has neither been issued nor
// explicitly reserved with a hold.
func checkLongtermGuard(s *session.Session, id string) error {
	longterm, err := boolAdmin(s, "R/longterm")
	if err != nil {
		return err
	}
	if !longterm {
		return nil
	}

	held, err := s.Handle().Exists([]byte(id + "\tR/h"))
	if err != nil {
		return err
	}
	if held {
		return nil
	}
	circulated, err := s.Handle().Exists([]byte(id + "\tR/c"))
	if err != nil {
		return err
	}
	if circulated {
		return nil
	}
	return fault.ErrLongtermUnissued
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

func apply(s *session.Session, e Entry) (string, error) {
	key := []byte(e.ID + "\t" + e.Elem)

	switch e.How {
	case Set:
		if err := s.Handle().Set(key, []byte(e.Value)); err != nil {
			return "", fault.ErrIO
		}
		return e.Value, nil

	case New:
		exists, err := s.Handle().Exists(key)
		if err != nil {
			return "", err
		}
		if exists {
			return "", fault.ErrAlreadyBound
		}
		if err := s.Handle().Set(key, []byte(e.Value)); err != nil {
			return "", fault.ErrIO
		}
		return e.Value, nil

	case Replace:
		exists, err := s.Handle().Exists(key)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", fault.ErrElementNotFound
		}
		if err := s.Handle().Set(key, []byte(e.Value)); err != nil {
			return "", fault.ErrIO
		}
		return e.Value, nil

	case Append, Add:
		cur, ok, err := s.Handle().Get(key)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fault.ErrElementNotFound
		}
		value := string(cur) + e.Value
		if err := s.Handle().Set(key, []byte(value)); err != nil {
			return "", fault.ErrIO
		}
		return value, nil

	case Prepend, Insert:
		cur, ok, err := s.Handle().Get(key)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fault.ErrElementNotFound
		}
		value := e.Value + string(cur)
		if err := s.Handle().Set(key, []byte(value)); err != nil {
			return "", fault.ErrIO
		}
		return value, nil

	case Delete, Purge:
		if err := s.Handle().Delete(key); err != nil {
			return "", fault.ErrIO
		}
		return "", nil

	default:
		return "", fault.ErrBadHow
	}
}

// idmapElem is the fixed binding element under which an :idmap/<elem>
// declaration stores its substitution pattern: :idmap/<elem> is
// itself treated as an ordinary identifier, bound once via this same
// package with how == set.
const idmapElem = "value"

func idmapKey(elem string) []byte {
	return []byte(":idmap/" + elem + "\t" + idmapElem)
}

// substitute applies a sed-style "<delim>regex<delim>replacement
// [<delim>]" pattern to id, the single regex-like replacement the
// :idmap indirection is specified to perform.
func substitute(id, pattern string) (string, error) {
	if len(pattern) < 3 {
		return "", fault.ErrBadInput
	}
	delim := pattern[0]
	rest := pattern[1:]
	parts := strings.SplitN(rest, string(delim), 2)
	if len(parts) != 2 {
		return "", fault.ErrBadInput
	}
	replacement := strings.TrimSuffix(parts[1], string(delim))
	re, err := regexp.Compile(parts[0])
	if err != nil {
		return "", fault.ErrBadInput
	}
	return re.ReplaceAllString(id, replacement), nil
}

// Binding is one resolved (elem, value) pair returned by Fetch.
type Binding struct {
	Elem  string
	Value string
}

// FetchResult is everything Fetch gathered for one identifier.
type FetchResult struct {
	ID          string
	Circulation string // raw SVEC|date|contact|counter, "" if never minted/bound
	Bindings    []Binding
}

// Fetch reads (id, elem). If elem is empty, every non-admin binding
// on id is returned via a "<id>\t" prefix scan, excluding the
// circulation and hold sub-keys (those beginning with "R/"). A direct
// miss on a single requested elem falls back to the :idmap
// indirection before reporting not-found.
func Fetch(s *session.Session, id, elem string) (*FetchResult, error) {
	if id == "" {
		return nil, s.RecordError(fault.ErrEmptyIdentifier)
	}

	res := &FetchResult{ID: id}
	circ, ok, err := s.Handle().Get([]byte(id + "\tR/c"))
	if err != nil {
		return nil, s.RecordError(err)
	}
	if ok {
		res.Circulation = string(circ)
	}

	if elem != "" {
		value, ok, err := fetchOne(s, id, elem)
		if err != nil {
			return nil, s.RecordError(err)
		}
		if !ok {
			return nil, s.RecordError(fault.ErrElementNotFound)
		}
		res.Bindings = []Binding{{Elem: elem, Value: value}}
		return res, nil
	}

	pairs, err := s.Handle().Range([]byte(id+"\t"), 0)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		suffix := string(p.Key[len(id)+1:])
		if strings.HasPrefix(suffix, "R/") {
			continue
		}
		res.Bindings = append(res.Bindings, Binding{Elem: suffix, Value: string(p.Value)})
	}
	return res, nil
}

// FetchMultiple fetches every id in ids against the same elem,
// returning results in input order with a nil slot for any id that
// fails to resolve. Limit constants.MaxBatchSize.
func FetchMultiple(s *session.Session, ids []string, elem string) ([]*FetchResult, error) {
	if len(ids) == 0 {
		return nil, s.RecordError(fault.ErrBatchEmpty)
	}
	if len(ids) > constants.MaxBatchSize {
		return nil, s.RecordError(fault.ErrBatchTooLarge)
	}

	results := make([]*FetchResult, len(ids))
	for i, id := range ids {
		res, err := Fetch(s, id, elem)
		if err != nil {
			continue
		}
		results[i] = res
	}
	return results, nil
}

func fetchOne(s *session.Session, id, elem string) (string, bool, error) {
	raw, ok, err := s.Handle().Get([]byte(id + "\t" + elem))
	if err != nil {
		return "", false, err
	}
	if ok {
		return string(raw), true, nil
	}

	pattern, ok, err := s.Handle().Get(idmapKey(elem))
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	value, err := substitute(id, string(pattern))
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Render renders a fetch result either as a single raw value line
// (the first binding's value only — the conventional shape for a
// single-elem fetch) or as a labelled multi-line report naming the
// identifier, its circulation summary, and every element.
func (r *FetchResult) Render(raw bool) string {
	if raw {
		if len(r.Bindings) == 0 {
			return ""
		}
		return r.Bindings[0].Value
	}

	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\n", r.ID)
	if r.Circulation != "" {
		fmt.Fprintf(&b, "circulation: %s\n", r.Circulation)
	}
	for _, bind := range r.Bindings {
		fmt.Fprintf(&b, "%s: %s\n", bind.Elem, bind.Value)
	}
	return b.String()
}
