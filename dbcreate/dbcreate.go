// SPDX-License-Identifier: ISC

// Package dbcreate implements the database creator (C11): validates a
// creation request, opens a fresh backend, writes every admin key the
// data model requires in one logical pass, derives the durability
// mnemonic, and reports what it built.
package dbcreate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Daniel-KM/Noid4Php/alphabet"
	"github.com/Daniel-KM/Noid4Php/constants"
	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/session"
	"github.com/Daniel-KM/Noid4Php/storage"
	"github.com/Daniel-KM/Noid4Php/template"
)

// Term selects how durable the minted identifiers are meant to be.
type Term string

const (
	TermLong   Term = "long"
	TermMedium Term = "medium"
	TermShort  Term = "short"
	TermNone   Term = "-"
)

// ParseTerm validates raw against the four recognised terms.
func ParseTerm(raw string) (Term, error) {
	switch Term(raw) {
	case TermLong, TermMedium, TermShort, TermNone:
		return Term(raw), nil
	}
	return "", fault.ErrInvalidTerm
}

// Request is everything needed to create one noid database.
type Request struct {
	Settings session.Settings
	Contact  string
	Template string // raw prefix.mask; empty creates a bind-only minter
	Term     Term
	Naan     string
	Naa      string
	Subnaa   string
	Genonly  bool // restrict binding/queueing to ids conforming to the template
}

var naanPattern = regexp.MustCompile(`^\d{5}$`)

func validate(r Request) error {
	if r.Contact == "" {
		return fault.ErrMissingContact
	}
	switch r.Term {
	case TermLong, TermMedium, TermShort, TermNone:
	default:
		return fault.ErrInvalidTerm
	}
	if r.Term == TermLong {
		if !naanPattern.MatchString(r.Naan) {
			return fault.ErrInvalidNaan
		}
		if r.Naa == "" {
			return fault.ErrMissingNaa
		}
		if r.Subnaa == "" {
			return fault.ErrMissingSubnaa
		}
	}
	return nil
}

// Create validates r, parses its template (an empty template yields a
// bind-only minter with no generation capability), opens the chosen
// backend in create mode, writes every admin key §3 of the data model
// lists, and returns a human-readable creation report.
func Create(r Request) (string, error) {
	if err := validate(r); err != nil {
		return "", err
	}

	var tmpl *template.Template
	if r.Template != "" {
		t, err := template.Parse(r.Template)
		if err != nil {
			return "", err
		}
		tmpl = t
	}

	s, err := session.Open(r.Settings, storage.ModeCreate)
	if err != nil {
		return "", err
	}
	defer s.Close()

	longterm := r.Term == TermLong
	if err := writeAdminKeys(s, r, tmpl, longterm); err != nil {
		return "", err
	}

	out := report(r, tmpl, longterm)
	readmePath := filepath.Join(r.Settings.DataDir, r.Settings.DBName, "README")
	if err := os.WriteFile(readmePath, []byte(out), 0o644); err != nil {
		return "", fault.ErrIO
	}

	return out, nil
}

func writeAdminKeys(s *session.Session, r Request, tmpl *template.Template, longterm bool) error {
	h := s.Handle()

	set := func(key, value string) error {
		if err := h.Set([]byte(key), []byte(value)); err != nil {
			return fault.ErrIO
		}
		return nil
	}
	setInt := func(key string, value int64) error {
		return set(key, fmt.Sprintf("%d", value))
	}
	setBool := func(key string, value bool) error {
		return set(key, fmt.Sprintf("%t", value))
	}

	prefix, mask, firstpart := "", "", ""
	generatorType := "sequential"
	total := template.NOLIMIT
	var padwidth int64

	if tmpl != nil {
		prefix = tmpl.Prefix
		mask = tmpl.Mask
		firstpart = prefix
		if r.Naan != "" {
			firstpart = r.Naan + "/" + prefix
		}
		if tmpl.Mode == template.Random {
			generatorType = "random"
		}
		total = tmpl.Capacity
		padwidth = int64(tmpl.Width())
	}

	writers := []func() error{
		func() error { return set("R/template", r.Template) },
		func() error { return set("R/prefix", prefix) },
		func() error { return set("R/mask", mask) },
		func() error { return set("R/firstpart", firstpart) },
		func() error { return set("R/generator_type", generatorType) },
		func() error {
			if generatorType != "random" {
				return nil
			}
			return set("R/generator_random", "drand48")
		},
		func() error { return setInt("R/total", total) },
		func() error { return setInt("R/oatop", total) },
		func() error { return setInt("R/padwidth", padwidth) },
		func() error { return setBool("R/longterm", longterm) },
		func() error { return setBool("R/wrap", !longterm && r.Term != TermNone) },
		func() error { return setBool("R/genonly", r.Genonly) },
		func() error { return setBool("R/addcheckchar", tmpl != nil && tmpl.HasCheck) },
		func() error {
			if tmpl == nil {
				return nil
			}
			return set("R/checkrepertoire", string(tmpl.Repertoire))
		},
		func() error {
			if tmpl == nil {
				return nil
			}
			return set("R/checkalphabet", string(tmpl.Repertoire))
		},
		func() error { return set("R/naan", r.Naan) },
		func() error { return set("R/naa", r.Naa) },
		func() error { return set("R/subnaa", r.Subnaa) },
		func() error { return setInt("R/oacounter", 0) },
		func() error { return setInt("R/held", 0) },
		func() error { return setInt("R/queued", 0) },
		func() error { return setInt("R/pregenerated", 0) },
		func() error { return setInt("R/pregen_head", 0) },
		func() error { return setInt("R/pregen_tail", 0) },
		func() error { return setInt("R/fseqnum", 1) },
		func() error { return setInt("R/gseqnum", 1) },
		func() error { return set("R/gseqnum_date", "") },
	}
	for _, w := range writers {
		if err := w(); err != nil {
			return err
		}
	}

	if tmpl != nil && tmpl.Mode != template.SequentialUnbounded && total > 0 {
		if err := writeSubCounters(h, total); err != nil {
			return err
		}
	} else {
		if err := set("R/saclist", ""); err != nil {
			return err
		}
		if err := set("R/siclist", ""); err != nil {
			return err
		}
		if err := set("R/percounter", "0"); err != nil {
			return err
		}
	}

	return set("R/properties", deriveProperties(tmpl, r, longterm))
}

// writeSubCounters partitions total draws across
// constants.SubCounterCount sub-counters, each with a ceiling summing
// to total, all starting at value 0 and listed active in saclist.
func writeSubCounters(h storage.Handle, total int64) error {
	count := int64(constants.SubCounterCount)
	percounter := (total + count - 1) / count
	if percounter < 1 {
		percounter = 1
	}

	remaining := total
	var names []string
	for i := int64(0); i < count && remaining > 0; i++ {
		top := percounter
		if top > remaining {
			top = remaining
		}
		name := fmt.Sprintf("c%d", i)
		if err := h.Set([]byte("R/"+name+"/top"), []byte(fmt.Sprintf("%d", top))); err != nil {
			return fault.ErrIO
		}
		if err := h.Set([]byte("R/"+name+"/value"), []byte("0")); err != nil {
			return fault.ErrIO
		}
		names = append(names, name)
		remaining -= top
	}

	if err := h.Set([]byte("R/saclist"), []byte(strings.Join(names, " "))); err != nil {
		return fault.ErrIO
	}
	if err := h.Set([]byte("R/siclist"), []byte("")); err != nil {
		return fault.ErrIO
	}
	return h.Set([]byte("R/percounter"), []byte(fmt.Sprintf("%d", percounter)))
}

// deriveProperties implements the seven-letter "GRANITE" durability
// mnemonic: one letter per flag, upper-case when the property holds,
// lower-case otherwise.
func deriveProperties(tmpl *template.Template, r Request, longterm bool) string {
	letters := constants.PropertiesMnemonic

	prefix, mask := "", ""
	if tmpl != nil {
		prefix = tmpl.Prefix
		mask = tmpl.Mask
	}

	flags := [7]bool{
		r.Term == TermLong && naanPattern.MatchString(r.Naan) && r.Naan != "00000", // G: real NAAN
		tmpl != nil && tmpl.Mode == template.Random,                                // R: random generator
		!hasTripleVowelRun(prefix + mask),                                          // A: no triple-vowel run
		longterm,                                                                   // N: long-term
		!strings.Contains(prefix, "-"),                                             // I: no hyphen in prefix
		tmpl != nil && tmpl.HasCheck,                                               // T: check character
		!hasVowel(prefix) && onlyVowelFreeRepertoires(tmpl),                        // E: vowel-free throughout
	}

	out := make([]byte, len(letters))
	for i := range out {
		if flags[i] {
			out[i] = letters[i]
		} else {
			out[i] = letters[i] + ('a' - 'A')
		}
	}
	return string(out)
}

func hasVowel(s string) bool {
	for _, c := range strings.ToLower(s) {
		if strings.ContainsRune("aeiou", c) {
			return true
		}
	}
	return false
}

func hasTripleVowelRun(s string) bool {
	run := 0
	for _, c := range strings.ToLower(s) {
		if strings.ContainsRune("aeiou", c) {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func onlyVowelFreeRepertoires(tmpl *template.Template) bool {
	if tmpl == nil {
		return true
	}
	body := tmpl.Mask[1:]
	if len(body) > 0 && body[len(body)-1] == 'k' {
		body = body[:len(body)-1]
	}
	for i := 0; i < len(body); i++ {
		table, err := alphabet.Table(alphabet.Name(body[i]))
		if err != nil {
			continue
		}
		if hasVowel(table) {
			return false
		}
	}
	return true
}

func report(r Request, tmpl *template.Template, longterm bool) string {
	var b strings.Builder
	backend := r.Settings.Backend
	if backend == "" {
		backend = "bolt"
	}
	fmt.Fprintf(&b, "created noid database %q in %q (%s backend)\n", r.Settings.DBName, r.Settings.DataDir, backend)
	fmt.Fprintf(&b, "contact: %s\n", r.Contact)
	fmt.Fprintf(&b, "term: %s\n", r.Term)
	if tmpl == nil {
		b.WriteString("template: none (bind-only minter)\n")
	} else {
		fmt.Fprintf(&b, "template: %s\n", tmpl.Raw)
		if tmpl.Capacity == template.NOLIMIT {
			b.WriteString("capacity: unbounded\n")
		} else {
			fmt.Fprintf(&b, "capacity: %d\n", tmpl.Capacity)
		}
	}
	if longterm {
		fmt.Fprintf(&b, "naan/naa/subnaa: %s/%s/%s\n", r.Naan, r.Naa, r.Subnaa)
	}
	fmt.Fprintf(&b, "genonly: %t\n", r.Genonly)
	fmt.Fprintf(&b, "properties: %s\n", deriveProperties(tmpl, r, longterm))
	return b.String()
}
