// SPDX-License-Identifier: ISC

package dbcreate

import (
	"strings"
	"testing"

	_ "github.com/Daniel-KM/Noid4Php/storage/boltbackend"

	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/session"
	"github.com/Daniel-KM/Noid4Php/storage"
	"github.com/Daniel-KM/Noid4Php/template"
)

func tmpSettings(t *testing.T) session.Settings {
	return session.Settings{DataDir: t.TempDir(), DBName: "noid", Backend: "bolt"}
}

func TestCreateLongtermRandomTemplate(t *testing.T) {
	r := Request{
		Settings: tmpSettings(t),
		Contact:  "ops@example.org",
		Template: "bc.rdd",
		Term:     TermLong,
		Naan:     "12345",
		Naa:      "example",
		Subnaa:   "sub",
	}

	out, err := Create(r)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.Contains(out, "bc.rdd") {
		t.Fatalf("report missing template: %s", out)
	}
	if !strings.Contains(out, "12345/example/sub") {
		t.Fatalf("report missing naan/naa/subnaa: %s", out)
	}

	s, err := session.Open(r.Settings, storage.ModeReadWrite)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	total, err := s.GetInt64("R/total", -2)
	if err != nil {
		t.Fatalf("R/total: %v", err)
	}
	if total != 100 {
		t.Fatalf("R/total = %d, want 100", total)
	}

	saclist, ok, err := s.GetString("R/saclist")
	if err != nil || !ok || saclist == "" {
		t.Fatalf("R/saclist = %q, ok=%v, err=%v", saclist, ok, err)
	}

	longterm, ok, err := s.GetString("R/longterm")
	if err != nil || !ok || longterm != "true" {
		t.Fatalf("R/longterm = %q", longterm)
	}
}

func TestCreateBindOnlyMinter(t *testing.T) {
	r := Request{
		Settings: tmpSettings(t),
		Contact:  "ops@example.org",
		Term:     TermNone,
	}

	out, err := Create(r)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.Contains(out, "bind-only minter") {
		t.Fatalf("report missing bind-only note: %s", out)
	}

	s, err := session.Open(r.Settings, storage.ModeReadWrite)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	total, err := s.GetInt64("R/total", -2)
	if err != nil {
		t.Fatalf("R/total: %v", err)
	}
	if total != template.NOLIMIT {
		t.Fatalf("R/total = %d, want NOLIMIT", total)
	}
}

func TestCreateGenonlyIsPersisted(t *testing.T) {
	r := Request{
		Settings: tmpSettings(t),
		Contact:  "ops@example.org",
		Template: "bc.sdd",
		Term:     TermShort,
		Genonly:  true,
	}

	out, err := Create(r)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.Contains(out, "genonly: true") {
		t.Fatalf("report missing genonly: %s", out)
	}

	s, err := session.Open(r.Settings, storage.ModeReadWrite)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	genonly, ok, err := s.GetString("R/genonly")
	if err != nil || !ok || genonly != "true" {
		t.Fatalf("R/genonly = %q, ok=%v, err=%v, want %q", genonly, ok, err, "true")
	}
}

func TestCreateRejectsMissingContact(t *testing.T) {
	r := Request{Settings: tmpSettings(t), Term: TermNone}
	if _, err := Create(r); err != fault.ErrMissingContact {
		t.Fatalf("err = %v, want ErrMissingContact", err)
	}
}

func TestCreateRejectsInvalidTerm(t *testing.T) {
	r := Request{Settings: tmpSettings(t), Contact: "a@b.c", Term: Term("forever")}
	if _, err := Create(r); err != fault.ErrInvalidTerm {
		t.Fatalf("err = %v, want ErrInvalidTerm", err)
	}
}

func TestCreateRejectsMalformedNaan(t *testing.T) {
	r := Request{
		Settings: tmpSettings(t),
		Contact:  "a@b.c",
		Term:     TermLong,
		Naan:     "abc",
		Naa:      "x",
		Subnaa:   "y",
	}
	if _, err := Create(r); err != fault.ErrInvalidNaan {
		t.Fatalf("err = %v, want ErrInvalidNaan", err)
	}
}

func TestParseTermRejectsUnknown(t *testing.T) {
	if _, err := ParseTerm("eternal"); err != fault.ErrInvalidTerm {
		t.Fatalf("err = %v, want ErrInvalidTerm", err)
	}
	for _, ok := range []string{"long", "medium", "short", "-"} {
		if _, err := ParseTerm(ok); err != nil {
			t.Fatalf("ParseTerm(%q): %v", ok, err)
		}
	}
}

func TestDerivePropertiesMnemonic(t *testing.T) {
	tmpl, err := template.Parse("ab.sdk")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := Request{Term: TermShort}
	props := deriveProperties(tmpl, r, false)
	if len(props) != 7 {
		t.Fatalf("properties = %q, want 7 letters", props)
	}
	// sequential, checked, short-term: R and N should read lower-case.
	if props[1] != 'r' {
		t.Fatalf("properties[1] = %c, want lower-case r (sequential)", props[1])
	}
	if props[3] != 'n' {
		t.Fatalf("properties[3] = %c, want lower-case n (not long-term)", props[3])
	}
	if props[5] != 'T' {
		t.Fatalf("properties[5] = %c, want upper-case T (has check char)", props[5])
	}
}

func TestDerivePropertiesRandomLongterm(t *testing.T) {
	tmpl, err := template.Parse("ab.rdk")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	r := Request{Term: TermLong, Naan: "12345", Naa: "x", Subnaa: "y"}
	props := deriveProperties(tmpl, r, true)
	if props[0] != 'G' {
		t.Fatalf("properties[0] = %c, want upper-case G (real naan)", props[0])
	}
	if props[1] != 'R' {
		t.Fatalf("properties[1] = %c, want upper-case R (random)", props[1])
	}
	if props[3] != 'N' {
		t.Fatalf("properties[3] = %c, want upper-case N (long-term)", props[3])
	}
}
