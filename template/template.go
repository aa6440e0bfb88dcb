// SPDX-License-Identifier: ISC

// Package template parses and represents noid templates (C2):
// prefix.mask strings describing a minter's namespace geometry,
// encoding alphabet and whether a check character is appended.
package template

import (
	"fmt"
	"strings"

	"github.com/Daniel-KM/Noid4Php/alphabet"
	"github.com/Daniel-KM/Noid4Php/fault"
)

// Mode is the leading mask letter: random, sequential, or sequential
// with an unbounded run-on repertoire.
type Mode byte

const (
	Random               Mode = 'r'
	Sequential           Mode = 's'
	SequentialUnbounded  Mode = 'z'
)

// NOLIMIT is the sentinel capacity for an unbounded (z-mode) template.
const NOLIMIT int64 = -1

// Template is a fully parsed prefix.mask string.
type Template struct {
	Raw        string
	Prefix     string
	Mask       string // the mask including its leading mode letter and any trailing k
	Mode       Mode
	HasCheck   bool // mask ends in k
	Repertoire alphabet.Name
	Capacity   int64 // NOLIMIT if Mode == SequentialUnbounded
}

// Parse validates raw against the prefix.mask grammar and returns its
// decomposition. Any deviation fails with fault.ErrBadTemplate and a
// message naming the offending position.
func Parse(raw string) (*Template, error) {
	dot := strings.IndexByte(raw, '.')
	if dot < 0 {
		return nil, badTemplate(raw, 0, "missing '.' separating prefix from mask")
	}
	prefix := raw[:dot]
	maskPart := raw[dot+1:]

	for i := 0; i < len(prefix); i++ {
		if !isAlnum(prefix[i]) {
			return nil, badTemplate(raw, i, "prefix must be alphanumeric")
		}
	}

	if len(maskPart) == 0 {
		return nil, badTemplate(raw, dot+1, "mask is empty")
	}

	mode := Mode(maskPart[0])
	if mode != Random && mode != Sequential && mode != SequentialUnbounded {
		return nil, badTemplate(raw, dot+1, "mask must start with r, s or z")
	}

	body := maskPart[1:]
	hasCheck := false
	if len(body) > 0 && body[len(body)-1] == 'k' {
		hasCheck = true
		body = body[:len(body)-1]
	}

	if len(body) == 0 {
		return nil, badTemplate(raw, dot+2, "mask must contain at least one repertoire character")
	}

	for i := 0; i < len(body); i++ {
		if !isRepertoireLetter(body[i]) {
			return nil, badTemplate(raw, dot+2+i, fmt.Sprintf("unrecognised repertoire letter %q", body[i]))
		}
	}

	// The mask may mix repertoire letters position by position; the
	// single check-character repertoire must be the smallest one
	// covering every character any of those positions could produce,
	// so detection runs over the union of their tables, not over the
	// mask letters themselves.
	union, err := unionOfTables(body)
	if err != nil {
		return nil, badTemplate(raw, dot+2, "unrecognised repertoire letter")
	}
	repertoire, err := alphabet.Detect(union)
	if err != nil {
		return nil, badTemplate(raw, dot+2, "could not determine a repertoire covering the mask")
	}

	capacity := NOLIMIT
	if mode != SequentialUnbounded {
		capacity = 1
		for i := 0; i < len(body); i++ {
			card, err := alphabet.Cardinality(alphabet.Name(body[i]))
			if err != nil {
				return nil, badTemplate(raw, dot+2+i, "unrecognised repertoire letter")
			}
			capacity *= int64(card)
		}
	}

	return &Template{
		Raw:        raw,
		Prefix:     prefix,
		Mask:       maskPart,
		Mode:       mode,
		HasCheck:   hasCheck,
		Repertoire: repertoire,
		Capacity:   capacity,
	}, nil
}

// Width returns the number of repertoire characters in the mask
// (excluding the mode letter and any trailing 'k').
func (t *Template) Width() int {
	body := t.Mask[1:]
	if len(body) > 0 && body[len(body)-1] == 'k' {
		body = body[:len(body)-1]
	}
	return len(body)
}

func isAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isRepertoireLetter(b byte) bool {
	switch alphabet.Name(b) {
	case alphabet.D, alphabet.E, alphabet.I, alphabet.X, alphabet.V, alphabet.U, alphabet.W, alphabet.C, alphabet.L:
		return true
	}
	return false
}

func unionOfTables(mask string) (string, error) {
	seen := map[byte]bool{}
	var union []byte
	for i := 0; i < len(mask); i++ {
		table, err := alphabet.Table(alphabet.Name(mask[i]))
		if err != nil {
			return "", err
		}
		for j := 0; j < len(table); j++ {
			if !seen[table[j]] {
				seen[table[j]] = true
				union = append(union, table[j])
			}
		}
	}
	return string(union), nil
}

func badTemplate(raw string, pos int, reason string) error {
	return fault.BadTemplateError(fmt.Sprintf("template %q invalid at position %d: %s", raw, pos, reason))
}
