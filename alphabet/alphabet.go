// SPDX-License-Identifier: ISC

// Package alphabet implements the nine named character repertoires,
// the n2xdig integer-to-identifier encoder, and check-character
// computation/verification (C1). Every table below is order-sensitive
// and must stay byte-identical to whatever other implementation a
// given database was created with.
package alphabet

import (
	"github.com/Daniel-KM/Noid4Php/fault"
)

// Name identifies one of the nine fixed repertoires by its single
// mask letter.
type Name byte

const (
	D Name = 'd'
	E Name = 'e'
	I Name = 'i'
	X Name = 'x'
	V Name = 'v'
	U Name = 'E' // extended mixed-case repertoire, letter 'E'
	W Name = 'w'
	C Name = 'c'
	L Name = 'l'
)

// tables holds the fixed, order-is-meaning character list for each
// repertoire, bit-exact across implementations.
var tables = map[Name]string{
	D: "0123456789",
	E: "0123456789bcdfghjkmnpqrstvwxz",
	I: "0123456789x",
	X: "0123456789abcdef_",
	V: "0123456789abcdefghijklmnopqrstuvwxyz_",
	U: "123456789bcdfghjkmnpqrstvwxzBCDFGHJKMNPQRSTVWXZ",
	W: "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ#*+@_",
	// C is printable ASCII '!'..'~' minus the seven characters
	// {, %, -, ., /, \, } — the spec describes this repertoire but
	// gives no bit-exact table; this is the literal construction of
	// that description (see DESIGN.md).
	C: "!\"#$&'()*+,0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[]^_`abcdefghijklmnopqrstuvwxyz|~",
	L: "0123456789abcdefghijkmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
}

// ordered lists all recognised mask letters, smallest cardinality
// first, used by Detect's "prefer the smallest that fits" rule.
var ordered = []Name{D, I, X, E, V, U, L, W, C}

// Table returns the fixed character list for name, or an error if
// name is not one of the nine repertoires.
func Table(name Name) (string, error) {
	t, ok := tables[name]
	if !ok {
		return "", fault.ErrBadTemplate
	}
	return t, nil
}

// Cardinality returns len(Table(name)).
func Cardinality(name Name) (int, error) {
	t, err := Table(name)
	if err != nil {
		return 0, err
	}
	return len(t), nil
}

// Encode is n2xdig: renders n into width characters of repertoire
// name, consuming right-to-left. Encode truncates once width positions
// are filled regardless of any remaining n, matching the spec's "a
// non-z mode exits even if n is non-zero" rule; z-mode callers use
// EncodeUnbounded instead.
func Encode(name Name, n int64, width int) (string, error) {
	table, err := Table(name)
	if err != nil {
		return "", err
	}
	base := int64(len(table))
	if base == 0 {
		return "", fault.ErrBadTemplate
	}

	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = table[n%base]
		n /= base
	}
	return string(buf), nil
}

// EncodeUnbounded renders n using repertoire name in the minimum
// number of characters needed to represent it (z-mode, unbounded
// run-on repertoire): at least one character, more if n exceeds base.
func EncodeUnbounded(name Name, n int64) (string, error) {
	table, err := Table(name)
	if err != nil {
		return "", err
	}
	base := int64(len(table))
	if base == 0 {
		return "", fault.ErrBadTemplate
	}

	if n == 0 {
		return string(table[0]), nil
	}
	var buf []byte
	for n > 0 {
		buf = append(buf, table[n%base])
		n /= base
	}
	// reverse
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

// EncodeMask renders n into a string the same length as mask, one
// character per mask position, consuming right-to-left: each
// position's repertoire is whatever that position's mask letter
// names, so a mixed mask (e.g. "de") encodes its rightmost digit in
// repertoire e and the one before it in repertoire d. n is silently
// truncated once every position is filled, matching the fixed-width
// n2xdig contract.
func EncodeMask(mask string, n int64) (string, error) {
	buf := make([]byte, len(mask))
	for i := len(mask) - 1; i >= 0; i-- {
		table, err := Table(Name(mask[i]))
		if err != nil {
			return "", err
		}
		base := int64(len(table))
		if base == 0 {
			return "", fault.ErrBadTemplate
		}
		buf[i] = table[n%base]
		n /= base
	}
	return string(buf), nil
}

// Detect scans chars and returns the single smallest repertoire
// containing every character used. Because d's table is already a
// subset of e's, the characters a mask mixing the d and e repertoires
// can render (the union of both tables, i.e. e's table) resolve to e
// under this rule — the historical d/e compatibility case the spec
// calls out. A character set that also fits a smaller repertoire
// (e.g. only digits and b, c, d, which x covers) resolves to that one.
func Detect(chars string) (Name, error) {
	for _, name := range ordered {
		table := tables[name]
		fits := true
		for _, ch := range chars {
			found := false
			for _, t := range table {
				if t == ch {
					found = true
					break
				}
			}
			if !found {
				fits = false
				break
			}
		}
		if fits {
			return name, nil
		}
	}
	return 0, fault.ErrBadTemplate
}

// CheckChar computes the check character for identifier (excluding
// any trailing '+' sentinel) using repertoire name: index i (0-based)
// contributes (value(c_i) * (i+1)) mod |repertoire|, summed and
// reduced mod |repertoire| to select the result character. Characters
// absent from the repertoire contribute zero.
func CheckChar(name Name, identifier string) (byte, error) {
	table, err := Table(name)
	if err != nil {
		return 0, err
	}
	base := len(table)
	if base == 0 {
		return 0, fault.ErrBadTemplate
	}

	body := identifier
	if len(body) > 0 && body[len(body)-1] == '+' {
		body = body[:len(body)-1]
	}

	sum := 0
	for i := 0; i < len(body); i++ {
		value := indexOf(table, body[i])
		sum += value * (i + 1)
	}
	return table[sum%base], nil
}

// Verify recomputes the check character for identifier and compares
// it against the trailing character present.
func Verify(name Name, identifier string) (bool, error) {
	if len(identifier) == 0 {
		return false, fault.ErrBadInput
	}
	want, err := CheckChar(name, identifier[:len(identifier)-1]+"+")
	if err != nil {
		return false, err
	}
	return identifier[len(identifier)-1] == want, nil
}

func indexOf(table string, ch byte) int {
	for i := 0; i < len(table); i++ {
		if table[i] == ch {
			return i
		}
	}
	return 0
}
