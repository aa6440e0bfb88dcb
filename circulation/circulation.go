// SPDX-License-Identifier: ISC

// Package circulation represents the per-identifier circulation
// record stored at "<id>\tR/c": SVEC|date|contact|counter, where SVEC
// is a non-empty leftmost-extended history string over {i,q,u,p}. The
// leftmost character is always the current status.
package circulation

import (
	"strconv"
	"strings"
	"time"

	"github.com/Daniel-KM/Noid4Php/fault"
)

// Status is one SVEC history character.
type Status byte

const (
	Issued    Status = 'i'
	Queued    Status = 'q'
	Unqueued  Status = 'u'
	Pregen    Status = 'p'
)

// Record is one parsed circulation entry.
type Record struct {
	SVEC    string
	Date    string
	Contact string
	Counter int64
}

// DateLayout is the format used for Record.Date, matching the
// 14-digit zero-padded UTC timestamp used elsewhere in the data model
// (queue keys, circulation dates).
const DateLayout = "20060102150405"

// Now renders the current UTC time in DateLayout.
func Now() string {
	return time.Now().UTC().Format(DateLayout)
}

// Parse decomposes a raw "<SVEC>|<date>|<contact>|<counter>" value.
func Parse(raw string) (*Record, error) {
	parts := strings.SplitN(raw, "|", 4)
	if len(parts) != 4 || parts[0] == "" {
		return nil, fault.ErrIO
	}
	counter, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, fault.ErrIO
	}
	return &Record{SVEC: parts[0], Date: parts[1], Contact: parts[2], Counter: counter}, nil
}

// String renders the record back to its stored form.
func (r *Record) String() string {
	return r.SVEC + "|" + r.Date + "|" + r.Contact + "|" + strconv.FormatInt(r.Counter, 10)
}

// Current returns the leftmost (current) status character, or 0 if
// the SVEC is empty.
func (r *Record) Current() Status {
	if r == nil || len(r.SVEC) == 0 {
		return 0
	}
	return Status(r.SVEC[0])
}

// Prepend pushes a new current status onto the front of the history,
// enforcing the §3 invariant that once 'i' has been appended, another
// 'i' may only be prepended after a 'q' has been prepended first.
func (r *Record) Prepend(s Status) error {
	if s == Issued && r.Current() == Issued {
		return fault.ErrCirculationState
	}
	r.SVEC = string(byte(s)) + r.SVEC
	return nil
}

// RewriteLeading replaces just the leftmost SVEC character, used by
// the pregen-pool hand-off ('p' -> 'i') which is a relabeling rather
// than a new history entry.
func (r *Record) RewriteLeading(s Status) {
	if len(r.SVEC) == 0 {
		r.SVEC = string(byte(s))
		return
	}
	r.SVEC = string(byte(s)) + r.SVEC[1:]
}

// New builds a fresh record with a single leading status.
func New(s Status, contact string, counter int64) *Record {
	return &Record{SVEC: string(byte(s)), Date: Now(), Contact: contact, Counter: counter}
}
