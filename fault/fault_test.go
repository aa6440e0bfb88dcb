// SPDX-License-Identifier: ISC

package fault_test

import (
	"testing"

	"github.com/Daniel-KM/Noid4Php/fault"
)

var (
	errBadTemplateOne        = fault.BadTemplateError("bad template one")
	errBadTemplateTwo        = fault.BadTemplateError("bad template two")
	errBadInputOne           = fault.BadInputError("bad input one")
	errBadInputTwo           = fault.BadInputError("bad input two")
	errNotFoundOne           = fault.NotFoundError("not found one")
	errNotFoundTwo           = fault.NotFoundError("not found two")
	errExhaustedOne          = fault.ExhaustedError("exhausted one")
	errLongtermUnissuedOne   = fault.LongtermUnissuedError("longterm unissued one")
	errCirculationConflictOne = fault.CirculationConflictError("circulation conflict one")
	errIOOne                 = fault.IOError("io one")
	errConfigOne             = fault.ConfigError("config one")
)

// test that every kind can be subclassed and discriminated independently
func TestErrorKinds(t *testing.T) {
	errorList := []struct {
		err                error
		badTemplate        bool
		badInput           bool
		notFound           bool
		exhausted          bool
		longtermUnissued   bool
		circulationConflict bool
		io                 bool
		config             bool
	}{
		{errBadTemplateOne, true, false, false, false, false, false, false, false},
		{errBadTemplateTwo, true, false, false, false, false, false, false, false},
		{errBadInputOne, false, true, false, false, false, false, false, false},
		{errBadInputTwo, false, true, false, false, false, false, false, false},
		{errNotFoundOne, false, false, true, false, false, false, false, false},
		{errNotFoundTwo, false, false, true, false, false, false, false, false},
		{errExhaustedOne, false, false, false, true, false, false, false, false},
		{errLongtermUnissuedOne, false, false, false, false, true, false, false, false},
		{errCirculationConflictOne, false, false, false, false, false, true, false, false},
		{errIOOne, false, false, false, false, false, false, true, false},
		{errConfigOne, false, false, false, false, false, false, false, true},
	}

	for i, e := range errorList {
		err := e.err
		if fault.IsErrBadTemplate(err) != e.badTemplate {
			t.Errorf("%d: expected 'badTemplate' == %v for err = %v", i, e.badTemplate, err)
		}
		if fault.IsErrBadInput(err) != e.badInput {
			t.Errorf("%d: expected 'badInput' == %v for err = %v", i, e.badInput, err)
		}
		if fault.IsErrNotFound(err) != e.notFound {
			t.Errorf("%d: expected 'notFound' == %v for err = %v", i, e.notFound, err)
		}
		if fault.IsErrExhausted(err) != e.exhausted {
			t.Errorf("%d: expected 'exhausted' == %v for err = %v", i, e.exhausted, err)
		}
		if fault.IsErrLongtermUnissued(err) != e.longtermUnissued {
			t.Errorf("%d: expected 'longtermUnissued' == %v for err = %v", i, e.longtermUnissued, err)
		}
		if fault.IsErrCirculationConflict(err) != e.circulationConflict {
			t.Errorf("%d: expected 'circulationConflict' == %v for err = %v", i, e.circulationConflict, err)
		}
		if fault.IsErrIO(err) != e.io {
			t.Errorf("%d: expected 'io' == %v for err = %v", i, e.io, err)
		}
		if fault.IsErrConfig(err) != e.config {
			t.Errorf("%d: expected 'config' == %v for err = %v", i, e.config, err)
		}
	}
}

// test that the named sentinels decode to the string they were built with
func TestSentinelMessages(t *testing.T) {
	if fault.ErrBadTemplate.Error() != "template failed grammar" {
		t.Errorf("unexpected message: %v", fault.ErrBadTemplate)
	}
	if fault.ErrExhausted.Error() != "identifier space is exhausted" {
		t.Errorf("unexpected message: %v", fault.ErrExhausted)
	}
}
