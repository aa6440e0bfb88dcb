// SPDX-License-Identifier: ISC

package xmlbackend_test

import (
	"path/filepath"
	"testing"

	_ "github.com/Daniel-KM/Noid4Php/storage/xmlbackend"

	"github.com/Daniel-KM/Noid4Php/storage"
)

func TestXMLPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noid.xml")

	h, err := storage.Open("xml", path, storage.ModeCreate)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := h.Set([]byte("R/template"), []byte("bc.seq8")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	h.Close()

	h2, err := storage.Open("xml", path, storage.ModeReadWrite)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer h2.Close()

	v, ok, err := h2.Get([]byte("R/template"))
	if err != nil || !ok || string(v) != "bc.seq8" {
		t.Errorf("expected persisted value, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestXMLReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noid.xml")

	h, _ := storage.Open("xml", path, storage.ModeCreate)
	h.Set([]byte("k"), []byte("v"))
	h.Close()

	ro, err := storage.Open("xml", path, storage.ModeReadOnly)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer ro.Close()

	if err := ro.Set([]byte("k2"), []byte("v2")); err == nil {
		t.Errorf("expected write rejection on read-only handle")
	}
}
