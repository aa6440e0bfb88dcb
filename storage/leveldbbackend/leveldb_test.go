// SPDX-License-Identifier: ISC

package leveldbbackend_test

import (
	"path/filepath"
	"testing"

	_ "github.com/Daniel-KM/Noid4Php/storage/leveldbbackend"

	"github.com/Daniel-KM/Noid4Php/storage"
)

func TestLevelDBRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noid.leveldb")
	h, err := storage.Open("leveldb", path, storage.ModeCreate)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer h.Close()

	if err := h.Set([]byte("R/total"), []byte("-1")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, ok, err := h.Get([]byte("R/total"))
	if err != nil || !ok || string(v) != "-1" {
		t.Errorf("expected -1, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestLevelDBPrefixScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noid.leveldb")
	h, err := storage.Open("leveldb", path, storage.ModeCreate)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer h.Close()

	h.Set([]byte("R/a"), []byte("1"))
	h.Set([]byte("R/b"), []byte("2"))
	h.Set([]byte("id1\tR/c"), []byte("i|2024|c|1"))

	pairs, err := h.Range([]byte("R/"), 0)
	if err != nil {
		t.Fatalf("range failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Errorf("expected 2 admin keys, got %d", len(pairs))
	}
}
