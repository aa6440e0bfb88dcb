// SPDX-License-Identifier: ISC

package storage_test

import (
	"testing"

	"github.com/Daniel-KM/Noid4Php/fault"
	"github.com/Daniel-KM/Noid4Php/storage"
)

type memHandle struct {
	rows map[string][]byte
}

func (m *memHandle) Close() error { return nil }
func (m *memHandle) Get(k []byte) ([]byte, bool, error) {
	v, ok := m.rows[string(k)]
	return v, ok, nil
}
func (m *memHandle) Set(k, v []byte) error {
	m.rows[string(k)] = v
	return nil
}
func (m *memHandle) Delete(k []byte) error {
	delete(m.rows, string(k))
	return nil
}
func (m *memHandle) Exists(k []byte) (bool, error) {
	_, ok := m.rows[string(k)]
	return ok, nil
}
func (m *memHandle) Range(prefix []byte, limit int) ([]storage.Pair, error) {
	return nil, nil
}
func (m *memHandle) Import(src storage.Handle) error { return nil }

func init() {
	storage.Register("mem-test", func(path string, mode storage.Mode) (storage.Handle, error) {
		return &memHandle{rows: map[string][]byte{}}, nil
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := storage.Open("does-not-exist", "/tmp/x", storage.ModeCreate)
	if !fault.IsErrBadInput(err) {
		t.Errorf("expected ErrBadInput, got %v", err)
	}
}

func TestOpenRegisteredDriver(t *testing.T) {
	h, err := storage.Open("mem-test", "/tmp/x", storage.ModeCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, ok, err := h.Get([]byte("k"))
	if err != nil || !ok || string(v) != "v" {
		t.Errorf("expected v=v ok=true, got v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestCachedRoundTrip(t *testing.T) {
	inner := &memHandle{rows: map[string][]byte{}}
	h := storage.Cached(inner)

	if err := h.Set([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	v, ok, err := h.Get([]byte("a"))
	if err != nil || !ok || string(v) != "1" {
		t.Errorf("expected a=1, got %q ok=%v err=%v", v, ok, err)
	}

	if err := h.Delete([]byte("a")); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	_, ok, err = h.Get([]byte("a"))
	if err != nil || ok {
		t.Errorf("expected absent after delete, ok=%v err=%v", ok, err)
	}
}
