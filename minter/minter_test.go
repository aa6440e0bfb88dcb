// SPDX-License-Identifier: ISC

package minter_test

import (
	"testing"

	_ "github.com/Daniel-KM/Noid4Php/storage/boltbackend"

	"github.com/Daniel-KM/Noid4Php/minter"
	"github.com/Daniel-KM/Noid4Php/session"
	"github.com/Daniel-KM/Noid4Php/storage"
)

func bootstrap(t *testing.T, set func(h storage.Handle)) *session.Session {
	t.Helper()
	settings := session.Settings{DataDir: t.TempDir(), DBName: "db", Backend: "bolt"}

	create, err := session.Open(settings, storage.ModeCreate)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	h := create.Handle()
	h.Set([]byte("R/firstpart"), []byte("bc"))
	h.Set([]byte("R/oacounter"), []byte("0"))
	h.Set([]byte("R/oatop"), []byte("-1"))
	h.Set([]byte("R/longterm"), []byte("false"))
	h.Set([]byte("R/wrap"), []byte("false"))
	h.Set([]byte("R/addcheckchar"), []byte("false"))
	h.Set([]byte("R/held"), []byte("0"))
	h.Set([]byte("R/queued"), []byte("0"))
	h.Set([]byte("R/pregenerated"), []byte("0"))
	h.Set([]byte("R/pregen_head"), []byte("0"))
	h.Set([]byte("R/pregen_tail"), []byte("0"))
	if set != nil {
		set(h)
	}
	create.Close()

	s, err := session.Open(settings, storage.ModeReadWrite)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sequentialSession(t *testing.T) *session.Session {
	return bootstrap(t, func(h storage.Handle) {
		h.Set([]byte("R/template"), []byte("bc.sdd"))
	})
}

func TestMintSequential(t *testing.T) {
	s := sequentialSession(t)

	id, err := minter.Mint(s, "alice")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if id != "bc00" {
		t.Errorf("expected bc00, got %q", id)
	}

	id2, err := minter.Mint(s, "alice")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if id2 != "bc01" {
		t.Errorf("expected bc01, got %q", id2)
	}
}

func TestMintMultipleSequential(t *testing.T) {
	s := sequentialSession(t)

	ids, err := minter.MintMultiple(s, "alice", 3)
	if err != nil {
		t.Fatalf("mint multiple failed: %v", err)
	}
	want := []string{"bc00", "bc01", "bc02"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d: %v", len(want), len(ids), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	oacounter, _, err := s.GetString("R/oacounter")
	if err != nil || oacounter != "3" {
		t.Errorf("expected oacounter=3, got %q err=%v", oacounter, err)
	}
}

func TestMintExhaustion(t *testing.T) {
	s := bootstrap(t, func(h storage.Handle) {
		h.Set([]byte("R/template"), []byte("bc.sd"))
		h.Set([]byte("R/oatop"), []byte("1"))
	})

	if _, err := minter.Mint(s, "alice"); err != nil {
		t.Fatalf("first mint failed: %v", err)
	}
	if _, err := minter.Mint(s, "alice"); err == nil {
		t.Errorf("expected exhaustion on second mint")
	}
}

func TestMintLongtermAutoHold(t *testing.T) {
	s := bootstrap(t, func(h storage.Handle) {
		h.Set([]byte("R/template"), []byte("bc.sdd"))
		h.Set([]byte("R/longterm"), []byte("true"))
	})

	id, err := minter.Mint(s, "alice")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	held, err := s.Handle().Exists([]byte(id + "\tR/h"))
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !held {
		t.Errorf("expected longterm mint to place an automatic hold on %s", id)
	}

	heldCount, _, err := s.GetString("R/held")
	if err != nil || heldCount != "1" {
		t.Errorf("expected R/held=1, got %q err=%v", heldCount, err)
	}
}

func TestMintRandomMode(t *testing.T) {
	s := bootstrap(t, func(h storage.Handle) {
		h.Set([]byte("R/template"), []byte("bc.rdd"))
		h.Set([]byte("R/saclist"), []byte("c0"))
		h.Set([]byte("R/siclist"), []byte(""))
		h.Set([]byte("R/percounter"), []byte("100"))
		h.Set([]byte("R/c0/value"), []byte("0"))
		h.Set([]byte("R/c0/top"), []byte("100"))
	})

	id, err := minter.Mint(s, "alice")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if len(id) != 4 || id[:2] != "bc" {
		t.Errorf("expected a bc-prefixed 2-digit identifier, got %q", id)
	}

	value, _, err := s.GetString("R/c0/value")
	if err != nil || value != "1" {
		t.Errorf("expected sub-counter c0/value to advance to 1, got %q err=%v", value, err)
	}
}

func TestMintPregenTakesPriority(t *testing.T) {
	s := bootstrap(t, func(h storage.Handle) {
		h.Set([]byte("R/template"), []byte("bc.sdd"))
		h.Set([]byte("R/pregenerated"), []byte("1"))
		h.Set([]byte("R/pregen_tail"), []byte("1"))
		h.Set([]byte("R/p/0"), []byte("bc99"))
		h.Set([]byte("bc99\tR/c"), []byte("p|20260101000000|prefill|0"))
	})

	id, err := minter.Mint(s, "alice")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if id != "bc99" {
		t.Errorf("expected the pre-generated id bc99 to be handed out first, got %q", id)
	}

	oacounter, _, err := s.GetString("R/oacounter")
	if err != nil || oacounter != "0" {
		t.Errorf("expected the generator path to be untouched, R/oacounter=%q err=%v", oacounter, err)
	}
}

func TestMintMultipleRejectsOversizedBatch(t *testing.T) {
	s := sequentialSession(t)

	if _, err := minter.MintMultiple(s, "alice", 0); err == nil {
		t.Errorf("expected an error for a non-positive count")
	}
	if _, err := minter.MintMultiple(s, "alice", 10001); err == nil {
		t.Errorf("expected an error for a batch over the maximum")
	}
}
