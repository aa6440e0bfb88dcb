// SPDX-License-Identifier: ISC

package queue_test

import (
	"testing"

	_ "github.com/Daniel-KM/Noid4Php/storage/boltbackend"

	"github.com/Daniel-KM/Noid4Php/queue"
	"github.com/Daniel-KM/Noid4Php/session"
	"github.com/Daniel-KM/Noid4Php/storage"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	settings := session.Settings{DataDir: t.TempDir(), DBName: "db", Backend: "bolt"}

	create, err := session.Open(settings, storage.ModeCreate)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	create.Handle().Set([]byte("R/firstpart"), []byte("bc"))
	create.Handle().Set([]byte("R/padwidth"), []byte("4"))
	create.Handle().Set([]byte("R/oatop"), []byte("-1"))
	create.Handle().Set([]byte("R/held"), []byte("0"))
	create.Handle().Set([]byte("R/queued"), []byte("0"))
	create.Handle().Set([]byte("R/template"), []byte(""))
	create.Close()

	s, err := session.Open(settings, storage.ModeReadWrite)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnqueueNowThenConsumeIsRipe(t *testing.T) {
	s := newTestSession(t)

	if err := queue.Enqueue(s, "now", []string{"bc0001"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	entry, ok, err := queue.Consume(s)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected ripe entry")
	}
	if entry.ID != "bc0001" {
		t.Errorf("expected bc0001, got %s", entry.ID)
	}
}

func TestEnqueueFutureIsNotRipe(t *testing.T) {
	s := newTestSession(t)

	if err := queue.Enqueue(s, "1d", []string{"bc0002"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	_, ok, err := queue.Consume(s)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if ok {
		t.Errorf("expected queue entry scheduled a day out to not be ripe")
	}
}

func TestEnqueueHeldIDRejected(t *testing.T) {
	s := newTestSession(t)
	if err := queue.Hold(s, "bc0003"); err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	if err := queue.Enqueue(s, "now", []string{"bc0003"}); err == nil {
		t.Errorf("expected held id to be rejected from the queue")
	}
}

func TestEnqueueAlreadyQueuedRejected(t *testing.T) {
	s := newTestSession(t)
	if err := queue.Enqueue(s, "now", []string{"bc0006"}); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}

	if err := queue.Enqueue(s, "now", []string{"bc0006"}); err == nil {
		t.Errorf("expected already-queued id to be rejected from a second enqueue")
	}
}

func newGenonlySession(t *testing.T) *session.Session {
	t.Helper()
	settings := session.Settings{DataDir: t.TempDir(), DBName: "db", Backend: "bolt"}

	create, err := session.Open(settings, storage.ModeCreate)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	h := create.Handle()
	h.Set([]byte("R/firstpart"), []byte("bc"))
	h.Set([]byte("R/padwidth"), []byte("2"))
	h.Set([]byte("R/oatop"), []byte("-1"))
	h.Set([]byte("R/held"), []byte("0"))
	h.Set([]byte("R/queued"), []byte("0"))
	h.Set([]byte("R/template"), []byte("bc.sdd"))
	h.Set([]byte("R/genonly"), []byte("true"))
	h.Set([]byte("R/addcheckchar"), []byte("false"))
	create.Close()

	s, err := session.Open(settings, storage.ModeReadWrite)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEnqueueGenonlyRejectsNonConformingID(t *testing.T) {
	s := newGenonlySession(t)

	if err := queue.Enqueue(s, "now", []string{"bc0001"}); err == nil {
		t.Errorf("expected a body of the wrong width to be rejected under genonly")
	}
}

func TestEnqueueGenonlyAcceptsConformingID(t *testing.T) {
	s := newGenonlySession(t)

	if err := queue.Enqueue(s, "now", []string{"bc00"}); err != nil {
		t.Errorf("expected a template-conforming id to be accepted under genonly, got: %v", err)
	}
}

func TestHoldReleaseRoundTrip(t *testing.T) {
	s := newTestSession(t)
	if err := queue.Hold(s, "bc0004"); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	held, _, err := s.GetString("R/held")
	if err != nil || held != "1" {
		t.Errorf("expected held=1, got %q err=%v", held, err)
	}

	if err := queue.Release(s, "bc0004"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	held, _, err = s.GetString("R/held")
	if err != nil || held != "0" {
		t.Errorf("expected held=0, got %q err=%v", held, err)
	}
}

func TestDequeueDelete(t *testing.T) {
	s := newTestSession(t)
	if err := queue.Enqueue(s, "first", []string{"bc0005"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := queue.Enqueue(s, "delete", []string{"bc0005"}); err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}

	_, ok, err := queue.Consume(s)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if ok {
		t.Errorf("expected no ripe entries after dequeue")
	}
}
