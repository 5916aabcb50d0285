package javaobj

import "testing"

func TestHandleTableAllocContiguous(t *testing.T) {
	h := newHandleTable()
	for i := 0; i < 3; i++ {
		if got, want := h.alloc(), baseHandle+uint32(i); got != want {
			t.Fatalf("alloc %d: got 0x%x, want 0x%x", i, got, want)
		}
	}
}

func TestHandleTableBindCollision(t *testing.T) {
	h := newHandleTable()
	handle := h.alloc()
	s := &JavaString{Handle: handle, Value: "x"}
	if err := h.bind(handle, s); err != nil {
		t.Fatalf("bind: %v", err)
	}
	err := h.bind(handle, s)
	if err == nil {
		t.Fatalf("expected a collision error")
	}
	if de, ok := err.(*DecodeError); !ok || de.Kind != ErrHandleCollision {
		t.Fatalf("expected HandleCollision, got %v", err)
	}
}

func TestHandleTableRebindPopulatesReservedHandle(t *testing.T) {
	h := newHandleTable()
	handle := h.alloc()
	shell := &ClassDesc{Kind: NormalClass, Handle: handle}
	if err := h.bind(handle, shell); err != nil {
		t.Fatalf("bind: %v", err)
	}
	shell.Name = "X"
	h.rebind(handle, shell)
	got, ok := h.get(handle)
	if !ok || got.(*ClassDesc).Name != "X" {
		t.Fatalf("expected the populated descriptor, got %#v", got)
	}
}

func TestHandleTableResetSnapshots(t *testing.T) {
	h := newHandleTable()
	if snap := h.reset(); snap != nil {
		t.Fatalf("expected no snapshot from an empty table")
	}
	handle := h.alloc()
	s := &JavaString{Handle: handle, Value: "x"}
	if err := h.bind(handle, s); err != nil {
		t.Fatalf("bind: %v", err)
	}
	snap := h.reset()
	if len(snap) != 1 || snap[handle] != ParsedContent(s) {
		t.Fatalf("expected a one-entry snapshot, got %#v", snap)
	}
	if h.alloc() != baseHandle {
		t.Fatalf("expected allocation to restart at the base handle after reset")
	}
}
