package javaobj

// handleTable maps handle identifiers to the content they were
// assigned to, for the current session. It is reset by TC_RESET, by
// exception capture, and at the start of every Run.
//
// Handles are allocated monotonically from baseHandle. An entity's
// handle is reserved with alloc at the exact point the wire format
// requires, before that entity's own sub-structures are read; rebind
// allows late population for the self-referential-graph case.
type handleTable struct {
	entries map[uint32]ParsedContent
	next    uint32
}

func newHandleTable() *handleTable {
	return &handleTable{
		entries: make(map[uint32]ParsedContent),
		next:    baseHandle,
	}
}

// reset clears the table and returns a snapshot of its prior contents
// (nil if it was already empty), for archival.
func (h *handleTable) reset() map[uint32]ParsedContent {
	var snapshot map[uint32]ParsedContent
	if len(h.entries) > 0 {
		snapshot = h.entries
	}
	h.entries = make(map[uint32]ParsedContent)
	h.next = baseHandle
	return snapshot
}

// alloc reserves the next handle value without binding any content to
// it yet.
func (h *handleTable) alloc() uint32 {
	handle := h.next
	h.next++
	return handle
}

// bind publishes content under handle, which must not already be bound.
func (h *handleTable) bind(handle uint32, content ParsedContent) error {
	if _, exists := h.entries[handle]; exists {
		return newErr(ErrHandleCollision, "handle 0x%x already bound", handle)
	}
	h.entries[handle] = content
	return nil
}

// rebind overwrites the (possibly nil-placeholder) content at handle,
// used to populate a handle reserved earlier via alloc.
func (h *handleTable) rebind(handle uint32, content ParsedContent) {
	h.entries[handle] = content
}

// get resolves a handle to its bound content.
func (h *handleTable) get(handle uint32) (ParsedContent, bool) {
	c, ok := h.entries[handle]
	return c, ok
}

// all returns every currently bound entry, for post-parse validation
// and dumping.
func (h *handleTable) all() map[uint32]ParsedContent {
	return h.entries
}
