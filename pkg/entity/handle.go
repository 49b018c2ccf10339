// Package entity defines the generational handle used to name widget
// instances stored in an arena.
package entity

import "fmt"

// Handle identifies a widget slot. A handle is only valid while its
// Generation matches the slot's current generation; a mismatch means the
// slot was freed (and possibly reused) and must resolve to "not found".
//
// Generations start at 1, so the zero Handle never names a live entity.
type Handle struct {
	Slot       uint32
	Generation uint32
}

// Nil is the zero handle. It never resolves.
var Nil Handle

// IsNil reports whether h is the zero handle.
func (h Handle) IsNil() bool {
	return h == Nil
}

func (h Handle) String() string {
	if h.IsNil() {
		return "entity(nil)"
	}
	return fmt.Sprintf("entity(%d@%d)", h.Slot, h.Generation)
}
