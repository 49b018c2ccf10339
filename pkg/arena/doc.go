// Package arena stores widget objects behind generational handles and keeps
// their tree bookkeeping: parent and child links, dirty and relayout-boundary
// flags, cached layout results, and the set of layout roots waiting for a
// layout pass.
//
// # Storage
//
// Nodes live in a dense slice for cache-friendly iteration. A sparse slice
// indexed by slot maps a handle to its dense position and current
// generation, and freed slots are recycled through a free list. Removal
// swaps the last dense node into the hole, so lookups, inserts and removals
// are all O(1). Every lookup compares generations: a stale handle resolves
// to "not found", never to whatever entity now occupies its slot.
//
// # Re-entrancy
//
// Widget code runs while the arena is in use. WithMut checks a widget out:
// the slot holds an inert placeholder while the callback runs with full
// access to the arena, so the callback may register children, re-parent
// nodes, or unregister itself. When the callback returns the widget goes
// back into its slot, or is released if its handle died in the meantime.
// Unregister finishes all bookkeeping before it releases the widget, so
// a Dispose that unregisters more handles sees a consistent arena.
//
// # Dirty propagation
//
// MarkNeedsLayout walks up the parent chain setting dirty flags until it
// reaches a relayout boundary or a root, which it records as a layout root.
// The walk stops early at a node that is already dirty. That shortcut is
// only sound if the layout pass clears the dirty flag of every node it
// visits, not just the boundary; a consumer that skips this silently loses
// later invalidations. See package layout for a consumer that honors it.
//
// The arena is not safe for concurrent use.
package arena
