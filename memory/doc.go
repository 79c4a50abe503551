// Package memory implements the engine's tiered CPU-side allocator:
//
//   - a size-classed small-object allocator (16 B to 1 KiB bins over
//     64 KiB pages with intrusive free-lists and per-worker caches),
//   - a per-frame bump arena reset in bulk at frame end,
//   - a large-block texture pool sub-allocated by free-list fit or bump,
//     optionally backed by huge pages on Linux.
//
// The intrusive free-lists store next-pointers inside the free slots
// themselves; that raw-pointer manipulation is confined to this package
// and surfaced through the MemorySystem API.
//
// All entry points are safe for concurrent use except where noted:
// frame-arena growth is caller-serialized, and a ThreadCache belongs to
// exactly one goroutine.
package memory
