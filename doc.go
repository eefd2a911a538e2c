// Package termgrid provides the screen-storage and print-engine core
// of a GPU-accelerated terminal emulator: paged, offset-addressed grid
// storage with content-deduplicated cell styles, an xterm-semantics
// print/cursor engine, and a Kitty graphics protocol image store.
//
// This package emulates neither a byte-level VT parser nor a
// renderer. It consumes already-decoded operations (print a rune, set
// a style, move the cursor, feed a parsed Kitty command) and exposes
// read-only cell/image access for a renderer to draw from. That
// division keeps the core allocation-conscious and independent of any
// particular windowing or GPU toolkit.
//
// # Quick Start
//
//	term := termgrid.New(80, 24)
//	term.Print('H')
//	term.Print('i')
//	fmt.Println(term.PlainString()) // "Hi", then 23 empty lines for the blank rows
//
// # Architecture
//
// The package is organized around these core types:
//
//   - [Page]: a fixed-capacity slab of rows and cells, addressed by
//     offset rather than pointer so the backing arena can be moved or
//     copied without fixing up pointers
//   - [PageList]: a doubly-linked chain of pages representing
//     scrollback plus the active area, with tracked [Pin]s that survive
//     row insertion/eviction
//   - [Screen]: cursor state, primary/alternate buffers, and viewport
//     scrollback positioning layered on a PageList
//   - [Terminal]: the print engine — grapheme clustering, wide
//     characters, line wrap, margins and scroll regions — layered on
//     Screen
//   - [RefCountedSet]: deduplicates [Style] values behind a 16-bit id
//     so cells only ever store a small integer, not a full style
//   - [ImageStorage]: the Kitty graphics protocol's image and
//     placement store, with byte-budget eviction
//
// # Kitty Graphics
//
// [KittyCommandParser] decodes the APC payload bytes (already isolated
// from their `ESC _ G ... ESC \` envelope by an external VT parser)
// into a [KittyCommand]. [Terminal.ExecuteKitty] drives the rest:
// chunked transmission via [LoadingImage], storage and placement via
// [ImageStorage], and formats the protocol's response string.
package termgrid
