// Package hostfuncs implements the capability surface: the host functions an
// addon may import from the "addon_host" module.
//
// Query capabilities (deck_get, deck_list, note_get, note_find) exchange JSON
// through a HandlerRegistry and read from the open collection's notes. The
// log capability returns nothing and is served by LogSink. Nothing here
// depends on a WebAssembly runtime; infrastructure/wazero moves the bytes.
package hostfuncs
