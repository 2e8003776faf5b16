// Package ports defines the interfaces the addon host depends on.
// The host only ever talks to sandboxed addons through AddonRuntime and
// Guest; infrastructure adapters (wazero, sqlite) implement these.
package ports
