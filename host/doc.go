// Package host manages the addons loaded into one open collection.
//
// An AddonHost owns an ordered list of AddonContexts; the index of a context
// is its addon id. The host loads addons through a ports.AddonRuntime,
// dispatches lifecycle events to every addon in load order, aggregates the
// Tools-menu entries they declare and routes menu clicks back to them.
//
// Failures of a single addon never escape the host: a broken binary is left
// out of the load, and a trapping hook is logged and skipped while the other
// addons keep running. Only host-level misuse, such as clicking an addon id
// that is not loaded, is returned to the caller as an *errors.ApplicationError.
package host
