// Package entities provides the core domain types of the addon host: the
// host-native note record, its boundary snapshot, addon manifests and the
// derived Tools-menu view.
//
// Types here carry no behavior beyond small invariant-preserving helpers and
// must not import anything outside the standard library.
package entities
