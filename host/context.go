package host

import (
	"context"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/ports"
)

// AddonContext is one successfully loaded addon: its guest handle and the
// manifest it declared at init. It is immutable after load.
type AddonContext struct {
	guest    ports.Guest
	manifest entities.AddonManifest
	path     string
}

func newAddonContext(guest ports.Guest, manifest entities.AddonManifest, path string) *AddonContext {
	manifest.ToolMenuEntries = append([]string(nil), manifest.ToolMenuEntries...)
	return &AddonContext{guest: guest, manifest: manifest, path: path}
}

// Name returns the name the addon declared.
func (c *AddonContext) Name() string {
	return c.manifest.Name
}

// InstanceName returns the runtime instance name used in diagnostics.
func (c *AddonContext) InstanceName() string {
	return c.guest.Name()
}

// Path returns the file the addon was loaded from, if any.
func (c *AddonContext) Path() string {
	return c.path
}

// MenuEntries returns a copy of the declared Tools-menu labels.
func (c *AddonContext) MenuEntries() []string {
	return append([]string(nil), c.manifest.ToolMenuEntries...)
}

// Stopped reports whether the addon's instance can no longer run.
func (c *AddonContext) Stopped() bool {
	return c.guest.Stopped()
}

func (c *AddonContext) close(ctx context.Context) error {
	return c.guest.Close(ctx)
}
