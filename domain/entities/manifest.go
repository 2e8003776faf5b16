package entities

// AddonManifest is the metadata an addon returns from its init export.
// It is immutable host-side once accepted.
type AddonManifest struct {
	Name            string   `json:"name" validate:"required,max=128"`
	ToolMenuEntries []string `json:"tool_menu_entries" validate:"max=64,dive,required,max=256"`
}
