package entities

// AddonMenuID addresses one Tools-menu entry of one loaded addon.
type AddonMenuID struct {
	AddonID uint32 `json:"addon_id"`
	MenuIdx uint32 `json:"menu_idx"`
}

// AddonMenuEntry is the flattened view of a declared Tools-menu entry.
// It is recomputed on demand and never stored.
type AddonMenuEntry struct {
	Label   string `json:"label" yaml:"label"`
	AddonID uint32 `json:"addon_id" yaml:"addon_id"`
	MenuIdx uint32 `json:"menu_idx" yaml:"menu_idx"`
}

// ID returns the address of the entry.
func (e AddonMenuEntry) ID() AddonMenuID {
	return AddonMenuID{AddonID: e.AddonID, MenuIdx: e.MenuIdx}
}
