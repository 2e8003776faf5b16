package ports

import "github.com/deckforge/addonhost/domain/entities"

// ManifestValidator checks an addon manifest before the addon is accepted.
type ManifestValidator interface {
	Validate(manifest *entities.AddonManifest) (*entities.ValidationResult, error)
}
