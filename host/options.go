package host

import (
	"log/slog"

	"github.com/deckforge/addonhost/domain/ports"
)

type hostConfig struct {
	logger    *slog.Logger
	validator ports.ManifestValidator
}

// Option configures an AddonHost.
type Option func(*hostConfig)

// WithLogger sets the logger used for per-addon diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *hostConfig) {
		c.logger = logger
	}
}

// WithValidator sets the validator applied to every manifest before an
// addon is accepted. Without one, manifests are accepted as returned.
func WithValidator(v ports.ManifestValidator) Option {
	return func(c *hostConfig) {
		c.validator = v
	}
}
