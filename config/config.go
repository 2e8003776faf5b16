// Package config loads the addonhost command configuration from a YAML
// file, ADDONHOST_* environment variables and command flags.
package config

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/deckforge/addonhost/application/validation"
)

// EnvPrefix prefixes every environment variable, e.g. ADDONHOST_ADDONS_DIR.
const EnvPrefix = "ADDONHOST"

// Keys, in viper's dotted form.
const (
	KeyAddonsDir        = "addons_dir"
	KeyCollection       = "collection"
	KeyHookTimeout      = "hook_timeout"
	KeyMemoryLimitPages = "memory_limit_pages"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyOutput           = "output"
	KeyWatchDebounce    = "watch_debounce"
)

// Config is the resolved command configuration.
type Config struct {
	AddonsDir        string        `mapstructure:"addons_dir" json:"addons_dir" yaml:"addons_dir" validate:"required"`
	Collection       string        `mapstructure:"collection" json:"collection" yaml:"collection" validate:"required"`
	Output           string        `mapstructure:"output" json:"output" yaml:"output" validate:"oneof=json yaml text"`
	Log              LogConfig     `mapstructure:"log" json:"log" yaml:"log"`
	HookTimeout      time.Duration `mapstructure:"hook_timeout" json:"hook_timeout" yaml:"hook_timeout" validate:"gt=0"`
	WatchDebounce    time.Duration `mapstructure:"watch_debounce" json:"watch_debounce" yaml:"watch_debounce" validate:"gt=0"`
	MemoryLimitPages uint32        `mapstructure:"memory_limit_pages" json:"memory_limit_pages" yaml:"memory_limit_pages" validate:"gte=1,lte=65536"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" json:"format" yaml:"format" validate:"oneof=text json"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		AddonsDir:        "addons",
		Collection:       "collection.db",
		Output:           "text",
		Log:              LogConfig{Level: "info", Format: "text"},
		HookTimeout:      5 * time.Second,
		WatchDebounce:    250 * time.Millisecond,
		MemoryLimitPages: 256,
	}
}

// Binder attaches extra sources, typically command flags, to v.
type Binder func(v *viper.Viper) error

// Load resolves the configuration. An explicit file must exist; without one,
// addonhost.yaml is looked up in the working directory and in
// $HOME/.config/addonhost, and a missing file is not an error. Precedence
// is bound flags, then environment, then file, then Defaults.
func Load(file string, binders ...Binder) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("addonhost")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/addonhost")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !stdErrors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for _, bind := range binders {
		if err := bind(v); err != nil {
			return nil, fmt.Errorf("bind config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyAddonsDir, d.AddonsDir)
	v.SetDefault(KeyCollection, d.Collection)
	v.SetDefault(KeyOutput, d.Output)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogFormat, d.Log.Format)
	v.SetDefault(KeyHookTimeout, d.HookTimeout)
	v.SetDefault(KeyWatchDebounce, d.WatchDebounce)
	v.SetDefault(KeyMemoryLimitPages, d.MemoryLimitPages)
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	res, err := validation.ValidateStruct(c)
	if err != nil {
		return err
	}
	if res.Valid {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		msgs = append(msgs, e.Field+" "+e.Message)
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
