package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/storyline/pkg/dotdir"
)

const envPrefix = "STORYLINE"

// envAliases are the unprefixed variable names also honored for a key.
var envAliases = map[string][]string{
	"images.unsplash_access_key": {"UNSPLASH_ACCESS_KEY"},
	"llm.timeout":                {"LLM_TIMEOUT"},
	"llm.max_retries":            {"LLM_MAX_RETRIES"},
	"llm.retry_delay":            {"LLM_RETRY_DELAY"},
	"storage.dsn":                {"DATABASE_URL"},
	"events.brokers":             {"KAFKA_BROKERS"},
}

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), loads .env files, reads the
// config.toml file (if found via dotdir resolution), and binds environment
// variables with the STORYLINE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (STORYLINE_API_LISTEN, UNSPLASH_ACCESS_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	envFiles := []string{".env"}
	if target != "" {
		v.AddConfigPath(target)
		envFiles = append(envFiles, filepath.Join(target, ".env"))
	}

	if err := LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	return v, nil
}

// LoadDotEnv loads each existing file into the process environment without
// overriding variables that are already set. Earlier files win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// FromViper materializes a Config from the resolved viper layers. Every
// value passes through the same validation as `config set`.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	for _, key := range keyOrder {
		raw := v.GetString(key)
		if raw == "" {
			continue
		}
		if err := configKeys[key].set(cfg, raw); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// envName is the prefixed variable AutomaticEnv derives for key.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for _, key := range keyOrder {
		v.SetDefault(key, configKeys[key].get(d))
	}
}
