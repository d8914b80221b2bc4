// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `INTAKE_`, where `__` maps to “.”
     (e.g., `INTAKE_HTTP__LISTEN_ADDR → http.listen_addr`).

Secret references
-----------------
Any string value written as `vault:<mount>/<path>#<key>` is resolved
through the supplied SecretSource after merging and before unmarshalling.
A reference with no SecretSource configured is a startup error.

After merging, the tree is unmarshalled over the built-in defaults,
validated, enriched with the runtime root path, and cached in an
`atomic.Pointer` for lock-free reads.

Instrumentation
---------------
  • DEBUG spans – root discovery, YAML read, secret resolution.
  • ERROR spans – YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  – final “config loaded” with key highlights.
  • Logs use the global sugared logger (`zap.S()`) so early boot issues
    surface before the file logger is installed.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/intake/internal/form"
)

const (
	envPrefix    = "INTAKE_"
	secretPrefix = "vault:"
)

// ErrNoSecretSource is returned when the tree holds a vault reference but
// Load was given no SecretSource.
var ErrNoSecretSource = errors.New("config: vault reference without a secret source")

// SecretSource resolves one key of one secret.  *vault.Client satisfies it.
type SecretSource interface {
	GetKV(ctx context.Context, path, key string, ttl time.Duration) (string, error)
}

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves INTAKE_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to the executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("INTAKE_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*──────────────────────────── defaults ────────────────────────────────────*/

func defaults() Config {
	return Config{
		HTTP: HTTP{ListenAddr: ":8080"},
		Database: Database{
			MaxOpen: 15,
			MaxIdle: 5,
		},
		Form: Form{
			Capabilities: form.DefaultCapabilities(),
			PicklistTTL:  10 * time.Minute,
		},
		Geocoder: Geocoder{
			BaseURL:  "https://dapi.kakao.com",
			RetryMax: 2,
			Timeout:  3 * time.Second,
		},
		Session: Session{
			IdleTTL:    30 * time.Minute,
			MaxEntries: 10000,
		},
		Log: Log{Level: "info"},
	}
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.  secrets may be nil when the tree holds no vault reference.
func Load(ctx context.Context, secrets SecretSource) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: INTAKE_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, secrets); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	cfg := defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"coordinates", cfg.Form.Capabilities.Coordinates,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveSecrets replaces every `vault:` string in k with its secret value.
// Keys are visited in sorted order so failures are reported deterministically.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, secrets SecretSource) error {
	all := k.All()
	keys := make([]string, 0, len(all))
	for key, val := range all {
		if s, ok := val.(string); ok && strings.HasPrefix(s, secretPrefix) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if secrets == nil {
		return fmt.Errorf("%w: %s", ErrNoSecretSource, strings.Join(keys, ", "))
	}
	sort.Strings(keys)

	for _, key := range keys {
		path, field, err := parseSecretRef(k.String(key))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		val, err := secrets.GetKV(ctx, path, field, 0)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key, "path", path)
	}
	return nil
}

// parseSecretRef splits `vault:<path>#<key>`.
func parseSecretRef(ref string) (path, key string, err error) {
	body := strings.TrimPrefix(ref, secretPrefix)
	path, key, ok := strings.Cut(body, "#")
	if !ok || path == "" || key == "" {
		return "", "", fmt.Errorf("malformed secret reference %q", ref)
	}
	return path, key, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }
