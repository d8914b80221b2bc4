// internal/config/model.go
//
// Typed configuration model for the intake service.
//
// Context
// -------
// These structs define the shape of the tree that loader.go builds from
// three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `INTAKE_`-prefixed environment overrides – highest precedence.
//
// A string value of the form `vault:<path>#<key>` is swapped for the
// secret it names before unmarshalling, so the model only ever holds plain
// values.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`.  Durations accept Go syntax ("5s").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/yanizio/intake/internal/form"
)

//
// HTTP section
//

// HTTP holds web-server tunables.  Zero timeouts fall back to the server
// package defaults.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gte=0"`
}

//
// Database section
//

// Database holds the CRM connection.  DSN may contain one `%s` verb that
// receives Password, so the secret can live in Vault while host and flags
// stay in YAML.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required,dsn"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

// ConnString returns DSN with Password substituted.
func (d Database) ConnString() string {
	if strings.Contains(d.DSN, "%s") {
		return fmt.Sprintf(d.DSN, d.Password)
	}
	return d.DSN
}

//
// Form section
//

// Form selects the form variant and its static inputs.
type Form struct {
	Capabilities form.Capabilities `koanf:"capabilities"`
	RegionFile   string            `koanf:"region_file"`
	CSRFKey      string            `koanf:"csrf_key" validate:"omitempty,min=32"`
	PicklistTTL  time.Duration     `koanf:"picklist_ttl" validate:"gte=0"`
}

//
// Geocoder section
//

// Geocoder configures the address-to-coordinate lookup.  An empty APIKey
// disables geocoding regardless of the form capabilities.
type Geocoder struct {
	BaseURL  string        `koanf:"base_url"  validate:"omitempty,url"`
	APIKey   string        `koanf:"api_key"`
	RetryMax int           `koanf:"retry_max" validate:"gte=0,lte=10"`
	Timeout  time.Duration `koanf:"timeout"   validate:"gte=0"`
}

//
// Session section
//

// Session bounds the in-memory form-session registry.
type Session struct {
	IdleTTL    time.Duration `koanf:"idle_ttl"    validate:"gte=0"`
	MaxEntries int           `koanf:"max_entries" validate:"gte=0"`
}

//
// Misc sections
//

// GeoIP points at an optional GeoLite2-Country database.
type GeoIP struct {
	Path string `koanf:"path"`
}

// Log configures the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

// Paths is resolved at runtime.
type Paths struct {
	Root string // INTAKE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Form     Form     `koanf:"form"`
	Geocoder Geocoder `koanf:"geocoder"`
	Session  Session  `koanf:"session"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"`
}
