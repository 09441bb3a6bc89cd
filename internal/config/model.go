// internal/config/model.go
//
// Typed configuration model for metrica.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `METRICA_`-prefixed environment overrides – highest precedence.
//
// A database password of the form `vault:<path>#<key>` is resolved through
// the Vault client after validation, so callers only ever see plain
// strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"time"

	"github.com/yanizio/metrica/internal/database"
)

//
// Database section
//

// Database selects the dialect and pool.  `DSN` may contain one `%s` verb
// that receives `Password`, keeping the secret out of the YAML template.
type Database struct {
	Driver          string        `koanf:"driver"            validate:"required,oneof=mysql mariadb postgres postgresql pgsql"`
	DSN             string        `koanf:"dsn"               validate:"required"`
	Password        string        `koanf:"password"`
	TablePrefix     string        `koanf:"table_prefix"      validate:"tableprefix"`
	MaxOpenConns    int           `koanf:"max_open_conns"    validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
}

// Options returns the pool options with zero values replaced by defaults.
func (d Database) Options() database.Options {
	o := database.DefaultOptions()
	if d.MaxOpenConns > 0 {
		o.MaxOpenConns = d.MaxOpenConns
	}
	if d.MaxIdleConns > 0 {
		o.MaxIdleConns = d.MaxIdleConns
	}
	if d.ConnMaxLifetime > 0 {
		o.ConnMaxLifetime = d.ConnMaxLifetime
	}
	return o
}

//
// Log section
//

// Log controls the file logger.  An empty Dir means `<root>/logs`.
type Log struct {
	Dir string `koanf:"dir"`
	Tee bool   `koanf:"tee"`
}

//
// HTTP section
//

// HTTP holds the admin API listener.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // METRICA_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	Database Database `koanf:"database"`
	Log      Log      `koanf:"log"`
	HTTP     HTTP     `koanf:"http"`
	Paths    Paths    `koanf:"-"`
}
