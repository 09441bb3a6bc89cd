// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, so the binary never runs
// with partial, malformed, or missing configuration.
//
// Custom rules
// ------------
//   • `tableprefix` – letters, digits, and underscores only, possibly
//     empty.  The prefix is concatenated into SQL text, so it must never
//     carry quotes, spaces, or separators.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var (
	v        = validator.New()
	prefixRe = regexp.MustCompile(`^[A-Za-z0-9_]*$`)
)

func init() {
	_ = v.RegisterValidation("tableprefix", func(fl validator.FieldLevel) bool {
		return prefixRe.MatchString(fl.Field().String())
	})
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
