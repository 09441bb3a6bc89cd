package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const vaultScheme = "vault:"

// secretTTL bounds how long a resolved Vault secret is cached.
const secretTTL = 10 * time.Minute

// ErrNoSecretStore is returned when a value references Vault but no client
// was supplied.
var ErrNoSecretStore = errors.New("config: value references vault but no vault client is configured")

// SecretGetter fetches one key from a KV secret.  *vault.Client satisfies
// it.
type SecretGetter interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// IsVaultRef reports whether s has the form `vault:<path>#<key>`.
func IsVaultRef(s string) bool { return strings.HasPrefix(s, vaultScheme) }

// parseVaultRef splits `vault:<path>#<key>`.
func parseVaultRef(s string) (path, key string, err error) {
	ref := strings.TrimPrefix(s, vaultScheme)
	path, key, ok := strings.Cut(ref, "#")
	if !ok || path == "" || key == "" {
		return "", "", fmt.Errorf("config: malformed vault reference %q, want vault:<path>#<key>", s)
	}
	return path, key, nil
}

// DataSource returns the DSN with the password substituted for its first
// `%s`.  A Vault reference is resolved through sg first.  A DSN without
// `%s` is returned unchanged.
func (d Database) DataSource(ctx context.Context, sg SecretGetter) (string, error) {
	pw := d.Password
	if IsVaultRef(pw) {
		if sg == nil {
			return "", ErrNoSecretStore
		}
		path, key, err := parseVaultRef(pw)
		if err != nil {
			return "", err
		}
		if pw, err = sg.GetKV(ctx, path, key, secretTTL); err != nil {
			return "", fmt.Errorf("config: resolve database password: %w", err)
		}
	}
	return strings.Replace(d.DSN, "%s", pw, 1), nil
}
