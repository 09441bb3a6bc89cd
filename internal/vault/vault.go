// internal/vault/vault.go
//
// Vault client wrapper for metrica.
//
// Context
// -------
//   - Resolves `vault:<path>#<key>` configuration values, today only the
//     database password, through the HashiCorp Vault Go SDK.
//   - Adds background token renewal, a KV-v2 helper, and per-key caching.
//   - Safe for concurrent use; one client per process.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx)                     // during boot.
//  2. dsn, err := cfg.Database.DataSource(ctx, cli)  // GetKV under the hood.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – initial token (falls back to ~/.vault-token).
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// ErrEmptyRef is returned by GetKV for an empty path or key.
var ErrEmptyRef = errors.New("vault: secret path and key must be non-empty")

// Client caches KV reads and keeps its token alive.  Zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New builds a client from the VAULT_* environment and starts token
// renewal, which stops when ctx is cancelled.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := &Client{
		api:   apiCli,
		log:   zap.S().Named("vault"),
		cache: make(map[string]cached),
	}
	go c.renewLoop(ctx)
	return c, nil
}

// GetKV fetches key from the KV-v2 secret at secretPath, whose first path
// element is the mount.  With ttl > 0 the value is cached for ttl.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", ErrEmptyRef
	}
	ref := secretPath + "#" + key

	if v, ok := c.cached(ref); ok {
		return v, nil
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not found in secret %q", key, secretPath)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: value at %s is not a string", ref)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[ref] = cached{val: val, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return val, nil
}

func (c *Client) cached(ref string) (string, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	cv, ok := c.cache[ref]
	if !ok || !time.Now().Before(cv.exp) {
		return "", false
	}
	return cv.val, true
}

/*──────────────────────────── token renewal ────────────────────────────────*/

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		backoff(ctx, c.renewOnce(ctx))
	}
}

// renewOnce watches the current token until renewal stops and returns how
// long to wait before trying again.
func (c *Client) renewOnce(ctx context.Context) time.Duration {
	sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
	if err != nil {
		c.log.Debugw("token renew-self failed", "err", err)
		return 30 * time.Second
	}
	if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
		c.log.Debugw("token is not renewable")
		return time.Hour
	}

	w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
		Secret: sec,
		Grace:  15 * time.Second,
	})
	if err != nil {
		c.log.Warnw("lifetime watcher init failed", "err", err)
		return 30 * time.Second
	}
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warnw("token renewal stopped", "err", err)
			}
			return 15 * time.Second
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
