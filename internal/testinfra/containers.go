//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yanizio/metrica/internal/database"
)

const (
	// DefaultMySQLImage is the MySQL server used for the MySQL dialect.
	DefaultMySQLImage = "mysql:8.4"

	// DefaultPostgresImage is the PostgreSQL server used for the Postgres
	// dialect.
	DefaultPostgresImage = "postgres:16-alpine"

	dbName     = "metrica"
	dbUser     = "metrica"
	dbPassword = "metrica"
)

// SkipIfNoDocker skips the test if Docker is not available.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// DatabaseContainer is a running database server plus the DSN that
// reaches it from the host.
type DatabaseContainer struct {
	testcontainers.Container
	Dialect database.Dialect
	DSN     string
}

type spec struct {
	image string
	port  string
	env   map[string]string
	ready string
	dsn   func(host, port string) string
}

var specs = map[database.Dialect]spec{
	database.MySQL: {
		image: DefaultMySQLImage,
		port:  "3306/tcp",
		env: map[string]string{
			"MYSQL_ROOT_PASSWORD": dbPassword,
			"MYSQL_DATABASE":      dbName,
			"MYSQL_USER":          dbUser,
			"MYSQL_PASSWORD":      dbPassword,
		},
		// The entrypoint starts a temporary server first.
		ready: "ready for connections",
		dsn: func(host, port string) string {
			return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", dbUser, dbPassword, host, port, dbName)
		},
	},
	database.Postgres: {
		image: DefaultPostgresImage,
		port:  "5432/tcp",
		env: map[string]string{
			"POSTGRES_DB":       dbName,
			"POSTGRES_USER":     dbUser,
			"POSTGRES_PASSWORD": dbPassword,
		},
		ready: "database system is ready to accept connections",
		dsn: func(host, port string) string {
			return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
				dbUser, dbPassword, host, port, dbName)
		},
	},
}

// NewDatabaseContainer starts a server for d and waits until it accepts
// connections.
func NewDatabaseContainer(ctx context.Context, d database.Dialect) (*DatabaseContainer, error) {
	s, ok := specs[d]
	if !ok {
		return nil, fmt.Errorf("%w: %v", database.ErrUnknownDialect, d)
	}

	req := testcontainers.ContainerRequest{
		Image:        s.image,
		ExposedPorts: []string{s.port},
		Env:          s.env,
		WaitingFor: wait.ForAll(
			wait.ForLog(s.ready).WithOccurrence(2),
			wait.ForListeningPort(nat.Port(s.port)),
		).WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s container: %w", d, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, nat.Port(s.port))
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("container port: %w", err)
	}

	return &DatabaseContainer{
		Container: container,
		Dialect:   d,
		DSN:       s.dsn(host, port.Port()),
	}, nil
}

// Open starts a container for d and returns a Conn using prefix.  No
// tables are created.  Container and pool are released at test cleanup.
func Open(t *testing.T, d database.Dialect, prefix string) *database.Conn {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()
	c, err := NewDatabaseContainer(ctx, d)
	if err != nil {
		t.Fatalf("start %s: %v", d, err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	opts := database.DefaultOptions()
	opts.Retries = 10
	opts.RetryBackoff = time.Second
	conn, err := database.Open(ctx, d, c.DSN, opts, database.Prefix(prefix))
	if err != nil {
		t.Fatalf("open %s: %v", d, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
