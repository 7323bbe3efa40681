// Package testutil starts throwaway pgvector and S3-compatible containers
// for integration tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/codmer/pulsedoc/internal/database"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgImage    = "pgvector/pgvector:0.8.1-pg18"
	pgPort     = nat.Port("5432/tcp")
	pgUser     = "pulsedoc"
	pgPassword = "pulsedoc"
	pgDatabase = "pulsedoc"

	rustfsImage = "rustfs/rustfs:latest"
	rustfsPort  = nat.Port("9000/tcp")
	// RustFSAccessKey and RustFSSecretKey are the credentials the S3
	// container is started with.
	RustFSAccessKey = "rustfsadmin"
	RustFSSecretKey = "rustfsadmin"
)

// PostgresContainer is a running pgvector container.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// RustFSContainer is a running S3-compatible container.
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

func startContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port nat.Port) (testcontainers.Container, string, string) {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start %s: %v", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get %s host: %v", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("failed to get %s port: %v", req.Image, err)
	}
	return container, host, mapped.Port()
}

// NewPostgresContainer starts a pgvector container.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()

	container, host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        pgImage,
		ExposedPorts: []string{string(pgPort)},
		Env: map[string]string{
			"POSTGRES_USER":     pgUser,
			"POSTGRES_PASSWORD": pgPassword,
			"POSTGRES_DB":       pgDatabase,
		},
		// The entrypoint restarts postgres once after init.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(pgPort),
		).WithStartupTimeout(60 * time.Second),
	}, pgPort)

	return &PostgresContainer{Container: container, Host: host, Port: port}
}

// ConnectionString returns a DSN for the container's database.
func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		pgUser, pgPassword, pc.Host, pc.Port, pgDatabase)
}

// Terminate stops and removes the container.
func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// NewRustFSContainer starts a RustFS container.
func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	t.Helper()

	container, host, port := startContainer(ctx, t, testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{string(rustfsPort)},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": RustFSAccessKey,
			"RUSTFS_SECRET_KEY": RustFSSecretKey,
		},
		WaitingFor: wait.ForListeningPort(rustfsPort).WithStartupTimeout(30 * time.Second),
	}, rustfsPort)

	return &RustFSContainer{Container: container, Host: host, Port: port}
}

// Endpoint returns the container's S3 endpoint URL.
func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", rc.Host, rc.Port)
}

// Terminate stops and removes the container.
func (rc *RustFSContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(rc.Container)
}

// NewTestPool migrates the container's database with the files in
// migrationsDir and returns a pool closed at test cleanup.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	dir, err := filepath.Abs(migrationsDir)
	if err != nil {
		t.Fatalf("failed to resolve migrations dir: %v", err)
	}

	// The port can accept connections a moment before postgres does.
	for attempt := 1; ; attempt++ {
		_, err = database.Migrate(pc.ConnectionString(), "file://"+filepath.ToSlash(dir))
		if err == nil || attempt == 5 {
			break
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: pc.ConnectionString()})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
