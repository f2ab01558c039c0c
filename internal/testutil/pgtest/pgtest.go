//go:build integration

// Package pgtest starts a disposable PostgreSQL for repository tests
package pgtest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/metrics"
)

const (
	user     = "parking"
	password = "parking"
	database = "parking"
)

var (
	containerOnce sync.Once
	container     testcontainers.Container
	containerErr  error
)

// New returns a migrated database shared by the test binary. Tables are truncated
// before returning so tests start from an empty schema.
func New(t *testing.T) *dbmetrics.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	containerOnce.Do(func() {
		container, containerErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:17",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     user,
					"POSTGRES_PASSWORD": password,
					"POSTGRES_DB":       database,
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(time.Minute),
			},
			Started: true,
		})
		if containerErr != nil {
			return
		}
		containerErr = migrate(ctx)
	})
	require.NoError(t, containerErr, "start postgres container")

	db, err := open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `TRUNCATE parking_spots, spot_calendar_blocks, spot_holds, reservations,
		reservation_extensions, payment_operations, notifications, rate_limit_counters CASCADE`)
	require.NoError(t, err, "truncate tables")

	var m *metrics.Metrics
	return dbmetrics.Wrap(db, m, "test")
}

func open(ctx context.Context) (*sql.DB, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, fmt.Errorf("mapped port: %w", err)
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port.Port(), user, password, database)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context) error {
	db, err := open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "..", "..", "..")

	files, err := filepath.Glob(filepath.Join(root, "migrations", "*.sql"))
	if err != nil {
		return err
	}
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

// InsertSpot seeds a bookable spot
func InsertSpot(t *testing.T, db *dbmetrics.DB, ownerID uuid.UUID, hourlyRateCents int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO parking_spots (id, owner_id, title, hourly_rate_cents) VALUES ($1, $2, $3, $4)`,
		id, ownerID, "Driveway", hourlyRateCents)
	require.NoError(t, err, "insert spot")
	return id
}
