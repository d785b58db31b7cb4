package enginetest

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"

	"ormbench/dbUtils"
)

// PostgresEnv enables the tests that start a Postgres container.
const PostgresEnv = "ORMBENCH_POSTGRES_TESTS"

var (
	user     = "postgres"
	password = "secret"
	port     = "5432"
	dbName   = "ormbench"
)

// StartPostgres runs a throwaway Postgres container and returns its DSN. The test is
// skipped unless PostgresEnv is set.
func StartPostgres(t testing.TB) string {
	t.Helper()
	if os.Getenv(PostgresEnv) == "" {
		t.Skipf("set %s=1 to run the Postgres tests", PostgresEnv)
	}

	pool, err := dockertest.NewPool(os.Getenv("DOCKER_URL"))
	require.NoError(t, err, "could not connect to docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + dbName,
			"listen_addresses = '*'",
		},
		ExposedPorts: []string{port},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "could not start postgres")
	t.Cleanup(func() { _ = pool.Purge(resource) })

	// expire the container to avoid orphans when the test binary is killed
	_ = resource.Expire(300)

	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable",
		user, password, resource.GetPort(port+"/tcp"), dbName)
	err = pool.Retry(func() error {
		db, err := sql.Open(dbutils.Postgres.DriverName(), dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	})
	require.NoError(t, err, "could not connect to postgres")
	return dsn
}

// NewPostgresStore seeds a store inside a fresh Postgres container.
func NewPostgresStore(t testing.TB) *Store {
	t.Helper()
	return NewStore(t, dbutils.Postgres, StartPostgres(t))
}
