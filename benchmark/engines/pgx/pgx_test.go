package pgx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"ormbench/benchmark/engines/enginetest"
	"ormbench/benchmark/engines/pgx"
	"ormbench/dbUtils"
)

func TestRejectsSQLite(t *testing.T) {
	store := &enginetest.Store{Dialect: dbutils.SQLite, ConnectionString: t.TempDir() + "/bench.db"}
	_, err := pgx.New(context.Background(), store.Options(2, 2))
	assert.ErrorContains(t, err, "unsupported dialect")
}

func TestConformance(t *testing.T) {
	enginetest.Run(t, enginetest.NewPostgresStore(t), pgx.New)
}
