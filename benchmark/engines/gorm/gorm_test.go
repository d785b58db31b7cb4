package gorm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/benchmark/engines/enginetest"
	"ormbench/benchmark/engines/gorm"
)

func TestTrackedConformance(t *testing.T) {
	enginetest.Run(t, enginetest.NewSQLiteStore(t), gorm.NewTracked)
}

func TestNoTrackConformance(t *testing.T) {
	enginetest.Run(t, enginetest.NewSQLiteStore(t), gorm.NewNoTrack)
}

func TestRawConformance(t *testing.T) {
	enginetest.Run(t, enginetest.NewSQLiteStore(t), gorm.NewRaw)
}

func TestPostgresConformance(t *testing.T) {
	factories := map[string]engine.Factory{
		gorm.TrackedName: gorm.NewTracked,
		gorm.NoTrackName: gorm.NewNoTrack,
		gorm.RawName:     gorm.NewRaw,
	}
	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			enginetest.Run(t, enginetest.NewPostgresStore(t), factory)
		})
	}
}

func TestNames(t *testing.T) {
	store := enginetest.NewSQLiteStore(t)
	factories := map[string]engine.Factory{
		gorm.TrackedName: gorm.NewTracked,
		gorm.NoTrackName: gorm.NewNoTrack,
		gorm.RawName:     gorm.NewRaw,
	}
	for name, factory := range factories {
		op, err := factory(context.Background(), store.Options(2, 2))
		require.NoError(t, err)
		assert.Equal(t, name, op.Name())
		assert.NoError(t, op.Close())
	}
}

func TestUnknownDialect(t *testing.T) {
	store := enginetest.NewSQLiteStore(t)
	opts := store.Options(2, 2)
	opts.Dialect = "oracle"
	_, err := gorm.NewTracked(context.Background(), opts)
	assert.Error(t, err)
}
