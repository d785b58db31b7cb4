// Package gorm runs the operations through the gorm ORM, in three styles: with change
// tracking, with a lean session and with raw SQL passed through the ORM.
package gorm

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/dbUtils"
	"ormbench/model"
)

const (
	TrackedName = "gorm"
	NoTrackName = "gorm-notrack"
	RawName     = "gorm-raw"
)

func open(ctx context.Context, opts engine.Options, cfg *gorm.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Dialect {
	case dbutils.SQLite:
		dialector = sqlite.Open(opts.Dialect.DSN(opts.ConnectionString))
	case dbutils.Postgres:
		dialector = postgres.Open(opts.ConnectionString)
	default:
		return nil, fmt.Errorf("gorm: unsupported dialect %s", opts.Dialect)
	}

	// per query logging would end up inside the measured time
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		sqlDB.SetMaxIdleConns(opts.MaxOpenConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Dialect, err)
	}
	return db, nil
}

type base struct {
	name    string
	db      *gorm.DB
	targets *engine.Picker
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// orm holds the reads shared by the tracked and untracked styles; they differ in
// session settings and in how they write.
type orm struct {
	base
}

func (o *orm) GetPlayerByID(ctx context.Context, id int64) (*model.Player, error) {
	p := &model.Player{}
	res := o.db.WithContext(ctx).Limit(1).Find(p, id)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return p, nil
}

func (o *orm) GetPlayersForTeam(ctx context.Context, teamID int64) ([]*model.Player, error) {
	players := []*model.Player{}
	err := o.db.WithContext(ctx).Where("team_id = ?", teamID).Order("id").Find(&players).Error
	return players, err
}

func (o *orm) GetTeamsForSport(ctx context.Context, sportID int64) ([]*model.Team, error) {
	teams := []*model.Team{}
	err := o.db.WithContext(ctx).
		Preload("Players", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("sport_id = ?", sportID).
		Order("id").
		Find(&teams).Error
	return teams, err
}

func (o *orm) playersOfOlympiad(ctx context.Context, olympiadID int64) *gorm.DB {
	return o.db.WithContext(ctx).
		Joins("inner join teams on teams.id = players.team_id").
		Joins("inner join sports on sports.id = teams.sport_id").
		Where("sports.olympiad_id = ?", olympiadID).
		Order("players.id")
}

func (o *orm) GetPlayersForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	players := []*model.Player{}
	err := o.playersOfOlympiad(ctx, olympiadID).Find(&players).Error
	return players, err
}

func (o *orm) GetPlayersWithIncludeForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	players := []*model.Player{}
	err := o.playersOfOlympiad(ctx, olympiadID).Preload("Team.Sport.Olympiad").Find(&players).Error
	return players, err
}
