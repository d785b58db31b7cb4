// Package pgx runs the operations on a native pgx pool, mapping rows to structs by
// column name. It only speaks to Postgres.
package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/dbUtils"
	"ormbench/model"
)

const Name = "pgx"

const playersOfOlympiadSQL = `
	select p.* from players p
	inner join teams t on p.team_id = t.id
	inner join sports s on t.sport_id = s.id
	where s.olympiad_id = $1
	order by p.id`

type Pgx struct {
	pool    *pgxpool.Pool
	targets *engine.Picker
}

func New(ctx context.Context, opts engine.Options) (engine.Operation, error) {
	if opts.Dialect != dbutils.Postgres {
		return nil, fmt.Errorf("pgx: unsupported dialect %s", opts.Dialect)
	}
	cfg, err := pgxpool.ParseConfig(opts.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		cfg.MaxConns = int32(opts.MaxOpenConns)
		cfg.MinConns = int32(opts.MaxOpenConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pgx pool: %w", err)
	}
	return &Pgx{pool: pool, targets: opts.Targets}, nil
}

func (p *Pgx) Name() string {
	return Name
}

func (p *Pgx) Close() error {
	p.pool.Close()
	return nil
}

func (p *Pgx) GetPlayerByID(ctx context.Context, id int64) (*model.Player, error) {
	rows, _ := p.pool.Query(ctx, "select * from players where id = $1", id)
	player, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Player])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return player, err
}

func (p *Pgx) GetPlayersForTeam(ctx context.Context, teamID int64) ([]*model.Player, error) {
	rows, _ := p.pool.Query(ctx, "select * from players where team_id = $1 order by id", teamID)
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Player])
}

// GetTeamsForSport sends the team and player queries in one batch round trip.
func (p *Pgx) GetTeamsForSport(ctx context.Context, sportID int64) ([]*model.Team, error) {
	batch := &pgx.Batch{}
	batch.Queue("select * from teams where sport_id = $1 order by id", sportID)
	batch.Queue(`
		select p.* from players p
		inner join teams t on p.team_id = t.id
		where t.sport_id = $1
		order by p.id`, sportID)
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()

	rows, _ := br.Query()
	teams, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Team])
	if err != nil {
		return nil, err
	}
	rows, _ = br.Query()
	players, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Player])
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.Team, len(teams))
	for _, t := range teams {
		t.Players = []*model.Player{}
		byID[t.ID] = t
	}
	for _, pl := range players {
		if t, ok := byID[pl.TeamID]; ok {
			t.AddPlayer(pl)
		}
	}
	return teams, nil
}

func (p *Pgx) GetPlayersForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	rows, _ := p.pool.Query(ctx, playersOfOlympiadSQL, olympiadID)
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Player])
}

// GetPlayersWithIncludeForOlympiad reads every level in one joined query and shares
// one instance per parent between the players.
func (p *Pgx) GetPlayersWithIncludeForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	rows, _ := p.pool.Query(ctx, `
		select p.id, p.first_name, p.last_name, p.birthday, p.team_id,
			t.id, t.name, t.foundation, t.sport_id,
			s.id, s.name, s.olympiad_id,
			o.id, o.city, o.start, o."end"
		from players p
		inner join teams t on p.team_id = t.id
		inner join sports s on t.sport_id = s.id
		inner join olympics o on s.olympiad_id = o.id
		where o.id = $1
		order by p.id`, olympiadID)

	var (
		pl model.Player
		t  model.Team
		s  model.Sport
		o  model.Olympiad
	)
	olympics := map[int64]*model.Olympiad{}
	sports := map[int64]*model.Sport{}
	teams := map[int64]*model.Team{}
	players := []*model.Player{}
	_, err := pgx.ForEachRow(rows, []any{
		&pl.ID, &pl.FirstName, &pl.LastName, &pl.Birthday, &pl.TeamID,
		&t.ID, &t.Name, &t.Foundation, &t.SportID,
		&s.ID, &s.Name, &s.OlympiadID,
		&o.ID, &o.City, &o.Start, &o.End,
	}, func() error {
		olympiad, ok := olympics[o.ID]
		if !ok {
			olympiad = &model.Olympiad{ID: o.ID, City: o.City, Start: o.Start, End: o.End}
			olympics[o.ID] = olympiad
		}
		sport, ok := sports[s.ID]
		if !ok {
			sport = &model.Sport{ID: s.ID, Name: s.Name}
			olympiad.AddSport(sport)
			sports[s.ID] = sport
		}
		team, ok := teams[t.ID]
		if !ok {
			team = &model.Team{ID: t.ID, Name: t.Name, Foundation: t.Foundation}
			sport.AddTeam(team)
			teams[t.ID] = team
		}
		player := &model.Player{ID: pl.ID, FirstName: pl.FirstName, LastName: pl.LastName, Birthday: pl.Birthday}
		team.AddPlayer(player)
		players = append(players, player)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return players, nil
}
