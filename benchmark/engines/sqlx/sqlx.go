// Package sqlx runs the operations through the sqlx micro-ORM: hand written SQL,
// struct mapping by column name and joins grouped in Go.
package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/dbUtils"
	"ormbench/model"
)

const Name = "sqlx"

var namedInserts = map[string]string{
	"olympiad": `insert into olympics (city, start, "end") values (:city, :start, :end) returning id`,
	"sport":    "insert into sports (name, olympiad_id) values (:name, :olympiad_id) returning id",
	"team":     "insert into teams (name, foundation, sport_id) values (:name, :foundation, :sport_id) returning id",
	"player": `insert into players (first_name, last_name, birthday, team_id)
		values (:first_name, :last_name, :birthday, :team_id) returning id`,
}

type Sqlx struct {
	db      *sqlx.DB
	targets *engine.Picker
	inserts map[string]*sqlx.NamedStmt
}

func New(ctx context.Context, opts engine.Options) (engine.Operation, error) {
	conn, err := dbutils.Open(ctx, opts.Dialect, opts.ConnectionString, opts.MaxOpenConns)
	if err != nil {
		return nil, err
	}

	s := &Sqlx{
		db:      sqlx.NewDb(conn, opts.Dialect.DriverName()),
		targets: opts.Targets,
		inserts: map[string]*sqlx.NamedStmt{},
	}
	for name, query := range namedInserts {
		stmt, err := s.db.PrepareNamedContext(ctx, query)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("prepare %s insert: %w", name, err)
		}
		s.inserts[name] = stmt
	}
	return s, nil
}

func (s *Sqlx) Name() string {
	return Name
}

func (s *Sqlx) Close() error {
	var errs []error
	for _, stmt := range s.inserts {
		errs = append(errs, stmt.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

func (s *Sqlx) GetPlayerByID(ctx context.Context, id int64) (*model.Player, error) {
	p := &model.Player{}
	err := s.db.GetContext(ctx, p, s.db.Rebind("select * from players where id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Sqlx) GetPlayersForTeam(ctx context.Context, teamID int64) ([]*model.Player, error) {
	players := []*model.Player{}
	err := s.db.SelectContext(ctx, &players, s.db.Rebind("select * from players where team_id = ? order by id"), teamID)
	return players, err
}

type teamPlayerRow struct {
	model.Team
	PlayerID        sql.NullInt64  `db:"player_id"`
	PlayerFirstName sql.NullString `db:"player_first_name"`
	PlayerLastName  sql.NullString `db:"player_last_name"`
	PlayerBirthday  sql.NullTime   `db:"player_birthday"`
}

// GetTeamsForSport left joins the players and groups the rows by team.
func (s *Sqlx) GetTeamsForSport(ctx context.Context, sportID int64) ([]*model.Team, error) {
	rows := []teamPlayerRow{}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		select t.id, t.name, t.foundation, t.sport_id,
			p.id as player_id, p.first_name as player_first_name,
			p.last_name as player_last_name, p.birthday as player_birthday
		from teams t
		left join players p on p.team_id = t.id
		where t.sport_id = ?
		order by t.id, p.id`), sportID)
	if err != nil {
		return nil, err
	}

	teams := []*model.Team{}
	var current *model.Team
	for _, r := range rows {
		if current == nil || current.ID != r.ID {
			team := r.Team
			current = &team
			current.Players = []*model.Player{}
			teams = append(teams, current)
		}
		if !r.PlayerID.Valid {
			continue
		}
		current.AddPlayer(&model.Player{
			ID:        r.PlayerID.Int64,
			FirstName: r.PlayerFirstName.String,
			LastName:  r.PlayerLastName.String,
			Birthday:  r.PlayerBirthday.Time,
		})
	}
	return teams, nil
}

func (s *Sqlx) GetPlayersForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	players := []*model.Player{}
	err := s.db.SelectContext(ctx, &players, s.db.Rebind(`
		select p.* from players p
		inner join teams t on p.team_id = t.id
		inner join sports s on t.sport_id = s.id
		where s.olympiad_id = ?
		order by p.id`), olympiadID)
	return players, err
}

type includeRow struct {
	model.Player
	PlayerTeam    model.Team     `db:"team"`
	TeamSport     model.Sport    `db:"sport"`
	SportOlympiad model.Olympiad `db:"olympiad"`
}

// GetPlayersWithIncludeForOlympiad reads the four levels in one joined query and
// shares one instance per team, sport and olympiad between the players.
func (s *Sqlx) GetPlayersWithIncludeForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	rows := []includeRow{}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		select p.id, p.first_name, p.last_name, p.birthday, p.team_id,
			t.id as "team.id", t.name as "team.name", t.foundation as "team.foundation", t.sport_id as "team.sport_id",
			s.id as "sport.id", s.name as "sport.name", s.olympiad_id as "sport.olympiad_id",
			o.id as "olympiad.id", o.city as "olympiad.city", o.start as "olympiad.start", o."end" as "olympiad.end"
		from players p
		inner join teams t on p.team_id = t.id
		inner join sports s on t.sport_id = s.id
		inner join olympics o on s.olympiad_id = o.id
		where o.id = ?
		order by p.id`), olympiadID)
	if err != nil {
		return nil, err
	}

	olympics := map[int64]*model.Olympiad{}
	sports := map[int64]*model.Sport{}
	teams := map[int64]*model.Team{}
	players := make([]*model.Player, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		o, ok := olympics[r.SportOlympiad.ID]
		if !ok {
			o = &r.SportOlympiad
			olympics[o.ID] = o
		}
		sp, ok := sports[r.TeamSport.ID]
		if !ok {
			sp = &r.TeamSport
			o.AddSport(sp)
			sports[sp.ID] = sp
		}
		t, ok := teams[r.PlayerTeam.ID]
		if !ok {
			t = &r.PlayerTeam
			sp.AddTeam(t)
			teams[t.ID] = t
		}
		p := r.Player
		t.AddPlayer(&p)
		players = append(players, &p)
	}
	return players, nil
}
