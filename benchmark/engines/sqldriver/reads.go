package sqldriver

import (
	"context"
	"database/sql"
	"errors"

	"ormbench/model"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(s scanner) (*model.Player, error) {
	p := &model.Player{}
	err := s.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Birthday, &p.TeamID)
	return p, err
}

func scanTeam(s scanner) (*model.Team, error) {
	t := &model.Team{Players: []*model.Player{}}
	err := s.Scan(&t.ID, &t.Name, &t.Foundation, &t.SportID)
	return t, err
}

func scanSport(s scanner) (*model.Sport, error) {
	sp := &model.Sport{Teams: []*model.Team{}}
	err := s.Scan(&sp.ID, &sp.Name, &sp.OlympiadID)
	return sp, err
}

func scanOlympiad(s scanner) (*model.Olympiad, error) {
	o := &model.Olympiad{Sports: []*model.Sport{}}
	err := s.Scan(&o.ID, &o.City, &o.Start, &o.End)
	return o, err
}

func queryList[T any](ctx context.Context, stmt *sql.Stmt, scan func(scanner) (T, error), args ...any) ([]T, error) {
	rs, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	result := []T{}
	for rs.Next() {
		item, err := scan(rs)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rs.Err()
}

func (d *Driver) GetPlayerByID(ctx context.Context, id int64) (*model.Player, error) {
	p, err := scanPlayer(d.stmts["playerByID"].QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Driver) GetPlayersForTeam(ctx context.Context, teamID int64) ([]*model.Player, error) {
	return queryList(ctx, d.stmts["playersForTeam"], scanPlayer, teamID)
}

// GetTeamsForSport loads the teams and then all of their players in a second query.
func (d *Driver) GetTeamsForSport(ctx context.Context, sportID int64) ([]*model.Team, error) {
	teams, err := queryList(ctx, d.stmts["teamsForSport"], scanTeam, sportID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*model.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	players, err := queryList(ctx, d.stmts["playersForSport"], scanPlayer, sportID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if t, ok := byID[p.TeamID]; ok {
			t.AddPlayer(p)
		}
	}
	return teams, nil
}

func (d *Driver) GetPlayersForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	return queryList(ctx, d.stmts["playersForOlympiad"], scanPlayer, olympiadID)
}

// GetPlayersWithIncludeForOlympiad runs one query per level and wires the levels together.
func (d *Driver) GetPlayersWithIncludeForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	o, err := scanOlympiad(d.stmts["olympiad"].QueryRowContext(ctx, olympiadID))
	if errors.Is(err, sql.ErrNoRows) {
		return []*model.Player{}, nil
	}
	if err != nil {
		return nil, err
	}

	sports, err := queryList(ctx, d.stmts["sportsForOlympiad"], scanSport, olympiadID)
	if err != nil {
		return nil, err
	}
	sportsByID := make(map[int64]*model.Sport, len(sports))
	for _, s := range sports {
		o.AddSport(s)
		sportsByID[s.ID] = s
	}

	teams, err := queryList(ctx, d.stmts["teamsForOlympiad"], scanTeam, olympiadID)
	if err != nil {
		return nil, err
	}
	teamsByID := make(map[int64]*model.Team, len(teams))
	for _, t := range teams {
		if s, ok := sportsByID[t.SportID]; ok {
			s.AddTeam(t)
		}
		teamsByID[t.ID] = t
	}

	players, err := d.GetPlayersForOlympiad(ctx, olympiadID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if t, ok := teamsByID[p.TeamID]; ok {
			t.AddPlayer(p)
		}
	}
	return players, nil
}
