package pgx

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/model"
)

func insertReturning(ctx context.Context, tx pgx.Tx, query string, args ...any) (int64, error) {
	var id int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s: %w", query, engine.ErrNoIdentity)
	}
	return id, nil
}

func insertSport(ctx context.Context, tx pgx.Tx, s *model.Sport) error {
	id, err := insertReturning(ctx, tx, "insert into sports (name, olympiad_id) values ($1, $2) returning id", s.Name, s.OlympiadID)
	if err != nil {
		return err
	}
	s.SetID(id)
	for _, t := range s.Teams {
		if id, err = insertReturning(ctx, tx, "insert into teams (name, foundation, sport_id) values ($1, $2, $3) returning id",
			t.Name, t.Foundation, t.SportID); err != nil {
			return err
		}
		t.SetID(id)
		for _, p := range t.Players {
			if p.ID, err = insertReturning(ctx, tx, "insert into players (first_name, last_name, birthday, team_id) values ($1, $2, $3, $4) returning id",
				p.FirstName, p.LastName, p.Birthday, p.TeamID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pgx) CreateOlympiad(ctx context.Context) (int64, error) {
	o := model.PlaceholderOlympiad()
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		id, err := insertReturning(ctx, tx, `insert into olympics (city, start, "end") values ($1, $2, $3) returning id`, o.City, o.Start, o.End)
		if err != nil {
			return err
		}
		o.SetID(id)
		for _, s := range o.Sports {
			if err := insertSport(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return o.ID, nil
}

func (p *Pgx) UpdateOlympiad(ctx context.Context) (bool, error) {
	id := p.targets.UpdateTarget()
	start := p.targets.StartDate()
	found := false
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "update olympics set start = $1 where id = $2", start, id)
		if err != nil || tag.RowsAffected() == 0 {
			return err
		}
		found = true

		s := model.PlaceholderSport()
		s.OlympiadID = id
		return insertSport(ctx, tx, s)
	})
	return found, err
}

func (p *Pgx) DeleteOlympiad(ctx context.Context) (bool, error) {
	id, ok := p.targets.DeleteTarget()
	if !ok {
		return false, nil
	}
	deleted := false
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "delete from olympics where id = $1", id)
		deleted = tag.RowsAffected() > 0
		return err
	})
	return deleted, err
}
