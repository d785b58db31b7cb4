package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/model"
)

func (d *Driver) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *Driver) insertID(ctx context.Context, tx *sql.Tx, name string, args ...any) (int64, error) {
	var id int64
	if err := d.stmt(ctx, tx, name).QueryRowContext(ctx, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s: %w", name, engine.ErrNoIdentity)
	}
	return id, nil
}

// insertSports stores the sports and everything below them, parents first.
func (d *Driver) insertSports(ctx context.Context, tx *sql.Tx, sports []*model.Sport) error {
	for _, s := range sports {
		id, err := d.insertID(ctx, tx, "insertSport", s.Name, s.OlympiadID)
		if err != nil {
			return err
		}
		s.SetID(id)
		for _, t := range s.Teams {
			id, err := d.insertID(ctx, tx, "insertTeam", t.Name, t.Foundation, t.SportID)
			if err != nil {
				return err
			}
			t.SetID(id)
			for _, p := range t.Players {
				if p.ID, err = d.insertID(ctx, tx, "insertPlayer", p.FirstName, p.LastName, p.Birthday, p.TeamID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *Driver) CreateOlympiad(ctx context.Context) (int64, error) {
	o := model.PlaceholderOlympiad()
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		id, err := d.insertID(ctx, tx, "insertOlympiad", o.City, o.Start, o.End)
		if err != nil {
			return err
		}
		o.SetID(id)
		return d.insertSports(ctx, tx, o.Sports)
	})
	if err != nil {
		return 0, err
	}
	return o.ID, nil
}

func (d *Driver) UpdateOlympiad(ctx context.Context) (bool, error) {
	id := d.targets.UpdateTarget()
	start := d.targets.StartDate()
	found := false
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		o, err := scanOlympiad(d.stmt(ctx, tx, "olympiad").QueryRowContext(ctx, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		o.Start = start
		if _, err := d.stmt(ctx, tx, "updateOlympiad").ExecContext(ctx, o.City, o.Start, o.End, o.ID); err != nil {
			return err
		}
		s := model.PlaceholderSport()
		o.AddSport(s)
		return d.insertSports(ctx, tx, []*model.Sport{s})
	})
	return found, err
}

func (d *Driver) DeleteOlympiad(ctx context.Context) (bool, error) {
	id, ok := d.targets.DeleteTarget()
	if !ok {
		return false, nil
	}
	deleted := false
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		res, err := d.stmt(ctx, tx, "deleteOlympiad").ExecContext(ctx, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}
