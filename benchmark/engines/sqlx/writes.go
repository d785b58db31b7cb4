package sqlx

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/model"
)

func (s *Sqlx) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
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

func (s *Sqlx) insert(ctx context.Context, tx *sqlx.Tx, name string, arg any) (int64, error) {
	var id int64
	if err := tx.NamedStmtContext(ctx, s.inserts[name]).GetContext(ctx, &id, arg); err != nil {
		return 0, fmt.Errorf("insert %s: %w", name, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("insert %s: %w", name, engine.ErrNoIdentity)
	}
	return id, nil
}

func (s *Sqlx) insertSport(ctx context.Context, tx *sqlx.Tx, sp *model.Sport) error {
	id, err := s.insert(ctx, tx, "sport", sp)
	if err != nil {
		return err
	}
	sp.SetID(id)
	for _, t := range sp.Teams {
		if id, err = s.insert(ctx, tx, "team", t); err != nil {
			return err
		}
		t.SetID(id)
		for _, p := range t.Players {
			if p.ID, err = s.insert(ctx, tx, "player", p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Sqlx) CreateOlympiad(ctx context.Context) (int64, error) {
	o := model.PlaceholderOlympiad()
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		id, err := s.insert(ctx, tx, "olympiad", o)
		if err != nil {
			return err
		}
		o.SetID(id)
		for _, sp := range o.Sports {
			if err := s.insertSport(ctx, tx, sp); err != nil {
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

// UpdateOlympiad updates the start date in place, without reading the olympiad first.
func (s *Sqlx) UpdateOlympiad(ctx context.Context) (bool, error) {
	id := s.targets.UpdateTarget()
	start := s.targets.StartDate()
	found := false
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind("update olympics set start = ? where id = ?"), start, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		found = true

		sp := model.PlaceholderSport()
		sp.OlympiadID = id
		return s.insertSport(ctx, tx, sp)
	})
	return found, err
}

func (s *Sqlx) DeleteOlympiad(ctx context.Context) (bool, error) {
	id, ok := s.targets.DeleteTarget()
	if !ok {
		return false, nil
	}
	deleted := false
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind("delete from olympics where id = ?"), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}
