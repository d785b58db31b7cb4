package gorm

import (
	"context"

	"gorm.io/gorm"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/model"
)

// Tracked loads entities, mutates them and lets gorm persist the whole graph.
type Tracked struct {
	orm
}

func NewTracked(ctx context.Context, opts engine.Options) (engine.Operation, error) {
	db, err := open(ctx, opts, &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}
	return &Tracked{orm{base{name: TrackedName, db: db, targets: opts.Targets}}}, nil
}

// CreateOlympiad creates the placeholder tree with a single Create; gorm walks the
// associations and fills in every id.
func (t *Tracked) CreateOlympiad(ctx context.Context) (int64, error) {
	o := model.PlaceholderOlympiad()
	o.Detach()
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(o).Error
	})
	if err != nil {
		return 0, err
	}
	if o.ID <= 0 {
		return 0, engine.ErrNoIdentity
	}
	return o.ID, nil
}

func (t *Tracked) UpdateOlympiad(ctx context.Context) (bool, error) {
	id := t.targets.UpdateTarget()
	start := t.targets.StartDate()
	found := false
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o := &model.Olympiad{}
		res := tx.Limit(1).Find(o, id)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		found = true

		o.Start = start
		o.AddSport(model.PlaceholderSport())
		o.Detach()
		return tx.Save(o).Error
	})
	return found, err
}

func (t *Tracked) DeleteOlympiad(ctx context.Context) (bool, error) {
	id, ok := t.targets.DeleteTarget()
	if !ok {
		return false, nil
	}
	deleted := false
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o := &model.Olympiad{}
		res := tx.Limit(1).Find(o, id)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		res = tx.Delete(o)
		deleted = res.RowsAffected > 0
		return res.Error
	})
	return deleted, err
}
