package gorm

import (
	"context"

	"gorm.io/gorm"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/model"
)

// NoTrack skips hooks and implicit transactions, and writes by targeted statements
// instead of loading entities first.
type NoTrack struct {
	orm
}

func NewNoTrack(ctx context.Context, opts engine.Options) (engine.Operation, error) {
	db, err := open(ctx, opts, &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		return nil, err
	}
	db = db.Session(&gorm.Session{SkipHooks: true, SkipDefaultTransaction: true})
	return &NoTrack{orm{base{name: NoTrackName, db: db, targets: opts.Targets}}}, nil
}

func (n *NoTrack) CreateOlympiad(ctx context.Context) (int64, error) {
	o := model.PlaceholderOlympiad()
	o.Detach()
	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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

func (n *NoTrack) UpdateOlympiad(ctx context.Context) (bool, error) {
	id := n.targets.UpdateTarget()
	start := n.targets.StartDate()
	found := false
	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Olympiad{}).Where("id = ?", id).Update("start", start)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		found = true

		s := model.PlaceholderSport()
		s.OlympiadID = id
		s.Detach()
		return tx.Create(s).Error
	})
	return found, err
}

func (n *NoTrack) DeleteOlympiad(ctx context.Context) (bool, error) {
	id, ok := n.targets.DeleteTarget()
	if !ok {
		return false, nil
	}
	deleted := false
	err := n.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Olympiad{}, id)
		deleted = res.RowsAffected > 0
		return res.Error
	})
	return deleted, err
}
