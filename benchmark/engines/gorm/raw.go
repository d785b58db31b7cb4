package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/model"
)

const playersOfOlympiadSQL = `
	select p.* from players p
	inner join teams t on p.team_id = t.id
	inner join sports s on t.sport_id = s.id
	where s.olympiad_id = ?
	order by p.id`

// Raw hands SQL strings to gorm and only uses it for parameter binding and mapping.
type Raw struct {
	base
}

func NewRaw(ctx context.Context, opts engine.Options) (engine.Operation, error) {
	db, err := open(ctx, opts, &gorm.Config{SkipDefaultTransaction: true, PrepareStmt: true})
	if err != nil {
		return nil, err
	}
	return &Raw{base{name: RawName, db: db, targets: opts.Targets}}, nil
}

func (r *Raw) GetPlayerByID(ctx context.Context, id int64) (*model.Player, error) {
	p := &model.Player{}
	res := r.db.WithContext(ctx).Raw("select * from players where id = ?", id).Scan(p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return p, nil
}

func (r *Raw) GetPlayersForTeam(ctx context.Context, teamID int64) ([]*model.Player, error) {
	players := []*model.Player{}
	err := r.db.WithContext(ctx).Raw("select * from players where team_id = ? order by id", teamID).Scan(&players).Error
	return players, err
}

func (r *Raw) GetTeamsForSport(ctx context.Context, sportID int64) ([]*model.Team, error) {
	db := r.db.WithContext(ctx)
	teams := []*model.Team{}
	if err := db.Raw("select * from teams where sport_id = ? order by id", sportID).Scan(&teams).Error; err != nil {
		return nil, err
	}
	players := []*model.Player{}
	err := db.Raw(`
		select p.* from players p
		inner join teams t on p.team_id = t.id
		where t.sport_id = ?
		order by p.id`, sportID).Scan(&players).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.Team, len(teams))
	for _, t := range teams {
		t.Players = []*model.Player{}
		byID[t.ID] = t
	}
	for _, p := range players {
		if t, ok := byID[p.TeamID]; ok {
			t.AddPlayer(p)
		}
	}
	return teams, nil
}

func (r *Raw) GetPlayersForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	players := []*model.Player{}
	err := r.db.WithContext(ctx).Raw(playersOfOlympiadSQL, olympiadID).Scan(&players).Error
	return players, err
}

func (r *Raw) GetPlayersWithIncludeForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	db := r.db.WithContext(ctx)
	olympics := []*model.Olympiad{}
	if err := db.Raw(`select * from olympics where id = ?`, olympiadID).Scan(&olympics).Error; err != nil {
		return nil, err
	}
	if len(olympics) == 0 {
		return []*model.Player{}, nil
	}
	sports := []*model.Sport{}
	if err := db.Raw("select * from sports where olympiad_id = ? order by id", olympiadID).Scan(&sports).Error; err != nil {
		return nil, err
	}
	teams := []*model.Team{}
	err := db.Raw(`
		select t.* from teams t
		inner join sports s on t.sport_id = s.id
		where s.olympiad_id = ?
		order by t.id`, olympiadID).Scan(&teams).Error
	if err != nil {
		return nil, err
	}
	players := []*model.Player{}
	if err := db.Raw(playersOfOlympiadSQL, olympiadID).Scan(&players).Error; err != nil {
		return nil, err
	}

	sportsByID := make(map[int64]*model.Sport, len(sports))
	for _, s := range sports {
		olympics[0].AddSport(s)
		sportsByID[s.ID] = s
	}
	teamsByID := make(map[int64]*model.Team, len(teams))
	for _, t := range teams {
		if s, ok := sportsByID[t.SportID]; ok {
			s.AddTeam(t)
		}
		teamsByID[t.ID] = t
	}
	for _, p := range players {
		if t, ok := teamsByID[p.TeamID]; ok {
			t.AddPlayer(p)
		}
	}
	return players, nil
}

func insertReturning(tx *gorm.DB, query string, args ...any) (int64, error) {
	var id int64
	if err := tx.Raw(query, args...).Scan(&id).Error; err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("%s: %w", query, engine.ErrNoIdentity)
	}
	return id, nil
}

// insertSport stores a single sport -> team -> player chain below olympiadID.
func insertSport(tx *gorm.DB, s *model.Sport, olympiadID int64) error {
	sportID, err := insertReturning(tx, "insert into sports (name, olympiad_id) values (?, ?) returning id", s.Name, olympiadID)
	if err != nil {
		return err
	}
	for _, t := range s.Teams {
		teamID, err := insertReturning(tx, "insert into teams (name, foundation, sport_id) values (?, ?, ?) returning id",
			t.Name, t.Foundation, sportID)
		if err != nil {
			return err
		}
		for _, p := range t.Players {
			_, err := insertReturning(tx, "insert into players (first_name, last_name, birthday, team_id) values (?, ?, ?, ?) returning id",
				p.FirstName, p.LastName, p.Birthday, teamID)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Raw) CreateOlympiad(ctx context.Context) (int64, error) {
	o := model.PlaceholderOlympiad()
	var id int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = insertReturning(tx, `insert into olympics (city, start, "end") values (?, ?, ?) returning id`, o.City, o.Start, o.End)
		if err != nil {
			return err
		}
		for _, s := range o.Sports {
			if err := insertSport(tx, s, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Raw) UpdateOlympiad(ctx context.Context) (bool, error) {
	id := r.targets.UpdateTarget()
	start := r.targets.StartDate()
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec("update olympics set start = ? where id = ?", start, id)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		found = true
		return insertSport(tx, model.PlaceholderSport(), id)
	})
	return found, err
}

func (r *Raw) DeleteOlympiad(ctx context.Context) (bool, error) {
	id, ok := r.targets.DeleteTarget()
	if !ok {
		return false, nil
	}
	deleted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec("delete from olympics where id = ?", id)
		deleted = res.RowsAffected > 0
		return res.Error
	})
	return deleted, err
}
