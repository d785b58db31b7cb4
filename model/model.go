// Package model holds the four benchmark entities. Parents own their children through
// slices; the child to parent pointers are navigation only and are never persisted.
package model

import (
	"sort"
	"time"
)

type Olympiad struct {
	ID     int64     `db:"id" gorm:"primaryKey"`
	City   string    `db:"city"`
	Start  time.Time `db:"start"`
	End    time.Time `db:"end" gorm:"column:end"`
	Sports []*Sport  `db:"-"`
}

type Sport struct {
	ID         int64     `db:"id" gorm:"primaryKey"`
	Name       string    `db:"name"`
	OlympiadID int64     `db:"olympiad_id"`
	Olympiad   *Olympiad `db:"-"`
	Teams      []*Team   `db:"-"`
}

type Team struct {
	ID         int64     `db:"id" gorm:"primaryKey"`
	Name       string    `db:"name"`
	Foundation time.Time `db:"foundation"`
	SportID    int64     `db:"sport_id"`
	Sport      *Sport    `db:"-"`
	Players    []*Player `db:"-"`
}

type Player struct {
	ID        int64     `db:"id" gorm:"primaryKey"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Birthday  time.Time `db:"birthday"`
	TeamID    int64     `db:"team_id"`
	Team      *Team     `db:"-"`
}

func (Olympiad) TableName() string { return "olympics" }
func (Sport) TableName() string    { return "sports" }
func (Team) TableName() string     { return "teams" }
func (Player) TableName() string   { return "players" }

// AddSport appends s to the olympiad and points s back at it.
func (o *Olympiad) AddSport(s *Sport) {
	s.Olympiad = o
	s.OlympiadID = o.ID
	o.Sports = append(o.Sports, s)
}

func (s *Sport) AddTeam(t *Team) {
	t.Sport = s
	t.SportID = s.ID
	s.Teams = append(s.Teams, t)
}

func (t *Team) AddPlayer(p *Player) {
	p.Team = t
	p.TeamID = t.ID
	t.Players = append(t.Players, p)
}

// SetID assigns the stored identity and propagates it into the children's foreign keys.
func (o *Olympiad) SetID(id int64) {
	o.ID = id
	for _, s := range o.Sports {
		s.OlympiadID = id
	}
}

func (s *Sport) SetID(id int64) {
	s.ID = id
	for _, t := range s.Teams {
		t.SportID = id
	}
}

func (t *Team) SetID(id int64) {
	t.ID = id
	for _, p := range t.Players {
		p.TeamID = id
	}
}

// Detach clears every back-reference below the olympiad, leaving only the owning
// slices. ORMs that walk associations must not see the cycles.
func (o *Olympiad) Detach() {
	for _, s := range o.Sports {
		s.Detach()
	}
}

func (s *Sport) Detach() {
	s.Olympiad = nil
	for _, t := range s.Teams {
		t.Sport = nil
		for _, p := range t.Players {
			p.Team = nil
		}
	}
}

// Size counts the descendants of the olympiad.
func (o *Olympiad) Size() (sports, teams, players int) {
	for _, s := range o.Sports {
		sports++
		for _, t := range s.Teams {
			teams++
			players += len(t.Players)
		}
	}
	return sports, teams, players
}

// PlayerIDs returns the sorted identities of players.
func PlayerIDs(players []*Player) []int64 {
	ids := make([]int64, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

const placeholderName = "test"

// PlaceholderOlympiad returns an unsaved olympiad with one sport, team and player,
// filled with the fixed values used by the create operations.
func PlaceholderOlympiad() *Olympiad {
	o := &Olympiad{
		City:  placeholderName,
		Start: Date(1984, time.January, 1),
		End:   Date(1984, time.February, 1),
	}
	o.AddSport(PlaceholderSport())
	return o
}

// PlaceholderSport returns an unsaved sport -> team -> player chain.
func PlaceholderSport() *Sport {
	s := &Sport{Name: placeholderName}
	t := &Team{Name: placeholderName, Foundation: Date(1979, time.January, 1)}
	t.AddPlayer(&Player{
		FirstName: placeholderName,
		LastName:  placeholderName,
		Birthday:  Date(1979, time.January, 1),
	})
	s.AddTeam(t)
	return s
}
