// Package generator builds the olympiad -> sport -> team -> player dataset used to seed
// the store. The shape is fixed by Counts; names and dates are drawn from one seedable
// random source, so a given seed always produces the same dataset.
package generator

import (
	"math/rand"
	"time"

	"ormbench/dbUtils"
	"ormbench/model"
)

var firstNames = []string{
	"Aaron", "James", "John", "Matthew", "Michael", "William", "David", "Luis", "Vincent", "Paul",
	"Mark", "Steven", "Edward", "Brian", "Christopher", "Mary", "Patricia", "Linda", "Barbara", "Kay lee",
	"Mackenzie", "Karen", "Nancy", "Ashley", "Jennifer", "Jessica", "Michelle", "Kimberly", "Maria", "Gretchen",
}

var lastNames = []string{
	"Smith", "Johnson", "Jones", "Williams", "Brown", "Miller", "Davis", "Garcia", "Rodriguez", "Wilson",
	"Martinez", "Anderson", "Taylor", "Thomas", "Moore", "Lee", "Gonzalez", "Harris", "Clark", "Lewis",
	"Robinson", "Walker", "Perez", "Hall", "Sanchez", "Wright", "White", "Chekhovian", "Morris", "Nguyen",
	"Edwards", "Murphy", "Rivera", "Baker", "Adams", "Carter", "Phillips", "Torres", "King", "Scott",
	"Davies", "Torrance", "Graham", "L eighty", "Jackson",
}

var cityNames = []string{
	"New York", "Los Angles", "Chicago", "Houston", "Philadelphia", "Phoenix", "San Francisco", "San Diego",
	"Dallas", "San Antonio", "Seattle", "Portland", "San Jose", "Nashville", "Indianapolis", "New Orleans",
	"Minneapolis", "Boston", "Toronto", "Washington", "Baltimore", "Charlotte", "Atlanta", "Miami",
	"Jacksonville", "Tampa Bay", "Milwaukee", "Detroit", "St Louis", "Kansas City",
}

var teamNames = []string{
	"Panthers", "Cougars", "Lions", "Bears", "Minutemen", "Raptors", "Cardinals", "Lightning", "Thunder",
	"Hurricanes", "Bison", "Devils", "Pterodactyls", "Rockers", "Canes", "Knights", "Waves", "Hangers",
	"Bombers", "Wizards", "Brawlers", "Volunteers", "Hawks", "Thrashers", "Snakes", "Venom", "Liberty",
	"Warriors", "Sparks", "Huskies", "Penguins", "Cheetahs", "Moose", "Sabers", "Mercenaries",
}

var sportNames = []string{
	"Baseball", "American Football", "Association Football", "Rugby", "Basketball", "Ice Hockey",
	"Lacrosse", "Cricket", "Curling", "Field Hockey", "Quid ditch", "Track & Field",
}

var (
	olympicsEpoch  = model.Date(1980, time.January, 1)
	olympiadPeriod = 4 * 365 * 24 * time.Hour
	olympiadLength = 30 * 24 * time.Hour

	birthdayFrom   = model.Date(1975, time.January, 1)
	birthdayTo     = model.Date(1998, time.January, 1)
	foundationFrom = model.Date(1900, time.January, 1)
	foundationTo   = model.Date(2010, time.January, 1)
)

// Counts is the shape of a generated dataset.
type Counts struct {
	Olympiads         int `mapstructure:"olympiads" yaml:"olympiads" json:"olympiads" validate:"min=1"`
	SportsPerOlympiad int `mapstructure:"sportsPerOlympiad" yaml:"sportsPerOlympiad" json:"sportsPerOlympiad" validate:"min=1"`
	TeamsPerSport     int `mapstructure:"teamsPerSport" yaml:"teamsPerSport" json:"teamsPerSport" validate:"min=1"`
	PlayersPerTeam    int `mapstructure:"playersPerTeam" yaml:"playersPerTeam" json:"playersPerTeam" validate:"min=1"`
}

// Rows returns the number of rows per table a dataset of this shape holds.
func (c Counts) Rows() dbutils.RowCounts {
	olympics := int64(c.Olympiads)
	sports := olympics * int64(c.SportsPerOlympiad)
	teams := sports * int64(c.TeamsPerSport)
	return dbutils.RowCounts{
		Olympics: olympics,
		Sports:   sports,
		Teams:    teams,
		Players:  teams * int64(c.PlayersPerTeam),
	}
}

type Generator struct {
	rng *rand.Rand
}

func New(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

func (g *Generator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *Generator) randomDay(from, to time.Time) time.Time {
	days := int(to.Sub(from).Hours() / 24)
	return from.AddDate(0, 0, g.rng.Intn(days))
}

// Dataset generates the whole tree, wired in both directions.
func (g *Generator) Dataset(c Counts) []*model.Olympiad {
	olympics := g.Olympics(c.Olympiads)
	for _, o := range olympics {
		for _, s := range g.Sports(o, c.SportsPerOlympiad) {
			for _, t := range g.Teams(s, c.TeamsPerSport) {
				g.Players(t, c.PlayersPerTeam)
			}
		}
	}
	return olympics
}

// Olympics returns count olympiads, four years apart, each lasting thirty days.
func (g *Generator) Olympics(count int) []*model.Olympiad {
	olympics := make([]*model.Olympiad, 0, count)
	start := olympicsEpoch
	for i := 0; i < count; i++ {
		start = start.Add(olympiadPeriod)
		olympics = append(olympics, &model.Olympiad{
			City:  g.pick(cityNames),
			Start: start,
			End:   start.Add(olympiadLength),
		})
	}
	return olympics
}

func (g *Generator) Sports(o *model.Olympiad, count int) []*model.Sport {
	sports := make([]*model.Sport, 0, count)
	for i := 0; i < count; i++ {
		s := &model.Sport{Name: g.pick(sportNames)}
		o.AddSport(s)
		sports = append(sports, s)
	}
	return sports
}

func (g *Generator) Teams(s *model.Sport, count int) []*model.Team {
	teams := make([]*model.Team, 0, count)
	for i := 0; i < count; i++ {
		t := &model.Team{
			Name:       g.pick(cityNames) + " " + g.pick(teamNames),
			Foundation: g.randomDay(foundationFrom, foundationTo),
		}
		s.AddTeam(t)
		teams = append(teams, t)
	}
	return teams
}

func (g *Generator) Players(t *model.Team, count int) []*model.Player {
	players := make([]*model.Player, 0, count)
	for i := 0; i < count; i++ {
		p := &model.Player{
			FirstName: g.pick(firstNames),
			LastName:  g.pick(lastNames),
			Birthday:  g.randomDay(birthdayFrom, birthdayTo),
		}
		t.AddPlayer(p)
		players = append(players, p)
	}
	return players
}
