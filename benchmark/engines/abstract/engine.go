package engine

import (
	"context"
	"errors"

	"ormbench/dbUtils"
	"ormbench/model"
)

var (
	// ErrNoIdentity is returned when the store did not hand back a generated id.
	ErrNoIdentity = errors.New("no identity generated")
	// ErrUnknownAdapter is returned for an adapter name no factory is registered for.
	ErrUnknownAdapter = errors.New("unknown adapter")
)

// Operation is one data-access strategy. Every implementation runs the same eight
// operations against the same schema.
type Operation interface {
	// Name identifies the adapter in reports and logs
	Name() string
	// Returns the player, or nil when it does not exist
	GetPlayerByID(ctx context.Context, id int64) (*model.Player, error)
	GetPlayersForTeam(ctx context.Context, teamID int64) ([]*model.Player, error)
	// Returns the teams of a sport with their players loaded
	GetTeamsForSport(ctx context.Context, sportID int64) ([]*model.Team, error)
	GetPlayersForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error)
	// Returns the players of an olympiad with team, sport and olympiad loaded
	GetPlayersWithIncludeForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error)
	// Stores a placeholder olympiad with one sport, team and player and returns its id
	CreateOlympiad(ctx context.Context) (int64, error)
	// Moves a random olympiad to a new start date and appends a placeholder sport.
	// Returns false when the selected olympiad does not exist
	UpdateOlympiad(ctx context.Context) (bool, error)
	// Deletes a random olympiad and everything below it.
	// Returns false when the selected olympiad does not exist
	DeleteOlympiad(ctx context.Context) (bool, error)
	// Releases the connections
	Close() error
}

// OptOut is implemented by adapters that cannot run some operations.
type OptOut interface {
	Unsupported() []string
}

// Options is what every adapter is constructed from.
type Options struct {
	Dialect          dbutils.Dialect
	ConnectionString string
	MaxOpenConns     int
	Targets          *Picker
}

// Factory builds a ready to use adapter: connections are open and statements prepared.
type Factory func(ctx context.Context, opts Options) (Operation, error)

// Supports reports whether op runs the named operation.
func Supports(op Operation, name string) bool {
	o, ok := op.(OptOut)
	if !ok {
		return true
	}
	for _, u := range o.Unsupported() {
		if u == name {
			return false
		}
	}
	return true
}
