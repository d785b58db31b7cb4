package engine

import (
	"context"
	"fmt"
)

const (
	OpGetPlayerByID                    = "GetPlayerById"
	OpGetPlayersForTeam                = "GetPlayersForTeam"
	OpGetTeamsForSport                 = "GetTeamsForSport"
	OpGetPlayersForOlympiad            = "GetPlayersForOlympiad"
	OpGetPlayersWithIncludeForOlympiad = "GetPlayersWithIncludeForOlympiad"
	OpCreateOlympiad                   = "CreateOlympiad"
	OpUpdateOlympiad                   = "UpdateOlympiad"
	OpDeleteOlympiad                   = "DeleteOlympiad"
)

// Operations lists every operation in measurement order: reads first, then writes.
var Operations = []string{
	OpGetPlayerByID,
	OpGetPlayersForTeam,
	OpGetTeamsForSport,
	OpGetPlayersForOlympiad,
	OpGetPlayersWithIncludeForOlympiad,
	OpCreateOlympiad,
	OpUpdateOlympiad,
	OpDeleteOlympiad,
}

// IsOperation reports whether name is one of the eight operations.
func IsOperation(name string) bool {
	for _, op := range Operations {
		if op == name {
			return true
		}
	}
	return false
}

// Probes are the fixed ids the read operations are called with.
type Probes struct {
	PlayerID   int64 `mapstructure:"playerId" yaml:"playerId" json:"playerId" validate:"min=1"`
	TeamID     int64 `mapstructure:"teamId" yaml:"teamId" json:"teamId" validate:"min=1"`
	SportID    int64 `mapstructure:"sportId" yaml:"sportId" json:"sportId" validate:"min=1"`
	OlympiadID int64 `mapstructure:"olympiadId" yaml:"olympiadId" json:"olympiadId" validate:"min=1"`
}

func DefaultProbes() Probes {
	return Probes{PlayerID: 1, TeamID: 1, SportID: 1, OlympiadID: 1}
}

// Rows maps every probed table to the id that must exist in it.
func (p Probes) Rows() map[string]int64 {
	return map[string]int64{
		"players":  p.PlayerID,
		"teams":    p.TeamID,
		"sports":   p.SportID,
		"olympics": p.OlympiadID,
	}
}

// Prepare returns the measurable call of every operation, keyed by operation name.
// Operations the adapter opted out of are left out.
func Prepare(op Operation, probes Probes) map[string]func(ctx context.Context) error {
	operations := map[string]func(ctx context.Context) error{
		OpGetPlayerByID: func(ctx context.Context) error {
			_, err := op.GetPlayerByID(ctx, probes.PlayerID)
			return err
		},
		OpGetPlayersForTeam: func(ctx context.Context) error {
			_, err := op.GetPlayersForTeam(ctx, probes.TeamID)
			return err
		},
		OpGetTeamsForSport: func(ctx context.Context) error {
			_, err := op.GetTeamsForSport(ctx, probes.SportID)
			return err
		},
		OpGetPlayersForOlympiad: func(ctx context.Context) error {
			_, err := op.GetPlayersForOlympiad(ctx, probes.OlympiadID)
			return err
		},
		OpGetPlayersWithIncludeForOlympiad: func(ctx context.Context) error {
			_, err := op.GetPlayersWithIncludeForOlympiad(ctx, probes.OlympiadID)
			return err
		},
		OpCreateOlympiad: func(ctx context.Context) error {
			id, err := op.CreateOlympiad(ctx)
			if err != nil {
				return err
			}
			if id <= 0 {
				return fmt.Errorf("%s: %w", OpCreateOlympiad, ErrNoIdentity)
			}
			return nil
		},
		OpUpdateOlympiad: func(ctx context.Context) error {
			_, err := op.UpdateOlympiad(ctx)
			return err
		},
		OpDeleteOlympiad: func(ctx context.Context) error {
			_, err := op.DeleteOlympiad(ctx)
			return err
		},
	}

	for name := range operations {
		if !Supports(op, name) {
			delete(operations, name)
		}
	}
	return operations
}
