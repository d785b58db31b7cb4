package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ormbench/model"
)

type fakeOperation struct {
	calls       map[string]int
	createdID   int64
	unsupported []string
}

func (f *fakeOperation) Name() string { return "fake" }

func (f *fakeOperation) GetPlayerByID(ctx context.Context, id int64) (*model.Player, error) {
	f.calls[OpGetPlayerByID]++
	return &model.Player{ID: id}, nil
}

func (f *fakeOperation) GetPlayersForTeam(ctx context.Context, teamID int64) ([]*model.Player, error) {
	f.calls[OpGetPlayersForTeam]++
	return nil, nil
}

func (f *fakeOperation) GetTeamsForSport(ctx context.Context, sportID int64) ([]*model.Team, error) {
	f.calls[OpGetTeamsForSport]++
	return nil, nil
}

func (f *fakeOperation) GetPlayersForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	f.calls[OpGetPlayersForOlympiad]++
	return nil, nil
}

func (f *fakeOperation) GetPlayersWithIncludeForOlympiad(ctx context.Context, olympiadID int64) ([]*model.Player, error) {
	f.calls[OpGetPlayersWithIncludeForOlympiad]++
	return nil, nil
}

func (f *fakeOperation) CreateOlympiad(ctx context.Context) (int64, error) {
	f.calls[OpCreateOlympiad]++
	return f.createdID, nil
}

func (f *fakeOperation) UpdateOlympiad(ctx context.Context) (bool, error) {
	f.calls[OpUpdateOlympiad]++
	return true, nil
}

func (f *fakeOperation) DeleteOlympiad(ctx context.Context) (bool, error) {
	f.calls[OpDeleteOlympiad]++
	return false, errors.New("boom")
}

func (f *fakeOperation) Close() error { return nil }

func (f *fakeOperation) Unsupported() []string { return f.unsupported }

func TestPrepareCallsEveryOperation(t *testing.T) {
	op := &fakeOperation{calls: map[string]int{}, createdID: 7}
	operations := Prepare(op, DefaultProbes())
	require.Len(t, operations, len(Operations))

	ctx := context.Background()
	for _, name := range Operations {
		err := operations[name](ctx)
		if name == OpDeleteOlympiad {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err, name)
		}
		assert.Equal(t, 1, op.calls[name], name)
	}
}

func TestPrepareCreateWithoutIdentity(t *testing.T) {
	op := &fakeOperation{calls: map[string]int{}}
	err := Prepare(op, DefaultProbes())[OpCreateOlympiad](context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestPrepareSkipsUnsupported(t *testing.T) {
	op := &fakeOperation{calls: map[string]int{}, unsupported: []string{OpUpdateOlympiad}}
	operations := Prepare(op, DefaultProbes())
	assert.Len(t, operations, len(Operations)-1)
	assert.NotContains(t, operations, OpUpdateOlympiad)
	assert.False(t, Supports(op, OpUpdateOlympiad))
	assert.True(t, Supports(op, OpDeleteOlympiad))
}

func TestProbeRows(t *testing.T) {
	rows := Probes{PlayerID: 4, TeamID: 3, SportID: 2, OlympiadID: 1}.Rows()
	assert.Equal(t, map[string]int64{"players": 4, "teams": 3, "sports": 2, "olympics": 1}, rows)
}

func TestIsOperation(t *testing.T) {
	assert.True(t, IsOperation(OpDeleteOlympiad))
	assert.False(t, IsOperation("DropDatabase"))
}

func TestPickerStaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		min := rapid.Int64Range(1, 50).Draw(t, "min")
		max := rapid.Int64Range(min, min+50).Draw(t, "max")
		seed := rapid.Int64().Draw(t, "seed")
		p := NewPicker(rand.New(rand.NewSource(seed)), min, max, min)

		id := p.UpdateTarget()
		if id < min || id > max {
			t.Fatalf("update target %d outside [%d, %d]", id, min, max)
		}

		id, ok := p.DeleteTarget()
		if min == max {
			if ok {
				t.Fatalf("delete target %d picked from a fully protected range", id)
			}
			return
		}
		if !ok || id == min || id > max {
			t.Fatalf("delete target %d (ok=%v) outside (%d, %d]", id, ok, min, max)
		}
	})
}

func TestPickerProtect(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(1)), 1, 3, 1)
	p.Protect(2, 1)
	assert.Equal(t, []int64{1, 2}, p.Protected())
	min, max := p.Range()
	assert.Equal(t, int64(1), min)
	assert.Equal(t, int64(3), max)
	for i := 0; i < 50; i++ {
		id, ok := p.DeleteTarget()
		require.True(t, ok)
		assert.Equal(t, int64(3), id)
	}

	p.Protect(3)
	_, ok := p.DeleteTarget()
	assert.False(t, ok)
}

func TestPickerStartDate(t *testing.T) {
	p := NewPicker(rand.New(rand.NewSource(1)), 1, 9)
	for i := 0; i < 200; i++ {
		d := p.StartDate()
		assert.GreaterOrEqual(t, d.Year(), 1980)
		assert.LessOrEqual(t, d.Year(), 2021)
		assert.Equal(t, time.January, d.Month())
		assert.Equal(t, 1, d.Day())
	}
}
