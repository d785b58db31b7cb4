package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholderOlympiadIsOneChain(t *testing.T) {
	o := PlaceholderOlympiad()

	sports, teams, players := o.Size()
	assert.Equal(t, 1, sports)
	assert.Equal(t, 1, teams)
	assert.Equal(t, 1, players)
	assert.Zero(t, o.ID)
	assert.Equal(t, "test", o.City)
	assert.Equal(t, Date(1984, time.January, 1), o.Start)

	s := o.Sports[0]
	require.Same(t, o, s.Olympiad)
	require.Same(t, s, s.Teams[0].Sport)
	require.Same(t, s.Teams[0], s.Teams[0].Players[0].Team)
}

func TestSetIDPropagatesForeignKeys(t *testing.T) {
	o := PlaceholderOlympiad()
	o.SetID(7)
	s := o.Sports[0]
	assert.EqualValues(t, 7, s.OlympiadID)

	s.SetID(11)
	tm := s.Teams[0]
	assert.EqualValues(t, 11, tm.SportID)

	tm.SetID(13)
	assert.EqualValues(t, 13, tm.Players[0].TeamID)
}

func TestDetachKeepsOwnership(t *testing.T) {
	o := PlaceholderOlympiad()
	o.Detach()

	s := o.Sports[0]
	assert.Nil(t, s.Olympiad)
	assert.Nil(t, s.Teams[0].Sport)
	assert.Nil(t, s.Teams[0].Players[0].Team)

	_, _, players := o.Size()
	assert.Equal(t, 1, players)
}

func TestPlayerIDsSorted(t *testing.T) {
	ids := PlayerIDs([]*Player{{ID: 3}, {ID: 1}, {ID: 2}})
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Empty(t, PlayerIDs(nil))
}
