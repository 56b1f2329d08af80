package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchoolConfigValidate(t *testing.T) {
	ok := SchoolConfig{EntranceTime: "07:30", RadiusLimit: 100}
	require.NoError(t, ok.Validate())

	cases := map[string]SchoolConfig{
		"zero radius":     {EntranceTime: "07:30", RadiusLimit: 0},
		"negative radius": {EntranceTime: "07:30", RadiusLimit: -5},
		"bad hour":        {EntranceTime: "25:00", RadiusLimit: 100},
		"bad format":      {EntranceTime: "7.30", RadiusLimit: 100},
		"empty time":      {EntranceTime: "", RadiusLimit: 100},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEntrance(t *testing.T) {
	h, m, err := SchoolConfig{EntranceTime: "07:05"}.Entrance()
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 5, m)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Terlambat", StatusLate.Label())
	assert.Equal(t, "Alpa", StatusAbsent.Label())
	assert.Equal(t, "unknown", Status("unknown").Label())
	assert.False(t, Status("unknown").Valid())
}

func TestUserPublic(t *testing.T) {
	u := User{ID: "u1", Credential: "hash"}
	assert.Empty(t, u.Public().Credential)
	assert.Equal(t, "hash", u.Credential)
}
