package policy

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "corpauth/pkg/domain"
	dErrors "corpauth/pkg/domain-errors"
)

func exampleRuleset(t *testing.T) Ruleset {
	t.Helper()
	rs, err := NewRuleset("Member", []Rule{
		{CorporationID: 100, RoleName: "Pilots"},
		{CorporationID: 200, RoleName: "Allies"},
	})
	require.NoError(t, err)
	return rs
}

func TestNewRulesetValidates(t *testing.T) {
	_, err := NewRuleset(" ", nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewRuleset("Member", []Rule{{CorporationID: 0, RoleName: "Pilots"}})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewRuleset("Member", []Rule{{CorporationID: 100, RoleName: ""}})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	rs, err := NewRuleset(" Member ", []Rule{{CorporationID: 100, RoleName: " Pilots "}})
	require.NoError(t, err)
	assert.Equal(t, "Member", rs.BaseRole)
	assert.Equal(t, "Pilots", rs.Rules[0].RoleName)
}

func TestTargetRoles(t *testing.T) {
	rs := exampleRuleset(t)

	assert.Equal(t, []string{"Member", "Pilots"}, rs.TargetRoles(100))
	assert.Equal(t, []string{"Member", "Allies"}, rs.TargetRoles(200))
	assert.Equal(t, []string{"Member"}, rs.TargetRoles(300))
	assert.Equal(t, []string{"Member", "Pilots", "Allies"}, rs.ManagedRoles())
}

func TestTargetRolesIsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for range 200 {
		var rules []Rule
		for range rng.Intn(6) {
			rules = append(rules, Rule{
				CorporationID: id.CorporationID(1 + rng.Intn(4)),
				RoleName:      string(rune('A' + rng.Intn(5))),
			})
		}
		rs, err := NewRuleset("Member", rules)
		require.NoError(t, err)
		corp := id.CorporationID(1 + rng.Intn(5))

		want := map[string]bool{"Member": true}
		for _, r := range rules {
			if r.CorporationID == corp {
				want[r.RoleName] = true
			}
		}
		got := map[string]bool{}
		for _, role := range rs.TargetRoles(corp) {
			got[role] = true
		}
		assert.Equal(t, want, got)
	}
}

func TestDiff(t *testing.T) {
	rs := exampleRuleset(t)
	managed := rs.ManagedRoles()

	t.Run("corp change swaps ruleset roles", func(t *testing.T) {
		add, remove := Diff(rs.TargetRoles(200), managed, []string{"Member", "Pilots", "Officer"})
		assert.Equal(t, []string{"Allies"}, add)
		assert.Equal(t, []string{"Pilots"}, remove)
	})

	t.Run("already converged is empty", func(t *testing.T) {
		add, remove := Diff(rs.TargetRoles(100), managed, []string{"Member", "Pilots"})
		assert.Empty(t, add)
		assert.Empty(t, remove)
	})

	t.Run("unmanaged roles are never removed", func(t *testing.T) {
		_, remove := Diff(rs.TargetRoles(300), managed, []string{"Officer", "Member"})
		assert.Empty(t, remove)
	})

	t.Run("unknown held roles", func(t *testing.T) {
		add, remove := Diff(rs.TargetRoles(200), managed, nil)
		assert.Equal(t, []string{"Member", "Allies"}, add)
		assert.Equal(t, []string{"Pilots"}, remove)
	})

	t.Run("known empty held roles", func(t *testing.T) {
		add, remove := Diff(rs.TargetRoles(100), managed, []string{})
		assert.Equal(t, []string{"Member", "Pilots"}, add)
		assert.Empty(t, remove)
	})
}

func TestTickerEntity(t *testing.T) {
	isAlliance, entity := TickerEntity(100, 9000)
	assert.True(t, isAlliance)
	assert.Equal(t, int64(9000), entity)

	isAlliance, entity = TickerEntity(100, 0)
	assert.False(t, isAlliance)
	assert.Equal(t, int64(100), entity)
}

func TestPresentation(t *testing.T) {
	assert.Equal(t, "[ALLY] Alpha Pilot", Presentation("ALLY", "Alpha Pilot"))
	assert.Equal(t, "Alpha Pilot", Presentation("", "Alpha Pilot"))

	long := Presentation("TICK", strings.Repeat("n", 40))
	assert.Equal(t, MaxDisplayNameLength, utf8.RuneCountInString(long))
	assert.True(t, strings.HasPrefix(long, "[TICK] nnn"))

	assert.Equal(t, MaxDisplayNameLength, utf8.RuneCountInString(Presentation("É", strings.Repeat("ü", 40))))
}

func TestIsPresentation(t *testing.T) {
	tests := []struct {
		display string
		want    bool
	}{
		{"[ALLY] Alpha Pilot", true},
		{"[C.O] Alpha Pilot", true},
		{"Alpha Pilot", false},
		{"[] Alpha Pilot", false},
		{"[ALLY]Alpha Pilot", false},
		{"[ALLY] Someone Else", false},
		{"[A]B] Alpha Pilot", false},
		{"alpha", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPresentation(tt.display, "Alpha Pilot"), tt.display)
	}

	name := strings.Repeat("n", 40)
	assert.True(t, IsPresentation(Presentation("TICK", name), name))
}
