package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleResolver(t *testing.T) {
	r := NewRoleResolver([]Role{
		{ID: "1", Name: "Member"},
		{ID: "2", Name: "Pilots"},
		{ID: "3", Name: "Pilots"},
		{ID: "4", Name: "Officer"},
	})

	ids, unknown := r.IDs([]string{"Member", "Allies", "Pilots"})
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Equal(t, []string{"Allies"}, unknown)

	assert.Equal(t, []string{"Member", "Officer"}, r.Names([]string{"1", "4", "99"}))
	assert.NotNil(t, r.Names(nil))
	assert.Empty(t, r.Names(nil))
}
