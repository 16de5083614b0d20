package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoleCatalog(t *testing.T) {
	c := DefaultRoleCatalog()
	for _, name := range append(append([]string{}, DefaultRoles...), RoleBusinessAdvisor) {
		p, ok := c.Get(name)
		require.True(t, ok, "missing role %s", name)
		assert.Equal(t, 1.0, p.VoteWeight())
	}
	adv, _ := c.Get(RoleBusinessAdvisor)
	assert.True(t, adv.Advisory)
	assert.Len(t, c.Names(), 6)
}

func TestRoleCatalog_ResolveKeepsOrder(t *testing.T) {
	c := DefaultRoleCatalog()
	profiles, err := c.Resolve([]string{"technical", "quality"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "technical", profiles[0].Name)
	assert.Equal(t, "quality", profiles[1].Name)
}

func TestRoleCatalog_ResolveUnknownSuggests(t *testing.T) {
	c := DefaultRoleCatalog()
	_, err := c.Resolve([]string{"qualty"})
	require.Error(t, err)
	assert.Equal(t, CodeUnknownRole, GetCode(err))
	assert.True(t, strings.Contains(err.Error(), "did you mean quality"), err.Error())
}

func TestRoleCatalog_PutAndMerge(t *testing.T) {
	var c RoleCatalog
	c.Put(RoleProfile{Name: " legal ", Weight: 0})
	p, ok := c.Get("legal")
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Weight)
	assert.Equal(t, "legal", p.Title)

	merged := DefaultRoleCatalog().Merge(NewRoleCatalog(RoleProfile{Name: "quality", Weight: 2}))
	q, _ := merged.Get("quality")
	assert.Equal(t, 2.0, q.VoteWeight())
	orig, _ := DefaultRoleCatalog().Get("quality")
	assert.Equal(t, 1.0, orig.Weight)
}

func TestState_Transitions(t *testing.T) {
	allowed := [][2]State{
		{StateDispatch, StateEvaluate},
		{StateEvaluate, StateDiscuss},
		{StateEvaluate, StateSynthesize},
		{StateDiscuss, StateDispatch},
		{StateSynthesize, StateAdvise},
		{StateSynthesize, StateDone},
		{StateAdvise, StateDone},
	}
	for _, tr := range allowed {
		assert.True(t, tr[0].CanTransitionTo(tr[1]), "%s -> %s", tr[0], tr[1])
	}
	assert.False(t, StateDispatch.CanTransitionTo(StateSynthesize))
	assert.False(t, StateDone.CanTransitionTo(StateDispatch))
	assert.True(t, StateDone.IsTerminal())
}
