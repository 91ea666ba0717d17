package datarouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seededManager() *ScopeManager {
	return NewScopeManager(map[Principal][]Scope{
		"RED-TEAM-SHADOW":    {"RED_TEAM", "SHADOW_AGENTS"},
		"BLUE-TEAM-SENTINEL": {"BLUE_TEAM", "SENTINEL_AGENTS"},
		"SYSTEM-ADMIN":       {"SYSTEM"},
	})
}

func TestScopeManager_CanAccess(t *testing.T) {
	m := seededManager()

	assert.True(t, m.CanAccess("RED-TEAM-SHADOW", "RED_TEAM"))
	assert.True(t, m.CanAccess("RED-TEAM-SHADOW", "PUBLIC"))
	assert.False(t, m.CanAccess("RED-TEAM-SHADOW", "BLUE_TEAM"))

	assert.True(t, m.CanAccess("BLUE-TEAM-SENTINEL", "BLUE_TEAM"))
	assert.False(t, m.CanAccess("BLUE-TEAM-SENTINEL", "RED_TEAM"))

	assert.True(t, m.CanAccess("SYSTEM-ADMIN", "RED_TEAM"))
	assert.True(t, m.CanAccess("SYSTEM-ADMIN", "BLUE_TEAM"))
	assert.True(t, m.CanAccess("SYSTEM-ADMIN", "anything"))
}

func TestScopeManager_AccessibleScopes(t *testing.T) {
	m := seededManager()

	red := m.AccessibleScopes("RED-TEAM-SHADOW")
	assert.Contains(t, red, Scope("PUBLIC"))
	assert.Contains(t, red, Scope("RED_TEAM"))
	assert.Contains(t, red, Scope("SHADOW_AGENTS"))
	assert.NotContains(t, red, Scope("BLUE_TEAM"))

	system := m.AccessibleScopes("SYSTEM-ADMIN")
	assert.Contains(t, system, Scope("PUBLIC"))
	assert.Contains(t, system, Scope("RED_TEAM"))
	assert.Contains(t, system, Scope("BLUE_TEAM"))
	assert.Contains(t, system, Scope("SENTINEL_AGENTS"))
}

func TestScopeManager_ApplyScopeFilter_NonSystemAgent(t *testing.T) {
	m := seededManager()

	req := QueryRequest{Filter: ""}
	rewritten, accessible := m.ApplyScopeFilter("RED-TEAM-SHADOW", req)

	assert.Contains(t, rewritten.Filter, `scope:("PUBLIC" OR scope:"RED_TEAM"`)
	assert.Contains(t, rewritten.Filter, "!scope:*")
	assert.NotContains(t, rewritten.Filter, "BLUE_TEAM")
	assert.Contains(t, accessible, Scope("RED_TEAM"))
}

func TestScopeManager_ApplyScopeFilter_CombinesWithOriginalFilter(t *testing.T) {
	m := seededManager()

	req := QueryRequest{Filter: "importance:HIGH AND category:CRITICAL"}
	rewritten, _ := m.ApplyScopeFilter("RED-TEAM-SHADOW", req)

	assert.Contains(t, rewritten.Filter, "importance:HIGH AND category:CRITICAL")
	assert.Contains(t, rewritten.Filter, "AND")
	assert.Contains(t, rewritten.Filter, `scope:("PUBLIC" OR scope:"RED_TEAM"`)
}

func TestScopeManager_ApplyScopeFilter_SystemAgentUnmodified(t *testing.T) {
	m := seededManager()

	req := QueryRequest{Filter: "original_filter"}
	rewritten, _ := m.ApplyScopeFilter("SYSTEM-ADMIN", req)

	assert.Equal(t, "original_filter", rewritten.Filter)
}

func TestScopeManager_ValidateQuery_WarnsWithoutAgentID(t *testing.T) {
	m := seededManager()

	verdict := m.ValidateQuery("RED-TEAM-SHADOW", QueryRequest{Metadata: map[string]string{}})
	assert.Equal(t, VerdictWarning, verdict.Kind)

	verdict = m.ValidateQuery("RED-TEAM-SHADOW", QueryRequest{Metadata: map[string]string{"agent_id": "RED-TEAM-SHADOW"}})
	assert.Equal(t, VerdictAllowed, verdict.Kind)
}

func TestScopeManager_RegisterAgent(t *testing.T) {
	m := seededManager()

	m.RegisterAgent("PURPLE-TEAM-SCOUT", []Scope{"PURPLE_TEAM", "SCOUT_AGENTS"})

	assert.True(t, m.CanAccess("PURPLE-TEAM-SCOUT", "PURPLE_TEAM"))
	assert.True(t, m.CanAccess("PURPLE-TEAM-SCOUT", "SCOUT_AGENTS"))
	assert.True(t, m.CanAccess("PURPLE-TEAM-SCOUT", "PUBLIC"))
	assert.False(t, m.CanAccess("PURPLE-TEAM-SCOUT", "RED_TEAM"))
}

func TestScopeManager_UnknownPrincipalOnlyHasPublic(t *testing.T) {
	m := seededManager()

	assert.True(t, m.CanAccess("GHOST", "PUBLIC"))
	assert.False(t, m.CanAccess("GHOST", "RED_TEAM"))
	assert.Equal(t, []Scope{"PUBLIC"}, m.AccessibleScopes("GHOST"))
}
