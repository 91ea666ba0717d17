package datarouter

import (
	"fmt"
	"strings"
	"sync"
)

// ScopeManager owns the principal -> scopes map and every decision that
// falls out of it: access checks, query verdicts, accessible-scope
// derivation and filter rewriting. It is the sole source of truth for
// "can_access(p, s)"; nothing downstream re-derives authorization.
type ScopeManager struct {
	mu     sync.RWMutex
	scopes map[Principal][]Scope
}

// NewScopeManager creates a manager seeded with an initial principal ->
// scopes map (nil or empty is fine; scopes are then grown exclusively
// through RegisterAgent).
func NewScopeManager(seed map[Principal][]Scope) *ScopeManager {
	m := &ScopeManager{scopes: make(map[Principal][]Scope, len(seed))}

	for principal, s := range seed {
		m.scopes[principal] = append([]Scope(nil), s...)
	}

	return m
}

// CanAccess implements can_access(p, s) = s == PUBLIC || SYSTEM in
// scopes(p) || s in scopes(p).
func (m *ScopeManager) CanAccess(principal Principal, target Scope) bool {
	if target == ScopePublic {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.scopes[principal] {
		if s == ScopeSystem || s == target {
			return true
		}
	}

	return false
}

// AccessibleScopes returns {PUBLIC} ∪ configured(p); if the principal has
// SYSTEM, the result is the union of every scope assigned to any
// registered principal, since a system principal's whole point is to see
// everything.
func (m *ScopeManager) AccessibleScopes(principal Principal) []Scope {
	m.mu.RLock()
	defer m.mu.RUnlock()

	accessible := []Scope{ScopePublic}
	seen := map[Scope]bool{ScopePublic: true}

	own := m.scopes[principal]
	isSystem := false

	for _, s := range own {
		if !seen[s] {
			seen[s] = true
			accessible = append(accessible, s)
		}

		if s == ScopeSystem {
			isSystem = true
		}
	}

	if isSystem {
		for _, scopes := range m.scopes {
			for _, s := range scopes {
				if !seen[s] {
					seen[s] = true
					accessible = append(accessible, s)
				}
			}
		}
	}

	return accessible
}

// ValidateQuery decides whether a query should proceed at all, ahead of
// filter rewriting. It is intentionally permissive: the only thing that
// triggers a Warning today is a missing agent_id in metadata, carried
// forward so a caller that forgot to identify itself is still served
// (narrowed to public-only results) instead of outright refused.
func (m *ScopeManager) ValidateQuery(principal Principal, req QueryRequest) Verification {
	if principal == "" {
		principal = string(ScopePublic)
	}

	if m.hasSystemAccess(principal) {
		return Verification{Kind: VerdictAllowed}
	}

	if _, ok := req.Metadata["agent_id"]; !ok {
		return Verification{
			Kind:    VerdictWarning,
			Message: "no agent_id provided in query metadata, limiting to public scope",
		}
	}

	return Verification{Kind: VerdictAllowed}
}

func (m *ScopeManager) hasSystemAccess(principal Principal) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.scopes[principal] {
		if s == ScopeSystem {
			return true
		}
	}

	return false
}

// ApplyScopeFilter rewrites req.Filter to additionally restrict results to
// principal's accessible scopes, unless principal has SYSTEM access, in
// which case the filter is returned unchanged. It returns the rewritten
// request and the accessible-scopes list used, for audit logging.
func (m *ScopeManager) ApplyScopeFilter(principal Principal, req QueryRequest) (QueryRequest, []Scope) {
	if principal == "" {
		principal = string(ScopePublic)
	}

	accessible := m.AccessibleScopes(principal)

	if m.hasSystemAccess(principal) {
		return req, accessible
	}

	quoted := make([]string, len(accessible))
	for i, s := range accessible {
		quoted[i] = fmt.Sprintf("%q", s)
	}

	scopeClause := fmt.Sprintf("scope:(%s) OR !scope:*", strings.Join(quoted, " OR scope:"))

	if strings.TrimSpace(req.Filter) == "" {
		req.Filter = scopeClause
	} else {
		req.Filter = fmt.Sprintf("(%s) AND (%s)", req.Filter, scopeClause)
	}

	return req, accessible
}

// RegisterAgent atomically replaces principal's scope list. It does not
// revoke decisions already in flight; subsequent calls observe the new
// mapping.
func (m *ScopeManager) RegisterAgent(principal Principal, scopes []Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scopes[principal] = append([]Scope(nil), scopes...)
}
