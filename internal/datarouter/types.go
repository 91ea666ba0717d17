// Package datarouter implements the scope-isolated knowledge-base router:
// it decides, per principal, whether a query/store/retrieve operation is
// admitted, rewrites queries so results never leak data outside the
// principal's accessible scopes, and audits every decision.
package datarouter

import "time"

// Principal identifies the caller making a KB request (an agent id, a
// service account, ...). It is resolved upstream from a bearer token's
// `sub` claim; the router itself never authenticates, only authorizes.
type Principal = string

// Scope is a label attached to KB items and to a principal's access list.
type Scope = string

// ScopeMetadataField is the KB item metadata key carrying its scope tag.
const ScopeMetadataField = "scope"

// Distinguished scopes with fixed semantics: ScopePublic is implicitly
// readable by every principal, and ScopeSystem, if present in a
// principal's scope list, grants access to every other scope.
const (
	ScopePublic Scope = "PUBLIC"
	ScopeSystem Scope = "SYSTEM"
)

// VerdictKind is the outcome of validating a query against a principal's
// scopes, mirroring the three-way result the router's predecessor used.
type VerdictKind string

const (
	VerdictAllowed VerdictKind = "allowed"
	VerdictWarning VerdictKind = "warning"
	VerdictDenied  VerdictKind = "denied"
)

// Verification is the result of ScopeManager.ValidateQuery: callers branch
// on Kind, and Warning/Denied carry a human-readable Message/Reason for
// the audit log.
type Verification struct {
	Kind    VerdictKind
	Message string
	Reason  string
}

// KBItem is a single knowledge-base record. Metadata's "scope" entry (or
// its absence, treated as PUBLIC) is what the router enforces access
// control against; every other key is opaque to the router.
type KBItem struct {
	ID        string            `json:"id" bson:"_id"`
	Content   string            `json:"content" bson:"content"`
	Metadata  map[string]string `json:"metadata" bson:"metadata"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
}

// Scope returns the item's scope tag, defaulting to PUBLIC when absent.
func (i KBItem) Scope() string {
	if s, ok := i.Metadata[ScopeMetadataField]; ok && s != "" {
		return s
	}

	return string(ScopePublic)
}

// QueryRequest is a scope-aware KB query. Filter is a caller-supplied
// boolean expression in the same small query language the scope clause
// itself is rendered in (`field:"value"`, `AND`, `OR`, `!field:*`); the
// router does not parse or validate it beyond textual rewriting.
type QueryRequest struct {
	Query     string            `json:"query" validate:"required"`
	Limit     int               `json:"limit"`
	Threshold float64           `json:"threshold"`
	Filter    string            `json:"filter"`
	Metadata  map[string]string `json:"metadata"`
}

// QueryResult carries the matched items plus the audit-relevant metadata
// the original router attached to every response for debuggability.
type QueryResult struct {
	Items            []KBItem `json:"items"`
	QueryingAgent    string   `json:"querying_agent"`
	AccessibleScopes []string `json:"accessible_scopes"`
	RewrittenFilter  string   `json:"rewritten_filter"`
}
