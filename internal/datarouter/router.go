package datarouter

import (
	"context"
	"errors"

	"github.com/LerianStudio/midaz/common"
	"github.com/LerianStudio/midaz/common/mlog"
)

// Router is the scope-isolated front door to a KBStore: every operation
// goes through scope validation/rewriting first and is audited
// afterward, so no caller can see or write data outside its scopes
// without that decision being both enforced and logged.
type Router struct {
	scopes *ScopeManager
	store  KBStore
	logger mlog.Logger
}

// NewRouter wires a Router against a ScopeManager, a downstream KBStore
// and a logger used exclusively for the structured audit trail.
func NewRouter(scopes *ScopeManager, store KBStore, logger mlog.Logger) *Router {
	return &Router{scopes: scopes, store: store, logger: logger}
}

// Query validates and scope-rewrites req for principal, runs it against
// the store, and audits the decision.
func (r *Router) Query(ctx context.Context, principal Principal, kbName string, req QueryRequest) (*QueryResult, error) {
	verdict := r.scopes.ValidateQuery(principal, req)

	if verdict.Kind == VerdictDenied {
		r.audit(principal, "query", kbName, req.Filter, "", nil, verdict)
		return nil, common.New(common.KindAuthorization, "agent denied access to knowledge base: "+verdict.Reason).
			WithContext("principal", principal).WithContext("target_kb", kbName)
	}

	filterPrincipal := principal
	if verdict.Kind == VerdictWarning {
		filterPrincipal = string(ScopePublic)
	}

	rewritten, accessible := r.scopes.ApplyScopeFilter(filterPrincipal, req)

	r.audit(principal, "query", kbName, req.Filter, rewritten.Filter, accessible, verdict)

	restriction := accessible
	if r.scopes.hasSystemAccess(principal) {
		restriction = nil
	}

	items, err := r.store.Query(ctx, kbName, rewritten, restriction)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Items:            items,
		QueryingAgent:    principal,
		AccessibleScopes: accessible,
		RewrittenFilter:  rewritten.Filter,
	}, nil
}

// Store assigns/validates item's scope for principal and writes it to
// the store. If item has no scope tag, the principal's primary
// non-PUBLIC scope is assigned (falling back to PUBLIC); the chosen
// scope must then satisfy can_access(principal, scope) or the write is
// refused.
func (r *Router) Store(ctx context.Context, principal Principal, kbName string, item KBItem) (string, error) {
	scope := item.Metadata[ScopeMetadataField]

	if scope == "" {
		scope = r.defaultScopeFor(principal)

		if item.Metadata == nil {
			item.Metadata = make(map[string]string, 1)
		}

		item.Metadata[ScopeMetadataField] = scope
	}

	if !r.scopes.CanAccess(principal, scope) {
		r.audit(principal, "store", kbName, "", "", nil, Verification{Kind: VerdictDenied, Reason: "scope violation"})

		return "", common.New(common.KindAuthorization, "agent does not have permission to write to scope '"+scope+"'").
			WithContext("principal", principal).WithContext("target_kb", kbName).WithContext("scope", scope)
	}

	r.audit(principal, "store", kbName, "", "", r.scopes.AccessibleScopes(principal), Verification{Kind: VerdictAllowed})

	return r.store.Insert(ctx, kbName, item)
}

// defaultScopeFor picks the principal's first non-PUBLIC accessible
// scope, falling back to PUBLIC when the principal has none of its own.
func (r *Router) defaultScopeFor(principal Principal) string {
	for _, s := range r.scopes.AccessibleScopes(principal) {
		if s != ScopePublic {
			return s
		}
	}

	return string(ScopePublic)
}

// RetrieveByID fetches a single item by id and enforces the
// NotFound-not-Forbidden invariant: if principal cannot access the
// item's scope, the router reports ErrItemNotFound exactly as it would
// for a genuinely missing id, revealing no bit about the item's
// existence to an unauthorized caller.
func (r *Router) RetrieveByID(ctx context.Context, principal Principal, kbName, id string) (*KBItem, error) {
	item, err := r.store.FindByID(ctx, kbName, id)
	if err != nil {
		r.audit(principal, "retrieve", kbName, "", "", nil, Verification{Kind: VerdictAllowed})
		return nil, translateStoreError(err)
	}

	if !r.scopes.CanAccess(principal, item.Scope()) {
		r.audit(principal, "retrieve", kbName, "", "", nil, Verification{Kind: VerdictDenied, Reason: "scope violation, masked as not found"})
		return nil, translateStoreError(ErrItemNotFound)
	}

	r.audit(principal, "retrieve", kbName, "", "", r.scopes.AccessibleScopes(principal), Verification{Kind: VerdictAllowed})

	return &item, nil
}

// RegisterAgent delegates to the underlying ScopeManager.
func (r *Router) RegisterAgent(principal Principal, scopes []Scope) {
	r.scopes.RegisterAgent(principal, scopes)
}

func translateStoreError(err error) error {
	if errors.Is(err, ErrItemNotFound) {
		return common.New(common.KindResource, "knowledge base item not found").WithCause(err)
	}

	return err
}

// audit emits the structured decision log line every query/store/retrieve
// call produces, regardless of the verdict.
func (r *Router) audit(principal Principal, operation, targetKB, originalFilter, rewrittenFilter string, accessibleScopes []Scope, verdict Verification) {
	fields := r.logger.WithFields(
		"principal", principal,
		"operation", operation,
		"target_kb", targetKB,
		"original_filter", originalFilter,
		"rewritten_filter", rewrittenFilter,
		"accessible_scopes", accessibleScopes,
		"verdict", string(verdict.Kind),
	)

	switch verdict.Kind {
	case VerdictDenied:
		fields.Warn("knowledge base access denied: " + verdict.Reason)
	case VerdictWarning:
		fields.Warn("knowledge base access allowed with warning: " + verdict.Message)
	default:
		fields.Info("knowledge base access decision")
	}
}
