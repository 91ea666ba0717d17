package datarouter

import (
	"context"
	"testing"

	"github.com/LerianStudio/midaz/common"
	"github.com/LerianStudio/midaz/common/mlog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKBStore is an in-memory KBStore used to test Router's scope
// decisions without a real Mongo deployment; it mirrors what
// MongoKBStore.Query does (restrict by accessibleScopes or absence) but
// in plain Go so the tests stay fast and deterministic.
type fakeKBStore struct {
	items map[string]KBItem
}

func newFakeKBStore() *fakeKBStore {
	return &fakeKBStore{items: make(map[string]KBItem)}
}

func (f *fakeKBStore) Query(ctx context.Context, kbName string, req QueryRequest, accessibleScopes []Scope) ([]KBItem, error) {
	allowed := make(map[Scope]bool, len(accessibleScopes))
	for _, s := range accessibleScopes {
		allowed[s] = true
	}

	var out []KBItem

	for _, item := range f.items {
		if accessibleScopes == nil || allowed[item.Scope()] {
			out = append(out, item)
		}
	}

	return out, nil
}

func (f *fakeKBStore) Insert(ctx context.Context, kbName string, item KBItem) (string, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	f.items[item.ID] = item

	return item.ID, nil
}

func (f *fakeKBStore) FindByID(ctx context.Context, kbName, id string) (KBItem, error) {
	item, ok := f.items[id]
	if !ok {
		return KBItem{}, ErrItemNotFound
	}

	return item, nil
}

func newTestRouter(store *fakeKBStore) *Router {
	scopes := seededManager()
	return NewRouter(scopes, store, &mlog.NoneLogger{})
}

func TestRouter_Query_RestrictsToAccessibleScopes(t *testing.T) {
	store := newFakeKBStore()
	store.items["1"] = KBItem{ID: "1", Content: "red secret", Metadata: map[string]string{"scope": "RED_TEAM"}}
	store.items["2"] = KBItem{ID: "2", Content: "blue secret", Metadata: map[string]string{"scope": "BLUE_TEAM"}}
	store.items["3"] = KBItem{ID: "3", Content: "public info", Metadata: map[string]string{"scope": "PUBLIC"}}

	router := newTestRouter(store)

	result, err := router.Query(context.Background(), "RED-TEAM-SHADOW", "mind", QueryRequest{
		Metadata: map[string]string{"agent_id": "RED-TEAM-SHADOW"},
	})
	require.NoError(t, err)

	var contents []string
	for _, item := range result.Items {
		contents = append(contents, item.Content)
	}

	assert.Contains(t, contents, "red secret")
	assert.Contains(t, contents, "public info")
	assert.NotContains(t, contents, "blue secret")
}

func TestRouter_Query_SystemSeesEverything(t *testing.T) {
	store := newFakeKBStore()
	store.items["1"] = KBItem{ID: "1", Metadata: map[string]string{"scope": "RED_TEAM"}}
	store.items["2"] = KBItem{ID: "2", Metadata: map[string]string{"scope": "BLUE_TEAM"}}

	router := newTestRouter(store)

	result, err := router.Query(context.Background(), "SYSTEM-ADMIN", "mind", QueryRequest{
		Metadata: map[string]string{"agent_id": "SYSTEM-ADMIN"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
}

func TestRouter_Store_AssignsDefaultScopeWhenAbsent(t *testing.T) {
	store := newFakeKBStore()
	router := newTestRouter(store)

	id, err := router.Store(context.Background(), "RED-TEAM-SHADOW", "mind", KBItem{Content: "new fact"})
	require.NoError(t, err)

	item, ok := store.items[id]
	require.True(t, ok)
	assert.Equal(t, "RED_TEAM", item.Scope())
}

func TestRouter_Store_RefusesScopeViolation(t *testing.T) {
	store := newFakeKBStore()
	router := newTestRouter(store)

	_, err := router.Store(context.Background(), "RED-TEAM-SHADOW", "mind", KBItem{
		Content:  "sneaky",
		Metadata: map[string]string{"scope": "BLUE_TEAM"},
	})
	require.Error(t, err)

	var cpErr *common.Error
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, common.KindAuthorization, cpErr.Kind)
	assert.Empty(t, store.items)
}

func TestRouter_Store_SystemCanWriteAnyScope(t *testing.T) {
	store := newFakeKBStore()
	router := newTestRouter(store)

	id, err := router.Store(context.Background(), "SYSTEM-ADMIN", "mind", KBItem{
		Content:  "admin note",
		Metadata: map[string]string{"scope": "RED_TEAM"},
	})
	require.NoError(t, err)
	assert.Equal(t, "RED_TEAM", store.items[id].Scope())
}

func TestRouter_RetrieveByID_ReturnsItemWhenAuthorized(t *testing.T) {
	store := newFakeKBStore()
	store.items["1"] = KBItem{ID: "1", Content: "red secret", Metadata: map[string]string{"scope": "RED_TEAM"}}
	router := newTestRouter(store)

	item, err := router.RetrieveByID(context.Background(), "RED-TEAM-SHADOW", "mind", "1")
	require.NoError(t, err)
	assert.Equal(t, "red secret", item.Content)
}

func TestRouter_RetrieveByID_MasksUnauthorizedAsNotFound(t *testing.T) {
	store := newFakeKBStore()
	store.items["1"] = KBItem{ID: "1", Content: "blue secret", Metadata: map[string]string{"scope": "BLUE_TEAM"}}
	router := newTestRouter(store)

	_, err := router.RetrieveByID(context.Background(), "RED-TEAM-SHADOW", "mind", "1")
	require.Error(t, err)

	var cpErr *common.Error
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, common.KindResource, cpErr.Kind)
}

func TestRouter_RetrieveByID_GenuinelyMissingAlsoReportsResourceKind(t *testing.T) {
	store := newFakeKBStore()
	store.items["1"] = KBItem{ID: "1", Content: "blue secret", Metadata: map[string]string{"scope": "BLUE_TEAM"}}
	router := newTestRouter(store)

	_, errMissing := router.RetrieveByID(context.Background(), "RED-TEAM-SHADOW", "mind", "does-not-exist")
	require.Error(t, errMissing)

	_, errUnauthorized := router.RetrieveByID(context.Background(), "RED-TEAM-SHADOW", "mind", "1")
	require.Error(t, errUnauthorized)

	var cpErr1, cpErr2 *common.Error
	require.ErrorAs(t, errMissing, &cpErr1)
	require.ErrorAs(t, errUnauthorized, &cpErr2)
	assert.Equal(t, cpErr1.Kind, cpErr2.Kind)
}
