package datarouter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/LerianStudio/midaz/common"
	"github.com/LerianStudio/midaz/common/mmongo"
	"github.com/LerianStudio/midaz/pkg/mresilience"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoServiceName is the pkg/mresilience key every KB-store call is
// guarded under: a flapping Mongo deployment trips the same breaker
// machinery every other protected dependency in the process does.
const mongoServiceName = "kb-mongo"

// ErrItemNotFound is returned by KBStore.FindByID when no item exists
// under the given collection and id. The router never forwards this
// error as-is on the retrieve path once scope information is involved;
// it is also what a scope violation on retrieval is mapped to, so the
// two cases are indistinguishable to the caller.
var ErrItemNotFound = errors.New("kb item not found")

// KBStore is the downstream knowledge-base the router fronts. Query
// receives both the already scope-rewritten request and the
// accessible-scopes list the router derived, so a store can translate
// into its own native query form (a Mongo $in, a SQL IN (...), ...)
// without re-parsing the request's textual filter; accessibleScopes is
// nil when the caller has SYSTEM access and no scope restriction applies.
type KBStore interface {
	Query(ctx context.Context, kbName string, req QueryRequest, accessibleScopes []Scope) ([]KBItem, error)
	Insert(ctx context.Context, kbName string, item KBItem) (string, error)
	FindByID(ctx context.Context, kbName, id string) (KBItem, error)
}

// MongoKBStore is a KBStore backed by a MongoDB collection per kbName,
// every call wrapped in the shared resilience facade.
type MongoKBStore struct {
	conn       *mmongo.MongoConnection
	resilience *mresilience.Resilience
}

// NewMongoKBStore wires a MongoKBStore against an already-configured
// MongoConnection and the shared resilience facade.
func NewMongoKBStore(conn *mmongo.MongoConnection, resilience *mresilience.Resilience) *MongoKBStore {
	return &MongoKBStore{conn: conn, resilience: resilience}
}

func (s *MongoKBStore) collection(ctx context.Context, kbName string) (*mongo.Collection, error) {
	client, err := s.conn.GetDB(ctx)
	if err != nil {
		return nil, common.New(common.KindStorage, "failed to get knowledge base connection").WithCause(err).WithTransient()
	}

	return client.Database(s.conn.Database).Collection(strings.ToLower(kbName)), nil
}

// translateFilter builds the Mongo filter document for a scope-restricted
// query: every document whose metadata.scope is in accessibleScopes, or
// which has no scope tag at all. It does not parse the router's textual
// filter (`scope:("A" OR scope:"B") OR !scope:*` plus an optional
// caller-supplied clause ANDed in), so a caller-supplied clause is not
// applied to the Mongo query.
func translateFilter(accessibleScopes []Scope) bson.M {
	field := "metadata." + ScopeMetadataField

	if len(accessibleScopes) == 0 {
		return bson.M{field: bson.M{"$exists": false}}
	}

	return bson.M{
		"$or": bson.A{
			bson.M{field: bson.M{"$in": accessibleScopes}},
			bson.M{field: bson.M{"$exists": false}},
		},
	}
}

// Query finds items in kbName's collection, restricted to
// accessibleScopes (nil means unrestricted, i.e. a SYSTEM principal). Of
// req, only Limit is applied to the Mongo call.
func (s *MongoKBStore) Query(ctx context.Context, kbName string, req QueryRequest, accessibleScopes []Scope) ([]KBItem, error) {
	var items []KBItem

	err := s.resilience.Execute(ctx, mongoServiceName, func(ctx context.Context) error {
		coll, err := s.collection(ctx, kbName)
		if err != nil {
			return err
		}

		filter := bson.M{}
		if len(accessibleScopes) > 0 {
			filter = translateFilter(accessibleScopes)
		}

		limit := int64(req.Limit)
		if limit <= 0 {
			limit = 50
		}

		cursor, err := coll.Find(ctx, filter, options.Find().SetLimit(limit))
		if err != nil {
			return common.New(common.KindStorage, "knowledge base query failed").WithCause(err).WithTransient()
		}
		defer cursor.Close(ctx)

		items = nil

		for cursor.Next(ctx) {
			var item KBItem
			if err := cursor.Decode(&item); err != nil {
				return common.New(common.KindProcessing, "failed to decode knowledge base item").WithCause(err)
			}

			items = append(items, item)
		}

		return cursor.Err()
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Insert stores item in kbName's collection, assigning a fresh id when
// absent.
func (s *MongoKBStore) Insert(ctx context.Context, kbName string, item KBItem) (string, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	err := s.resilience.Execute(ctx, mongoServiceName, func(ctx context.Context) error {
		coll, err := s.collection(ctx, kbName)
		if err != nil {
			return err
		}

		if _, err := coll.InsertOne(ctx, item); err != nil {
			return common.New(common.KindStorage, "knowledge base insert failed").WithCause(err).WithTransient()
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return item.ID, nil
}

// FindByID fetches a single item by id, with no scope filtering applied:
// the router is responsible for checking the returned item's scope and
// translating an unauthorized result into ErrItemNotFound before it ever
// reaches a caller.
func (s *MongoKBStore) FindByID(ctx context.Context, kbName, id string) (KBItem, error) {
	var item KBItem

	err := s.resilience.Execute(ctx, mongoServiceName, func(ctx context.Context) error {
		coll, err := s.collection(ctx, kbName)
		if err != nil {
			return err
		}

		decodeErr := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
		if errors.Is(decodeErr, mongo.ErrNoDocuments) {
			return ErrItemNotFound
		}

		if decodeErr != nil {
			return common.New(common.KindStorage, "knowledge base lookup failed").WithCause(decodeErr).WithTransient()
		}

		return nil
	})
	if err != nil {
		return KBItem{}, err
	}

	return item, nil
}
