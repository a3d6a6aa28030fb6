package store

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resetdb/internal/logging"
	"resetdb/internal/registry"
)

// MongoStore deletes documents from the collections of one MongoDB database.
// A registry collection's Table is the MongoDB collection name.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to uri and selects database.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		return nil, fmt.Errorf("mongodb: database name is required")
	}
	logging.Store("Connecting to MongoDB database %s", database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// DeleteAll implements Store.
func (s *MongoStore) DeleteAll(ctx context.Context, c *registry.Collection, keep *Match) (int64, error) {
	if err := keep.validate(); err != nil {
		return 0, err
	}
	filter := excludeFilter(keep)
	logging.StoreDebug("DeleteMany %s: %v", c.ID, filter)

	res, err := s.db.Collection(c.Table).DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.Table, err)
	}
	return res.DeletedCount, nil
}

// Count implements Store.
func (s *MongoStore) Count(ctx context.Context, c *registry.Collection, match *Match) (int64, error) {
	if err := match.validate(); err != nil {
		return 0, err
	}
	n, err := s.db.Collection(c.Table).CountDocuments(ctx, includeFilter(match))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Table, err)
	}
	return n, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func containsRegex(needle string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(needle), Options: "i"}
}

// includeFilter selects documents matching m.
func includeFilter(m *Match) bson.M {
	if m == nil {
		return bson.M{}
	}
	switch {
	case m.Equals != nil:
		return bson.M{m.Field: m.Equals}
	case len(m.In) > 0:
		return bson.M{m.Field: bson.M{"$in": m.In}}
	default:
		return bson.M{m.Field: containsRegex(m.Contains)}
	}
}

// excludeFilter selects documents not matching m; documents missing the
// field are selected too.
func excludeFilter(m *Match) bson.M {
	if m == nil {
		return bson.M{}
	}
	switch {
	case m.Equals != nil:
		return bson.M{m.Field: bson.M{"$ne": m.Equals}}
	case len(m.In) > 0:
		return bson.M{m.Field: bson.M{"$nin": m.In}}
	default:
		return bson.M{m.Field: bson.M{"$not": containsRegex(m.Contains)}}
	}
}
