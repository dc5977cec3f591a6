// Package mongostore is the MongoDB document store. Records keep their native
// ObjectID in _id and carry a __v revision field.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JonMunkholm/catalog/internal/core"
)

// Store is a core.Store over one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and selects database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Model returns the collection named collection.
func (s *Store) Model(collection string) core.Model {
	return &model{coll: s.db.Collection(collection)}
}

// EnsureUnique creates a unique index over fields in collection.
func (s *Store) EnsureUnique(ctx context.Context, collection string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	idx := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(true).SetName("ux_" + strings.Join(fields, "_")),
	}
	if _, err := s.db.Collection(collection).Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("create unique index on %s: %w", collection, err)
	}
	return nil
}

// Ping checks the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type model struct {
	coll *mongo.Collection
}

func (m *model) FindByID(ctx context.Context, id string) (core.Record, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}
	return m.findOne(ctx, bson.M{core.IDField: oid})
}

func (m *model) FindOne(ctx context.Context, filter core.Record) (core.Record, error) {
	return m.findOne(ctx, toFilter(filter))
}

func (m *model) findOne(ctx context.Context, filter bson.M) (core.Record, error) {
	var doc bson.M
	err := m.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m.coll.Name(), err)
	}
	return core.Record(doc), nil
}

func (m *model) Find(ctx context.Context, filter core.Record, opts core.FindOptions) ([]core.Record, error) {
	fo := options.Find().SetSort(bson.D{{Key: core.IDField, Value: 1}})
	if opts.Skip > 0 {
		fo.SetSkip(int64(opts.Skip))
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}

	cur, err := m.coll.Find(ctx, toFilter(filter), fo)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", m.coll.Name(), err)
	}
	defer func() { _ = cur.Close(ctx) }()

	docs := []core.Record{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", m.coll.Name(), err)
		}
		docs = append(docs, core.Record(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", m.coll.Name(), err)
	}
	return docs, nil
}

func (m *model) Create(ctx context.Context, doc core.Record) (core.Record, error) {
	stored := make(bson.M, len(doc)+2)
	for k, v := range doc {
		stored[k] = v
	}
	if _, ok := stored[core.IDField]; !ok {
		stored[core.IDField] = primitive.NewObjectID()
	}
	stored[core.VersionField] = int32(0)

	if _, err := m.coll.InsertOne(ctx, stored); err != nil {
		return nil, m.translate("insert", err)
	}
	return core.Record(stored), nil
}

func (m *model) FindByIDAndUpdate(ctx context.Context, id string, set core.Record, opts core.UpdateOptions) (core.Record, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}
	filter := bson.M{core.IDField: oid}

	changes := bson.M{}
	for k, v := range set {
		if k == core.IDField || k == core.VersionField {
			continue
		}
		changes[k] = v
	}
	if len(changes) == 0 {
		return m.findOne(ctx, filter)
	}

	uo := options.FindOneAndUpdate().SetBypassDocumentValidation(!opts.Validate)
	if opts.New {
		uo.SetReturnDocument(options.After)
	}

	var doc bson.M
	err := m.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": changes}, uo).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.translate("update", err)
	}
	return core.Record(doc), nil
}

func (m *model) FindByIDAndDelete(ctx context.Context, id string) (core.Record, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}
	var doc bson.M
	err := m.coll.FindOneAndDelete(ctx, bson.M{core.IDField: oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", m.coll.Name(), err)
	}
	return core.Record(doc), nil
}

// translate maps duplicate-key write errors onto 409 conflicts.
func (m *model) translate(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return core.ConflictWrap(fmt.Sprintf("duplicate key in %s", m.coll.Name()), err)
	}
	return fmt.Errorf("%s %s: %w", op, m.coll.Name(), err)
}

// objectID parses a hex identifier. Malformed ids name no record.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

// toFilter converts an equality filter. A hex string under _id is matched as
// an ObjectID; nil values match null or missing fields natively.
func toFilter(filter core.Record) bson.M {
	out := make(bson.M, len(filter))
	for k, v := range filter {
		if k == core.IDField {
			if s, ok := v.(string); ok {
				if oid, ok := objectID(s); ok {
					v = oid
				}
			}
		}
		out[k] = v
	}
	return out
}
