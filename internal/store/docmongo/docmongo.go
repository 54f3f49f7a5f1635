// Package docmongo keeps the social document as a single MongoDB document.
package docmongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/store"
)

const (
	collectionName = "social"
	documentID     = "social"
)

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ store.DocumentStore = (*Store)(nil)

type record struct {
	ID    string          `bson:"_id"`
	Users []model.Profile `bson:"users"`
}

func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collectionName),
	}, nil
}

func (s *Store) Load(ctx context.Context) (model.Document, error) {
	raw, err := s.collection.FindOne(ctx, bson.M{"_id": documentID}).DecodeBytes()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return model.Document{}, err
	}
	var rec record
	if err := bson.Unmarshal(raw, &rec); err != nil {
		return model.Document{}, fmt.Errorf("%w: %v", store.ErrStoreUnreadable, err)
	}
	doc := model.Document{Users: rec.Users}
	doc.Normalize()
	return doc, nil
}

func (s *Store) Save(ctx context.Context, doc model.Document) error {
	users := doc.Users
	if users == nil {
		users = []model.Profile{}
	}
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"_id": documentID},
		record{ID: documentID, Users: users},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
