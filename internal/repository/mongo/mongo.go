// Package mongo implements repository.SnippetRepository on MongoDB.
//
// This is the store the API was first written against: snippets live in the
// "codes" collection as plain documents, ids are ObjectIDs, and tags is an
// array field with a (multikey) index so the $in filter does not scan.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/code-capsule/internal/apperror"
	"github.com/sakif/code-capsule/internal/model"
	"github.com/sakif/code-capsule/internal/repository"
)

// Collection is the collection snippets are stored in.
const Collection = "codes"

var _ repository.SnippetRepository = (*Store)(nil)

type Store struct {
	client *mongo.Client
	codes  *mongo.Collection
}

// document is the stored shape. It is kept separate from model.Snippet so the
// ObjectID and bson tags never leak past this package.
type document struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Description string             `bson:"description"`
	Code        string             `bson:"code"`
	Language    string             `bson:"language"`
	CreatedAt   time.Time          `bson:"created_at"`
	ModifiedAt  time.Time          `bson:"modified_at"`
	Tags        []string           `bson:"tags"`
}

// New connects to uri, pings the primary and ensures the tags index exists.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	s := &Store{
		client: client,
		codes:  client.Database(database).Collection(Collection),
	}

	_, err = s.codes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tags", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: creating tags index: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Insert(ctx context.Context, snippet *model.Snippet) error {
	doc := toDocument(snippet)
	doc.ID = primitive.NewObjectID()
	if _, err := s.codes.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: inserting snippet: %w", err)
	}
	snippet.ID = doc.ID.Hex()
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*model.Snippet, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}

	var doc document
	err := s.codes.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("mongo: getting snippet %s: %w", id, err)
	}

	snippet := fromDocument(doc)
	return &snippet, nil
}

// Find returns documents in insertion order. The tags index would otherwise
// hand back $in matches grouped by tag, so results are sorted on _id, whose
// leading bytes are the creation time.
func (s *Store) Find(ctx context.Context, filter repository.Filter) ([]model.Snippet, error) {
	query := bson.M{}
	if len(filter.Tags) > 0 {
		query = bson.M{"tags": bson.M{"$in": filter.Tags}}
	}

	cursor, err := s.codes.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: listing snippets: %w", err)
	}
	defer cursor.Close(ctx)

	snippets := make([]model.Snippet, 0)
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decoding snippet: %w", err)
		}
		snippets = append(snippets, fromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating snippets: %w", err)
	}
	return snippets, nil
}

// Update replaces every field except _id and created_at.
func (s *Store) Update(ctx context.Context, snippet *model.Snippet) error {
	oid, ok := parseID(snippet.ID)
	if !ok {
		return apperror.NotFound("snippet", snippet.ID)
	}

	result, err := s.codes.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"description": snippet.Description,
		"code":        snippet.Code,
		"language":    snippet.Language,
		"tags":        nonNil(snippet.Tags),
		"modified_at": snippet.ModifiedAt,
	}})
	if err != nil {
		return fmt.Errorf("mongo: updating snippet %s: %w", snippet.ID, err)
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("snippet", snippet.ID)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	oid, ok := parseID(id)
	if !ok {
		return apperror.NotFound("snippet", id)
	}

	result, err := s.codes.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: deleting snippet %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return apperror.NotFound("snippet", id)
	}
	return nil
}

// parseID converts a hex id. A malformed id cannot name any document,
// so callers report it as not found.
func parseID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

func toDocument(s *model.Snippet) document {
	return document{
		Description: s.Description,
		Code:        s.Code,
		Language:    s.Language,
		CreatedAt:   s.CreatedAt,
		ModifiedAt:  s.ModifiedAt,
		Tags:        nonNil(s.Tags),
	}
}

func fromDocument(d document) model.Snippet {
	return model.Snippet{
		ID:          d.ID.Hex(),
		Description: d.Description,
		Code:        d.Code,
		Language:    d.Language,
		Tags:        nonNil(d.Tags),
		CreatedAt:   d.CreatedAt,
		ModifiedAt:  d.ModifiedAt,
	}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
