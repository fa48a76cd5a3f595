package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) FindByOwner(ctx context.Context, email string) ([]domain.CartLine, error) {
	return m.find(ctx, bson.M{"email": email})
}

// FindByIDs skips ids that are not valid object ids; such lines cannot exist.
func (m *mongoCartRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.CartLine, error) {
	oids := toObjectIDs(ids)
	if len(oids) == 0 {
		return []domain.CartLine{}, nil
	}
	return m.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (m *mongoCartRepository) find(ctx context.Context, filter bson.M) ([]domain.CartLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}})
	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart lines: %w", err)
	}
	defer cursor.Close(ctx)

	lines := []domain.CartLine{}
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart lines: %w", err)
	}
	return lines, nil
}

func (m *mongoCartRepository) Insert(ctx context.Context, line *domain.CartLine) (string, error) {
	if line.AddedAt.IsZero() {
		line.AddedAt = time.Now().UTC()
	}
	line.ID = ""

	res, err := m.collection.InsertOne(ctx, line)
	if err != nil {
		return "", fmt.Errorf("failed to insert cart line: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	line.ID = oid.Hex()
	return line.ID, nil
}

func (m *mongoCartRepository) DeleteOne(ctx context.Context, id string) (*domain.CartLine, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrCartLineNotFound
	}

	var line domain.CartLine
	err = m.collection.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&line)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartLineNotFound
		}
		return nil, fmt.Errorf("failed to delete cart line: %w", err)
	}
	return &line, nil
}

// DeleteMany removes every line in ids and returns how many existed.
// Missing lines are not an error so repeated purges are harmless.
func (m *mongoCartRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	oids := toObjectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}

	result, err := m.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete cart lines: %w", err)
	}
	return result.DeletedCount, nil
}

func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}, {Key: "added_at", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func toObjectIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		if _, dup := seen[oid]; dup {
			continue
		}
		seen[oid] = struct{}{}
		oids = append(oids, oid)
	}
	return oids
}
