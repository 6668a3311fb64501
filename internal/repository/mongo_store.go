package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// cartDocument holds a user's whole row set, so replacing it is a single
// document write.
type cartDocument struct {
	UserID    string     `bson:"user_id"`
	Items     []cartItem `bson:"items"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

type cartItem struct {
	DishRef  string    `bson:"dish_ref"`
	Quantity int       `bson:"quantity"`
	AddedAt  time.Time `bson:"added_at"`
}

type MongoStore struct {
	collection *mongo.Collection
	ttl        time.Duration
}

func NewMongoStore(db *mongo.Database, ttl time.Duration) *MongoStore {
	return &MongoStore{
		collection: db.Collection("carts"),
		ttl:        ttl,
	}
}

func (m *MongoStore) ReadCartRows(ctx context.Context, userID string) ([]Row, error) {
	var doc cartDocument
	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	rows := make([]Row, 0, len(doc.Items))
	for _, item := range doc.Items {
		rows = append(rows, Row{DishRef: item.DishRef, Quantity: item.Quantity})
	}
	return rows, nil
}

func (m *MongoStore) DeleteCartRows(ctx context.Context, userID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// InsertCartRows appends rows, bumping the quantity of dishes already present.
func (m *MongoStore) InsertCartRows(ctx context.Context, userID string, rows []Row) error {
	existing, err := m.ReadCartRows(ctx, userID)
	if err != nil {
		return err
	}

	merged := existing
	for _, row := range rows {
		found := false
		for i := range merged {
			if merged[i].DishRef == row.DishRef {
				merged[i].Quantity += row.Quantity
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, row)
		}
	}
	return m.ReplaceCartRows(ctx, userID, merged)
}

func (m *MongoStore) ReplaceCartRows(ctx context.Context, userID string, rows []Row) error {
	now := time.Now()
	items := make([]cartItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, cartItem{DishRef: r.DishRef, Quantity: r.Quantity, AddedAt: now})
	}

	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set":         bson.M{"items": items, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if m.ttl > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(m.ttl.Seconds())),
		})
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
