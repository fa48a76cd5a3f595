package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Cart traffic is read-heavy and bursty around checkout, so a warm pool is kept.
const (
	mongoMinPool          = 10
	mongoMaxPool          = 100
	mongoConnectTimeout   = 10 * time.Second
	mongoSelectionTimeout = 5 * time.Second
)

// ConnectMongoDB opens the cart and user store. The client is closed again if
// the server cannot be reached.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetMinPoolSize(mongoMinPool).
		SetMaxPoolSize(mongoMaxPool).
		SetConnectTimeout(mongoConnectTimeout).
		SetServerSelectionTimeout(mongoSelectionTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect %s: %w", database, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb unreachable for %s: %w", database, err)
	}
	return client.Database(database), nil
}
