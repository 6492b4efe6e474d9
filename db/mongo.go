// Package db implements the purchase ledger on top of MongoDB. Purchases are
// recorded from the payment provider webhooks and keyed by checkout session.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.vocdoni.io/dvote/log"
)

// ResetDBEnv drops and recreates the collections on startup when set.
const ResetDBEnv = "PIXELGRID_MONGO_RESET_DB"

// MongoStorage uses an external MongoDB service for storing the purchases.
type MongoStorage struct {
	client   *mongo.Client
	database string

	purchases *mongo.Collection
}

// New connects to the MongoDB server at url and prepares the collections of
// the given database.
func New(url, database string) (*MongoStorage, error) {
	if url == "" {
		return nil, fmt.Errorf("mongo URL is not defined")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database is not defined")
	}
	log.Infow("connecting to mongodb", "database", database)
	// preparing connection
	opts := options.Client()
	opts.ApplyURI(url)
	opts.SetMaxConnecting(200)
	timeout := time.Second * 10
	opts.ConnectTimeout = &timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	// check if the connection is successful
	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	ms := &MongoStorage{client: client, database: database}
	if err := ms.initCollections(database); err != nil {
		return nil, err
	}
	if reset := os.Getenv(ResetDBEnv); reset != "" {
		if err := ms.Reset(); err != nil {
			return nil, err
		}
	} else if err := ms.createIndexes(); err != nil {
		return nil, err
	}
	return ms, nil
}

// Close disconnects the client.
func (ms *MongoStorage) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.client.Disconnect(ctx); err != nil {
		log.Warn(err)
	}
}

// Reset drops the purchases and recreates the indexes.
func (ms *MongoStorage) Reset() error {
	log.Infof("resetting database")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.purchases.Drop(ctx); err != nil {
		return err
	}
	return ms.createIndexes()
}

// String returns the ledger as a JSON document, for exports and debugging.
func (ms *MongoStorage) String() string {
	purchases, err := ms.Purchases()
	if err != nil {
		log.Warn(err)
		return "{}"
	}
	data, err := json.Marshal(&Collection{PurchaseCollection{Purchases: purchases}})
	if err != nil {
		log.Warn(err)
		return "{}"
	}
	return string(data)
}

// Import upserts the purchases of a JSON dataset produced by String().
func (ms *MongoStorage) Import(jsonData []byte) error {
	var collection Collection
	if err := json.Unmarshal(jsonData, &collection); err != nil {
		return err
	}
	log.Infow("importing purchases", "count", len(collection.Purchases))
	for i := range collection.Purchases {
		if err := ms.SetPurchase(&collection.Purchases[i]); err != nil {
			log.Warnw("error upserting purchase", "error", err, "session", collection.Purchases[i].SessionID)
		}
	}
	return nil
}

func (ms *MongoStorage) initCollections(database string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	currentCollections, err := ms.collectionNames(ctx, database)
	if err != nil {
		return err
	}
	// get a collection if it exists, or create it if it doesn't
	getCollection := func(name string) (*mongo.Collection, error) {
		for _, c := range currentCollections {
			if c == name {
				return ms.client.Database(database).Collection(name), nil
			}
		}
		if err := ms.client.Database(database).CreateCollection(ctx, name); err != nil {
			return nil, err
		}
		return ms.client.Database(database).Collection(name), nil
	}
	if ms.purchases, err = getCollection("purchases"); err != nil {
		return err
	}
	return nil
}

// collectionNames returns the names of the collections in the given database.
func (ms *MongoStorage) collectionNames(ctx context.Context, database string) ([]string, error) {
	return ms.client.Database(database).ListCollectionNames(ctx, bson.D{})
}

// createIndexes creates the indexes for the collections in the MongoDB
// database. Add more indexes here as needed.
func (ms *MongoStorage) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	// purchases are listed by creation date
	createdAtIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}
	if _, err := ms.purchases.Indexes().CreateOne(ctx, createdAtIndex); err != nil {
		return fmt.Errorf("failed to create index on createdAt for purchases: %w", err)
	}
	// and reconciled against the payment intent
	paymentIntentIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "paymentIntentId", Value: 1}},
		Options: options.Index().SetSparse(true),
	}
	if _, err := ms.purchases.Indexes().CreateOne(ctx, paymentIntentIndex); err != nil {
		return fmt.Errorf("failed to create index on paymentIntentId for purchases: %w", err)
	}
	return nil
}
