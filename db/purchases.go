package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.vocdoni.io/dvote/log"
)

// SetPurchase inserts or replaces the purchase of a checkout session. Storing
// the same session twice keeps a single document.
func (ms *MongoStorage) SetPurchase(purchase *Purchase) error {
	if purchase == nil || purchase.SessionID == "" {
		return ErrInvalidData
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	purchase.UpdatedAt = time.Now().UTC()
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = purchase.UpdatedAt
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := ms.purchases.ReplaceOne(ctx, bson.M{"_id": purchase.SessionID}, purchase, opts); err != nil {
		return err
	}
	return nil
}

// Purchase returns the purchase of a checkout session, or ErrNotFound.
func (ms *MongoStorage) Purchase(sessionID string) (*Purchase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	purchase := &Purchase{}
	if err := ms.purchases.FindOne(ctx, bson.M{"_id": sessionID}).Decode(purchase); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return purchase, nil
}

// Purchases returns every purchase, newest first.
func (ms *MongoStorage) Purchases() ([]Purchase, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := ms.purchases.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.Warnw("failed to close purchases cursor", "error", err)
		}
	}()
	purchases := []Purchase{}
	if err := cursor.All(ctx, &purchases); err != nil {
		return nil, err
	}
	return purchases, nil
}
