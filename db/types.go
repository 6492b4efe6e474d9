package db

import "time"

// Purchase is a completed grid purchase, reconciled from the metadata of its
// checkout session.
type Purchase struct {
	SessionID       string    `json:"sessionId" bson:"_id"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty" bson:"paymentIntentId,omitempty"`
	WUnits          float64   `json:"wUnits" bson:"wUnits"`
	HUnits          float64   `json:"hUnits" bson:"hUnits"`
	Pixels          float64   `json:"pixels" bson:"pixels"`
	Label           string    `json:"label" bson:"label"`
	Href            string    `json:"href" bson:"href"`
	AmountTotal     int64     `json:"amountTotal" bson:"amountTotal"`
	Currency        string    `json:"currency" bson:"currency"`
	CustomerEmail   string    `json:"customerEmail,omitempty" bson:"customerEmail,omitempty"`
	PaymentStatus   string    `json:"paymentStatus" bson:"paymentStatus"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PurchaseCollection is the exported form of the purchases collection.
type PurchaseCollection struct {
	Purchases []Purchase `json:"purchases"`
}

// Collection is the exported form of the whole database.
type Collection struct {
	PurchaseCollection
}
