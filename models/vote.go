package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vote is append-only: exactly one row per successfully processed payment,
// keyed by PaymentReference.
type Vote struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ContestID        primitive.ObjectID `bson:"contest_id" json:"contest_id"`
	CategoryID       primitive.ObjectID `bson:"category_id" json:"category_id"`
	NomineeID        primitive.ObjectID `bson:"nominee_id" json:"nominee_id"`
	PhoneNumber      string             `bson:"phone_number" json:"phone_number"`
	Email            string             `bson:"email,omitempty" json:"email,omitempty"`
	PaymentReference string             `bson:"payment_reference" json:"payment_reference"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}
