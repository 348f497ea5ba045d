package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TxnStatusPending   = "pending"
	TxnStatusCompleted = "completed"
	TxnStatusFailed    = "failed"
)

// Transaction is the append-only audit record for one checkout attempt.
// Reference matches the gateway's transaction reference and is unique.
type Transaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ContestID primitive.ObjectID `bson:"contest_id" json:"contest_id"`
	NomineeID primitive.ObjectID `bson:"nominee_id" json:"nominee_id"`
	Voter     string             `bson:"voter" json:"voter"`
	Channel   string             `bson:"channel" json:"channel"`
	VoteCount int64              `bson:"vote_count" json:"vote_count"`
	Amount    float64            `bson:"amount" json:"amount"` // major currency units
	Status    string             `bson:"status" json:"status"`
	Reference string             `bson:"reference" json:"reference"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
