package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Contest struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title          string             `bson:"title" json:"title"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	Image          string             `bson:"image,omitempty" json:"image,omitempty"`
	Alt            string             `bson:"alt,omitempty" json:"alt,omitempty"`
	Slug           string             `bson:"slug" json:"slug"`
	StartDate      time.Time          `bson:"start_date" json:"start_date"`
	EndDate        time.Time          `bson:"end_date" json:"end_date"`
	Status         string             `bson:"status" json:"status"` // active, expired
	CostPerVote    float64            `bson:"cost_per_vote" json:"cost_per_vote"`
	ResultsVisible bool               `bson:"results_visible" json:"results_visible"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// CurrentStatus derives expiry from end_date so a contest that ran out
// between organizer edits still reads as expired.
func (ct Contest) CurrentStatus() string {
	if !ct.EndDate.IsZero() && time.Now().After(ct.EndDate) {
		return "expired"
	}
	return ct.Status
}
