package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Nominee struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CategoryID  primitive.ObjectID `bson:"category_id" json:"category_id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	NomineeCode string             `bson:"nominee_code,omitempty" json:"nominee_code,omitempty"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Votes       int64              `bson:"votes" json:"votes"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
