package models

import "time"

type Post struct {
	ID        string    `bson:"_id" json:"id"`
	OwnerID   string    `bson:"owner_id" json:"owner_id"`
	ImageName string    `bson:"image_name" json:"image_name"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	// Owner is populated when the query asks for eager owner resolution.
	// It is never persisted.
	Owner *User `bson:"-" json:"owner,omitempty"`
}
