package models

import "time"

// Like is a directed edge from a user to a post. The (from_user_id,
// post_id) pair is unique; adapters enforce that on insert.
type Like struct {
	ID         string    `bson:"_id" json:"id"`
	FromUserID string    `bson:"from_user_id" json:"from_user_id"`
	PostID     string    `bson:"post_id" json:"post_id"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`

	FromUser *User `bson:"-" json:"from_user,omitempty"`
}
