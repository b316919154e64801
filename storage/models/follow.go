package models

import "time"

// Follow is a directed edge between two users. The (from_user_id,
// to_user_id) pair is unique; adapters enforce that on insert.
type Follow struct {
	ID         string    `bson:"_id" json:"id"`
	FromUserID string    `bson:"from_user_id" json:"from_user_id"`
	ToUserID   string    `bson:"to_user_id" json:"to_user_id"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
