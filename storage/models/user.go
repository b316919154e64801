package models

import "time"

type User struct {
	ID        string    `bson:"_id" json:"id"`
	Handle    string    `bson:"handle" json:"handle"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
