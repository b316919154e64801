package storage

import (
	"context"
	"errors"

	"photogram/storage/models"
	"photogram/storage/query"
)

// Field names shared by every adapter. Query specs are composed against
// these, so an adapter only has to map them once.
const (
	FieldID        = "_id"
	FieldCreatedAt = "created_at"
	FieldHandle    = "handle"

	FieldPostOwnerID = "owner_id"

	FieldLikeFromUserID = "from_user_id"
	FieldLikePostID     = "post_id"

	FieldFollowFromUserID = "from_user_id"
	FieldFollowToUserID   = "to_user_id"

	// Eager-resolution keys accepted in query.Spec.Resolve.
	ResolveOwner    = "owner"
	ResolveFromUser = "from_user"
)

// ErrNotFound is returned by single-document lookups when no document
// matches. An empty Find result is not an error.
var ErrNotFound = errors.New("storage: not found")

// Store is the document-query backend the stores and the timeline service
// are written against. Insert methods for edges are upserts keyed on the
// edge's identity pair, so duplicate likes/follows never accumulate.
type Store interface {
	PutUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
	FindUsers(ctx context.Context, spec query.Spec) ([]models.User, error)

	PutPost(ctx context.Context, post models.Post) error
	GetPost(ctx context.Context, id string) (models.Post, error)
	FindPosts(ctx context.Context, spec query.Spec) ([]models.Post, error)
	CountPosts(ctx context.Context, where query.Predicate) (int64, error)

	// PutLike inserts the edge unless one with the same
	// (from_user_id, post_id) pair exists; created reports whether a new
	// edge was written.
	PutLike(ctx context.Context, like models.Like) (created bool, err error)
	DeleteLikes(ctx context.Context, fromUserID, postID string) (int64, error)
	FindLikes(ctx context.Context, spec query.Spec) ([]models.Like, error)
	CountLikes(ctx context.Context, where query.Predicate) (int64, error)

	// PutFollow behaves like PutLike for (from_user_id, to_user_id).
	PutFollow(ctx context.Context, follow models.Follow) (created bool, err error)
	DeleteFollows(ctx context.Context, fromUserID, toUserID string) (int64, error)
	FindFollows(ctx context.Context, spec query.Spec) ([]models.Follow, error)
}

// BlobStore holds named image payloads.
type BlobStore interface {
	PutBlob(ctx context.Context, name string, data []byte) error
	GetBlob(ctx context.Context, name string) ([]byte, error)
}
