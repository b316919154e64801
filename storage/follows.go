package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"photogram/storage/models"
	"photogram/storage/query"
)

// RelationshipStore manages the directed follow graph.
type RelationshipStore struct {
	store Store
}

func NewRelationshipStore(store Store) *RelationshipStore {
	return &RelationshipStore{store: store}
}

// Follow records a follow edge. Inserting an edge that already exists is
// a no-op success.
func (s *RelationshipStore) Follow(ctx context.Context, followerID, followeeID string) error {
	_, err := s.store.PutFollow(ctx, models.Follow{
		ID:         uuid.NewString(),
		FromUserID: followerID,
		ToUserID:   followeeID,
		CreatedAt:  time.Now().UTC(),
	})
	return err
}

// Unfollow deletes every follow edge for the pair. Zero matches is
// success.
func (s *RelationshipStore) Unfollow(ctx context.Context, followerID, followeeID string) error {
	_, err := s.store.DeleteFollows(ctx, followerID, followeeID)
	return err
}

// FolloweesOf returns the ids of the users followed by userID.
func (s *RelationshipStore) FolloweesOf(ctx context.Context, userID string) ([]string, error) {
	follows, err := s.store.FindFollows(ctx, query.Spec{
		Where: query.Eq{Field: FieldFollowFromUserID, Value: userID},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(follows))
	for i, follow := range follows {
		ids[i] = follow.ToUserID
	}
	return ids, nil
}

// FollowersOf returns the ids of the users following userID.
func (s *RelationshipStore) FollowersOf(ctx context.Context, userID string) ([]string, error) {
	follows, err := s.store.FindFollows(ctx, query.Spec{
		Where: query.Eq{Field: FieldFollowToUserID, Value: userID},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(follows))
	for i, follow := range follows {
		ids[i] = follow.FromUserID
	}
	return ids, nil
}
