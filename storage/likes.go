package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"photogram/storage/cache"
	"photogram/storage/models"
	"photogram/storage/query"
)

// LikeStore manages like edges between users and posts.
type LikeStore struct {
	store  Store
	counts *cache.LikeCounts
}

// NewLikeStore builds a like store. counts may be nil; counters are then
// skipped entirely.
func NewLikeStore(store Store, counts *cache.LikeCounts) *LikeStore {
	return &LikeStore{store: store, counts: counts}
}

// Like records a like edge. Liking an already-liked post is a no-op
// success; the counter only moves when a new edge was written.
func (s *LikeStore) Like(ctx context.Context, userID, postID string) error {
	created, err := s.store.PutLike(ctx, models.Like{
		ID:         uuid.NewString(),
		FromUserID: userID,
		PostID:     postID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if created && s.counts != nil {
		s.counts.AddLike(postID)
	}
	return nil
}

// Unlike deletes every like edge for the pair. Zero matches is success.
func (s *LikeStore) Unlike(ctx context.Context, userID, postID string) error {
	deleted, err := s.store.DeleteLikes(ctx, userID, postID)
	if err != nil {
		return err
	}
	if deleted > 0 && s.counts != nil {
		s.counts.RemoveLike(postID)
	}
	return nil
}

// LikesFor returns the users that like postID, oldest like first. Edges
// whose user no longer exists are dropped rather than surfaced as errors.
func (s *LikeStore) LikesFor(ctx context.Context, postID string) ([]models.User, error) {
	likes, err := s.store.FindLikes(ctx, query.Spec{
		Where:   query.Eq{Field: FieldLikePostID, Value: postID},
		Sort:    []query.Sort{{Field: FieldCreatedAt}},
		Resolve: []string{ResolveFromUser},
	})
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(likes))
	for _, like := range likes {
		if like.FromUser == nil {
			continue
		}
		users = append(users, *like.FromUser)
	}
	return users, nil
}

// Count returns the cached like counter for postID, falling back to a
// store count when no counter is cached.
func (s *LikeStore) Count(ctx context.Context, postID string) (int64, error) {
	if s.counts != nil {
		if count := s.counts.Get(postID); count > 0 {
			return count, nil
		}
	}
	return s.store.CountLikes(ctx, query.Eq{Field: FieldLikePostID, Value: postID})
}
