package storage

import (
	"context"

	"photogram/monitoring"
	"photogram/storage/models"
	"photogram/storage/query"
)

// TimelineService serves pages of the viewer's feed: posts authored by
// users the viewer follows plus the viewer's own, newest first.
type TimelineService struct {
	store         Store
	relationships *RelationshipStore
}

func NewTimelineService(store Store, relationships *RelationshipStore) *TimelineService {
	return &TimelineService{
		store:         store,
		relationships: relationships,
	}
}

// Page returns the timeline slice [offset, offset+limit) for viewerID.
// Ordering is creation time descending with the post id as a stable
// tiebreak, so repeated queries over unchanged data page consistently.
// Owners are resolved eagerly. An empty result is valid.
func (s *TimelineService) Page(ctx context.Context, viewerID string, offset, limit int64) ([]models.Post, error) {
	followees, err := s.relationships.FolloweesOf(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	owners := make([]any, len(followees))
	for i, id := range followees {
		owners[i] = id
	}

	spec := query.Spec{
		Where: query.Or{
			query.In{Field: FieldPostOwnerID, Values: owners},
			query.Eq{Field: FieldPostOwnerID, Value: viewerID},
		},
		Sort: []query.Sort{
			{Field: FieldCreatedAt, Descending: true},
			{Field: FieldID, Descending: true},
		},
		Skip:    offset,
		Limit:   limit,
		Resolve: []string{ResolveOwner},
	}

	posts, err := s.store.FindPosts(ctx, spec)
	if err != nil {
		return nil, err
	}
	monitoring.TimelinePagesTotal.Inc()
	return posts, nil
}
