package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"photogram/storage"
	"photogram/storage/memory"
	"photogram/storage/models"
	"photogram/storage/query"
)

// brokenStore injects write failures to exercise optimistic rollback.
type brokenStore struct {
	*memory.Store
	failLikes   bool
	failUnlikes bool
}

func (s *brokenStore) PutLike(ctx context.Context, like models.Like) (bool, error) {
	if s.failLikes {
		return false, errors.New("write refused")
	}
	return s.Store.PutLike(ctx, like)
}

func (s *brokenStore) DeleteLikes(ctx context.Context, fromUserID, postID string) (int64, error) {
	if s.failUnlikes {
		return 0, errors.New("write refused")
	}
	return s.Store.DeleteLikes(ctx, fromUserID, postID)
}

// countingStore counts like-set reads.
type countingStore struct {
	*memory.Store
	likeReads atomic.Int64
}

func (s *countingStore) FindLikes(ctx context.Context, spec query.Spec) ([]models.Like, error) {
	s.likeReads.Add(1)
	return s.Store.FindLikes(ctx, spec)
}

func seedPostView(t *testing.T, store storage.Store) *PostView {
	t.Helper()
	ctx := context.Background()
	if err := store.PutUser(ctx, models.User{ID: "u1", Handle: "alice"}); err != nil {
		t.Fatalf("put user: %v", err)
	}
	post := models.Post{ID: "p1", OwnerID: "u1"}
	if err := store.PutPost(ctx, post); err != nil {
		t.Fatalf("put post: %v", err)
	}
	return NewPostView(post, nil, storage.NewLikeStore(store, nil))
}

func TestFetchLikesRunsOnce(t *testing.T) {
	store := &countingStore{Store: memory.NewStore()}
	view := seedPostView(t, store)
	ctx := context.Background()

	view.FetchLikes(ctx)
	waitFor(t, func() bool {
		_, ok := view.Likes.Get()
		return ok
	}, "likes never populated")

	view.FetchLikes(ctx)
	view.FetchLikes(ctx)
	time.Sleep(10 * time.Millisecond)

	if got := store.likeReads.Load(); got != 1 {
		t.Errorf("got %d like fetches, want 1", got)
	}
}

func TestToggleLikeAppliesOptimistically(t *testing.T) {
	store := memory.NewStore()
	view := seedPostView(t, store)
	ctx := context.Background()
	user := models.User{ID: "u1", Handle: "alice"}

	view.FetchLikes(ctx)
	waitFor(t, func() bool {
		_, ok := view.Likes.Get()
		return ok
	}, "likes never populated")

	view.ToggleLike(ctx, user, nil)
	if !view.LikedBy(user) {
		t.Error("like not applied locally before the remote write finished")
	}
	waitFor(t, func() bool {
		count, _ := store.CountLikes(ctx, nil)
		return count == 1
	}, "like edge never persisted")

	view.ToggleLike(ctx, user, nil)
	if view.LikedBy(user) {
		t.Error("unlike not applied locally before the remote write finished")
	}
	waitFor(t, func() bool {
		count, _ := store.CountLikes(ctx, nil)
		return count == 0
	}, "like edge never deleted")
}

func TestToggleLikeAllowsReentrantSubscribers(t *testing.T) {
	store := memory.NewStore()
	view := seedPostView(t, store)
	ctx := context.Background()
	user := models.User{ID: "u1", Handle: "alice"}

	// A surface may react to a liker-list change by refreshing the view.
	view.Likes.Subscribe(func([]models.User) {
		view.FetchLikes(ctx)
	})

	returned := make(chan struct{})
	go func() {
		view.ToggleLike(ctx, user, nil)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("like update blocked on a re-entrant subscriber")
	}
	waitFor(t, func() bool { return view.LikedBy(user) }, "like never applied")
}

func TestToggleLikeRollsBackOnFailure(t *testing.T) {
	store := &brokenStore{Store: memory.NewStore(), failLikes: true}
	view := seedPostView(t, store)
	ctx := context.Background()
	user := models.User{ID: "u1", Handle: "alice"}

	view.FetchLikes(ctx)
	waitFor(t, func() bool {
		_, ok := view.Likes.Get()
		return ok
	}, "likes never populated")

	failures := make(chan error, 1)
	view.ToggleLike(ctx, user, func(err error) { failures <- err })

	select {
	case err := <-failures:
		if err == nil {
			t.Fatal("onErr called with nil error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failed write never reported")
	}
	waitFor(t, func() bool { return !view.LikedBy(user) }, "optimistic like was not rolled back")
}

func TestToggleUnlikeRollsBackOnFailure(t *testing.T) {
	store := &brokenStore{Store: memory.NewStore()}
	view := seedPostView(t, store)
	ctx := context.Background()
	user := models.User{ID: "u1", Handle: "alice"}

	view.FetchLikes(ctx)
	waitFor(t, func() bool {
		_, ok := view.Likes.Get()
		return ok
	}, "likes never populated")

	view.ToggleLike(ctx, user, nil)
	waitFor(t, func() bool {
		count, _ := store.CountLikes(ctx, nil)
		return count == 1
	}, "like edge never persisted")

	store.failUnlikes = true
	failures := make(chan error, 1)
	view.ToggleLike(ctx, user, func(err error) { failures <- err })

	select {
	case <-failures:
	case <-time.After(2 * time.Second):
		t.Fatal("failed unlike never reported")
	}
	waitFor(t, func() bool { return view.LikedBy(user) }, "optimistic unlike was not rolled back")
}
