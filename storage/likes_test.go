package storage_test

import (
	"context"
	"testing"

	"photogram/storage"
	"photogram/storage/memory"
	"photogram/storage/models"
)

func seedLikes(t *testing.T) (*memory.Store, *storage.LikeStore) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	for _, user := range []models.User{
		{ID: "u1", Handle: "alice"},
		{ID: "u2", Handle: "bob"},
	} {
		if err := store.PutUser(ctx, user); err != nil {
			t.Fatalf("put user: %v", err)
		}
	}
	if err := store.PutPost(ctx, models.Post{ID: "p1", OwnerID: "u1"}); err != nil {
		t.Fatalf("put post: %v", err)
	}
	return store, storage.NewLikeStore(store, nil)
}

func TestLikeRoundTrip(t *testing.T) {
	_, likes := seedLikes(t)
	ctx := context.Background()

	if err := likes.Like(ctx, "u2", "p1"); err != nil {
		t.Fatalf("like: %v", err)
	}
	users, err := likes.LikesFor(ctx, "p1")
	if err != nil {
		t.Fatalf("likes for: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u2" {
		t.Fatalf("got %v, want [u2]", users)
	}

	if err := likes.Unlike(ctx, "u2", "p1"); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	users, err = likes.LikesFor(ctx, "p1")
	if err != nil {
		t.Fatalf("likes for: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("got %v, want no likers after unlike", users)
	}
}

func TestDuplicateLikesDoNotAccumulate(t *testing.T) {
	store, likes := seedLikes(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := likes.Like(ctx, "u2", "p1"); err != nil {
			t.Fatalf("like %d: %v", i, err)
		}
	}

	count, err := store.CountLikes(ctx, nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d like edges, want 1", count)
	}
}

func TestUnlikeTwiceIsNoOpSuccess(t *testing.T) {
	_, likes := seedLikes(t)
	ctx := context.Background()

	if err := likes.Like(ctx, "u2", "p1"); err != nil {
		t.Fatalf("like: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := likes.Unlike(ctx, "u2", "p1"); err != nil {
			t.Errorf("unlike attempt %d: %v", i, err)
		}
		users, err := likes.LikesFor(ctx, "p1")
		if err != nil {
			t.Fatalf("likes for: %v", err)
		}
		if len(users) != 0 {
			t.Errorf("attempt %d: got %d likers, want 0", i, len(users))
		}
	}
}

func TestLikesForDropsDeletedUsers(t *testing.T) {
	store, likes := seedLikes(t)
	ctx := context.Background()

	if err := likes.Like(ctx, "u1", "p1"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := likes.Like(ctx, "u2", "p1"); err != nil {
		t.Fatalf("like: %v", err)
	}

	store.DeleteUser("u1")

	users, err := likes.LikesFor(ctx, "p1")
	if err != nil {
		t.Fatalf("a dangling edge must not surface as an error, got: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u2" {
		t.Errorf("got %v, want only u2", users)
	}
}
