package storage_test

import (
	"context"
	"testing"

	"photogram/storage"
	"photogram/storage/memory"
)

func TestFollowAndFollowees(t *testing.T) {
	store := memory.NewStore()
	relationships := storage.NewRelationshipStore(store)
	ctx := context.Background()

	if err := relationships.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := relationships.Follow(ctx, "a", "c"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	followees, err := relationships.FolloweesOf(ctx, "a")
	if err != nil {
		t.Fatalf("followees: %v", err)
	}
	if len(followees) != 2 {
		t.Errorf("got %v, want 2 followees", followees)
	}

	followers, err := relationships.FollowersOf(ctx, "b")
	if err != nil {
		t.Fatalf("followers: %v", err)
	}
	if len(followers) != 1 || followers[0] != "a" {
		t.Errorf("got %v, want [a]", followers)
	}
}

func TestDuplicateFollowsDoNotAccumulate(t *testing.T) {
	store := memory.NewStore()
	relationships := storage.NewRelationshipStore(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := relationships.Follow(ctx, "a", "b"); err != nil {
			t.Fatalf("follow %d: %v", i, err)
		}
	}

	followees, err := relationships.FolloweesOf(ctx, "a")
	if err != nil {
		t.Fatalf("followees: %v", err)
	}
	if len(followees) != 1 {
		t.Errorf("got %d followee entries, want 1", len(followees))
	}
}

func TestUnfollowTwiceIsNoOpSuccess(t *testing.T) {
	store := memory.NewStore()
	relationships := storage.NewRelationshipStore(store)
	ctx := context.Background()

	if err := relationships.Follow(ctx, "a", "b"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := relationships.Unfollow(ctx, "a", "b"); err != nil {
			t.Errorf("unfollow attempt %d: %v", i, err)
		}
		followees, err := relationships.FolloweesOf(ctx, "a")
		if err != nil {
			t.Fatalf("followees: %v", err)
		}
		if len(followees) != 0 {
			t.Errorf("attempt %d: got %d follow edges, want 0", i, len(followees))
		}
	}
}
