package storage_test

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"photogram/keepalive"
	"photogram/storage"
	"photogram/storage/memory"
	"photogram/storage/models"
)

// countingBlobStore counts blob fetches so tests can assert the
// read-through cache behavior.
type countingBlobStore struct {
	*memory.Store
	fetches atomic.Int64
}

func (c *countingBlobStore) GetBlob(ctx context.Context, name string) ([]byte, error) {
	c.fetches.Add(1)
	return c.Store.GetBlob(ctx, name)
}

func newPostRepository(t *testing.T) (*memory.Store, *countingBlobStore, *keepalive.Registry, *storage.PostRepository) {
	t.Helper()
	store := memory.NewStore()
	blobs := &countingBlobStore{Store: store}
	registry := keepalive.NewRegistry(0)
	repository, err := storage.NewPostRepository(store, blobs, registry, nil, 16)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	return store, blobs, registry, repository
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 8, 8))
}

func TestCreatePersistsPostAndBlob(t *testing.T) {
	store, _, registry, repository := newPostRepository(t)
	ctx := context.Background()

	done := make(chan error, 1)
	post := repository.Create(ctx, "u1", testImage(), func(_ models.Post, err error) {
		done <- err
	})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("upload never reached a terminal state")
	}

	stored, err := repository.Get(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if stored.OwnerID != "u1" {
		t.Errorf("got owner %q, want u1", stored.OwnerID)
	}
	if _, err := store.GetBlob(ctx, post.ImageName); err != nil {
		t.Errorf("blob missing after upload: %v", err)
	}

	// The keep-alive token must be released once the upload completes.
	deadline := time.Now().Add(time.Second)
	for registry.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("keep-alive token never released")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestResolveImageFetchesOnce(t *testing.T) {
	_, blobs, _, repository := newPostRepository(t)
	ctx := context.Background()

	done := make(chan error, 1)
	post := repository.Create(ctx, "u1", testImage(), func(_ models.Post, err error) {
		done <- err
	})
	if err := <-done; err != nil {
		t.Fatalf("upload: %v", err)
	}

	first, err := repository.ResolveImage(ctx, post)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("got empty image bytes")
	}
	if got := blobs.fetches.Load(); got != 1 {
		t.Fatalf("got %d fetches after first resolve, want 1", got)
	}

	second, err := repository.ResolveImage(ctx, post)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := blobs.fetches.Load(); got != 1 {
		t.Errorf("got %d fetches after cached resolve, want 1", got)
	}
	if string(first) != string(second) {
		t.Error("cached bytes differ from fetched bytes")
	}
}

func TestResolveImageFailureIsRetryable(t *testing.T) {
	store, blobs, _, repository := newPostRepository(t)
	ctx := context.Background()

	post := models.Post{ID: "p1", OwnerID: "u1", ImageName: "missing.jpg"}
	if _, err := repository.ResolveImage(ctx, post); err == nil {
		t.Fatal("expected an error for a missing blob")
	}

	if err := store.PutBlob(ctx, "missing.jpg", []byte("jpeg-bytes")); err != nil {
		t.Fatalf("put blob: %v", err)
	}
	data, err := repository.ResolveImage(ctx, post)
	if err != nil {
		t.Fatalf("resolve after blob appeared: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("got %q, want jpeg-bytes", data)
	}
	if got := blobs.fetches.Load(); got != 2 {
		t.Errorf("got %d fetches, want 2 (failed + retried)", got)
	}
}

func TestClearImageCache(t *testing.T) {
	_, blobs, _, repository := newPostRepository(t)
	ctx := context.Background()

	done := make(chan error, 1)
	post := repository.Create(ctx, "u1", testImage(), func(_ models.Post, err error) {
		done <- err
	})
	if err := <-done; err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := repository.ResolveImage(ctx, post); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	repository.ClearImageCache()
	if _, err := repository.ResolveImage(ctx, post); err != nil {
		t.Fatalf("resolve after clear: %v", err)
	}
	if got := blobs.fetches.Load(); got != 2 {
		t.Errorf("got %d fetches, want 2 after cache clear", got)
	}
}
