package storage

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"photogram/keepalive"
	"photogram/monitoring"
	"photogram/storage/cache"
	"photogram/storage/models"
)

const jpegQuality = 80

// PostRepository creates posts and resolves their image payloads through
// a bounded read-through cache keyed by image name.
type PostRepository struct {
	store     Store
	blobs     BlobStore
	registry  *keepalive.Registry
	userStats *cache.Users

	images *lru.Cache[string, []byte]
	group  singleflight.Group
}

// NewPostRepository builds a repository whose image cache holds at most
// cacheCapacity entries. userStats may be nil.
func NewPostRepository(
	store Store,
	blobs BlobStore,
	registry *keepalive.Registry,
	userStats *cache.Users,
	cacheCapacity int,
) (*PostRepository, error) {
	images, err := lru.New[string, []byte](cacheCapacity)
	if err != nil {
		return nil, err
	}
	return &PostRepository{
		store:     store,
		blobs:     blobs,
		registry:  registry,
		userStats: userStats,
		images:    images,
	}, nil
}

// Create encodes img as JPEG, uploads the blob and persists the post
// record off the calling goroutine. done is invoked exactly once with the
// terminal result; a nil done makes the upload fire-and-forget. The
// keep-alive token guarantees Drain waits for the upload on shutdown.
func (r *PostRepository) Create(ctx context.Context, ownerID string, img image.Image, done func(models.Post, error)) models.Post {
	post := models.Post{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ImageName: uuid.NewString() + ".jpg",
		CreatedAt: time.Now().UTC(),
	}

	token := r.registry.Acquire("photo upload " + post.ImageName)
	monitoring.UploadsInFlight.Inc()

	// The upload outlives the caller; its token keeps shutdown waiting.
	uploadCtx := context.WithoutCancel(ctx)

	go func() {
		defer token.Release()
		defer monitoring.UploadsInFlight.Dec()

		err := r.upload(uploadCtx, post, img)
		if err == nil && r.userStats != nil {
			r.userStats.AddPost(ownerID)
		}
		if done != nil {
			done(post, err)
		}
	}()

	return post
}

func (r *PostRepository) upload(ctx context.Context, post models.Post, img image.Image) error {
	var buffer bytes.Buffer
	if err := jpeg.Encode(&buffer, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return err
	}
	if err := r.blobs.PutBlob(ctx, post.ImageName, buffer.Bytes()); err != nil {
		return err
	}
	return r.store.PutPost(ctx, post)
}

func (r *PostRepository) Get(ctx context.Context, id string) (models.Post, error) {
	return r.store.GetPost(ctx, id)
}

// ResolveImage returns the image bytes for post. Cached bytes are served
// directly; on a miss the blob store is queried once, concurrent misses
// for the same image collapse into a single fetch, and the result
// populates the cache. A failed fetch leaves the cache empty so the next
// call retries.
func (r *PostRepository) ResolveImage(ctx context.Context, post models.Post) ([]byte, error) {
	if data, ok := r.images.Get(post.ImageName); ok {
		monitoring.ImageCacheHits.Inc()
		return data, nil
	}
	monitoring.ImageCacheMisses.Inc()

	result, err, _ := r.group.Do(post.ImageName, func() (any, error) {
		data, err := r.blobs.GetBlob(ctx, post.ImageName)
		if err != nil {
			return nil, err
		}
		r.images.Add(post.ImageName, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// ClearImageCache drops every cached image.
func (r *PostRepository) ClearImageCache() {
	r.images.Purge()
}
