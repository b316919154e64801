package feed

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"photogram/observable"
	"photogram/storage"
	"photogram/storage/models"
)

// PostView wraps a post for display: image bytes and the liker list are
// observable values a surface binds to, populated lazily per item.
type PostView struct {
	Post  models.Post
	Image *observable.Value[[]byte]
	Likes *observable.Value[[]models.User]

	posts *storage.PostRepository
	likes *storage.LikeStore

	mu             sync.Mutex
	resolvingImage bool
	fetchingLikes  bool
}

func NewPostView(post models.Post, posts *storage.PostRepository, likes *storage.LikeStore) *PostView {
	return &PostView{
		Post:  post,
		Image: observable.New[[]byte](),
		Likes: observable.New[[]models.User](),
		posts: posts,
		likes: likes,
	}
}

func NewPostViews(posts []models.Post, repository *storage.PostRepository, likes *storage.LikeStore) []*PostView {
	views := make([]*PostView, len(posts))
	for i, post := range posts {
		views[i] = NewPostView(post, repository, likes)
	}
	return views
}

// ResolveImage populates Image off the calling goroutine. Once bytes are
// present, or while a resolution is running, it is a no-op. A failed
// resolution resets so the next render attempt retries.
func (v *PostView) ResolveImage(ctx context.Context) {
	v.mu.Lock()
	if v.resolvingImage {
		v.mu.Unlock()
		return
	}
	if _, ok := v.Image.Get(); ok {
		v.mu.Unlock()
		return
	}
	v.resolvingImage = true
	v.mu.Unlock()

	go func() {
		data, err := v.posts.ResolveImage(ctx, v.Post)

		v.mu.Lock()
		v.resolvingImage = false
		v.mu.Unlock()

		if err != nil {
			log.Errorf("Error resolving image for post %s: %v", v.Post.ID, err)
			return
		}
		v.Image.Set(data)
	}()
}

// FetchLikes populates Likes once; later calls are no-ops.
func (v *PostView) FetchLikes(ctx context.Context) {
	v.mu.Lock()
	if v.fetchingLikes {
		v.mu.Unlock()
		return
	}
	if _, ok := v.Likes.Get(); ok {
		v.mu.Unlock()
		return
	}
	v.fetchingLikes = true
	v.mu.Unlock()

	go func() {
		users, err := v.likes.LikesFor(ctx, v.Post.ID)

		v.mu.Lock()
		v.fetchingLikes = false
		v.mu.Unlock()

		if err != nil {
			log.Errorf("Error fetching likes for post %s: %v", v.Post.ID, err)
			return
		}
		v.Likes.Set(users)
	}()
}

func (v *PostView) LikedBy(user models.User) bool {
	users, _ := v.Likes.Get()
	for _, u := range users {
		if u.ID == user.ID {
			return true
		}
	}
	return false
}

// ToggleLike applies the like or unlike locally first, then issues the
// remote write; on failure the local change is reverted and onErr (if
// non-nil) is called. The local list therefore never diverges silently
// from the backend.
func (v *PostView) ToggleLike(ctx context.Context, user models.User, onErr func(error)) {
	if v.LikedBy(user) {
		v.removeLiker(user)
		go func() {
			if err := v.likes.Unlike(ctx, user.ID, v.Post.ID); err != nil {
				log.Errorf("Error unliking post %s: %v", v.Post.ID, err)
				v.addLiker(user)
				if onErr != nil {
					onErr(err)
				}
			}
		}()
		return
	}

	v.addLiker(user)
	go func() {
		if err := v.likes.Like(ctx, user.ID, v.Post.ID); err != nil {
			log.Errorf("Error liking post %s: %v", v.Post.ID, err)
			v.removeLiker(user)
			if onErr != nil {
				onErr(err)
			}
		}
	}()
}

// addLiker and removeLiker call Set outside the critical section so a
// subscriber may re-enter the view without deadlocking.
func (v *PostView) addLiker(user models.User) {
	v.mu.Lock()
	users, _ := v.Likes.Get()
	for _, u := range users {
		if u.ID == user.ID {
			v.mu.Unlock()
			return
		}
	}
	updated := make([]models.User, 0, len(users)+1)
	updated = append(updated, users...)
	updated = append(updated, user)
	v.mu.Unlock()

	v.Likes.Set(updated)
}

func (v *PostView) removeLiker(user models.User) {
	v.mu.Lock()
	users, ok := v.Likes.Get()
	if !ok {
		v.mu.Unlock()
		return
	}
	kept := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID != user.ID {
			kept = append(kept, u)
		}
	}
	v.mu.Unlock()

	v.Likes.Set(kept)
}
