// Package memory provides an embedded storage.Store and storage.BlobStore
// backed by process memory. It implements the same query semantics as the
// MongoDB adapter and is suitable for tests and single-process setups.
package memory

import (
	"context"
	"sync"

	"photogram/storage"
	"photogram/storage/models"
	"photogram/storage/query"
)

type Store struct {
	mu      sync.RWMutex
	users   map[string]models.User
	posts   map[string]models.Post
	likes   []models.Like
	follows []models.Follow
	blobs   map[string][]byte
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]models.User),
		posts: make(map[string]models.Post),
		blobs: make(map[string][]byte),
	}
}

// Users

func (s *Store) PutUser(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) FindUsers(_ context.Context, spec query.Spec) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.User
	for _, user := range s.users {
		if match(userFields(user), spec.Where) {
			result = append(result, user)
		}
	}
	sortSlice(result, spec.Sort, userFields)
	return window(result, spec), nil
}

// Posts

func (s *Store) PutPost(_ context.Context, post models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.Owner = nil
	s.posts[post.ID] = post
	return nil
}

func (s *Store) GetPost(_ context.Context, id string) (models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[id]
	if !ok {
		return models.Post{}, storage.ErrNotFound
	}
	return post, nil
}

func (s *Store) FindPosts(_ context.Context, spec query.Spec) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Post
	for _, post := range s.posts {
		if match(postFields(post), spec.Where) {
			result = append(result, post)
		}
	}
	sortSlice(result, spec.Sort, postFields)
	result = window(result, spec)

	if resolves(spec, storage.ResolveOwner) {
		for i := range result {
			if owner, ok := s.users[result[i].OwnerID]; ok {
				result[i].Owner = &owner
			}
		}
	}
	return result, nil
}

func (s *Store) CountPosts(_ context.Context, where query.Predicate) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, post := range s.posts {
		if match(postFields(post), where) {
			count++
		}
	}
	return count, nil
}

// Likes

func (s *Store) PutLike(_ context.Context, like models.Like) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.likes {
		if existing.FromUserID == like.FromUserID && existing.PostID == like.PostID {
			return false, nil
		}
	}
	like.FromUser = nil
	s.likes = append(s.likes, like)
	return true, nil
}

func (s *Store) DeleteLikes(_ context.Context, fromUserID, postID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	kept := s.likes[:0]
	for _, like := range s.likes {
		if like.FromUserID == fromUserID && like.PostID == postID {
			deleted++
			continue
		}
		kept = append(kept, like)
	}
	s.likes = kept
	return deleted, nil
}

func (s *Store) FindLikes(_ context.Context, spec query.Spec) ([]models.Like, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Like
	for _, like := range s.likes {
		if match(likeFields(like), spec.Where) {
			result = append(result, like)
		}
	}
	sortSlice(result, spec.Sort, likeFields)
	result = window(result, spec)

	if resolves(spec, storage.ResolveFromUser) {
		for i := range result {
			if user, ok := s.users[result[i].FromUserID]; ok {
				result[i].FromUser = &user
			}
		}
	}
	return result, nil
}

func (s *Store) CountLikes(_ context.Context, where query.Predicate) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, like := range s.likes {
		if match(likeFields(like), where) {
			count++
		}
	}
	return count, nil
}

// Follows

func (s *Store) PutFollow(_ context.Context, follow models.Follow) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.follows {
		if existing.FromUserID == follow.FromUserID && existing.ToUserID == follow.ToUserID {
			return false, nil
		}
	}
	s.follows = append(s.follows, follow)
	return true, nil
}

func (s *Store) DeleteFollows(_ context.Context, fromUserID, toUserID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	kept := s.follows[:0]
	for _, follow := range s.follows {
		if follow.FromUserID == fromUserID && follow.ToUserID == toUserID {
			deleted++
			continue
		}
		kept = append(kept, follow)
	}
	s.follows = kept
	return deleted, nil
}

func (s *Store) FindFollows(_ context.Context, spec query.Spec) ([]models.Follow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Follow
	for _, follow := range s.follows {
		if match(followFields(follow), spec.Where) {
			result = append(result, follow)
		}
	}
	sortSlice(result, spec.Sort, followFields)
	return window(result, spec), nil
}

// Blobs

func (s *Store) PutBlob(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.blobs[name] = copied
	return nil
}

func (s *Store) GetBlob(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	// Callers must not be able to mutate the stored bytes.
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// DeleteUser removes a user record, leaving any edges referencing it in
// place. Useful for exercising tombstone tolerance.
func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}
