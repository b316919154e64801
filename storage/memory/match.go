package memory

import (
	"sort"
	"time"

	"photogram/storage"
	"photogram/storage/models"
	"photogram/storage/query"
)

func userFields(user models.User) map[string]any {
	return map[string]any{
		storage.FieldID:        user.ID,
		storage.FieldHandle:    user.Handle,
		storage.FieldCreatedAt: user.CreatedAt,
	}
}

func postFields(post models.Post) map[string]any {
	return map[string]any{
		storage.FieldID:          post.ID,
		storage.FieldPostOwnerID: post.OwnerID,
		storage.FieldCreatedAt:   post.CreatedAt,
	}
}

func likeFields(like models.Like) map[string]any {
	return map[string]any{
		storage.FieldID:             like.ID,
		storage.FieldLikeFromUserID: like.FromUserID,
		storage.FieldLikePostID:     like.PostID,
		storage.FieldCreatedAt:      like.CreatedAt,
	}
}

func followFields(follow models.Follow) map[string]any {
	return map[string]any{
		storage.FieldID:               follow.ID,
		storage.FieldFollowFromUserID: follow.FromUserID,
		storage.FieldFollowToUserID:   follow.ToUserID,
		storage.FieldCreatedAt:        follow.CreatedAt,
	}
}

// match evaluates a predicate tree against a document's field map. A nil
// predicate matches everything.
func match(fields map[string]any, predicate query.Predicate) bool {
	switch p := predicate.(type) {
	case nil:
		return true
	case query.Eq:
		return equal(fields[p.Field], p.Value)
	case query.In:
		for _, value := range p.Values {
			if equal(fields[p.Field], value) {
				return true
			}
		}
		return false
	case query.Or:
		for _, sub := range p {
			if match(fields, sub) {
				return true
			}
		}
		return false
	case query.And:
		for _, sub := range p {
			if !match(fields, sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func equal(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return a == b
}

func compare(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	default:
		return 0
	}
}

func sortSlice[T any](items []T, keys []query.Sort, fields func(T) map[string]any) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		fi, fj := fields(items[i]), fields(items[j])
		for _, key := range keys {
			c := compare(fi[key.Field], fj[key.Field])
			if c == 0 {
				continue
			}
			if key.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func window[T any](items []T, spec query.Spec) []T {
	if spec.Skip > 0 {
		if spec.Skip >= int64(len(items)) {
			return nil
		}
		items = items[spec.Skip:]
	}
	if spec.Limit > 0 && spec.Limit < int64(len(items)) {
		items = items[:spec.Limit]
	}
	return items
}

func resolves(spec query.Spec, key string) bool {
	for _, resolve := range spec.Resolve {
		if resolve == key {
			return true
		}
	}
	return false
}
