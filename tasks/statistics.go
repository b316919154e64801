package tasks

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"photogram/storage"
	"photogram/storage/cache"
	"photogram/storage/query"
)

const reconcileRecentPosts = 500

// Reconciler periodically recomputes the denormalized Redis counters from
// the store. The counters are bumped optimistically on every like and
// post; this corrects whatever drift those best-effort updates leave.
type Reconciler struct {
	store      storage.Store
	likeCounts *cache.LikeCounts
	users      *cache.Users
	interval   time.Duration
}

func NewReconciler(
	store storage.Store,
	likeCounts *cache.LikeCounts,
	users *cache.Users,
	interval time.Duration,
) *Reconciler {
	return &Reconciler{
		store:      store,
		likeCounts: likeCounts,
		users:      users,
		interval:   interval,
	}
}

func (r *Reconciler) Run() {
	for {
		select {
		case <-time.After(r.interval):
			r.reconcile()
		}
	}
}

func (r *Reconciler) reconcile() {
	ctx := context.Background()

	posts, err := r.store.FindPosts(ctx, query.Spec{
		Sort:  []query.Sort{{Field: storage.FieldCreatedAt, Descending: true}},
		Limit: reconcileRecentPosts,
	})
	if err != nil {
		log.Errorf("Error loading posts for reconciliation: %v", err)
		return
	}
	for _, post := range posts {
		count, err := r.store.CountLikes(
			ctx,
			query.Eq{Field: storage.FieldLikePostID, Value: post.ID},
		)
		if err != nil {
			log.Errorf("Error counting likes for post %s: %v", post.ID, err)
			continue
		}
		r.likeCounts.Set(post.ID, count)
	}

	users, err := r.store.FindUsers(ctx, query.Spec{})
	if err != nil {
		log.Errorf("Error loading users for reconciliation: %v", err)
		return
	}
	for _, user := range users {
		count, err := r.store.CountPosts(
			ctx,
			query.Eq{Field: storage.FieldPostOwnerID, Value: user.ID},
		)
		if err != nil {
			log.Errorf("Error counting posts for user %s: %v", user.ID, err)
			continue
		}
		r.users.SetPostCount(user.ID, count)
		r.users.SetHandle(user.ID, user.Handle)
	}
}
