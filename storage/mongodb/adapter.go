// Package mongodb adapts the storage interfaces to a MongoDB database:
// collections for users, posts and edges, GridFS for image blobs.
package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"photogram/storage"
	"photogram/storage/models"
	"photogram/storage/query"
)

const (
	UsersCollection   = "users"
	PostsCollection   = "posts"
	LikesCollection   = "likes"
	FollowsCollection = "follows"
)

type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates the unique edge indexes backing idempotent
// like/follow inserts, plus the timeline sort index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(LikesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: storage.FieldLikeFromUserID, Value: 1},
			{Key: storage.FieldLikePostID, Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(FollowsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: storage.FieldFollowFromUserID, Value: 1},
			{Key: storage.FieldFollowToUserID, Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(PostsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: storage.FieldPostOwnerID, Value: 1},
			{Key: storage.FieldCreatedAt, Value: -1},
		},
	})
	return err
}

// Users

func (s *Store) PutUser(ctx context.Context, user models.User) error {
	_, err := s.db.Collection(UsersCollection).ReplaceOne(
		ctx,
		bson.D{{Key: storage.FieldID, Value: user.ID}},
		user,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.db.Collection(UsersCollection).FindOne(
		ctx,
		bson.D{{Key: storage.FieldID, Value: id}},
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, storage.ErrNotFound
	}
	return user, err
}

func (s *Store) FindUsers(ctx context.Context, spec query.Spec) ([]models.User, error) {
	var users []models.User
	if err := s.find(ctx, UsersCollection, spec, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Posts

func (s *Store) PutPost(ctx context.Context, post models.Post) error {
	_, err := s.db.Collection(PostsCollection).ReplaceOne(
		ctx,
		bson.D{{Key: storage.FieldID, Value: post.ID}},
		post,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *Store) GetPost(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	err := s.db.Collection(PostsCollection).FindOne(
		ctx,
		bson.D{{Key: storage.FieldID, Value: id}},
	).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Post{}, storage.ErrNotFound
	}
	return post, err
}

func (s *Store) FindPosts(ctx context.Context, spec query.Spec) ([]models.Post, error) {
	var posts []models.Post
	if err := s.find(ctx, PostsCollection, spec, &posts); err != nil {
		return nil, err
	}
	if resolves(spec, storage.ResolveOwner) {
		if err := s.resolveOwners(ctx, posts); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *Store) CountPosts(ctx context.Context, where query.Predicate) (int64, error) {
	return s.db.Collection(PostsCollection).CountDocuments(ctx, compilePredicate(where))
}

// Likes

func (s *Store) PutLike(ctx context.Context, like models.Like) (bool, error) {
	return edgeCreated(s.db.Collection(LikesCollection).UpdateOne(
		ctx,
		bson.M{
			storage.FieldLikeFromUserID: like.FromUserID,
			storage.FieldLikePostID:     like.PostID,
		},
		bson.M{
			"$setOnInsert": bson.M{
				storage.FieldID:             like.ID,
				storage.FieldLikeFromUserID: like.FromUserID,
				storage.FieldLikePostID:     like.PostID,
				storage.FieldCreatedAt:      like.CreatedAt,
			},
		},
		options.Update().SetUpsert(true),
	))
}

func (s *Store) DeleteLikes(ctx context.Context, fromUserID, postID string) (int64, error) {
	result, err := s.db.Collection(LikesCollection).DeleteMany(
		ctx,
		bson.M{
			storage.FieldLikeFromUserID: fromUserID,
			storage.FieldLikePostID:     postID,
		},
	)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *Store) FindLikes(ctx context.Context, spec query.Spec) ([]models.Like, error) {
	var likes []models.Like
	if err := s.find(ctx, LikesCollection, spec, &likes); err != nil {
		return nil, err
	}
	if resolves(spec, storage.ResolveFromUser) {
		if err := s.resolveLikeUsers(ctx, likes); err != nil {
			return nil, err
		}
	}
	return likes, nil
}

func (s *Store) CountLikes(ctx context.Context, where query.Predicate) (int64, error) {
	return s.db.Collection(LikesCollection).CountDocuments(ctx, compilePredicate(where))
}

// Follows

func (s *Store) PutFollow(ctx context.Context, follow models.Follow) (bool, error) {
	return edgeCreated(s.db.Collection(FollowsCollection).UpdateOne(
		ctx,
		bson.M{
			storage.FieldFollowFromUserID: follow.FromUserID,
			storage.FieldFollowToUserID:   follow.ToUserID,
		},
		bson.M{
			"$setOnInsert": bson.M{
				storage.FieldID:               follow.ID,
				storage.FieldFollowFromUserID: follow.FromUserID,
				storage.FieldFollowToUserID:   follow.ToUserID,
				storage.FieldCreatedAt:        follow.CreatedAt,
			},
		},
		options.Update().SetUpsert(true),
	))
}

// edgeCreated maps an upsert result to the insert contract. Two
// concurrent first inserts race under the unique index; the loser's
// duplicate-key error means the edge already exists, not a failure.
func edgeCreated(result *mongo.UpdateResult, err error) (bool, error) {
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return result.UpsertedCount > 0, nil
}

func (s *Store) DeleteFollows(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	result, err := s.db.Collection(FollowsCollection).DeleteMany(
		ctx,
		bson.M{
			storage.FieldFollowFromUserID: fromUserID,
			storage.FieldFollowToUserID:   toUserID,
		},
	)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *Store) FindFollows(ctx context.Context, spec query.Spec) ([]models.Follow, error) {
	var follows []models.Follow
	if err := s.find(ctx, FollowsCollection, spec, &follows); err != nil {
		return nil, err
	}
	return follows, nil
}

func (s *Store) find(ctx context.Context, collection string, spec query.Spec, results any) error {
	opts := options.Find()
	if len(spec.Sort) > 0 {
		opts.SetSort(compileSort(spec.Sort))
	}
	if spec.Skip > 0 {
		opts.SetSkip(spec.Skip)
	}
	if spec.Limit > 0 {
		opts.SetLimit(spec.Limit)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, compilePredicate(spec.Where), opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}

// resolveOwners attaches user records to posts with a single $in lookup,
// avoiding one query per rendered post.
func (s *Store) resolveOwners(ctx context.Context, posts []models.Post) error {
	ids := make([]any, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.OwnerID)
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		if user, ok := users[posts[i].OwnerID]; ok {
			owner := user
			posts[i].Owner = &owner
		}
	}
	return nil
}

func (s *Store) resolveLikeUsers(ctx context.Context, likes []models.Like) error {
	ids := make([]any, 0, len(likes))
	for _, like := range likes {
		ids = append(ids, like.FromUserID)
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return err
	}
	for i := range likes {
		if user, ok := users[likes[i].FromUserID]; ok {
			fromUser := user
			likes[i].FromUser = &fromUser
		}
	}
	return nil
}

func (s *Store) usersByID(ctx context.Context, ids []any) (map[string]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.db.Collection(UsersCollection).Find(
		ctx,
		bson.M{storage.FieldID: bson.M{"$in": ids}},
	)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	return byID, nil
}

func resolves(spec query.Spec, key string) bool {
	for _, resolve := range spec.Resolve {
		if resolve == key {
			return true
		}
	}
	return false
}
