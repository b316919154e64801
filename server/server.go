package server

import (
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"photogram/monitoring"
	"photogram/storage"
	"photogram/storage/cache"
	"photogram/storage/models"
	"photogram/storage/query"
)

const DefaultTimelineLimit = 20
const uploadResultTimeout = 30 * time.Second

type Server struct {
	store         storage.Store
	posts         *storage.PostRepository
	likes         *storage.LikeStore
	relationships *storage.RelationshipStore
	timeline      *storage.TimelineService
	users         *cache.Users
	hub           *Hub

	addr string
}

// NewServer wires the HTTP surface. users may be nil; profile lookups
// then always hit the store.
func NewServer(
	store storage.Store,
	posts *storage.PostRepository,
	likes *storage.LikeStore,
	relationships *storage.RelationshipStore,
	timeline *storage.TimelineService,
	users *cache.Users,
	hub *Hub,
	addr string,
) *Server {
	return &Server{
		store:         store,
		posts:         posts,
		likes:         likes,
		relationships: relationships,
		timeline:      timeline,
		users:         users,
		hub:           hub,
		addr:          addr,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /timeline", s.getTimeline)
	mux.HandleFunc("POST /users", s.postUser)
	mux.HandleFunc("GET /users/{id}", s.getUserProfile)
	mux.HandleFunc("POST /posts", s.postPost)
	mux.HandleFunc("GET /posts/{id}/image", s.getPostImage)
	mux.HandleFunc("GET /posts/{id}/likes", s.getPostLikes)
	mux.HandleFunc("POST /like", s.postLike)
	mux.HandleFunc("POST /unlike", s.postUnlike)
	mux.HandleFunc("POST /follow", s.postFollow)
	mux.HandleFunc("POST /unfollow", s.postUnfollow)
	if s.hub != nil {
		mux.HandleFunc("GET /stream", s.getStream)
	}
	mux.Handle("/metrics", promhttp.Handler())
	return monitoring.NewPrometheusMiddleware(mux)
}

func (s *Server) Run() error {
	log.Infof("Listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()
	viewer := getQueryItem(queryParams, "viewer")
	if viewer == "" {
		sendError(w, http.StatusBadRequest, "missing viewer param")
		return
	}

	offset := int64(0)
	if offsetStr := getQueryItem(queryParams, "offset"); offsetStr != "" {
		parsed, err := strconv.ParseInt(offsetStr, 10, 64)
		if err != nil || parsed < 0 {
			sendError(w, http.StatusBadRequest, "invalid offset param")
			return
		}
		offset = parsed
	}

	limit := int64(DefaultTimelineLimit)
	if limitStr := getQueryItem(queryParams, "limit"); limitStr != "" {
		parsed, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil || parsed <= 0 {
			sendError(w, http.StatusBadRequest, "invalid limit param")
			return
		}
		limit = parsed
	}

	posts, err := s.timeline.Page(r.Context(), viewer, offset, limit)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "could not load timeline")
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	sendJson(w, map[string]any{"posts": posts})
}

func (s *Server) postUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Handle == "" {
		sendError(w, http.StatusBadRequest, "missing handle")
		return
	}

	user := models.User{
		ID:        uuid.NewString(),
		Handle:    body.Handle,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.PutUser(r.Context(), user); err != nil {
		sendError(w, http.StatusInternalServerError, "could not create user")
		return
	}
	sendJson(w, user)
}

// getUserProfile serves the handle and post count for a user, preferring
// the cached values the reconciler maintains.
func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	handle := ""
	if s.users != nil {
		if cached, ok := s.users.GetHandle(id); ok {
			handle = cached
		}
	}
	if handle == "" {
		user, err := s.store.GetUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				sendError(w, http.StatusNotFound, "user not found")
				return
			}
			sendError(w, http.StatusInternalServerError, "could not load user")
			return
		}
		handle = user.Handle
	}

	var count int64
	if s.users != nil {
		count = s.users.GetPostCount(id)
	}
	if count == 0 {
		stored, err := s.store.CountPosts(
			r.Context(),
			query.Eq{Field: storage.FieldPostOwnerID, Value: id},
		)
		if err != nil {
			sendError(w, http.StatusInternalServerError, "could not count posts")
			return
		}
		count = stored
	}

	sendJson(w, map[string]any{
		"id":         id,
		"handle":     handle,
		"post_count": count,
	})
}

// postPost accepts a multipart upload (fields "owner" and "image") and
// responds once the background upload reaches its terminal state.
func (s *Server) postPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		sendError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	ownerID := r.FormValue("owner")
	if ownerID == "" {
		sendError(w, http.StatusBadRequest, "missing owner field")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		sendError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		sendError(w, http.StatusBadRequest, "could not decode image")
		return
	}

	result := make(chan error, 1)
	post := s.posts.Create(r.Context(), ownerID, img, func(_ models.Post, err error) {
		result <- err
	})

	select {
	case err := <-result:
		if err != nil {
			sendError(w, http.StatusInternalServerError, "upload failed")
			return
		}
	case <-time.After(uploadResultTimeout):
		sendError(w, http.StatusGatewayTimeout, "upload timed out")
		return
	}

	if s.hub != nil {
		s.hub.PublishPost(r.Context(), post)
	}
	sendJson(w, post)
}

func (s *Server) getPostImage(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			sendError(w, http.StatusNotFound, "post not found")
			return
		}
		sendError(w, http.StatusInternalServerError, "could not load post")
		return
	}

	data, err := s.posts.ResolveImage(r.Context(), post)
	if err != nil {
		sendError(w, http.StatusInternalServerError, "could not resolve image")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

func (s *Server) getPostLikes(w http.ResponseWriter, r *http.Request) {
	users, err := s.likes.LikesFor(r.Context(), r.PathValue("id"))
	if err != nil {
		sendError(w, http.StatusInternalServerError, "could not load likes")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	sendJson(w, map[string]any{"users": users})
}

type likeBody struct {
	UserID string `json:"user_id"`
	PostID string `json:"post_id"`
}

func (s *Server) postLike(w http.ResponseWriter, r *http.Request) {
	var body likeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || body.PostID == "" {
		sendError(w, http.StatusBadRequest, "missing user_id or post_id")
		return
	}
	if err := s.likes.Like(r.Context(), body.UserID, body.PostID); err != nil {
		sendError(w, http.StatusInternalServerError, "could not like post")
		return
	}
	sendJson(w, map[string]string{"status": "ok"})
}

func (s *Server) postUnlike(w http.ResponseWriter, r *http.Request) {
	var body likeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || body.PostID == "" {
		sendError(w, http.StatusBadRequest, "missing user_id or post_id")
		return
	}
	if err := s.likes.Unlike(r.Context(), body.UserID, body.PostID); err != nil {
		sendError(w, http.StatusInternalServerError, "could not unlike post")
		return
	}
	sendJson(w, map[string]string{"status": "ok"})
}

type followBody struct {
	FollowerID string `json:"follower_id"`
	FolloweeID string `json:"followee_id"`
}

func (s *Server) postFollow(w http.ResponseWriter, r *http.Request) {
	var body followBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FollowerID == "" || body.FolloweeID == "" {
		sendError(w, http.StatusBadRequest, "missing follower_id or followee_id")
		return
	}
	if err := s.relationships.Follow(r.Context(), body.FollowerID, body.FolloweeID); err != nil {
		sendError(w, http.StatusInternalServerError, "could not follow user")
		return
	}
	sendJson(w, map[string]string{"status": "ok"})
}

func (s *Server) postUnfollow(w http.ResponseWriter, r *http.Request) {
	var body followBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FollowerID == "" || body.FolloweeID == "" {
		sendError(w, http.StatusBadRequest, "missing follower_id or followee_id")
		return
	}
	if err := s.relationships.Unfollow(r.Context(), body.FollowerID, body.FolloweeID); err != nil {
		sendError(w, http.StatusInternalServerError, "could not unfollow user")
		return
	}
	sendJson(w, map[string]string{"status": "ok"})
}
