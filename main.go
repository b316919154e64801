package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"photogram/keepalive"
	"photogram/server"
	"photogram/storage"
	"photogram/storage/cache"
	"photogram/storage/mongodb"
	"photogram/tasks"
	"photogram/utils"
)

func runBackgroundTasks(reconciler *tasks.Reconciler) {
	go utils.Recoverer(math.MaxInt, 1, func() {
		reconciler.Run()
	})
}

func main() {
	logLevel, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = log.InfoLevel
	}
	log.SetLevel(logLevel)

	ctx := context.Background()
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		panic(err)
	}
	database := client.Database("photogram")

	store := mongodb.NewStore(database)
	if err := store.EnsureIndexes(ctx); err != nil {
		panic(err)
	}
	blobs, err := mongodb.NewBlobStore(database)
	if err != nil {
		panic(err)
	}

	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", redisHost, redisPort),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	countersExpiration := utils.IntFromString(
		os.Getenv("COUNTERS_CACHE_EXPIRATION_MINUTES"), 1080,
	)
	likeCounts := cache.NewLikeCounts(
		redisClient,
		time.Duration(countersExpiration)*time.Minute,
	)
	userStats := cache.NewUsers(
		redisClient,
		time.Duration(countersExpiration)*time.Minute,
	)

	uploadDeadline := utils.IntFromString(
		os.Getenv("UPLOAD_DEADLINE_SECONDS"), 180,
	)
	registry := keepalive.NewRegistry(time.Duration(uploadDeadline) * time.Second)

	imageCacheCapacity := utils.IntFromString(
		os.Getenv("IMAGE_CACHE_CAPACITY"), 512,
	)
	posts, err := storage.NewPostRepository(store, blobs, registry, userStats, imageCacheCapacity)
	if err != nil {
		panic(err)
	}

	relationships := storage.NewRelationshipStore(store)
	likes := storage.NewLikeStore(store, likeCounts)
	timeline := storage.NewTimelineService(store, relationships)
	hub := server.NewHub(redisClient, relationships)

	reconcileInterval := utils.IntFromString(
		os.Getenv("RECONCILE_INTERVAL_MINUTES"), 15,
	)
	reconciler := tasks.NewReconciler(
		store,
		likeCounts,
		userStats,
		time.Duration(reconcileInterval)*time.Minute,
	)
	runBackgroundTasks(reconciler)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":3333"
	}
	s := server.NewServer(store, posts, likes, relationships, timeline, userStats, hub, addr)

	go func() {
		if err := s.Run(); err != nil {
			log.Errorf("Server exited: %v", err)
			os.Exit(1)
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	// Let in-flight uploads finish before going down.
	drainCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := registry.Drain(drainCtx); err != nil {
		log.Warningf("Shutdown with %d uploads still in flight: %v", registry.Active(), err)
	}
}
