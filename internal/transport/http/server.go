package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghostpic/internal/cache"
	"ghostpic/internal/config"
	"ghostpic/internal/database"
	"ghostpic/internal/handler"
	"ghostpic/internal/queue"
	"ghostpic/internal/redis"
	"ghostpic/internal/repository"
	"ghostpic/internal/service"
	"ghostpic/internal/worker"
)

const (
	shutdownTimeout    = 10 * time.Second
	tokenPruneInterval = time.Hour
	// expired refresh tokens are kept a day for reuse detection
	tokenRetention = 24 * time.Hour
)

type stores struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
	posts  repository.PostRepository
	votes  repository.VoteRepository
	close  func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &stores{
			users:  repository.NewUserRepository(db),
			tokens: repository.NewRefreshTokenRepository(db),
			posts:  repository.NewPostRepository(db),
			votes:  repository.NewVoteRepository(db),
			close:  func() { db.Close() },
		}, nil

	case config.StoreDriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &stores{
			users:  repository.NewMongoUserRepository(db),
			tokens: repository.NewMongoRefreshTokenRepository(db),
			posts:  repository.NewMongoPostRepository(db),
			votes:  repository.NewMongoVoteRepository(db),
			close:  func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func Run() error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to the store
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// 3. Optional Redis: event stream, trending projection and workers
	var (
		publisher queue.Publisher
		trending  cache.TrendingCache
		workers   *worker.Manager
	)
	if cfg.RedisURL != "" {
		rc, err := redis.Connect(ctx, cfg.RedisURL, cfg.StoreTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rc.Close()
		log.Println("Connected to Redis")

		publisher = queue.NewPublisher(rc.Client)
		trending = cache.NewTrendingCache(rc.Client)

		workerCfg := worker.DefaultManagerConfig()
		workerCfg.WorkerCount = cfg.WorkerCount
		workers = worker.NewManager(queue.NewConsumer(rc.Client), worker.NewHandler(trending, st.posts), workerCfg)
		if err := workers.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer workers.Stop()
	} else {
		log.Println("REDIS_URL not set: post events and trending hashtags disabled")
	}

	// 4. Services
	mediaService, err := service.NewMediaService(ctx, cfg)
	if err != nil {
		return err
	}
	userService := service.NewUserService(st.users, cfg)
	authService := service.NewAuthService(st.tokens, st.users, cfg)
	postService := service.NewPostService(st.posts, st.votes, publisher, cfg)

	go pruneTokens(ctx, authService)

	// 5. Routes
	var trendingSource handler.TrendingSource
	if trending != nil {
		trendingSource = trending
	}
	router := NewRouter(RouterConfig{
		AuthHandler:       handler.NewAuthHandler(userService, authService),
		UserHandler:       handler.NewUserHandler(userService),
		PostHandler:       handler.NewPostHandler(postService, mediaService),
		MediaHandler:      handler.NewMediaHandler(mediaService),
		DiscoveryHandler:  handler.NewDiscoveryHandler(trendingSource, service.NewCaptionService()),
		JWTSecret:         cfg.JWTSecret,
		AllowWalletHeader: cfg.AllowWalletHeader,
	})

	server := &stdhttp.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s (store=%s)", cfg.ServerPort, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

func pruneTokens(ctx context.Context, auth *service.AuthService) {
	ticker := time.NewTicker(tokenPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := auth.PruneExpired(ctx, tokenRetention); err != nil {
				log.Printf("[TokenPruner] prune FAILED: %v", err)
			}
		}
	}
}
