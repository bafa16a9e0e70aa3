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

	"konnekt/internal/cache"
	"konnekt/internal/config"
	"konnekt/internal/database"
	"konnekt/internal/graph"
	"konnekt/internal/handler"
	"konnekt/internal/metrics"
	"konnekt/internal/mirror"
	"konnekt/internal/notification"
	"konnekt/internal/queue"
	"konnekt/internal/redis"
	"konnekt/internal/repository"
	"konnekt/internal/service"
	authmw "konnekt/internal/transport/http/middleware"
	"konnekt/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// 3. Connect to Redis
	rc, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := rc.Ping(ctx); err != nil {
		return err
	}

	// 4. Connect to Neo4j. The mirror degrades on failure, so an unreachable
	// graph at startup is logged rather than fatal.
	gc, err := graph.NewClient(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		return err
	}
	defer gc.Close(context.Background())

	writer := mirror.NewNeo4jWriter(gc.Driver)
	if err := gc.VerifyConnectivity(ctx); err != nil {
		log.Printf("[Server] Graph store unavailable, mirror writes will be queued: %v", err)
	} else if err := writer.EnsureSchema(ctx); err != nil {
		log.Printf("[Server] EnsureSchema FAILED: %v", err)
	}

	metrics.InitPrometheus()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendshipRepository(db)
	followRepo := repository.NewFollowRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	contentRepo := repository.NewContentRepository(db)
	viewRepo := repository.NewViewRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	tx := repository.NewTransactor(db)

	// Cache, mirror and outbox
	counter := cache.NewCounter(rc.Client, cfg.CounterTTL)
	publisher := queue.NewPublisher(rc.Client)
	dispatcher := mirror.NewDispatcher(writer, publisher, cfg.MirrorTimeout, cfg.MirrorMaxRetries).
		WithSource(service.NewMirrorSource(friendRepo, followRepo, reactionRepo))

	managerCfg := worker.DefaultManagerConfig()
	managerCfg.WorkerCount = cfg.WorkerCount
	manager := worker.NewManager(queue.NewConsumer(rc.Client), publisher, worker.NewHandler(dispatcher), managerCfg)
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start mirror workers: %w", err)
	}
	defer manager.Stop()

	// Notifications
	sinks := []notification.Sink{notification.NewStoreSink(notifRepo, counter)}
	if cfg.NATSURL != "" {
		natsSink, err := notification.NewNATSSink(cfg.NATSURL)
		if err != nil {
			log.Printf("[Server] NATS sink disabled: %v", err)
		} else {
			defer natsSink.Close()
			sinks = append(sinks, natsSink)
		}
	}
	notifier := notification.NewFanout(sinks...)

	// Services
	friendService := service.NewFriendshipService(friendRepo, followRepo, userRepo, tx, counter, dispatcher, notifier)
	followService := service.NewFollowService(followRepo, friendRepo, userRepo, tx, counter, dispatcher, notifier)
	reactionService := service.NewReactionService(reactionRepo, contentRepo, tx, counter, counter, dispatcher, notifier)
	engagementService := service.NewEngagementService(viewRepo, contentRepo, counter, dispatcher, notifier)
	notifService := service.NewNotificationService(notifRepo, counter)
	discoveryService := service.NewDiscoveryService(mirror.NewNeo4jReader(gc.Driver), mirror.DefaultRanker(), userRepo, dispatcher)

	limiter := authmw.NewRateLimiter(cfg.ActionsPerSecond, cfg.ActionBurst)
	go limiter.Cleanup(ctx)

	router := NewRouter(RouterConfig{
		FriendshipHandler:   handler.NewFriendshipHandler(friendService),
		FollowHandler:       handler.NewFollowHandler(followService),
		ReactionHandler:     handler.NewReactionHandler(reactionService),
		EngagementHandler:   handler.NewEngagementHandler(engagementService),
		NotificationHandler: handler.NewNotificationHandler(notifService),
		DiscoveryHandler:    handler.NewDiscoveryHandler(discoveryService),
		RateLimiter:         limiter,
		JWTSecret:           cfg.JWTSecret,
	})

	// 5. Serve until signalled
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Println("Server stopped")
	return nil
}
