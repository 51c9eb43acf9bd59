package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/content"
	"github.com/mrlokans/learncard/internal/database"
	"github.com/mrlokans/learncard/internal/database/books"
	dbevents "github.com/mrlokans/learncard/internal/database/events"
	"github.com/mrlokans/learncard/internal/database/localprogress"
	"github.com/mrlokans/learncard/internal/database/userprogress"
	"github.com/mrlokans/learncard/internal/database/users"
	"github.com/mrlokans/learncard/internal/events"
	http_controllers "github.com/mrlokans/learncard/internal/http"
	"github.com/mrlokans/learncard/internal/localstore"
	"github.com/mrlokans/learncard/internal/scheduler"
	"github.com/mrlokans/learncard/internal/session"
	"github.com/mrlokans/learncard/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the server until SIGINT or SIGTERM, then shuts down within the
// configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if onShutdown != nil {
			onShutdown(context.Background())
		}
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	log.Printf("Shutdown Server, waiting %v before killing", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before the queue goes away, so logouts in
	// flight can still enqueue their push.
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
	return nil
}

// Run wires the application from cfg and serves it.
func Run(cfg *config.Config, version string) error {
	log.Printf("Starting learncard v%s", version)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	provider, err := content.NewProvider(books.NewRepository(db.DB), cfg.Content.WordsCacheSize, cfg.Content.MaxWordsPerBook)
	if err != nil {
		return err
	}

	routerCfg := http_controllers.RouterConfig{
		Database:   db,
		Content:    provider,
		AuthConfig: cfg.Auth,
		Version:    version,
	}

	if cfg.Auth.Mode != config.AuthModeLocal {
		log.Printf("Authentication mode: none (catalog only, progress is not tracked)")
		return Serve(http_controllers.NewRouter(routerCfg), cfg, nil)
	}
	log.Printf("Authentication mode: local")

	// Event log
	var eventsSvc *events.Service
	if cfg.Events.Enabled {
		eventsSvc = events.NewService(dbevents.NewRepository(db.DB))
	}

	// Progress: the server table and the per-user client store
	serverProgress := userprogress.NewRepository(db.DB)
	store := localstore.NewStore(localprogress.NewRepository(db.DB), cfg.Progress.KeyPrefix)
	pusher := tasks.NewPusher(store, serverProgress, syncLogger(eventsSvc))

	// Task queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewPushProgressQueue(pusher),
			tasks.NewPushAllProgressQueue(pusher),
		)
		if eventsSvc != nil {
			taskClient.Register(tasks.NewCleanupEventsQueue(eventsSvc))
		}

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		taskClient.Start(taskCtx)
	}

	// Authentication
	authService := auth.NewService(users.NewRepository(db.DB), cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, db.Driver, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfigFrom(cfg.Auth))

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		csrfSecret, err = sessionSecret(cfg.Auth.SessionSecret)
		if err != nil {
			return err
		}
	}

	// One session manager per client
	syncer := tasks.NewProgressSyncer(taskClient, pusher)
	authenticator := auth.NewAuthenticator(authService)
	registry := session.NewRegistry(cfg.Sessions.RegistrySize, cfg.Sessions.RegistryTTL, func() *session.Manager {
		deps := session.Dependencies{
			Authenticator: authenticator,
			Server:        serverProgress,
			Store:         store,
			Syncer:        syncer,
		}
		if eventsSvc != nil {
			deps.Recorder = eventsSvc
		}
		return session.NewManager(deps)
	})

	// Scheduled sweeps
	sched := scheduler.New()
	if cfg.Progress.SyncEnabled {
		if err := sched.Add(scheduler.JobProgressSync, cfg.Progress.SyncSchedule, scheduler.ProgressSyncJob(taskClient, pusher)); err != nil {
			log.Printf("Failed to schedule progress sync: %v", err)
		}
	}
	if cfg.Sessions.RegistryTTL > 0 {
		if err := sched.Add(scheduler.JobSessionSweep, cfg.Sessions.SweepSchedule, scheduler.SessionSweepJob(registry)); err != nil {
			log.Printf("Failed to schedule session sweep: %v", err)
		}
	}
	if eventsSvc != nil && cfg.Events.RetentionDays > 0 {
		if err := sched.Add(scheduler.JobEventsCleanup, cfg.Events.CleanupSchedule, scheduler.EventsCleanupJob(taskClient, eventsSvc, cfg.Events.RetentionDays)); err != nil {
			log.Printf("Failed to schedule events cleanup: %v", err)
		}
	}
	sched.Start(context.Background())

	count, err := authService.GetUserCount()
	if err == nil && count == 0 {
		log.Printf("No users found. POST /api/auth/register to create an account.")
	}

	routerCfg.AuthMiddleware = auth.NewMiddleware(authService, sessionManager, cfg.Auth)
	routerCfg.SessionManager = sessionManager
	routerCfg.RateLimiter = rateLimiter
	routerCfg.CSRFSecret = csrfSecret
	routerCfg.Registry = registry
	routerCfg.Events = eventsSvc
	routerCfg.TaskClient = taskClient

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		rateLimiter.Stop()
		sched.Stop()
		// Final sweep so nothing written since the last scheduled one is
		// left only in the client store.
		if users, written, err := pusher.PushAll(ctx); err != nil {
			log.Printf("Failed to push progress on shutdown: %v", err)
		} else if written > 0 {
			log.Printf("Pushed %d progress entries for %d users on shutdown", written, users)
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		if eventsSvc != nil {
			eventsSvc.Wait()
		}
	}

	return Serve(router, cfg, onShutdown)
}

// sessionSecret decodes a hex secret, takes any other value as raw bytes,
// and generates one when unset.
func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}

	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
	}
	log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(generated)
}

// syncLogger avoids handing the pusher a typed nil.
func syncLogger(svc *events.Service) tasks.SyncLogger {
	if svc == nil {
		return nil
	}
	return svc
}
