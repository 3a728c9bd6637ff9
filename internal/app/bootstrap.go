package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"videotube-api/internal/auth"
	"videotube-api/internal/config"
	"videotube-api/internal/db"
	"videotube-api/internal/maintenance"
	"videotube-api/internal/media"
	"videotube-api/internal/observability"
	"videotube-api/internal/pipeline"
	"videotube-api/internal/playlist"
	"videotube-api/internal/response"
	"videotube-api/internal/store/memory"
	"videotube-api/internal/store/postgres"
	"videotube-api/internal/user"
)

type Options struct {
	LoadDotEnv bool
	// Config, Logger and Uploader replace the ones built from the
	// environment when set.
	Config   *config.Config
	Logger   *observability.Logger
	Uploader media.Uploader
}

type Runtime struct {
	Handler http.Handler
	Config  config.Config
	Logger  *observability.Logger
	Close   func() error
}

type storage struct {
	users     user.Repository
	playlists playlist.Repository
	source    pipeline.Source
	ping      func(context.Context) error
	close     func() error
}

func Build(ctx context.Context, options Options) (*Runtime, error) {
	var cfg config.Config
	if options.Config != nil {
		cfg = *options.Config
	} else {
		var opts []config.Option
		if options.LoadDotEnv {
			opts = append(opts, config.WithDotEnv())
		}
		loaded, err := config.Load(opts...)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := options.Logger
	if logger == nil {
		built, err := observability.NewLogger(cfg.LogLevel, cfg.AppEnv)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		logger = built
	}

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv, cfg.Release); err != nil {
		logger.Error("init_sentry_failed", map[string]any{"error": err})
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	uploader := options.Uploader
	if uploader == nil {
		uploader, err = media.New(ctx, media.Config{
			Backend:       cfg.MediaBackend,
			CloudinaryURL: cfg.CloudinaryURL,
			S3: media.S3Config{
				Bucket:        cfg.S3Bucket,
				Region:        cfg.S3Region,
				Endpoint:      cfg.S3Endpoint,
				AccessKey:     cfg.S3AccessKey,
				SecretKey:     cfg.S3SecretKey,
				PublicBaseURL: cfg.S3PublicBaseURL,
			},
		})
		if err != nil {
			_ = store.close()
			return nil, fmt.Errorf("init media uploader: %w", err)
		}
	}

	stash, err := media.NewStash(cfg.UploadDir)
	if err != nil {
		_ = store.close()
		return nil, err
	}

	authService, err := auth.NewService(store.users, auth.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})
	if err != nil {
		_ = store.close()
		return nil, fmt.Errorf("init auth: %w", err)
	}

	authHandler := auth.NewHandler(authService)
	userHandler := user.NewHandler(user.NewService(store.users, store.source, uploader), stash)
	playlistHandler := playlist.NewHandler(playlist.NewService(store.playlists, store.source))
	cleanupHandler := maintenance.NewCleanupHandler(store.users, logger, cfg.CronSecret, cfg.AuthCleanupBatchSize)
	loginLimiter := auth.NewLoginRateLimiter(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)

	requireAuth := auth.Authenticate(authService)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(observability.Recover(logger))
	r.Use(observability.RequestLogging(logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", healthHandler(store.ping))
	r.Get("/internal/maintenance/cleanup", cleanupHandler.Handle)
	r.Post("/internal/maintenance/cleanup", cleanupHandler.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.With(loginLimiter.Middleware).Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.Refresh)
			r.With(auth.OptionalAuthenticate(authService)).Get("/c/{username}", userHandler.ChannelProfile)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", authHandler.Logout)
				r.Post("/change-password", authHandler.ChangePassword)
				r.Get("/current-user", userHandler.CurrentUser)
				r.Patch("/update-account", userHandler.UpdateAccount)
				r.Patch("/avatar", userHandler.UpdateAvatar)
				r.Patch("/cover-image", userHandler.UpdateCoverImage)
				r.Get("/history", userHandler.WatchHistory)
			})
		})

		r.Route("/playlist", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", playlistHandler.Create)
			r.Get("/user/{userId}", playlistHandler.ListByOwner)
			r.Patch("/add/{videoId}/{playlistId}", playlistHandler.AddVideo)
			r.Patch("/remove/{videoId}/{playlistId}", playlistHandler.RemoveVideo)
			r.Get("/{playlistId}", playlistHandler.Get)
			r.Patch("/{playlistId}", playlistHandler.Update)
			r.Delete("/{playlistId}", playlistHandler.Delete)
		})
	})

	return &Runtime{
		Handler: r,
		Config:  cfg,
		Logger:  logger,
		Close: func() error {
			observability.FlushSentry()
			_ = logger.Sync()
			return store.close()
		},
	}, nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *observability.Logger) (storage, error) {
	if cfg.StorageBackend == config.StorageBackendMemory {
		s := memory.New()
		logger.Warn("using_memory_storage", map[string]any{"backend": cfg.StorageBackend})
		return storage{
			users:     s.Users(),
			playlists: s.Playlists(),
			source:    s,
			ping:      s.Ping,
			close:     s.Close,
		}, nil
	}

	database, err := db.Open(ctx, db.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return storage{}, err
	}

	if cfg.RunMigrationsOnStartup {
		if err := db.RunMigrations(ctx, database); err != nil {
			_ = database.Close()
			return storage{}, err
		}
	}

	s := postgres.New(database)
	return storage{
		users:     s.Users(),
		playlists: s.Playlists(),
		source:    s,
		ping:      s.Ping,
		close:     s.Close,
	}, nil
}

func healthHandler(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		now := time.Now().UTC().Format(time.RFC3339)
		if err := ping(ctx); err != nil {
			response.WriteJSON(w, http.StatusServiceUnavailable, response.Envelope{
				StatusCode: http.StatusServiceUnavailable,
				Data:       map[string]any{"status": "degraded", "time": now},
				Message:    "store unavailable",
			})
			return
		}
		response.OK(w, http.StatusOK, map[string]any{"status": "ok", "time": now}, "healthy")
	}
}
