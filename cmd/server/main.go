package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/wagateway/gateway-server-go/internal/blobstore"
	"github.com/wagateway/gateway-server-go/internal/config"
	"github.com/wagateway/gateway-server-go/internal/database"
	"github.com/wagateway/gateway-server-go/internal/handler"
	"github.com/wagateway/gateway-server-go/internal/jobs"
	"github.com/wagateway/gateway-server-go/internal/middleware"
	"github.com/wagateway/gateway-server-go/internal/redis"
	"github.com/wagateway/gateway-server-go/internal/repository"
	"github.com/wagateway/gateway-server-go/internal/service"
	"github.com/wagateway/gateway-server-go/internal/sse"
	"github.com/wagateway/gateway-server-go/internal/whatsapp"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	waLogger := waLog.Zerolog(log.Logger.With().Str("component", "whatsmeow").Logger())

	creds := repository.NewCredentialRepository(databaseOpener(cfg), cfg.AuthDir, waLogger.Sub("Database"))
	defer creds.Close()

	if jid, err := creds.LinkedJID(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to open credential store")
	} else if jid != nil {
		log.Info().Str("jid", *jid).Msg("linked device found")
	} else {
		log.Info().Msg("no linked device, pairing required")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	broker := sse.NewBroker(redisClient, cfg.SessionName)
	defer broker.Close()

	whatsapp.SetDeviceName(config.DeviceName)
	dialer := whatsapp.NewDialer(creds, waLogger.Sub("Client"))

	pairingService := service.NewPairingService(broker, os.Stdout, fmt.Sprintf("http://localhost:%d/qr", cfg.Port))
	blobs := blobstore.NewFTPStore(blobstore.FTPConfig{
		Addr:         cfg.FTPAddr(),
		User:         cfg.FTPUser,
		Password:     cfg.FTPPassword,
		PublicURL:    cfg.FTPPublicURL,
		Root:         cfg.FTPRoot,
		Timeout:      cfg.FTPTimeout(),
		DocumentsDir: cfg.FTPDocumentsDir,
		ImagesDir:    cfg.FTPImagesDir,
	}, cfg.FTPHost != "")
	normalizer := service.NewNormalizer(blobs)
	webhook := service.NewWebhookForwarder(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout())

	sessionManager := service.NewSessionManager(
		service.SessionConfig{
			Name:           cfg.SessionName,
			MediaWorkers:   cfg.MediaWorkers,
			MessageTimeout: cfg.MessageTimeout(),
			ReconnectDelay: cfg.ReconnectDelay(),
			MinBackoff:     config.ReconnectMinBackoff,
			MaxBackoff:     config.ReconnectMaxBackoff,
		},
		dialer, creds, pairingService, normalizer, webhook, broker,
	)

	go func() {
		if err := sessionManager.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("session manager stopped")
		}
	}()

	tokenAuthMiddleware := middleware.NewTokenAuthMiddleware(cfg.APIToken)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(false)

	var limiter middleware.Limiter
	cleanupTasks := []jobs.Task{}
	if redisClient != nil {
		limiter = middleware.NewRedisRateLimiter(redisClient.Client, config.SendRateLimitWindow)
	} else {
		memLimiter := middleware.NewRateLimiter(config.SendRateLimitWindow)
		limiter = memLimiter
		cleanupTasks = append(cleanupTasks, jobs.Task{Name: "rate limit windows", Run: memLimiter.Sweep})
	}
	sendRateLimitMiddleware := middleware.NewRateLimitMiddleware(limiter, cfg.SendRateLimitPerMin, "send")

	healthChecks := map[string]handler.Pinger{
		"credentials": handler.PingFunc(func(ctx context.Context) error {
			_, err := creds.LinkedJID(ctx)
			return err
		}),
	}
	if redisClient != nil {
		healthChecks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	messageHandler := handler.NewMessageHandler(sessionManager)
	qrHandler := handler.NewQRHandler(pairingService, config.QRImageSize)
	statusHandler := handler.NewStatusHandler(sessionManager)
	eventsHandler := handler.NewEventsHandler(broker, sessionManager)
	healthHandler := handler.NewHealthHandler(healthChecks)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", healthHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(tokenAuthMiddleware.Handler)

		r.Get("/events", eventsHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
			r.Use(bodyLimitMiddleware.Handler)

			r.Get("/qr", qrHandler.ServeHTTP)
			r.Get("/status", statusHandler.ServeHTTP)
			r.Route("/send-message", func(r chi.Router) {
				r.Use(sendRateLimitMiddleware.Handler)
				r.Mount("/", messageHandler.Routes())
			})
		})
	})

	cleanupJob := jobs.NewCleanupJob(config.CleanupJobInterval, cleanupTasks...)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	cancel()
	if err := sessionManager.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("session did not stop cleanly")
	}
	webhook.Wait()

	log.Info().Msg("server stopped")
}

// databaseOpener picks Postgres when DATABASE_URL is set, otherwise a
// SQLite file under the auth directory.
func databaseOpener(cfg *config.Config) repository.Opener {
	if cfg.UsePostgres() {
		return func() (*database.DB, error) {
			db, err := database.Connect(cfg.DatabaseURL)
			if err != nil {
				return nil, err
			}
			ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				db.Close()
				return nil, err
			}
			log.Info().Msg("database connected")
			return db, nil
		}
	}
	return func() (*database.DB, error) {
		return database.ConnectSQLite(cfg.AuthDir)
	}
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
