package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"yapper/cleanup"
	"yapper/config"
	"yapper/database"
	"yapper/handlers"
	"yapper/push"
	"yapper/realtime"
	"yapper/routes"
	"yapper/storage"
	"yapper/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load configuration")
	}
	if cfg.AppEnv != "production" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := connectMongo(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to mongodb")
	}
	defer func() {
		if err := database.Disconnect(client); err != nil {
			logger.Error().Err(err).Msg("disconnect mongodb")
		}
	}()

	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("ensure indexes")
	}

	stores := store.New(db)

	var uploader storage.Uploader
	if cfg.CloudinaryURL != "" {
		cld, err := storage.NewCloudinary(cfg.CloudinaryURL, cfg.UploadFolder)
		if err != nil {
			logger.Fatal().Err(err).Msg("configure cloudinary")
		}
		uploader = cld
	} else {
		logger.Warn().Msg("CLOUDINARY_URL not set; media uploads disabled")
	}

	sender := push.NewWebPush(cfg.VAPIDSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	notifier := push.NewService(sender, stores.Users, logger)

	hub := realtime.NewHub(logger)
	go hub.Run(ctx)

	if uploader != nil {
		sweeper := cleanup.NewSweeper(stores.Deletions, uploader, cfg.SweepInterval, logger)
		go sweeper.Run(ctx)
	}

	h := handlers.New(handlers.Config{
		JWTSecret:               cfg.JWTSecret,
		TokenTTL:                cfg.TokenTTL,
		VAPIDPublicKey:          cfg.VAPIDPublicKey,
		GoogleClientID:          cfg.GoogleClientID,
		GoogleClientSecret:      cfg.GoogleClientSecret,
		GoogleRedirectURL:       cfg.GoogleRedirectURL,
		RequireMembershipToPost: cfg.RequireMembershipToPost,
	}, handlers.Deps{
		Users:       stores.Users,
		Communities: stores.Communities,
		Posts:       stores.Posts,
		Comments:    stores.Comments,
		Chats:       stores.Chats,
		Deletions:   stores.Deletions,
		Uploader:    uploader,
		Hub:         hub,
		Push:        notifier,
		Logger:      logger,
	})

	router := routes.SetupRouter(cfg, h, hub)
	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

// connectMongo retries the initial connection a few times so the server
// survives the database coming up after it.
func connectMongo(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*mongo.Client, *mongo.Database, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		client, db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err == nil {
			return client, db, nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Msg("mongodb connection failed, retrying")
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	return nil, nil, lastErr
}
