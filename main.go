package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raushankrgupta/dreamsoul/api"
	"github.com/raushankrgupta/dreamsoul/auth"
	"github.com/raushankrgupta/dreamsoul/blob"
	"github.com/raushankrgupta/dreamsoul/config"
	"github.com/raushankrgupta/dreamsoul/profile"
	"github.com/raushankrgupta/dreamsoul/store"
	"github.com/raushankrgupta/dreamsoul/utils"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Development())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	users, orphans, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, err := blob.FromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("blob store ready", zap.String("provider", cfg.BlobProvider))

	denylist, closeDenylist, err := openDenylist(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDenylist()

	var mailer auth.Mailer = utils.NopMailer{}
	if cfg.SendGridAPIKey != "" {
		mailer = utils.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom, logger)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	opts := api.Options{
		CookieSecure: cfg.CookieSecure,
		TokenTTL:     cfg.JWTTTL,
		FrontendURL:  cfg.FrontendURL,

		DisableClientGoogleLogin: !cfg.EnableClientGoogleLogin,
	}
	if !cfg.EnableClientGoogleLogin {
		logger.Info("client-side Google login disabled, only the callback flow is served")
	}
	if cfg.GoogleEnabled() {
		opts.OAuth = api.GoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	h := api.NewHandler(
		auth.NewService(users, tokens, denylist, mailer, logger),
		profile.NewService(users, blobs, orphans, logger),
		profile.NewPublicService(users),
		users,
		opts,
		logger,
	)

	limiter := api.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, logger)
	go limiter.Run(ctx)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(h, api.RouterDeps{
			CORSOrigin:  cfg.CORSOrigin,
			AuthLimiter: limiter,
			Metrics:     api.NewMetrics(),
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects the user store and orphan log selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.UserStore, store.OrphanLog, func(), error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), store.NewMemoryOrphans(), func() {}, nil
	}

	client, err := utils.ConnectMongo(ctx, cfg.MongoURI, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("disconnect mongo", zap.Error(err))
		}
	}

	db := client.Database(cfg.MongoDB)
	if err := prepareMongo(ctx, db, logger); err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return store.NewMongo(db), store.NewMongoOrphans(db), closeFn, nil
}

func prepareMongo(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := store.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	added, err := store.BackfillIdentities(ctx, db, logger)
	if err != nil {
		return err
	}
	if added > 0 {
		logger.Info("backfilled identity registry", zap.Int("added", added))
	}
	return nil
}

// openDenylist uses Redis when REDIS_ADDR is set, else an in-process list.
func openDenylist(ctx context.Context, cfg *config.Config, logger *zap.Logger) (auth.Denylist, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, revoked tokens are kept in memory")
		return auth.NewMemoryDenylist(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
	return auth.NewRedisDenylist(client, "dreamsoul"), func() { client.Close() }, nil
}
