// Command orphansweep retries blob deletes that failed after their content
// was removed from a profile.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raushankrgupta/dreamsoul/blob"
	"github.com/raushankrgupta/dreamsoul/config"
	"github.com/raushankrgupta/dreamsoul/profile"
	"github.com/raushankrgupta/dreamsoul/store"
	"github.com/raushankrgupta/dreamsoul/utils"
	"go.uber.org/zap"
)

type options struct {
	batch       int
	maxAttempts int
	workers     int
	interval    time.Duration
}

func main() {
	var opts options
	flag.IntVar(&opts.batch, "batch", 100, "orphans to process per pass")
	flag.IntVar(&opts.maxAttempts, "max-attempts", 10, "skip orphans that failed this many times (0 = never skip)")
	flag.IntVar(&opts.workers, "workers", 4, "concurrent deletes")
	flag.DurationVar(&opts.interval, "interval", 0, "repeat every interval until interrupted (0 = run once)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.StoreDriver != "mongo" {
		log.Fatalf("orphansweep needs STORE_DRIVER=mongo, got %q", cfg.StoreDriver)
	}

	logger, err := utils.NewLogger(cfg.Development())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, opts, logger)
	stop()
	if err != nil {
		logger.Error("orphansweep stopped", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *zap.Logger) error {
	client, err := utils.ConnectMongo(ctx, cfg.MongoURI, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("disconnect mongo", zap.Error(err))
		}
	}()

	blobs, err := blob.FromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sw := &profile.Sweeper{
		Blobs:       blobs,
		Orphans:     store.NewMongoOrphans(client.Database(cfg.MongoDB)),
		Logger:      logger,
		BatchSize:   opts.batch,
		MaxAttempts: opts.maxAttempts,
		Workers:     opts.workers,
	}

	for {
		res, err := sw.Sweep(ctx)
		if err != nil {
			logger.Error("sweep failed", zap.Error(err))
		}
		logger.Info("sweep done",
			zap.Int("scanned", res.Scanned),
			zap.Int("deleted", res.Deleted),
			zap.Int("failed", res.Failed))
		if opts.interval <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.interval):
		}
	}
}
