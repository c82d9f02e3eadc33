package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/raushankrgupta/dreamsoul/blob"
	"github.com/raushankrgupta/dreamsoul/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepResult counts what one sweep did.
type SweepResult struct {
	Scanned int
	Deleted int
	Failed  int
}

// Sweeper retries blob deletes recorded in the orphan log.
type Sweeper struct {
	Blobs   blob.Store
	Orphans store.OrphanLog
	Logger  *zap.Logger

	// BatchSize is how many orphans one sweep reads. Zero means 100.
	BatchSize int
	// MaxAttempts stops retrying an orphan once reached. Zero means no limit.
	MaxAttempts int
	// Workers bounds concurrent deletes. Zero means 4.
	Workers int
}

// Sweep runs one pass over the oldest orphans still under MaxAttempts. A
// delete that succeeds resolves the entry; a failure bumps its attempt
// count. Orphans are independent: a failing log write for one is reported
// in the joined error and never stops the others.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	batch := s.BatchSize
	if batch <= 0 {
		batch = 100
	}
	workers := s.Workers
	if workers <= 0 {
		workers = 4
	}

	orphans, err := s.Orphans.List(ctx, batch, s.MaxAttempts)
	if err != nil {
		return SweepResult{}, err
	}

	var (
		deleted, failed atomic.Int64
		mu              sync.Mutex
		errs            []error
	)
	report := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for _, o := range orphans {
		g.Go(func() error {
			log := s.Logger.With(zap.String("public_id", o.PublicID), zap.Int("attempts", o.Attempts))
			if err := s.Blobs.Delete(ctx, o.PublicID, blob.ResourceType(o.ResourceType)); err != nil {
				failed.Add(1)
				log.Warn("orphan delete failed", zap.Error(err))
				if merr := s.Orphans.MarkAttempt(ctx, o.ID, err.Error()); merr != nil {
					report(fmt.Errorf("mark attempt %s: %w", o.PublicID, merr))
				}
				return nil
			}
			deleted.Add(1)
			log.Info("orphan deleted")
			if rerr := s.Orphans.Resolve(ctx, o.ID); rerr != nil {
				report(fmt.Errorf("resolve %s: %w", o.PublicID, rerr))
			}
			return nil
		})
	}
	_ = g.Wait()

	return SweepResult{
		Scanned: len(orphans),
		Deleted: int(deleted.Load()),
		Failed:  int(failed.Load()),
	}, errors.Join(errs...)
}
