package profile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/raushankrgupta/dreamsoul/blob"
	"github.com/raushankrgupta/dreamsoul/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func seedOrphans(t *testing.T, log *store.MemoryOrphans, attempts ...int) {
	t.Helper()
	for i, n := range attempts {
		err := log.Record(context.Background(), store.Orphan{
			PublicID:     "DreamSoul/photos/orphan-" + string(rune('a'+i)),
			ResourceType: string(blob.ResourceImage),
			UserID:       primitive.NewObjectID(),
			Attempts:     n,
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
}

func TestSweep_ResolvesDeleted(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory("")
	orphans := store.NewMemoryOrphans()
	seedOrphans(t, orphans, 1, 1, 1)

	sw := &Sweeper{Blobs: blobs, Orphans: orphans, Logger: zap.NewNop()}
	res, err := sw.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Scanned != 3 || res.Deleted != 3 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if left, _ := orphans.List(ctx, 10, 0); len(left) != 0 {
		t.Errorf("orphans left = %d", len(left))
	}
	if got := len(blobs.DeletedIDs()); got != 3 {
		t.Errorf("deletes = %d, want 3", got)
	}
}

func TestSweep_FailureBumpsAttempts(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory("")
	blobs.SetFailDeletes(true)
	orphans := store.NewMemoryOrphans()
	seedOrphans(t, orphans, 1)

	sw := &Sweeper{Blobs: blobs, Orphans: orphans, Logger: zap.NewNop()}
	res, err := sw.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Failed != 1 || res.Deleted != 0 {
		t.Errorf("result = %+v", res)
	}
	left, _ := orphans.List(ctx, 10, 0)
	if len(left) != 1 || left[0].Attempts != 2 || left[0].LastError == "" {
		t.Fatalf("orphans = %+v", left)
	}
}

func TestSweep_SkipsExhausted(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory("")
	orphans := store.NewMemoryOrphans()
	seedOrphans(t, orphans, 5, 1)

	sw := &Sweeper{Blobs: blobs, Orphans: orphans, Logger: zap.NewNop(), MaxAttempts: 5}
	res, err := sw.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Scanned != 1 || res.Deleted != 1 {
		t.Errorf("result = %+v", res)
	}
	left, _ := orphans.List(ctx, 10, 0)
	if len(left) != 1 || left[0].Attempts != 5 {
		t.Errorf("orphans = %+v", left)
	}
}

func TestSweep_ExhaustedHeadDoesNotStarveQueue(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory("")
	orphans := store.NewMemoryOrphans()
	seedOrphans(t, orphans, 10, 10, 10)
	fresh := store.Orphan{
		PublicID:     "DreamSoul/photos/fresh",
		ResourceType: string(blob.ResourceImage),
		UserID:       primitive.NewObjectID(),
	}
	if err := orphans.Record(ctx, fresh); err != nil {
		t.Fatalf("Record: %v", err)
	}

	sw := &Sweeper{Blobs: blobs, Orphans: orphans, Logger: zap.NewNop(), BatchSize: 3, MaxAttempts: 10}
	res, err := sw.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Scanned != 1 || res.Deleted != 1 {
		t.Errorf("result = %+v", res)
	}
	ids := blobs.DeletedIDs()
	if len(ids) != 1 || ids[0] != fresh.PublicID {
		t.Errorf("deleted = %v, want [%s]", ids, fresh.PublicID)
	}
}

// ctxBlobs fails deletes once their context is done.
type ctxBlobs struct {
	*blob.Memory
}

func (b ctxBlobs) Delete(ctx context.Context, publicID string, rt blob.ResourceType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.Memory.Delete(ctx, publicID, rt)
}

// flakyLog fails Resolve for one public id.
type flakyLog struct {
	*store.MemoryOrphans
	failFor string
}

func (l *flakyLog) Resolve(ctx context.Context, id primitive.ObjectID) error {
	list, _ := l.MemoryOrphans.List(ctx, 0, 0)
	for _, o := range list {
		if o.ID == id && o.PublicID == l.failFor {
			return errors.New("log unavailable")
		}
	}
	return l.MemoryOrphans.Resolve(ctx, id)
}

func TestSweep_LogErrorDoesNotCancelOthers(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryOrphans()
	seedOrphans(t, mem, 1, 1, 1, 1)
	first, _ := mem.List(ctx, 1, 0)
	orphans := &flakyLog{MemoryOrphans: mem, failFor: first[0].PublicID}
	blobs := blob.NewMemory("")

	sw := &Sweeper{Blobs: ctxBlobs{blobs}, Orphans: orphans, Logger: zap.NewNop(), Workers: 1}
	res, err := sw.Sweep(ctx)
	if err == nil || !strings.Contains(err.Error(), "log unavailable") {
		t.Fatalf("err = %v, want the resolve failure", err)
	}
	if res.Deleted != 4 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	left, _ := mem.List(ctx, 10, 0)
	if len(left) != 1 || left[0].PublicID != first[0].PublicID || left[0].Attempts != 1 {
		t.Errorf("orphans = %+v", left)
	}
}

func TestSweep_BatchSize(t *testing.T) {
	ctx := context.Background()
	orphans := store.NewMemoryOrphans()
	seedOrphans(t, orphans, 1, 1, 1, 1)

	sw := &Sweeper{Blobs: blob.NewMemory(""), Orphans: orphans, Logger: zap.NewNop(), BatchSize: 3}
	res, err := sw.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Scanned != 3 {
		t.Errorf("scanned = %d, want 3", res.Scanned)
	}
	if left, _ := orphans.List(ctx, 10, 0); len(left) != 1 {
		t.Errorf("orphans left = %d, want 1", len(left))
	}
}
