package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrphansCollection holds blobs whose delete failed.
const OrphansCollection = "blob_orphans"

type MongoOrphans struct {
	c *mongo.Collection
}

func NewMongoOrphans(db *mongo.Database) *MongoOrphans {
	return &MongoOrphans{c: db.Collection(OrphansCollection)}
}

func (s *MongoOrphans) Record(ctx context.Context, o Orphan) error {
	now := time.Now().UTC()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, o)
	return err
}

// List returns the oldest retryable orphans first.
func (s *MongoOrphans) List(ctx context.Context, limit, maxAttempts int) ([]Orphan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))
	cur, err := s.c.Find(ctx, retryableFilter(maxAttempts), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Orphan
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func retryableFilter(maxAttempts int) bson.M {
	if maxAttempts <= 0 {
		return bson.M{}
	}
	return bson.M{"attempts": bson.M{"$lt": maxAttempts}}
}

func (s *MongoOrphans) Resolve(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoOrphans) MarkAttempt(ctx context.Context, id primitive.ObjectID, lastErr string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"lastError": lastErr, "updatedAt": time.Now().UTC()},
	})
	return err
}

// MemoryOrphans is an in-process OrphanLog.
type MemoryOrphans struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]Orphan
}

func NewMemoryOrphans() *MemoryOrphans {
	return &MemoryOrphans{byID: make(map[primitive.ObjectID]Orphan)}
}

func (s *MemoryOrphans) Record(_ context.Context, o Orphan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	s.byID[o.ID] = o
	return nil
}

func (s *MemoryOrphans) List(_ context.Context, limit, maxAttempts int) ([]Orphan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Orphan, 0, len(s.byID))
	for _, o := range s.byID {
		if maxAttempts > 0 && o.Attempts >= maxAttempts {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() < out[j].ID.Hex()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryOrphans) Resolve(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *MemoryOrphans) MarkAttempt(_ context.Context, id primitive.ObjectID, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return nil
	}
	o.Attempts++
	o.LastError = lastErr
	o.UpdatedAt = time.Now().UTC()
	s.byID[id] = o
	return nil
}
