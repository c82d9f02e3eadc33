package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raushankrgupta/dreamsoul/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureIndexes is called at startup. Each step is idempotent.
Problems are aggregated so startup fails with the full picture.
*/
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, b := range BucketOrder {
		if err := ensureUniqueIdentity(ctx, db.Collection(string(b))); err != nil {
			problems = append(problems, string(b)+": "+err.Error())
		}
	}
	if err := ensureUniqueIdentity(ctx, db.Collection(IdentitiesCollection)); err != nil {
		problems = append(problems, IdentitiesCollection+": "+err.Error())
	}
	if err := ensureOrphans(ctx, db.Collection(OrphansCollection)); err != nil {
		problems = append(problems, OrphansCollection+": "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureUniqueIdentity(ctx context.Context, c *mongo.Collection) error {
	_, err := c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("uniq_username").SetUnique(true),
		},
	})
	return err
}

func ensureOrphans(ctx context.Context, c *mongo.Collection) error {
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("idx_orphans_createdAt"),
	})
	return err
}

// BackfillIdentities registers user documents that predate the identity
// registry. Documents whose email or username is already claimed by another
// user are reported and left unregistered.
func BackfillIdentities(ctx context.Context, db *mongo.Database, logger *zap.Logger) (int, error) {
	identities := db.Collection(IdentitiesCollection)
	added := 0
	for _, b := range BucketOrder {
		opts := options.Find().SetProjection(bson.M{"_id": 1, "email": 1, "username": 1, "createdAt": 1})
		cur, err := db.Collection(string(b)).Find(ctx, bson.M{}, opts)
		if err != nil {
			return added, fmt.Errorf("%s: %w", b, err)
		}
		for cur.Next(ctx) {
			var u models.User
			if err := cur.Decode(&u); err != nil {
				cur.Close(ctx)
				return added, fmt.Errorf("%s: decode: %w", b, err)
			}
			created := u.CreatedAt
			if created.IsZero() {
				created = time.Now().UTC()
			}
			res, err := identities.UpdateOne(ctx,
				bson.M{"_id": u.ID},
				bson.M{"$setOnInsert": identity{UserID: u.ID, Email: u.Email, Username: u.Username, Bucket: b, CreatedAt: created}},
				options.Update().SetUpsert(true),
			)
			if err != nil {
				if mongo.IsDuplicateKeyError(err) {
					logger.Warn("identity already claimed by another user",
						zap.String("bucket", string(b)),
						zap.String("user_id", u.ID.Hex()),
						zap.String("username", u.Username))
					continue
				}
				cur.Close(ctx)
				return added, fmt.Errorf("%s: register %s: %w", b, u.ID.Hex(), err)
			}
			if res.UpsertedCount > 0 {
				added++
			}
		}
		err = cur.Err()
		cur.Close(ctx)
		if err != nil {
			return added, fmt.Errorf("%s: %w", b, err)
		}
	}
	return added, nil
}
