package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/raushankrgupta/dreamsoul/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// IdentitiesCollection maps every email and username to its owning bucket.
const IdentitiesCollection = "user_identities"

// identity is the registry document. Its _id is the user's id.
type identity struct {
	UserID    primitive.ObjectID `bson:"_id"`
	Email     string             `bson:"email"`
	Username  string             `bson:"username"`
	Bucket    Bucket             `bson:"bucket"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// Mongo stores users in three gender collections and keeps a registry
// collection with globally unique email and username indexes.
type Mongo struct {
	db         *mongo.Database
	identities *mongo.Collection
	buckets    map[Bucket]*mongo.Collection
}

func NewMongo(db *mongo.Database) *Mongo {
	buckets := make(map[Bucket]*mongo.Collection, len(BucketOrder))
	for _, b := range BucketOrder {
		buckets[b] = db.Collection(string(b))
	}
	return &Mongo{
		db:         db,
		identities: db.Collection(IdentitiesCollection),
		buckets:    buckets,
	}
}

func (s *Mongo) coll(b Bucket) (*mongo.Collection, error) {
	c, ok := s.buckets[b]
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", b)
	}
	return c, nil
}

func (s *Mongo) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *Mongo) findOne(ctx context.Context, b Bucket, filter bson.M) (*models.User, error) {
	c, err := s.coll(b)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// resolve looks the key up in the registry first. A registry miss, or an
// entry whose user document is gone, falls back to searching every bucket.
func (s *Mongo) resolve(ctx context.Context, field, value string) (*Match, error) {
	var id identity
	err := s.identities.FindOne(ctx, bson.M{field: value}).Decode(&id)
	switch {
	case err == nil:
		u, ferr := s.findOne(ctx, id.Bucket, bson.M{"_id": id.UserID})
		if ferr == nil {
			return &Match{User: u, Bucket: id.Bucket}, nil
		}
		if !errors.Is(ferr, ErrNotFound) {
			return nil, ferr
		}
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, err
	}

	return firstMatch(ctx, func(ctx context.Context, b Bucket) (*models.User, error) {
		return s.findOne(ctx, b, bson.M{field: value})
	})
}

func (s *Mongo) ResolveByEmail(ctx context.Context, email string) (*Match, error) {
	return s.resolve(ctx, "email", email)
}

func (s *Mongo) ResolveByUsername(ctx context.Context, username string) (*Match, error) {
	return s.resolve(ctx, "username", username)
}

func (s *Mongo) SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]models.UserSummary, error) {
	limit = normalizeLimit(limit)
	filter := bson.M{"username": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix), Options: "i"}}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 0, "username": 1, "fullName": 1, "profilePicture": 1})

	results := make([][]models.UserSummary, len(BucketOrder))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range BucketOrder {
		c := s.buckets[b]
		g.Go(func() error {
			cur, err := c.Find(gctx, filter, opts)
			if err != nil {
				return err
			}
			defer cur.Close(gctx)
			var found []models.UserSummary
			if err := cur.All(gctx, &found); err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeSummaries(limit, results...), nil
}

// Create reserves the email and username in the registry, then inserts the
// document into the bucket chosen by the user's gender. A failed insert
// releases the reservation.
func (s *Mongo) Create(ctx context.Context, u *models.User) error {
	b, ok := BucketFor(u.Gender)
	if !ok {
		return fmt.Errorf("invalid gender %q", u.Gender)
	}
	c, err := s.coll(b)
	if err != nil {
		return err
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}

	_, err = s.identities.InsertOne(ctx, identity{
		UserID:    u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Bucket:    b,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}

	if _, err := c.InsertOne(ctx, u); err != nil {
		dup := mongo.IsDuplicateKeyError(err)
		if _, derr := s.identities.DeleteOne(ctx, bson.M{"_id": u.ID}); derr != nil {
			return errors.Join(err, fmt.Errorf("release identity: %w", derr))
		}
		if dup {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Mongo) Delete(ctx context.Context, b Bucket, id primitive.ObjectID) error {
	c, err := s.coll(b)
	if err != nil {
		return err
	}
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = s.identities.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *Mongo) UpdateProfile(ctx context.Context, b Bucket, id primitive.ObjectID, p models.ProfileUpdate) (*models.User, error) {
	c, err := s.coll(b)
	if err != nil {
		return nil, err
	}
	set := bson.M{
		"age":               p.Age,
		"city":              p.City,
		"state":             p.State,
		"country":           p.Country,
		"interestedIn":      p.InterestedIn,
		"bio":               p.Bio,
		"isProfileComplete": true,
		"updatedAt":         time.Now().UTC(),
	}
	if p.IntroVoice != "" {
		set["introVoice"] = p.IntroVoice
	}
	if p.IntroHobby != "" {
		set["introHobby"] = p.IntroHobby
	}
	if p.IntroThought != "" {
		set["introThought"] = p.IntroThought
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Mongo) updateOne(ctx context.Context, b Bucket, id primitive.ObjectID, set bson.M) error {
	c, err := s.coll(b)
	if err != nil {
		return err
	}
	res, err := c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Mongo) SetProfilePicture(ctx context.Context, b Bucket, id primitive.ObjectID, url string) error {
	return s.updateOne(ctx, b, id, bson.M{"profilePicture": url, "updatedAt": time.Now().UTC()})
}

func (s *Mongo) TouchPresence(ctx context.Context, b Bucket, id primitive.ObjectID, status string, at time.Time) error {
	return s.updateOne(ctx, b, id, bson.M{"status": status, "lastVisit": at})
}

// push appends item to field when the document matches filter. A miss is
// either a vanished user or a failed cap condition.
func (s *Mongo) push(ctx context.Context, b Bucket, id primitive.ObjectID, filter bson.M, field string, item any) error {
	c, err := s.coll(b)
	if err != nil {
		return err
	}
	filter["_id"] = id
	update := bson.M{
		"$push": bson.M{field: item},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := c.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrCapacity
}

func (s *Mongo) AppendVoice(ctx context.Context, b Bucket, id primitive.ObjectID, v models.Voice, maxVoices int) error {
	filter := bson.M{fmt.Sprintf("allVoices.%d", maxVoices-1): bson.M{"$exists": false}}
	return s.push(ctx, b, id, filter, "allVoices", v)
}

func (s *Mongo) AppendHobby(ctx context.Context, b Bucket, id primitive.ObjectID, h models.Hobby, maxVideo int) error {
	filter := bson.M{}
	if h.MediaType == models.MediaVideo {
		videos := bson.M{"$filter": bson.M{
			"input": bson.M{"$ifNull": bson.A{"$allHobbies", bson.A{}}},
			"as":    "h",
			"cond":  bson.M{"$eq": bson.A{"$$h.mediaType", models.MediaVideo}},
		}}
		filter["$expr"] = bson.M{"$lt": bson.A{bson.M{"$size": videos}, maxVideo}}
	}
	return s.push(ctx, b, id, filter, "allHobbies", h)
}

func (s *Mongo) AppendThought(ctx context.Context, b Bucket, id primitive.ObjectID, t models.Thought) error {
	return s.push(ctx, b, id, bson.M{}, "allThoughts", t)
}

func (s *Mongo) AppendPhoto(ctx context.Context, b Bucket, id primitive.ObjectID, p models.Photo) error {
	return s.push(ctx, b, id, bson.M{}, "allPhotos", p)
}

// RemoveContent pulls the sub-document and reports what it held, read from
// the pre-image of the same atomic update.
func (s *Mongo) RemoveContent(ctx context.Context, b Bucket, id primitive.ObjectID, kind models.ContentType, contentID primitive.ObjectID) (models.RemovedContent, error) {
	field := kind.Field()
	if field == "" {
		return models.RemovedContent{}, fmt.Errorf("unknown content type %q", kind)
	}
	c, err := s.coll(b)
	if err != nil {
		return models.RemovedContent{}, err
	}

	update := bson.M{
		"$pull": bson.M{field: bson.M{"_id": contentID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{field: 1})

	var before models.User
	if err := c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&before); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.RemovedContent{}, ErrNotFound
		}
		return models.RemovedContent{}, err
	}
	return findContent(&before, kind, contentID), nil
}

// findContent locates contentID within the list named by kind.
func findContent(u *models.User, kind models.ContentType, contentID primitive.ObjectID) models.RemovedContent {
	switch kind {
	case models.ContentVoice:
		for _, v := range u.AllVoices {
			if v.ID == contentID {
				return models.RemovedContent{Found: true, URL: v.URL, MediaType: models.MediaVideo}
			}
		}
	case models.ContentHobby:
		for _, h := range u.AllHobbies {
			if h.ID == contentID {
				return models.RemovedContent{Found: true, URL: h.URL, MediaType: h.MediaType}
			}
		}
	case models.ContentThought:
		for _, t := range u.AllThoughts {
			if t.ID == contentID {
				return models.RemovedContent{Found: true}
			}
		}
	case models.ContentPhoto:
		for _, p := range u.AllPhotos {
			if p.ID == contentID {
				return models.RemovedContent{Found: true, URL: p.URL, MediaType: models.MediaImage}
			}
		}
	}
	return models.RemovedContent{}
}
