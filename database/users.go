package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princinho/storefront/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type UserStore struct {
	users  *mongo.Collection
	tokens *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{
		users:  db.Collection(UsersCollection),
		tokens: db.Collection(RefreshTokensCollection),
	}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := s.users.InsertOne(ctx, u)
	return err
}

func (s *UserStore) UpdatePassword(ctx context.Context, id bson.ObjectID, hash string) error {
	_, err := s.users.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"passwordHash": hash,
		"updatedAt":    time.Now().UTC(),
	}})
	return err
}

func (s *UserStore) RecordLogin(ctx context.Context, id bson.ObjectID, at time.Time) error {
	_, err := s.users.UpdateByID(ctx, id, bson.M{"$set": bson.M{"lastLoginAt": at}})
	return err
}

// SeedAdmin inserts the admin account unless a user with that email exists.
// It reports whether a new account was created.
func (s *UserStore) SeedAdmin(ctx context.Context, email, passwordHash string) (bool, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"email":        email,
			"passwordHash": passwordHash,
			"role":         models.RoleAdmin,
			"isActive":     true,
			"createdAt":    now,
			"updatedAt":    now,
		},
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"email": email}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("seed admin upsert failed: %w", err)
	}
	return res.UpsertedCount == 1, nil
}

func (s *UserStore) InsertRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	if rt.ID.IsZero() {
		rt.ID = bson.NewObjectID()
	}
	_, err := s.tokens.InsertOne(ctx, rt)
	return err
}

// FindActiveRefreshToken returns nil, nil when the token is unknown, revoked
// or expired.
func (s *UserStore) FindActiveRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.tokens.FindOne(ctx, bson.M{
		"tokenHash": tokenHash,
		"revokedAt": bson.M{"$exists": false},
		"expiresAt": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&rt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &rt, nil
}

func (s *UserStore) RotateRefreshToken(ctx context.Context, id bson.ObjectID, replacedBy string) error {
	_, err := s.tokens.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"revokedAt":  time.Now().UTC(),
		"replacedBy": replacedBy,
	}})
	return err
}

func (s *UserStore) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := s.tokens.UpdateOne(ctx,
		bson.M{"tokenHash": tokenHash, "revokedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revokedAt": time.Now().UTC()}},
	)
	return err
}

func (s *UserStore) RevokeAllRefreshTokens(ctx context.Context, userID bson.ObjectID) error {
	_, err := s.tokens.UpdateMany(ctx,
		bson.M{"userId": userID, "revokedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revokedAt": time.Now().UTC()}},
	)
	return err
}
