package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type userDoc struct {
	ID             string    `bson:"_id"`
	FirstName      string    `bson:"first_name"`
	LastName       string    `bson:"last_name"`
	Email          string    `bson:"email"`
	PasswordHash   string    `bson:"password_hash"`
	School         string    `bson:"school"`
	GradeLevel     string    `bson:"grade_level"`
	Gender         string    `bson:"gender"`
	Interests      []string  `bson:"interests"`
	Bio            *string   `bson:"bio"`
	ProfilePicture *string   `bson:"profile_picture"`
	CreatedAt      time.Time `bson:"created_at"`
}

func toUserDoc(u *users.User) userDoc {
	interests := u.Interests
	if interests == nil {
		interests = []string{}
	}
	return userDoc{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		School:         u.School,
		GradeLevel:     u.GradeLevel,
		Gender:         u.Gender,
		Interests:      interests,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

func (d userDoc) toUser() *users.User {
	return &users.User{
		ID:             d.ID,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		School:         d.School,
		GradeLevel:     d.GradeLevel,
		Gender:         d.Gender,
		Interests:      d.Interests,
		Bio:            d.Bio,
		ProfilePicture: d.ProfilePicture,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

type UserRepository struct {
	coll *mongo.Collection
}

func (r *UserRepository) Create(ctx context.Context, user *users.User) error {
	if _, err := r.coll.InsertOne(ctx, toUserDoc(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return users.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepository) UpdateBio(ctx context.Context, id string, bio string) (*users.User, error) {
	return r.set(ctx, id, bson.D{{Key: "bio", Value: bio}})
}

func (r *UserRepository) UpdateInterests(ctx context.Context, id string, interests []string) (*users.User, error) {
	if interests == nil {
		interests = []string{}
	}
	return r.set(ctx, id, bson.D{{Key: "interests", Value: interests}})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (*users.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toUser(), nil
}

func (r *UserRepository) set(ctx context.Context, id string, fields bson.D) (*users.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: fields}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return doc.toUser(), nil
}
