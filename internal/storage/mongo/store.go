// Package mongo stores users and events in MongoDB. Membership changes are
// single FindOneAndUpdate calls whose filter carries the guard, so no
// multi-document transaction is needed.
package mongo

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	usersCollection  = "users"
	eventsCollection = "events"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	users  *UserRepository
	events *EventRepository
	logger zerolog.Logger
}

// Open connects to uri and verifies the connection with a ping.
func Open(ctx context.Context, uri, database string, logger zerolog.Logger) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client, database, logger), nil
}

// New wraps an existing client. The caller keeps ownership of client only
// until Close is called.
func New(client *mongo.Client, database string, logger zerolog.Logger) *Store {
	db := client.Database(database)
	return &Store{
		client: client,
		db:     db,
		users:  &UserRepository{coll: db.Collection(usersCollection)},
		events: &EventRepository{coll: db.Collection(eventsCollection)},
		logger: logger.With().Str("component", "mongo").Logger(),
	}
}

func (s *Store) Users() users.Repository   { return s.users }
func (s *Store) Events() events.Repository { return s.events }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Migrate creates the indexes the repositories rely on. The unique email
// index is what makes concurrent signups safe.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.db.Collection(eventsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetName("events_category_date")},
		{Keys: bson.D{{Key: "host_id", Value: 1}}, Options: options.Index().SetName("events_host")},
		{Keys: bson.D{{Key: "members", Value: 1}}, Options: options.Index().SetName("events_members")},
	})
	if err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}

	s.logger.Info().Str("database", s.db.Name()).Msg("indexes ensured")
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
