package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wardrobe-backend/internal/apperror"
	"wardrobe-backend/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps one document per user, keyed by the user ID, with a
// unique index on email.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
}

var _ UserStore = (*MongoStore)(nil)

// OpenMongoStore connects, pings and ensures the email index
func OpenMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	users := client.Database(database).Collection(collection)
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create email index: %w", err)
	}

	return &MongoStore{client: client, users: users}, nil
}

// FindByEmail retrieves a user by email
func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, email)
}

// FindByID retrieves a user by ID
func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id}, id)
}

// Create creates a new user
func (s *MongoStore) Create(ctx context.Context, email string) (*models.User, error) {
	user := models.NewUser(uuid.New().String(), email)
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Conflict("user", email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Save replaces the stored document
func (s *MongoStore) Save(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	result, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// EnsureExists inserts a provisioned user unless the ID is already present.
// A duplicate key on _id means another caller won the race; a duplicate on
// email means the synthesized address belongs to someone else.
func (s *MongoStore) EnsureExists(ctx context.Context, id string) (*models.User, error) {
	user := models.NewUser(id, ProvisionedEmail(id))
	_, err := s.users.InsertOne(ctx, user)
	if err == nil {
		return user, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	existing, err := s.FindByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Conflict("user", user.Email)
	}
	return existing, err
}

// List returns every user ordered by creation time
func (s *MongoStore) List(ctx context.Context) ([]*models.User, error) {
	cursor, err := s.users.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, u := range users {
		u.Normalize()
	}
	return users, nil
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Normalize()
	return &user, nil
}
