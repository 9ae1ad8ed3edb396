// Package mongo is the MongoDB backend of store.Store. Posts keep an author
// reference that is resolved against the users collection on read.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/eringen/inkpost/model"
	"github.com/eringen/inkpost/store"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	PasswordHash string    `bson:"password"`
	CreatedAt    time.Time `bson:"createdAt"`
}

type postDoc struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Summary   string    `bson:"summary"`
	Content   string    `bson:"content"`
	Image     string    `bson:"image"`
	Author    string    `bson:"author"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Store wraps a mongo client and the two collections it uses.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open connects to uri, selects database and ensures the indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	db := client.Database(database)
	s := &Store{
		client: client,
		users:  db.Collection("users"),
		posts:  db.Collection("posts"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: indexes: %w", err)
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return err
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	doc := userDoc{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, store.ErrUserExists
		}
		return model.User{}, err
	}
	return doc.toModel(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	return doc.toModel(), nil
}

func (s *Store) CreatePost(ctx context.Context, authorID string, f model.PostFields) (model.Post, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := postDoc{
		ID:        uuid.NewString(),
		Title:     f.Title,
		Summary:   f.Summary,
		Content:   f.Content,
		Image:     f.Image,
		Author:    authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return model.Post{}, err
	}
	return s.GetPost(ctx, doc.ID)
}

func (s *Store) UpdatePost(ctx context.Context, id string, f model.PostFields) (model.Post, error) {
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":     f.Title,
		"summary":   f.Summary,
		"content":   f.Content,
		"image":     f.Image,
		"updatedAt": time.Now().UTC().Truncate(time.Millisecond),
	}})
	if err != nil {
		return model.Post{}, err
	}
	if res.MatchedCount == 0 {
		return model.Post{}, store.ErrNotFound
	}
	return s.GetPost(ctx, id)
}

func (s *Store) GetPost(ctx context.Context, id string) (model.Post, error) {
	var doc postDoc
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	posts, err := s.populate(ctx, []postDoc{doc})
	if err != nil {
		return model.Post{}, err
	}
	return posts[0], nil
}

func (s *Store) ListPosts(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return s.populate(ctx, docs)
}

// populate resolves the author username of each post with a single query.
func (s *Store) populate(ctx context.Context, docs []postDoc) ([]model.Post, error) {
	ids := make([]string, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.Author]; !ok {
			seen[d.Author] = struct{}{}
			ids = append(ids, d.Author)
		}
	}
	names := make(map[string]string, len(ids))
	if len(ids) > 0 {
		cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
			options.Find().SetProjection(bson.M{"username": 1}))
		if err != nil {
			return nil, err
		}
		var users []userDoc
		if err := cur.All(ctx, &users); err != nil {
			return nil, err
		}
		for _, u := range users {
			names[u.ID] = u.Username
		}
	}

	posts := make([]model.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, model.Post{
			ID:        d.ID,
			Title:     d.Title,
			Summary:   d.Summary,
			Content:   d.Content,
			Image:     d.Image,
			AuthorID:  d.Author,
			Author:    model.Author{ID: d.Author, Username: names[d.Author]},
			CreatedAt: d.CreatedAt.UTC(),
			UpdatedAt: d.UpdatedAt.UTC(),
		})
	}
	return posts, nil
}

func (d userDoc) toModel() model.User {
	return model.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}
