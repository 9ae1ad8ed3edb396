// Package store defines the persistence contract for users and posts and
// selects a backend from a connection string.
package store

import (
	"context"
	"errors"

	"github.com/eringen/inkpost/model"
)

// DefaultListLimit is the number of posts returned by the public list.
const DefaultListLimit = 20

var (
	// ErrNotFound is returned when a user or post does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserExists is returned when registering a username that is taken.
	ErrUserExists = errors.New("user already exists")
)

// Store is implemented by every database backend.
type Store interface {
	// CreateUser inserts a user. Returns ErrUserExists on a duplicate username.
	CreateUser(ctx context.Context, username, passwordHash string) (model.User, error)
	// GetUserByUsername returns ErrNotFound if no such user exists.
	GetUserByUsername(ctx context.Context, username string) (model.User, error)

	// CreatePost inserts a post owned by authorID and returns it with the author resolved.
	CreatePost(ctx context.Context, authorID string, f model.PostFields) (model.Post, error)
	// UpdatePost overwrites the editable fields of post id.
	UpdatePost(ctx context.Context, id string, f model.PostFields) (model.Post, error)
	// GetPost returns a post with the author resolved, or ErrNotFound.
	GetPost(ctx context.Context, id string) (model.Post, error)
	// ListPosts returns at most limit posts ordered by creation time, newest first.
	ListPosts(ctx context.Context, limit int) ([]model.Post, error)

	Ping(ctx context.Context) error
	Close() error
}
