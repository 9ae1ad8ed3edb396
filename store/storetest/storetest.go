// Package storetest holds the behavior every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/eringen/inkpost/model"
	"github.com/eringen/inkpost/store"
)

// Run exercises s against the store contract. s must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Fatalf("Ping failed: %v", err)
		}
	})

	t.Run("CreateUserDuplicate", func(t *testing.T) {
		u, err := s.CreateUser(ctx, "alice", "hash-1")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if u.ID == "" {
			t.Fatal("ID should be set")
		}
		if u.Username != "alice" {
			t.Errorf("Username = %q, want %q", u.Username, "alice")
		}
		if _, err := s.CreateUser(ctx, "alice", "hash-2"); !errors.Is(err, store.ErrUserExists) {
			t.Errorf("expected ErrUserExists, got %v", err)
		}

		got, err := s.GetUserByUsername(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUserByUsername failed: %v", err)
		}
		if got.ID != u.ID || got.PasswordHash != "hash-1" {
			t.Errorf("got %+v, want id %q and the first hash", got, u.ID)
		}
	})

	t.Run("GetUserNotFound", func(t *testing.T) {
		if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CreateGetUpdatePost", func(t *testing.T) {
		author, err := s.CreateUser(ctx, "bob", "hash")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		created, err := s.CreatePost(ctx, author.ID, model.PostFields{
			Title:   "Hello",
			Summary: "First post",
			Content: "<p>body</p>",
			Image:   "https://cdn.example.com/a.jpg",
		})
		if err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
		if created.Author.Username != "bob" || created.Author.ID != author.ID {
			t.Errorf("Author = %+v, want bob/%s", created.Author, author.ID)
		}
		if created.CreatedAt.IsZero() {
			t.Error("CreatedAt should be set")
		}

		got, err := s.GetPost(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetPost failed: %v", err)
		}
		if got.Title != "Hello" || got.Content != "<p>body</p>" || got.Image != "https://cdn.example.com/a.jpg" {
			t.Errorf("GetPost = %+v", got)
		}
		if got.AuthorID != author.ID {
			t.Errorf("AuthorID = %q, want %q", got.AuthorID, author.ID)
		}

		updated, err := s.UpdatePost(ctx, created.ID, model.PostFields{
			Title:   "Hello again",
			Summary: got.Summary,
			Content: got.Content,
			Image:   "",
		})
		if err != nil {
			t.Fatalf("UpdatePost failed: %v", err)
		}
		if updated.Title != "Hello again" || updated.Image != "" {
			t.Errorf("UpdatePost = %+v", updated)
		}
		if updated.AuthorID != author.ID {
			t.Errorf("update must not change the author")
		}
		if !updated.CreatedAt.Equal(got.CreatedAt) {
			t.Errorf("CreatedAt changed: %v -> %v", got.CreatedAt, updated.CreatedAt)
		}
	})

	t.Run("PostNotFound", func(t *testing.T) {
		if _, err := s.GetPost(ctx, "does-not-exist"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("GetPost: expected ErrNotFound, got %v", err)
		}
		if _, err := s.UpdatePost(ctx, "does-not-exist", model.PostFields{Title: "x"}); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("UpdatePost: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListPostsNewestFirstAndLimited", func(t *testing.T) {
		author, err := s.CreateUser(ctx, "carol", "hash")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		for i := 0; i < store.DefaultListLimit+5; i++ {
			if _, err := s.CreatePost(ctx, author.ID, model.PostFields{Title: fmt.Sprintf("post %d", i)}); err != nil {
				t.Fatalf("CreatePost %d failed: %v", i, err)
			}
			// keeps creation timestamps distinct on coarse clocks
			time.Sleep(2 * time.Millisecond)
		}

		posts, err := s.ListPosts(ctx, store.DefaultListLimit)
		if err != nil {
			t.Fatalf("ListPosts failed: %v", err)
		}
		if len(posts) != store.DefaultListLimit {
			t.Fatalf("ListPosts count = %d, want %d", len(posts), store.DefaultListLimit)
		}
		if posts[0].Title != fmt.Sprintf("post %d", store.DefaultListLimit+4) {
			t.Errorf("first post = %q, want the newest", posts[0].Title)
		}
		for i := 1; i < len(posts); i++ {
			if posts[i].CreatedAt.After(posts[i-1].CreatedAt) {
				t.Errorf("posts[%d] newer than posts[%d]", i, i-1)
			}
		}
		for _, p := range posts {
			if p.Author.Username != "carol" {
				t.Errorf("post %q author = %q, want carol", p.Title, p.Author.Username)
			}
		}
	})
}
