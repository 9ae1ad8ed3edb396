// Package model holds the value types shared by the stores, the auth service,
// the HTTP API and the presentation client.
package model

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Author is the public projection of a User attached to a post.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Post is a blog entry. Author is resolved from AuthorID when read.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	Image     string    `json:"image"`
	AuthorID  string    `json:"-"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostFields are the author-editable parts of a post.
type PostFields struct {
	Title   string
	Summary string
	Content string
	Image   string
}

// Identity is the payload carried by a session token.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IssuedAt int64  `json:"iat,omitempty"`
}
