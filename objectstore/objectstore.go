// Package objectstore uploads post images to a blob service and returns the
// public URL they can be fetched from.
package objectstore

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Object is a fully buffered upload.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
}

// Uploader stores an object and returns its public URL. Failures are returned
// as is; nothing is retried.
type Uploader interface {
	Upload(ctx context.Context, obj Object) (string, error)
}

// NewKey derives a unique object key from an uploaded file name, e.g.
// "My Photo.PNG" becomes "<uuid>-my-photo.png".
func NewKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := Slugify(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "file"
	}
	return uuid.NewString() + "-" + base + ext
}

// Slugify converts a name to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
