package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes objects into a directory the API serves under BaseURL.
type Local struct {
	Dir     string
	BaseURL string
}

func (l *Local) Upload(ctx context.Context, obj Object) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(obj.Key)
	if name == "." || name == string(filepath.Separator) || name != obj.Key {
		return "", fmt.Errorf("objectstore: invalid key %q", obj.Key)
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.Dir, name), obj.Body, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return strings.TrimRight(l.BaseURL, "/") + "/" + name, nil
}
