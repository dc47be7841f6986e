package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open when no file is stored under the key.
var ErrNotFound = errors.New("stored file not found")

// StoredFile describes a successful Save.
type StoredFile struct {
	Key  string
	URL  string
	Size int64
}

// Object is one entry of a store listing.
type Object struct {
	Key     string
	ModTime time.Time
}

// FileStore keeps uploaded files under opaque generated keys.
type FileStore interface {
	Save(ctx context.Context, r io.Reader, originalName string) (*StoredFile, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete is idempotent: deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Object, error)
}

// NewKey builds "<unix millis>-<uuid><ext>". Only the lower-cased extension
// of the original name is kept.
func NewKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), ext)
}
