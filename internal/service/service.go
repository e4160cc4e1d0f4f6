// Package service holds the marketplace business logic. Services return
// (value, error); errors are *apperrors.AppError or wrapped datastore
// failures.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/notify"
	"github.com/agromart/marketplace/internal/storage"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

// ProductEvents publishes product lifecycle events.
type ProductEvents interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, product *domain.Product) error
}

// OrderEvents publishes order events.
type OrderEvents interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

// Notifier delivers OTP messages.
type Notifier interface {
	Send(ctx context.Context, msg *notify.Message) error
}

// ImageUpload is one uploaded image file.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// imageExt returns the lowercased extension of filename, or an InvalidInput
// error when it is not an accepted image type.
func imageExt(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !imageExtensions[ext] {
		return "", apperrors.InvalidInput(fmt.Sprintf("unsupported image type %q, expected png, jpg, jpeg or webp", ext))
	}
	return ext, nil
}

// storeImages uploads each file under dir with a random name. On failure
// the files already written are removed.
func storeImages(ctx context.Context, store storage.Storage, dir string, uploads []ImageUpload) ([]string, error) {
	keys := make([]string, 0, len(uploads))
	for _, u := range uploads {
		ext, err := imageExt(u.Filename)
		if err != nil {
			removeKeys(ctx, store, keys)
			return nil, err
		}
		res, err := store.Upload(ctx, &storage.UploadInput{
			Key:         dir + "/" + uuid.NewString() + ext,
			ContentType: u.ContentType,
			Size:        u.Size,
			Data:        u.Data,
		})
		if err != nil {
			removeKeys(ctx, store, keys)
			return nil, fmt.Errorf("store image %s: %w", u.Filename, err)
		}
		keys = append(keys, res.Key)
	}
	return keys, nil
}

func removeKeys(ctx context.Context, store storage.Storage, keys []string) []error {
	var errs []error
	for _, k := range keys {
		if err := store.Delete(ctx, k); err != nil && !errors.Is(err, storage.ErrNotExist) {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errs
}
