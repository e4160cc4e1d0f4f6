package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/storage"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/slug"
)

const templatePrefix = "templates"

// TemplateService stores named image templates. There is no database
// record; the storage listing is the source of truth.
type TemplateService struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewTemplateService(store storage.Storage, logger *slog.Logger) *TemplateService {
	return &TemplateService{store: store, logger: logger}
}

// Upload stores the image under the slug of name, replacing any template
// with the same file name.
func (s *TemplateService) Upload(ctx context.Context, name string, file ImageUpload) (*domain.Template, error) {
	base := slug.Generate(name)
	if base == "" {
		return nil, apperrors.InvalidInput("template name is required")
	}
	ext, err := imageExt(file.Filename)
	if err != nil {
		return nil, err
	}

	filename := base + ext
	res, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         templatePrefix + "/" + filename,
		ContentType: file.ContentType,
		Size:        file.Size,
		Data:        file.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("store template: %w", err)
	}

	s.logger.InfoContext(ctx, "template uploaded", slog.String("filename", filename))
	return &domain.Template{Name: base, Filename: filename, URL: res.URL}, nil
}

func (s *TemplateService) List(ctx context.Context) ([]domain.Template, error) {
	keys, err := s.store.List(ctx, templatePrefix)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]domain.Template, 0, len(keys))
	for _, k := range keys {
		filename := path.Base(k)
		out = append(out, domain.Template{
			Name:     strings.TrimSuffix(filename, path.Ext(filename)),
			Filename: filename,
			URL:      s.store.URL(k),
		})
	}
	return out, nil
}

// Delete removes a template by file name. Names containing a path are
// rejected.
func (s *TemplateService) Delete(ctx context.Context, filename string) error {
	if filename == "" || filename != path.Base(filename) || strings.ContainsAny(filename, `/\`) || strings.HasPrefix(filename, ".") {
		return apperrors.InvalidInput("invalid template file name")
	}
	err := s.store.Delete(ctx, templatePrefix+"/"+filename)
	if errors.Is(err, storage.ErrNotExist) {
		return apperrors.NotFound("template", filename)
	}
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
