package http

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/agromart/marketplace/internal/service"
	apperrors "github.com/agromart/marketplace/pkg/errors"
)

// formMemory is how much of a multipart body is buffered in memory; the
// rest spills to temp files.
const formMemory = 8 << 20

// parseForm bounds the request to maxBytes and parses it as multipart.
func parseForm(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		return apperrors.InvalidInput("failed to parse multipart form: " + err.Error())
	}
	return nil
}

// openImages opens every file under field. The returned func closes them.
func openImages(form *multipart.Form, field string) ([]service.ImageUpload, func(), error) {
	var (
		uploads []service.ImageUpload
		files   []multipart.File
	)
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	if form == nil {
		return nil, closeAll, nil
	}
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperrors.InvalidInput("cannot read uploaded file " + fh.Filename)
		}
		files = append(files, f)

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		uploads = append(uploads, service.ImageUpload{
			Filename:    fh.Filename,
			ContentType: contentType,
			Size:        fh.Size,
			Data:        f,
		})
	}
	return uploads, closeAll, nil
}

// formInt parses an optional integer field; blank means zero.
func formInt(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, apperrors.InvalidInput(name + " must be a whole number")
	}
	return n, nil
}
