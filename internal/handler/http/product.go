package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agromart/marketplace/internal/domain"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/httputil"
	"github.com/agromart/marketplace/pkg/pagination"
)

// ProductHandler serves the catalog and search endpoints.
type ProductHandler struct {
	catalog   Catalog
	search    Searcher
	maxUpload int64
	logger    *slog.Logger
}

func NewProductHandler(catalog Catalog, search Searcher, maxUpload int64, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, search: search, maxUpload: maxUpload, logger: logger}
}

// productForm reads the product fields of a multipart request. Values are
// taken as submitted; repeated "about" values keep their order.
func productForm(r *http.Request) (domain.ProductFields, error) {
	cost, err := formInt(r, "cost_price")
	if err != nil {
		return domain.ProductFields{}, err
	}
	selling, err := formInt(r, "selling_price")
	if err != nil {
		return domain.ProductFields{}, err
	}
	qty, err := formInt(r, "quantity")
	if err != nil {
		return domain.ProductFields{}, err
	}

	return domain.ProductFields{
		Name:         r.FormValue("name"),
		Brand:        r.FormValue("brand"),
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		Category:     r.FormValue("category"),
		CostPrice:    cost,
		SellingPrice: selling,
		Quantity:     int(qty),
		About:        r.MultipartForm.Value["about"],
	}, nil
}

// AddProduct handles POST /api/v1/products (multipart/form-data).
func (h *ProductHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	h.writeProduct(w, r, "")
}

// UpdateProduct handles PUT /api/v1/products/{id} (multipart/form-data).
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.writeProduct(w, r, id.String())
}

func (h *ProductHandler) writeProduct(w http.ResponseWriter, r *http.Request, productID string) {
	if err := parseForm(w, r, h.maxUpload); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fields, err := productForm(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	images, closeImages, err := openImages(r.MultipartForm, "images")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer closeImages()

	seller := caller(r).AccountID
	if productID == "" {
		p, err := h.catalog.AddProduct(r.Context(), seller, fields, images)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteData(w, http.StatusCreated, p)
		return
	}

	p, err := h.catalog.UpdateProduct(r.Context(), seller, productID, fields, images)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// GetProduct handles GET /api/v1/products/{id}.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "product id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// ListByCategory handles GET /api/v1/products/category/{category}.
func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(chi.URLParam(r, "category"))
	if category == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("category is required"), h.logger)
		return
	}
	page := pagination.FromRequest(r)
	products, total, err := h.catalog.ListByCategory(r.Context(), category, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, pagination.NewResult(products, total, page))
}

// Categories handles GET /api/v1/products/categories.
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	httputil.WriteData(w, http.StatusOK, categories)
}

// Recent handles GET /api/v1/products/recent.
func (h *ProductHandler) Recent(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.RecentlyAdded(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(products))
}

// Search handles GET /api/v1/products/search?q=. Signed-in callers have
// the term recorded in their history.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	products, err := h.search.Search(r.Context(), caller(r).AccountID, r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(products))
}

// Suggestions handles GET /api/v1/products/suggestions.
func (h *ProductHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	products, err := h.search.Suggest(r.Context(), caller(r).AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(products))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
