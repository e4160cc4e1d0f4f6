// Package http exposes the marketplace services over a chi router.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/service"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/httputil"
	"github.com/agromart/marketplace/pkg/middleware"
	"github.com/agromart/marketplace/pkg/pagination"
	"github.com/agromart/marketplace/pkg/validator"
)

const maxJSONBody = 1 << 20

// --- Service contracts ---

type Catalog interface {
	AddProduct(ctx context.Context, sellerID string, fields domain.ProductFields, images []service.ImageUpload) (*domain.Product, error)
	UpdateProduct(ctx context.Context, sellerID, productID string, fields domain.ProductFields, images []service.ImageUpload) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListByCategory(ctx context.Context, category string, page pagination.Page) ([]domain.ProductSummary, int, error)
	Categories(ctx context.Context) ([]string, error)
	RecentlyAdded(ctx context.Context) ([]domain.ProductSummary, error)
}

type Searcher interface {
	Search(ctx context.Context, userID, term string) ([]domain.ProductSummary, error)
	Suggest(ctx context.Context, userID string) ([]domain.ProductSummary, error)
}

type Registrar interface {
	SendEmailOTP(ctx context.Context, role domain.Role, email string) error
	SendPhoneOTP(ctx context.Context, role domain.Role, phone, email string) error
	SendPhoneChangeOTP(ctx context.Context, role domain.Role, phone string) error
	VerifyEmailOTP(ctx context.Context, role domain.Role, email, code string) error
	VerifyPhoneOTP(ctx context.Context, role domain.Role, phone, code string) error
	Signup(ctx context.Context, in service.SignupInput) (*domain.Account, error)
}

type Authenticator interface {
	Login(ctx context.Context, role domain.Role, identifier, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Me(ctx context.Context, accountID string) (*domain.Account, error)
}

type Profiles interface {
	AddAddress(ctx context.Context, userID string, in domain.Address) (*domain.Address, error)
	Addresses(ctx context.Context, userID string) ([]domain.Address, error)
	UpdateAddress(ctx context.Context, userID, id string, in domain.Address) (*domain.Address, error)
	DeleteAddress(ctx context.Context, userID, id string) error
	UpdateName(ctx context.Context, accountID, firstName, lastName string) error
	ChangePassword(ctx context.Context, accountID, current, next string) error
	UpdatePhone(ctx context.Context, accountID, phone string) error
}

type Carts interface {
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	Cart(ctx context.Context, userID string) (domain.CartView, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
}

type Checkout interface {
	Summary(ctx context.Context, userID string) (domain.CartView, error)
	PlaceOrder(ctx context.Context, userID string, in service.PlaceOrderInput) (*domain.Order, error)
}

type Consultants interface {
	UpdateProfile(ctx context.Context, consultantID string, in service.ProfileInput, image *service.ImageUpload) (*domain.Account, error)
	ListConsultants(ctx context.Context, page pagination.Page) ([]domain.Account, int, error)
	Book(ctx context.Context, userID string, in service.BookInput) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, consultantID, appointmentID string, status domain.AppointmentStatus) (*domain.Appointment, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Appointment, error)
	ListForConsultant(ctx context.Context, consultantID string) ([]domain.Appointment, error)
	BookedSlots(ctx context.Context, consultantID, day string) ([]domain.Slot, error)
}

type Templates interface {
	Upload(ctx context.Context, name string, file service.ImageUpload) (*domain.Template, error)
	List(ctx context.Context) ([]domain.Template, error)
	Delete(ctx context.Context, filename string) error
}

// --- Helpers ---

// decode reads a JSON body into dst and validates it, writing the error
// response itself when it returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	err := validator.DecodeAndValidate(r, maxJSONBody, dst)
	if err == nil {
		return true
	}
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		httputil.WriteError(w, r, err, logger)
		return false
	}
	httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), logger)
	return false
}

// caller is the authenticated principal. Routes using it sit behind
// middleware.Authenticate.
func caller(r *http.Request) middleware.Principal {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p
}

type message struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	httputil.WriteData(w, status, message{Message: msg})
}
