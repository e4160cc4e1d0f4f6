package http

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/service"
	"github.com/agromart/marketplace/pkg/middleware"
	"github.com/agromart/marketplace/pkg/pagination"
)

// ============================================================================
// Mock Services
// ============================================================================

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) AddProduct(ctx context.Context, sellerID string, fields domain.ProductFields, images []service.ImageUpload) (*domain.Product, error) {
	args := m.Called(ctx, sellerID, fields, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockCatalog) UpdateProduct(ctx context.Context, sellerID, productID string, fields domain.ProductFields, images []service.ImageUpload) (*domain.Product, error) {
	args := m.Called(ctx, sellerID, productID, fields, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockCatalog) ListByCategory(ctx context.Context, category string, page pagination.Page) ([]domain.ProductSummary, int, error) {
	args := m.Called(ctx, category, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ProductSummary), args.Int(1), args.Error(2)
}

func (m *mockCatalog) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockCatalog) RecentlyAdded(ctx context.Context) ([]domain.ProductSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductSummary), args.Error(1)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, userID, term string) ([]domain.ProductSummary, error) {
	args := m.Called(ctx, userID, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductSummary), args.Error(1)
}

func (m *mockSearcher) Suggest(ctx context.Context, userID string) ([]domain.ProductSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductSummary), args.Error(1)
}

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) SendEmailOTP(ctx context.Context, role domain.Role, email string) error {
	return m.Called(ctx, role, email).Error(0)
}

func (m *mockRegistrar) SendPhoneOTP(ctx context.Context, role domain.Role, phone, email string) error {
	return m.Called(ctx, role, phone, email).Error(0)
}

func (m *mockRegistrar) SendPhoneChangeOTP(ctx context.Context, role domain.Role, phone string) error {
	return m.Called(ctx, role, phone).Error(0)
}

func (m *mockRegistrar) VerifyEmailOTP(ctx context.Context, role domain.Role, email, code string) error {
	return m.Called(ctx, role, email, code).Error(0)
}

func (m *mockRegistrar) VerifyPhoneOTP(ctx context.Context, role domain.Role, phone, code string) error {
	return m.Called(ctx, role, phone, code).Error(0)
}

func (m *mockRegistrar) Signup(ctx context.Context, in service.SignupInput) (*domain.Account, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Login(ctx context.Context, role domain.Role, identifier, password string) (*domain.TokenPair, error) {
	args := m.Called(ctx, role, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenPair), args.Error(1)
}

func (m *mockAuthenticator) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenPair), args.Error(1)
}

func (m *mockAuthenticator) Me(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) AddAddress(ctx context.Context, userID string, in domain.Address) (*domain.Address, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *mockProfiles) Addresses(ctx context.Context, userID string) ([]domain.Address, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Address), args.Error(1)
}

func (m *mockProfiles) UpdateAddress(ctx context.Context, userID, id string, in domain.Address) (*domain.Address, error) {
	args := m.Called(ctx, userID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *mockProfiles) DeleteAddress(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockProfiles) UpdateName(ctx context.Context, accountID, firstName, lastName string) error {
	return m.Called(ctx, accountID, firstName, lastName).Error(0)
}

func (m *mockProfiles) ChangePassword(ctx context.Context, accountID, current, next string) error {
	return m.Called(ctx, accountID, current, next).Error(0)
}

func (m *mockProfiles) UpdatePhone(ctx context.Context, accountID, phone string) error {
	return m.Called(ctx, accountID, phone).Error(0)
}

type mockCarts struct {
	mock.Mock
}

func (m *mockCarts) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *mockCarts) Cart(ctx context.Context, userID string) (domain.CartView, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.CartView), args.Error(1)
}

func (m *mockCarts) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *mockCarts) RemoveItem(ctx context.Context, userID, productID string) error {
	return m.Called(ctx, userID, productID).Error(0)
}

type mockCheckout struct {
	mock.Mock
}

func (m *mockCheckout) Summary(ctx context.Context, userID string) (domain.CartView, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.CartView), args.Error(1)
}

func (m *mockCheckout) PlaceOrder(ctx context.Context, userID string, in service.PlaceOrderInput) (*domain.Order, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

type mockConsultants struct {
	mock.Mock
}

func (m *mockConsultants) UpdateProfile(ctx context.Context, consultantID string, in service.ProfileInput, image *service.ImageUpload) (*domain.Account, error) {
	args := m.Called(ctx, consultantID, in, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockConsultants) ListConsultants(ctx context.Context, page pagination.Page) ([]domain.Account, int, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Account), args.Int(1), args.Error(2)
}

func (m *mockConsultants) Book(ctx context.Context, userID string, in service.BookInput) (*domain.Appointment, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *mockConsultants) UpdateStatus(ctx context.Context, consultantID, appointmentID string, status domain.AppointmentStatus) (*domain.Appointment, error) {
	args := m.Called(ctx, consultantID, appointmentID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *mockConsultants) ListForUser(ctx context.Context, userID string) ([]domain.Appointment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *mockConsultants) ListForConsultant(ctx context.Context, consultantID string) ([]domain.Appointment, error) {
	args := m.Called(ctx, consultantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *mockConsultants) BookedSlots(ctx context.Context, consultantID, day string) ([]domain.Slot, error) {
	args := m.Called(ctx, consultantID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Slot), args.Error(1)
}

type mockTemplates struct {
	mock.Mock
}

func (m *mockTemplates) Upload(ctx context.Context, name string, file service.ImageUpload) (*domain.Template, error) {
	args := m.Called(ctx, name, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Template), args.Error(1)
}

func (m *mockTemplates) List(ctx context.Context) ([]domain.Template, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Template), args.Error(1)
}

func (m *mockTemplates) Delete(ctx context.Context, filename string) error {
	return m.Called(ctx, filename).Error(0)
}

var anyCtx = mock.Anything

// staticTokens maps bearer tokens straight to principals.
type staticTokens map[string]middleware.Principal

func (s staticTokens) VerifyAccessToken(token string) (middleware.Principal, error) {
	p, ok := s[token]
	if !ok {
		return middleware.Principal{}, errors.New("unknown token")
	}
	return p, nil
}
