package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"github.com/agromart/marketplace/internal/cache"
	"github.com/agromart/marketplace/internal/config"
	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/notify"
	"github.com/agromart/marketplace/pkg/logger"
	"github.com/agromart/marketplace/pkg/pagination"
)

// --- Mock Repositories ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product, replaceImages bool) ([]domain.ProductImage, error) {
	args := m.Called(ctx, p, replaceImages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductImage), args.Error(1)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListByCategory(ctx context.Context, category string, page pagination.Page) ([]domain.Product, int, error) {
	args := m.Called(ctx, category, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProductRepository) Recent(ctx context.Context, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) All(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

type mockHistoryRepository struct {
	mock.Mock
}

func (m *mockHistoryRepository) List(ctx context.Context, userID string, limit int) ([]string, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockHistoryRepository) Append(ctx context.Context, userID, term string, keep int) error {
	return m.Called(ctx, userID, term, keep).Error(0)
}

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Register(ctx context.Context, acc *domain.Account, consumed []string) error {
	return m.Called(ctx, acc, consumed).Error(0)
}

func (m *mockAccountRepository) account(args mock.Arguments) (*domain.Account, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return m.account(m.Called(ctx, id))
}

func (m *mockAccountRepository) GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.Account, error) {
	return m.account(m.Called(ctx, role, email))
}

func (m *mockAccountRepository) GetByPhone(ctx context.Context, role domain.Role, phone string) (*domain.Account, error) {
	return m.account(m.Called(ctx, role, phone))
}

func (m *mockAccountRepository) UpdateName(ctx context.Context, id, firstName, lastName string) error {
	return m.Called(ctx, id, firstName, lastName).Error(0)
}

func (m *mockAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *mockAccountRepository) UpdatePhone(ctx context.Context, id, phone, verificationID string) error {
	return m.Called(ctx, id, phone, verificationID).Error(0)
}

func (m *mockAccountRepository) UpdateConsultantProfile(ctx context.Context, acc *domain.Account) error {
	return m.Called(ctx, acc).Error(0)
}

func (m *mockAccountRepository) ListConsultants(ctx context.Context, page pagination.Page) ([]domain.Account, int, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Account), args.Int(1), args.Error(2)
}

type mockVerificationRepository struct {
	mock.Mock
}

func (m *mockVerificationRepository) Upsert(ctx context.Context, v *domain.Verification) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockVerificationRepository) Get(ctx context.Context, role domain.Role, channel domain.Channel, identifier string) (*domain.Verification, error) {
	args := m.Called(ctx, role, channel, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Verification), args.Error(1)
}

func (m *mockVerificationRepository) MarkVerified(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockVerificationRepository) RecordFailedAttempt(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type mockAddressRepository struct {
	mock.Mock
}

func (m *mockAddressRepository) Create(ctx context.Context, a *domain.Address) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAddressRepository) List(ctx context.Context, userID string) ([]domain.Address, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Address), args.Error(1)
}

func (m *mockAddressRepository) Update(ctx context.Context, a *domain.Address) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAddressRepository) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *mockCartRepository) Lines(ctx context.Context, userID string) (string, []domain.CartLine, error) {
	args := m.Called(ctx, userID)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).([]domain.CartLine), args.Error(2)
}

func (m *mockCartRepository) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	return m.Called(ctx, userID, productID, quantity).Error(0)
}

func (m *mockCartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	return m.Called(ctx, userID, productID).Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Place(ctx context.Context, o *domain.Order) error {
	return m.Called(ctx, o).Error(0)
}

type mockAppointmentRepository struct {
	mock.Mock
}

func (m *mockAppointmentRepository) Book(ctx context.Context, a *domain.Appointment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAppointmentRepository) UpdateStatus(ctx context.Context, id, consultantID string, status domain.AppointmentStatus) (*domain.Appointment, error) {
	args := m.Called(ctx, id, consultantID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *mockAppointmentRepository) ListForUser(ctx context.Context, userID string) ([]domain.Appointment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *mockAppointmentRepository) ListForConsultant(ctx context.Context, consultantID string) ([]domain.Appointment, error) {
	args := m.Called(ctx, consultantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *mockAppointmentRepository) BookedSlots(ctx context.Context, consultantID string, date time.Time) ([]domain.Slot, error) {
	args := m.Called(ctx, consultantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Slot), args.Error(1)
}

// --- Fakes ---

type recordingEvents struct {
	mu      sync.Mutex
	created []string
	updated []string
	orders  []string
	err     error
}

func (e *recordingEvents) PublishProductCreated(_ context.Context, p *domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, p.ID)
	return e.err
}

func (e *recordingEvents) PublishProductUpdated(_ context.Context, p *domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updated = append(e.updated, p.ID)
	return e.err
}

func (e *recordingEvents) PublishOrderPlaced(_ context.Context, o *domain.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orders = append(e.orders, o.ID)
	return e.err
}

type recordingNotifier struct {
	sent []*notify.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg *notify.Message) error {
	n.sent = append(n.sent, msg)
	return n.err
}

// --- Test Helpers ---

var testKeys = cache.NewKeys(config.CacheConfig{
	CategoriesTTL:      30 * time.Minute,
	NewArrivalsTTL:     5 * time.Minute,
	ProductSnapshotTTL: 5 * time.Minute,
	SearchHistoryTTL:   time.Hour,
})

func newTestCache(t *testing.T) (*cache.Layer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewLayer(client, logger.Discard()), mr
}

var fixedNow = time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
