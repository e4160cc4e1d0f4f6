// Package repository declares the persistence contracts the services
// depend on. Implementations live in sub-packages.
package repository

import (
	"context"
	"time"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/pagination"
)

// ProductRepository stores products and their images. Multi-row writes
// are atomic.
type ProductRepository interface {
	// Create inserts the product and all of p.Images in one transaction.
	Create(ctx context.Context, p *domain.Product) error

	// Update rewrites the fields of the product identified by p.ID and
	// p.SellerID. When replaceImages is set the image rows are swapped for
	// p.Images in the same transaction and the replaced rows are returned.
	// Returns NotFound when no product matches both ids.
	Update(ctx context.Context, p *domain.Product, replaceImages bool) (replaced []domain.ProductImage, err error)

	// GetByID returns the product with all images ordered by position.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// ListByCategory returns a page of products in category, newest first,
	// each carrying at most its first image, plus the total count.
	ListByCategory(ctx context.Context, category string, page pagination.Page) ([]domain.Product, int, error)

	// Categories returns every distinct category, sorted.
	Categories(ctx context.Context) ([]string, error)

	// Recent returns the limit most recently created products.
	Recent(ctx context.Context, limit int) ([]domain.Product, error)

	// All returns every product with its first image. It feeds search.
	All(ctx context.Context) ([]domain.Product, error)
}

// HistoryRepository is the durable store of search terms.
type HistoryRepository interface {
	// List returns up to limit terms, most recent first.
	List(ctx context.Context, userID string, limit int) ([]string, error)

	// Append records term and trims the user's history to keep entries.
	Append(ctx context.Context, userID, term string, keep int) error
}

// AccountRepository stores users, sellers and consultants.
type AccountRepository interface {
	// Register inserts acc and deletes the given verification records in
	// one transaction. A duplicate email, phone or GST number of the same
	// role yields AlreadyExists.
	Register(ctx context.Context, acc *domain.Account, consumed []string) error

	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, role domain.Role, email string) (*domain.Account, error)
	GetByPhone(ctx context.Context, role domain.Role, phone string) (*domain.Account, error)

	UpdateName(ctx context.Context, id, firstName, lastName string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdatePhone sets the phone and consumes the verification record in
	// one transaction.
	UpdatePhone(ctx context.Context, id, phone, verificationID string) error

	UpdateConsultantProfile(ctx context.Context, acc *domain.Account) error
	ListConsultants(ctx context.Context, page pagination.Page) ([]domain.Account, int, error)
}

// VerificationRepository stores pending OTP checks.
type VerificationRepository interface {
	// Upsert replaces any record for (role, channel, identifier), resetting
	// it to unverified.
	Upsert(ctx context.Context, v *domain.Verification) error
	Get(ctx context.Context, role domain.Role, channel domain.Channel, identifier string) (*domain.Verification, error)
	MarkVerified(ctx context.Context, id string) error
	// RecordFailedAttempt increments the wrong-code counter of id and
	// returns the new count.
	RecordFailedAttempt(ctx context.Context, id string) (int, error)
}

type AddressRepository interface {
	Create(ctx context.Context, a *domain.Address) error
	List(ctx context.Context, userID string) ([]domain.Address, error)
	// Update and Delete only touch addresses owned by the user and return
	// NotFound otherwise.
	Update(ctx context.Context, a *domain.Address) error
	Delete(ctx context.Context, userID, id string) error
}

type CartRepository interface {
	// AddItem creates the cart on first use and adds quantity to any
	// existing line for the product.
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	// Lines returns the cart id ("" when the user has none) and its lines.
	Lines(ctx context.Context, userID string) (string, []domain.CartLine, error)
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
}

type OrderRepository interface {
	// Place re-reads the user's cart, fills o.Items and o.TotalAmount from
	// it, inserts the order and empties the cart, all in one transaction.
	// An empty cart yields InvalidInput.
	Place(ctx context.Context, o *domain.Order) error
}

type AppointmentRepository interface {
	// Book inserts a unless it overlaps a blocking appointment of the same
	// consultant on the same date, in which case it returns Conflict.
	Book(ctx context.Context, a *domain.Appointment) error

	// UpdateStatus changes the status of an appointment owned by
	// consultantID. NotFound if the appointment does not exist, Forbidden
	// if it belongs to another consultant.
	UpdateStatus(ctx context.Context, id, consultantID string, status domain.AppointmentStatus) (*domain.Appointment, error)

	ListForUser(ctx context.Context, userID string) ([]domain.Appointment, error)
	ListForConsultant(ctx context.Context, consultantID string) ([]domain.Appointment, error)
	BookedSlots(ctx context.Context, consultantID string, date time.Time) ([]domain.Slot, error)
}
