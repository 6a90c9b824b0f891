package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pharmaplaza/server/internal/auth"
	"github.com/pharmaplaza/server/internal/catalog"
	"github.com/pharmaplaza/server/internal/metrics"
	"github.com/pharmaplaza/server/internal/stats"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned when a requested entity is missing from the store.
var ErrNotFound = errors.New("storage: not found")

// ErrInvalidID is returned when an id is not a valid ObjectID hex string.
var ErrInvalidID = errors.New("storage: invalid id")

// UserStore manages marketplace accounts.
type UserStore interface {
	// CreateUser inserts u unless a user with the same email exists.
	// created is false when the email was already present.
	CreateUser(ctx context.Context, u User) (res InsertResult, created bool, err error)
	ListUsers(ctx context.Context) ([]User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, email, name string, role auth.Role) (UpdateResult, error)
	UpdateUserRole(ctx context.Context, id string, role auth.Role) (UpdateResult, error)
	RoleOf(ctx context.Context, email string) (auth.Role, bool, error)
}

// CatalogStore manages products and categories.
type CatalogStore interface {
	ListProducts(ctx context.Context, q catalog.Query) ([]Document, error)
	CountProducts(ctx context.Context, q catalog.Query) (int64, error)
	ProductsByCategory(ctx context.Context, categoryName string) ([]Document, error)
	CreateProduct(ctx context.Context, product Document) (InsertResult, error)

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c Category) (InsertResult, error)
	UpdateCategory(ctx context.Context, id string, c Category) (UpdateResult, error)
	DeleteCategory(ctx context.Context, id string) (DeleteResult, error)
}

// CartStore manages buyer carts.
type CartStore interface {
	ListCart(ctx context.Context, email string) ([]Document, error)
	AddCartItem(ctx context.Context, item Document) (InsertResult, error)
	RemoveCartItem(ctx context.Context, id string) (DeleteResult, error)
	ClearCart(ctx context.Context, email string) (DeleteResult, error)
	// UpdateCartItem sets price and quantity on the row for productID owned by email.
	UpdateCartItem(ctx context.Context, productID, email string, pricePerUnit float64, quantity int) (UpdateResult, error)
}

// AdvertisementStore manages seller advertisements.
type AdvertisementStore interface {
	// ListAdvertisements returns all advertisements, or only those with status when non-empty.
	ListAdvertisements(ctx context.Context, status string) ([]Advertisement, error)
	AdvertisementsBySeller(ctx context.Context, sellerEmail string) ([]Advertisement, error)
	CreateAdvertisement(ctx context.Context, ad Advertisement) (InsertResult, error)
	// ToggleAdvertisement flips Approved and Hidden. ErrNotFound when absent.
	ToggleAdvertisement(ctx context.Context, id string) (UpdateResult, error)
}

// ContentStore serves read-only editorial content.
type ContentStore interface {
	ListReviews(ctx context.Context) ([]bson.M, error)
	ListBlogs(ctx context.Context) ([]bson.M, error)
}

// PaymentStore manages payment records.
type PaymentStore interface {
	ListPayments(ctx context.Context) ([]Document, error)
	PaymentsByEmail(ctx context.Context, email string) ([]Document, error)
	CreatePayment(ctx context.Context, payment Document) (InsertResult, error)
	MarkPaymentPaid(ctx context.Context, id string) (UpdateResult, error)
}

// InvoiceStore manages invoices and the cart purge that accompanies them.
type InvoiceStore interface {
	// ListInvoices returns all invoices, or only the buyer's when email is non-empty.
	ListInvoices(ctx context.Context, email string) ([]Document, error)
	// CreateInvoice inserts the invoice and deletes every cart item named
	// in its cartIds.
	CreateInvoice(ctx context.Context, invoice Document) (InvoiceResult, error)
	DeleteInvoice(ctx context.Context, id string) (DeleteResult, error)
	// ReconcileInvoices completes cart purges for invoices still pending
	// since before olderThan. Returns the number of invoices completed.
	ReconcileInvoices(ctx context.Context, olderThan time.Time) (int64, error)
}

// StatsStore computes revenue summaries.
type StatsStore interface {
	AdminSummary(ctx context.Context) (stats.AdminSummary, error)
	SellerSummary(ctx context.Context, sellerEmail string) (stats.SellerSummary, error)
	SellerHistory(ctx context.Context, sellerEmail string) ([]stats.HistoryEntry, error)
}

// Store captures every persistence requirement of the API.
type Store interface {
	UserStore
	CatalogStore
	CartStore
	AdvertisementStore
	ContentStore
	PaymentStore
	InvoiceStore
	StatsStore

	Ping(ctx context.Context) error
	Close() error
}

// StoreConfig holds storage backend configuration.
type StoreConfig struct {
	Backend         string // "mongodb" or "memory"
	MongoDBURL      string
	MongoDBDatabase string
	ConnectTimeout  time.Duration
	UseTransactions bool
	Metrics         *metrics.Metrics
}

// NewStore creates a Store instance based on the provided configuration.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case backendMemory:
		return NewMemoryStore().WithMetrics(cfg.Metrics), nil
	case backendMongo, "":
		if cfg.MongoDBURL == "" {
			return nil, fmt.Errorf("mongodb backend requires mongodb_url")
		}
		if cfg.MongoDBDatabase == "" {
			return nil, fmt.Errorf("mongodb backend requires mongodb_database")
		}
		return NewMongoDBStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
