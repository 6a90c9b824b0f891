package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pharmaplaza/server/internal/auth"
	"github.com/pharmaplaza/server/internal/catalog"
	"github.com/pharmaplaza/server/internal/metrics"
	"github.com/pharmaplaza/server/internal/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-memory Store implementation suitable for tests and
// local development. Invoice creation is atomic under the store lock.
type MemoryStore struct {
	mu             sync.RWMutex
	users          map[primitive.ObjectID]User
	products       map[primitive.ObjectID]Document
	categories     map[primitive.ObjectID]Category
	carts          map[primitive.ObjectID]Document
	advertisements map[primitive.ObjectID]Advertisement
	payments       map[primitive.ObjectID]Document
	invoices       map[primitive.ObjectID]Document
	reviews        []bson.M
	blogs          []bson.M
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:          make(map[primitive.ObjectID]User),
		products:       make(map[primitive.ObjectID]Document),
		categories:     make(map[primitive.ObjectID]Category),
		carts:          make(map[primitive.ObjectID]Document),
		advertisements: make(map[primitive.ObjectID]Advertisement),
		payments:       make(map[primitive.ObjectID]Document),
		invoices:       make(map[primitive.ObjectID]Document),
		now:            time.Now,
	}
}

// WithMetrics records payment and invoice counters on m.
func (m *MemoryStore) WithMetrics(mc *metrics.Metrics) *MemoryStore {
	m.metrics = mc
	return m
}

// SeedContent replaces the read-only review and blog documents.
func (m *MemoryStore) SeedContent(reviews, blogs []bson.M) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append([]bson.M(nil), reviews...)
	m.blogs = append([]bson.M(nil), blogs...)
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// values returns map values ordered by id, which follows insertion order.
func values[T any](src map[primitive.ObjectID]T, keep func(T) bool) []T {
	ids := make([]primitive.ObjectID, 0, len(src))
	for id, v := range src {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, src[id])
	}
	return out
}

func newID(existing primitive.ObjectID) primitive.ObjectID {
	if existing.IsZero() {
		return primitive.NewObjectID()
	}
	return existing
}

// insertDocument stores doc under a fresh id and returns the acknowledgement.
func insertDocument(dst map[primitive.ObjectID]Document, doc Document) InsertResult {
	id := primitive.NewObjectID()
	doc["_id"] = id
	dst[id] = doc
	return InsertResult{Acknowledged: true, InsertedID: id}
}

// Users

func (m *MemoryStore) CreateUser(_ context.Context, u User) (InsertResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return InsertResult{}, false, nil
		}
	}
	if u.Role == "" {
		u.Role = auth.RoleBuyer.String()
	}
	u.ID = newID(u.ID)
	m.users[u.ID] = u
	return InsertResult{Acknowledged: true, InsertedID: u.ID}, true, nil
}

func (m *MemoryStore) ListUsers(context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.users, nil), nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) UpdateUser(_ context.Context, email, name string, role auth.Role) (UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email != email {
			continue
		}
		modified := u.Name != name || u.Role != role.String()
		u.Name, u.Role = name, role.String()
		m.users[id] = u
		return matched(modified), nil
	}
	return UpdateResult{Acknowledged: true}, nil
}

func (m *MemoryStore) UpdateUserRole(_ context.Context, id string, role auth.Role) (UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[oid]
	if !ok {
		return UpdateResult{Acknowledged: true}, nil
	}
	modified := u.Role != role.String()
	u.Role = role.String()
	m.users[oid] = u
	return matched(modified), nil
}

func (m *MemoryStore) RoleOf(ctx context.Context, email string) (auth.Role, bool, error) {
	u, err := m.GetUserByEmail(ctx, email)
	if err != nil {
		return "", false, nil
	}
	role, err := auth.ParseRole(u.Role)
	if err != nil {
		return "", true, nil
	}
	return role, true, nil
}

func matched(modified bool) UpdateResult {
	res := UpdateResult{Acknowledged: true, MatchedCount: 1}
	if modified {
		res.ModifiedCount = 1
	}
	return res
}

// Catalog

func catalogItem(p Document) catalog.Item {
	price, _ := p.Number("pricePerUnit")
	return catalog.Item{
		ID:           p.ID().Hex(),
		Name:         p.String("name"),
		CompanyName:  p.String("companyName"),
		CategoryName: p.String("categoryName"),
		PricePerUnit: price,
	}
}

func (m *MemoryStore) ListProducts(_ context.Context, q catalog.Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := values(m.products, func(p Document) bool { return q.Matches(catalogItem(p)) })
	sort.SliceStable(all, func(i, j int) bool { return q.Less(catalogItem(all[i]), catalogItem(all[j])) })
	start, end := q.Window(len(all))
	return all[start:end], nil
}

func (m *MemoryStore) CountProducts(_ context.Context, q catalog.Query) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(values(m.products, func(p Document) bool { return q.Matches(catalogItem(p)) }))), nil
}

func (m *MemoryStore) ProductsByCategory(_ context.Context, categoryName string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.products, func(p Document) bool { return p.String("categoryName") == categoryName }), nil
}

func (m *MemoryStore) CreateProduct(_ context.Context, product Document) (InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return insertDocument(m.products, prepareDocument(product)), nil
}

func (m *MemoryStore) ListCategories(context.Context) ([]Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.categories, nil), nil
}

func (m *MemoryStore) CreateCategory(_ context.Context, c Category) (InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = newID(c.ID)
	m.categories[c.ID] = c
	return InsertResult{Acknowledged: true, InsertedID: c.ID}, nil
}

func (m *MemoryStore) UpdateCategory(_ context.Context, id string, c Category) (UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.categories[oid]
	if !ok {
		return UpdateResult{Acknowledged: true}, nil
	}
	modified := existing.CategoryName != c.CategoryName || existing.CategoryImage != c.CategoryImage
	existing.CategoryName, existing.CategoryImage = c.CategoryName, c.CategoryImage
	m.categories[oid] = existing
	return matched(modified), nil
}

func (m *MemoryStore) DeleteCategory(_ context.Context, id string) (DeleteResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteIDs(m.categories, oid), nil
}

func deleteIDs[T any](src map[primitive.ObjectID]T, ids ...primitive.ObjectID) DeleteResult {
	res := DeleteResult{Acknowledged: true}
	for _, id := range ids {
		if _, ok := src[id]; ok {
			delete(src, id)
			res.DeletedCount++
		}
	}
	return res
}

// Carts

func (m *MemoryStore) ListCart(_ context.Context, email string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.carts, func(c Document) bool { return c.String("email") == email }), nil
}

func (m *MemoryStore) AddCartItem(_ context.Context, item Document) (InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return insertDocument(m.carts, prepareDocument(item)), nil
}

func (m *MemoryStore) RemoveCartItem(_ context.Context, id string) (DeleteResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteIDs(m.carts, oid), nil
}

func (m *MemoryStore) ClearCart(_ context.Context, email string) (DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []primitive.ObjectID
	for id, c := range m.carts {
		if c.String("email") == email {
			ids = append(ids, id)
		}
	}
	return deleteIDs(m.carts, ids...), nil
}

func (m *MemoryStore) UpdateCartItem(_ context.Context, productID, email string, pricePerUnit float64, quantity int) (UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range values(m.carts, nil) {
		if c.String("productId") != productID || c.String("email") != email {
			continue
		}
		oldPrice, _ := c.Number("pricePerUnit")
		oldQty, _ := c.Number("quantity")
		modified := oldPrice != pricePerUnit || oldQty != float64(quantity)
		c = c.Clone()
		c["pricePerUnit"], c["quantity"] = pricePerUnit, quantity
		m.carts[c.ID()] = c
		return matched(modified), nil
	}
	return UpdateResult{Acknowledged: true}, nil
}

// Advertisements and content

func (m *MemoryStore) ListAdvertisements(_ context.Context, status string) ([]Advertisement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.advertisements, func(a Advertisement) bool { return status == "" || a.Status == status }), nil
}

func (m *MemoryStore) AdvertisementsBySeller(_ context.Context, sellerEmail string) ([]Advertisement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.advertisements, func(a Advertisement) bool { return a.SellerEmail == sellerEmail }), nil
}

func (m *MemoryStore) CreateAdvertisement(_ context.Context, ad Advertisement) (InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prepareAdvertisement(&ad)
	ad.ID = newID(ad.ID)
	m.advertisements[ad.ID] = ad
	return InsertResult{Acknowledged: true, InsertedID: ad.ID}, nil
}

func (m *MemoryStore) ToggleAdvertisement(_ context.Context, id string) (UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ad, ok := m.advertisements[oid]
	if !ok {
		return UpdateResult{}, ErrNotFound
	}
	next := ad.Toggled()
	modified := next != ad.Status
	ad.Status = next
	m.advertisements[oid] = ad
	return matched(modified), nil
}

func (m *MemoryStore) ListReviews(context.Context) ([]bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]bson.M{}, m.reviews...), nil
}

func (m *MemoryStore) ListBlogs(context.Context) ([]bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]bson.M{}, m.blogs...), nil
}

// Payments

func byDateDesc(p []Document) []Document {
	sort.SliceStable(p, func(i, j int) bool { return p[i].Time("date").After(p[j].Time("date")) })
	return p
}

func (m *MemoryStore) ListPayments(context.Context) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return byDateDesc(values(m.payments, nil)), nil
}

func (m *MemoryStore) PaymentsByEmail(_ context.Context, email string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return byDateDesc(values(m.payments, func(p Document) bool { return p.String("email") == email })), nil
}

func (m *MemoryStore) CreatePayment(_ context.Context, payment Document) (InsertResult, error) {
	m.mu.Lock()
	res := insertDocument(m.payments, preparePayment(payment, m.now()))
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.ObservePaymentRecorded()
	}
	return res, nil
}

func (m *MemoryStore) MarkPaymentPaid(_ context.Context, id string) (UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[oid]
	if !ok {
		return UpdateResult{Acknowledged: true}, nil
	}
	modified := p.String("status") != stats.StatusPaid
	p = p.Clone()
	p["status"] = stats.StatusPaid
	m.payments[oid] = p
	return matched(modified), nil
}

// Invoices

func (m *MemoryStore) ListInvoices(_ context.Context, email string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.invoices, func(inv Document) bool { return email == "" || inv.String("email") == email }), nil
}

func (m *MemoryStore) CreateInvoice(_ context.Context, invoice Document) (InvoiceResult, error) {
	inv, cartIDs, err := prepareInvoice(invoice, m.now())
	if err != nil {
		return InvoiceResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	inv["cartPurge"] = PurgeDone
	ins := insertDocument(m.invoices, inv)
	del := deleteIDs(m.carts, cartIDs...)
	if m.metrics != nil {
		m.metrics.ObserveInvoice("transaction", del.DeletedCount)
	}
	return InvoiceResult{InvoiceResult: ins, DeleteResult: del}, nil
}

func (m *MemoryStore) DeleteInvoice(_ context.Context, id string) (DeleteResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteIDs(m.invoices, oid), nil
}

func (m *MemoryStore) ReconcileInvoices(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var completed int64
	for id, inv := range m.invoices {
		if inv.String("cartPurge") != PurgePending || !inv.Time("createdAt").Before(olderThan) {
			continue
		}
		ids, _ := inv.Strings("cartIds")
		cartIDs, err := parseIDs(ids)
		if err != nil {
			continue
		}
		deleteIDs(m.carts, cartIDs...)
		inv = inv.Clone()
		inv["cartPurge"] = PurgeDone
		m.invoices[id] = inv
		completed++
	}
	return completed, nil
}

// Stats

func (m *MemoryStore) statsInputs() ([]stats.Payment, []stats.Product) {
	payments := make([]stats.Payment, 0, len(m.payments))
	for _, p := range values(m.payments, nil) {
		price, _ := p.Number("price")
		productIDs, _ := p.Strings("productIds")
		payments = append(payments, stats.Payment{
			ID:            p.ID(),
			Email:         p.String("email"),
			Price:         price,
			Status:        p.String("status"),
			TransactionID: p.String("transactionId"),
			Date:          p.Time("date"),
			ProductIDs:    productIDs,
		})
	}
	products := make([]stats.Product, 0, len(m.products))
	for _, p := range m.products {
		price, _ := p.Number("pricePerUnit")
		products = append(products, stats.Product{
			ID:           p.ID(),
			Name:         p.String("name"),
			PricePerUnit: price,
			SellerEmail:  p.String("sellerEmail"),
		})
	}
	return payments, products
}

func (m *MemoryStore) AdminSummary(context.Context) (stats.AdminSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payments, _ := m.statsInputs()
	return stats.AdminSummaryOf(payments), nil
}

func (m *MemoryStore) SellerSummary(_ context.Context, sellerEmail string) (stats.SellerSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payments, products := m.statsInputs()
	return stats.SellerSummaryOf(sellerEmail, payments, products), nil
}

func (m *MemoryStore) SellerHistory(_ context.Context, sellerEmail string) ([]stats.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payments, products := m.statsInputs()
	return stats.SellerHistoryOf(sellerEmail, payments, products), nil
}
