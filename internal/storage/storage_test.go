package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pharmaplaza/server/internal/auth"
	"github.com/pharmaplaza/server/internal/catalog"
	"github.com/pharmaplaza/server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryStore_CreateUserIsIdempotentByEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	res, created, err := store.CreateUser(ctx, User{Email: "a@example.com", Name: "A"})
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}
	if res.InsertedID == nil {
		t.Fatal("expected inserted id")
	}

	_, created, err = store.CreateUser(ctx, User{Email: "a@example.com", Name: "Again"})
	if err != nil || created {
		t.Fatalf("second create: created=%v err=%v", created, err)
	}

	users, _ := store.ListUsers(ctx)
	if len(users) != 1 {
		t.Fatalf("users = %d, want 1", len(users))
	}
	if users[0].Role != "Buyer" {
		t.Errorf("default role = %q, want Buyer", users[0].Role)
	}
}

func TestMemoryStore_RoleOf(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, _, _ = store.CreateUser(ctx, User{Email: "admin@example.com", Role: "admin"})
	_, _, _ = store.CreateUser(ctx, User{Email: "odd@example.com", Role: "superuser"})

	if role, found, _ := store.RoleOf(ctx, "admin@example.com"); !found || role != auth.RoleAdmin {
		t.Errorf("RoleOf(admin) = %q, %v", role, found)
	}
	if role, found, _ := store.RoleOf(ctx, "odd@example.com"); !found || role != "" {
		t.Errorf("RoleOf(odd) = %q, %v; unknown roles must not match", role, found)
	}
	if _, found, _ := store.RoleOf(ctx, "ghost@example.com"); found {
		t.Error("RoleOf(ghost) should not be found")
	}
}

func TestMemoryStore_ListProductsPagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for i := 0; i < 12; i++ {
		_, _ = store.CreateProduct(ctx, Document{
			"name":         fmt.Sprintf("Napa %d", i),
			"companyName":  "Beximco",
			"categoryName": "Tablet",
			"pricePerUnit": float64(12 - i),
		})
	}
	_, _ = store.CreateProduct(ctx, Document{"name": "Cough Syrup", "companyName": "Square", "categoryName": "Syrup", "pricePerUnit": 1})

	all, _ := store.ListProducts(ctx, catalog.Query{Search: "NAPA", Sort: catalog.SortAsc})
	if len(all) != 12 {
		t.Fatalf("search results = %d, want 12", len(all))
	}
	for page := int64(1); page <= 3; page++ {
		q := catalog.Query{Search: "NAPA", Sort: catalog.SortAsc, Size: 5, Page: page, Paginate: true}
		got, _ := store.ListProducts(ctx, q)
		start := int((page - 1) * 5)
		end := start + 5
		if end > len(all) {
			end = len(all)
		}
		want := all[start:end]
		if len(got) != len(want) {
			t.Fatalf("page %d len = %d, want %d", page, len(got), len(want))
		}
		for i := range got {
			if got[i].ID() != want[i].ID() {
				t.Errorf("page %d item %d mismatch", page, i)
			}
		}
	}

	n, _ := store.CountProducts(ctx, catalog.Query{Search: "syrup"})
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestMemoryStore_ProductsByCategoryExactMatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, _ = store.CreateProduct(ctx, Document{"name": "a", "categoryName": "Tablet"})
	_, _ = store.CreateProduct(ctx, Document{"name": "b", "categoryName": "tablet"})
	_, _ = store.CreateProduct(ctx, Document{"name": "c", "categoryName": "Tablets"})

	got, _ := store.ProductsByCategory(ctx, "Tablet")
	if len(got) != 1 || got[0].String("name") != "a" {
		t.Errorf("ProductsByCategory = %+v", got)
	}
}

func TestMemoryStore_UpdateCartItemScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, _ = store.AddCartItem(ctx, Document{"email": "a@example.com", "productId": "p1", "pricePerUnit": 5, "quantity": 1})
	_, _ = store.AddCartItem(ctx, Document{"email": "b@example.com", "productId": "p1", "pricePerUnit": 5, "quantity": 1})

	res, err := store.UpdateCartItem(ctx, "p1", "b@example.com", 5, 4)
	if err != nil || res.MatchedCount != 1 || res.ModifiedCount != 1 {
		t.Fatalf("update = %+v, %v", res, err)
	}

	a, _ := store.ListCart(ctx, "a@example.com")
	b, _ := store.ListCart(ctx, "b@example.com")
	if q, _ := a[0].Number("quantity"); q != 1 {
		t.Errorf("buyer a quantity changed to %v", q)
	}
	if q, _ := b[0].Number("quantity"); q != 4 {
		t.Errorf("buyer b quantity = %v, want 4", q)
	}
}

func TestMemoryStore_ToggleAdvertisement(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	res, _ := store.CreateAdvertisement(ctx, Advertisement{SellerEmail: "s@example.com"})
	id := res.InsertedID.(primitive.ObjectID).Hex()
	odd, _ := store.CreateAdvertisement(ctx, Advertisement{SellerEmail: "s@example.com", Status: "Rejected"})
	oddID := odd.InsertedID.(primitive.ObjectID).Hex()

	status := func(id string) string {
		ads, _ := store.ListAdvertisements(ctx, "")
		for _, ad := range ads {
			if ad.ID.Hex() == id {
				return ad.Status
			}
		}
		return ""
	}

	if got := status(id); got != AdStatusHidden {
		t.Fatalf("new ad status = %q, want Hidden", got)
	}
	_, _ = store.ToggleAdvertisement(ctx, id)
	if got := status(id); got != AdStatusApproved {
		t.Errorf("after one toggle = %q", got)
	}
	_, _ = store.ToggleAdvertisement(ctx, id)
	if got := status(id); got != AdStatusHidden {
		t.Errorf("after two toggles = %q", got)
	}

	res2, _ := store.ToggleAdvertisement(ctx, oddID)
	if got := status(oddID); got != "Rejected" || res2.ModifiedCount != 0 {
		t.Errorf("unknown status toggled to %q (modified %d)", got, res2.ModifiedCount)
	}

	if _, err := store.ToggleAdvertisement(ctx, primitive.NewObjectID().Hex()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing ad error = %v", err)
	}
	if _, err := store.ToggleAdvertisement(ctx, "nope"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("bad id error = %v", err)
	}
}

func TestMemoryStore_CreateInvoicePurgesCarts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		res, _ := store.AddCartItem(ctx, Document{"email": "a@example.com", "name": name})
		ids = append(ids, res.InsertedID.(primitive.ObjectID).Hex())
	}

	res, err := store.CreateInvoice(ctx, Document{"email": "a@example.com", "cartIds": ids[:2], "total": 12.5})
	if err != nil {
		t.Fatal(err)
	}
	if res.DeleteResult.DeletedCount != 2 {
		t.Errorf("deleted = %d, want 2", res.DeleteResult.DeletedCount)
	}

	cart, _ := store.ListCart(ctx, "a@example.com")
	if len(cart) != 1 || cart[0].String("name") != "C" {
		t.Errorf("remaining cart = %+v", cart)
	}
	invoices, _ := store.ListInvoices(ctx, "")
	if len(invoices) != 1 || invoices[0].String("cartPurge") != PurgeDone || invoices[0]["total"] != 12.5 {
		t.Errorf("invoices = %+v", invoices)
	}

	if _, err := store.CreateInvoice(ctx, Document{"cartIds": []string{"bogus"}}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("invalid cart id error = %v", err)
	}
	if _, err := store.CreateInvoice(ctx, Document{"cartIds": "not-a-list"}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("invalid cart id error = %v", err)
	}
	if invoices, _ := store.ListInvoices(ctx, ""); len(invoices) != 1 {
		t.Error("invalid invoice must not be written")
	}
}

func TestInvoiceReconciler_RunOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cartRes, _ := store.AddCartItem(ctx, Document{"email": "a@example.com"})
	cartID := cartRes.InsertedID.(primitive.ObjectID)

	staleID, freshID := primitive.NewObjectID(), primitive.NewObjectID()
	store.invoices[staleID] = Document{"_id": staleID, "cartIds": []string{cartID.Hex()}, "cartPurge": PurgePending, "createdAt": now.Add(-time.Hour)}
	store.invoices[freshID] = Document{"_id": freshID, "cartIds": []string{}, "cartPurge": PurgePending, "createdAt": now}

	m := metrics.New(prometheus.NewRegistry())
	r := NewInvoiceReconciler(store, ReconcilerConfig{Interval: time.Hour, Grace: time.Minute}, m, zerolog.Nop())
	r.now = func() time.Time { return now }

	count, err := r.RunOnce(ctx)
	if err != nil || count != 1 {
		t.Fatalf("RunOnce = %d, %v; want 1", count, err)
	}
	if store.invoices[staleID].String("cartPurge") != PurgeDone {
		t.Error("stale invoice should be marked done")
	}
	if store.invoices[freshID].String("cartPurge") != PurgePending {
		t.Error("invoice inside grace period should stay pending")
	}
	if cart, _ := store.ListCart(ctx, "a@example.com"); len(cart) != 0 {
		t.Errorf("cart should be purged, got %d items", len(cart))
	}
	if got := promtest.ToFloat64(m.ReconcileInvoicesTotal); got != 1 {
		t.Errorf("reconciled metric = %v", got)
	}
}

func TestInvoiceReconciler_StartStop(t *testing.T) {
	r := NewInvoiceReconciler(NewMemoryStore(), ReconcilerConfig{Interval: 10 * time.Millisecond}, nil, zerolog.Nop())
	r.Start()

	done := make(chan struct{})
	go func() {
		_ = r.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() timed out")
	}
}

func TestMemoryStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p1, _ := store.CreateProduct(ctx, Document{"name": "x", "sellerEmail": "s@example.com"})
	p2, _ := store.CreateProduct(ctx, Document{"name": "y", "sellerEmail": "s@example.com"})
	id1 := p1.InsertedID.(primitive.ObjectID).Hex()
	id2 := p2.InsertedID.(primitive.ObjectID).Hex()

	_, _ = store.CreatePayment(ctx, Document{"email": "b@example.com", "price": 10, "status": "Paid", "productIds": []string{id1, id2}})
	_, _ = store.CreatePayment(ctx, Document{"email": "b@example.com", "price": 2.5, "date": "2024-05-01T10:00:00Z"})

	admin, _ := store.AdminSummary(ctx)
	if admin.TotalRevenue != 12.5 || admin.StatusTotals["pending"] != 2.5 {
		t.Errorf("admin = %+v", admin)
	}
	seller, _ := store.SellerSummary(ctx, "s@example.com")
	if seller.StatusTotals["Paid"] != 20 {
		t.Errorf("seller Paid = %v, want 20", seller.StatusTotals["Paid"])
	}
	history, _ := store.SellerHistory(ctx, "s@example.com")
	if len(history) != 2 {
		t.Errorf("history = %d lines, want 2", len(history))
	}
}

func TestMemoryStore_CreatePayment(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	store := NewMemoryStore().WithMetrics(m)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	posted := Document{"_id": "client-id", "email": "b@example.com", "price": 3, "cardBrand": "visa"}
	res, err := store.CreatePayment(ctx, posted)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.InsertedID.(primitive.ObjectID); !ok {
		t.Errorf("inserted id = %#v, want a generated ObjectID", res.InsertedID)
	}
	if posted["_id"] != "client-id" || posted.Has("status") {
		t.Errorf("caller's document was mutated: %+v", posted)
	}

	got, _ := store.PaymentsByEmail(ctx, "b@example.com")
	if len(got) != 1 {
		t.Fatalf("payments = %+v", got)
	}
	p := got[0]
	if p.String("status") != PaymentStatusPending || !p.Time("date").Equal(now) || p.String("cardBrand") != "visa" {
		t.Errorf("stored payment = %+v", p)
	}
	if ids, ok := p.Strings("productIds"); !ok || len(ids) != 0 {
		t.Errorf("productIds = %#v", p["productIds"])
	}
	if got := promtest.ToFloat64(m.PaymentsRecordedTotal); got != 1 {
		t.Errorf("payments recorded = %v, want 1", got)
	}
}
