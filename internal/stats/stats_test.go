package stats

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAdminSummaryOf(t *testing.T) {
	payments := []Payment{
		{Price: 10.111, Status: StatusPaid},
		{Price: 5, Status: StatusPaid},
		{Price: 7.25, Status: StatusPending},
		{Price: 3, Status: "refunded"},
	}
	got := AdminSummaryOf(payments)

	if got.StatusTotals[StatusPaid] != 15.11 {
		t.Errorf("Paid = %v, want 15.11", got.StatusTotals[StatusPaid])
	}
	if got.StatusTotals[StatusPending] != 7.25 {
		t.Errorf("pending = %v", got.StatusTotals[StatusPending])
	}
	if _, ok := got.StatusTotals["refunded"]; ok {
		t.Error("refunded should not appear in status totals")
	}
	if got.TotalRevenue != 25.36 {
		t.Errorf("TotalRevenue = %v, want 25.36", got.TotalRevenue)
	}

	var filtered float64
	for _, v := range got.StatusTotals {
		filtered += v
	}
	if filtered > got.TotalRevenue {
		t.Errorf("filtered totals %v exceed grand total %v", filtered, got.TotalRevenue)
	}
}

func TestAdminSummaryOf_Empty(t *testing.T) {
	got := AdminSummaryOf(nil)
	if got.TotalRevenue != 0 || len(got.StatusTotals) != 0 {
		t.Errorf("empty summary = %+v", got)
	}
}

func TestRound2HalfToEven(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.125, 0.12},
		{0.375, 0.38},
		{0.625, 0.62},
		{2.5, 2.5},
		{15.111, 15.11},
		{-0.125, -0.12},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	got := AdminSummaryOf([]Payment{{Price: 0.125, Status: StatusPaid}})
	if got.StatusTotals[StatusPaid] != 0.12 || got.TotalRevenue != 0.12 {
		t.Errorf("summary = %+v, want 0.12 like $round", got)
	}
}

func TestSellerSummaryCountsPricePerMatchingProduct(t *testing.T) {
	p1, p2, other := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	products := []Product{
		{ID: p1, SellerEmail: "s@example.com"},
		{ID: p2, SellerEmail: "s@example.com"},
		{ID: other, SellerEmail: "x@example.com"},
	}
	payments := []Payment{
		{Price: 10, Status: StatusPaid, ProductIDs: []string{p1.Hex(), p2.Hex(), other.Hex()}},
		{Price: 4, Status: StatusPending, ProductIDs: []string{"not-an-id", p1.Hex()}},
		{Price: 99, Status: StatusPaid},
	}

	got := SellerSummaryOf("s@example.com", payments, products)
	if got.StatusTotals[StatusPaid] != 20 {
		t.Errorf("Paid = %v, want 20", got.StatusTotals[StatusPaid])
	}
	if got.StatusTotals[StatusPending] != 4 {
		t.Errorf("pending = %v, want 4", got.StatusTotals[StatusPending])
	}
}

func TestSellerHistoryOf(t *testing.T) {
	prod := Product{ID: primitive.NewObjectID(), Name: "Napa", PricePerUnit: 2.5, SellerEmail: "s@example.com"}
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	payments := []Payment{
		{ID: primitive.NewObjectID(), Price: 5, Date: older, ProductIDs: []string{prod.ID.Hex()}},
		{ID: primitive.NewObjectID(), Price: 7, Date: newer, ProductIDs: []string{prod.ID.Hex()}},
	}

	got := SellerHistoryOf("s@example.com", payments, []Product{prod})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Date.Equal(newer) {
		t.Errorf("history not newest first: %v", got[0].Date)
	}
	if got[0].ProductID != prod.ID.Hex() || got[0].ProductName != "Napa" || got[0].PricePerUnit != 2.5 {
		t.Errorf("entry = %+v", got[0])
	}
	if len(SellerHistoryOf("nobody@example.com", payments, []Product{prod})) != 0 {
		t.Error("other seller should see no history")
	}
}

func TestSellerSummaryPipelineShape(t *testing.T) {
	p := SellerSummaryPipeline("s@example.com")
	wantStages := []string{"$unwind", "$addFields", "$lookup", "$unwind", "$match", "$group", "$project"}
	if len(p) != len(wantStages) {
		t.Fatalf("stages = %d, want %d", len(p), len(wantStages))
	}
	for i, stage := range wantStages {
		if p[i][0].Key != stage {
			t.Errorf("stage %d = %s, want %s", i, p[i][0].Key, stage)
		}
	}
	match := p[4][0].Value.(bson.M)
	if match["product.sellerEmail"] != "s@example.com" {
		t.Errorf("match = %v", match)
	}

	// history pipeline must not share backing storage with summary pipeline
	h := SellerHistoryPipeline("s@example.com")
	if h[len(h)-1][0].Key != "$sort" {
		t.Errorf("history should end with $sort, got %s", h[len(h)-1][0].Key)
	}
}

func TestAdminFacetSummary(t *testing.T) {
	facet := AdminFacet{ByStatus: []StatusTotal{{Status: StatusPaid, TotalAmount: 12.5}}}
	if got := facet.Summary(); got.TotalRevenue != 0 || got.StatusTotals[StatusPaid] != 12.5 {
		t.Errorf("summary = %+v", got)
	}
}
