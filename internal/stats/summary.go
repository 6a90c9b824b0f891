package stats

import (
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminSummary is the platform-wide revenue summary.
type AdminSummary struct {
	StatusTotals map[string]float64 `json:"statusTotals"`
	TotalRevenue float64            `json:"totalRevenue"`
}

// SellerSummary is one seller's revenue per payment status.
type SellerSummary struct {
	StatusTotals map[string]float64 `json:"statusTotals"`
}

// HistoryEntry is one payment line for a seller's product.
type HistoryEntry struct {
	PaymentID     primitive.ObjectID `bson:"paymentId" json:"paymentId"`
	Email         string             `bson:"email" json:"email"`
	Price         float64            `bson:"price" json:"price"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	Date          time.Time          `bson:"date" json:"date"`
	Status        string             `bson:"status" json:"status"`
	ProductID     string             `bson:"productId" json:"productId"`
	ProductName   string             `bson:"productName" json:"productName"`
	PricePerUnit  float64            `bson:"pricePerUnit" json:"pricePerUnit"`
}

// StatusTotal is one row of a per-status $group.
type StatusTotal struct {
	Status      string  `bson:"_id"`
	TotalAmount float64 `bson:"totalAmount"`
}

// AdminFacet decodes the single document produced by AdminSummaryPipeline.
type AdminFacet struct {
	ByStatus []StatusTotal `bson:"byStatus"`
	Overall  []struct {
		TotalRevenue float64 `bson:"totalRevenue"`
	} `bson:"overall"`
}

// Summary converts the facet document into an AdminSummary.
func (f AdminFacet) Summary() AdminSummary {
	out := AdminSummary{StatusTotals: Totals(f.ByStatus)}
	if len(f.Overall) > 0 {
		out.TotalRevenue = f.Overall[0].TotalRevenue
	}
	return out
}

// Totals collects grouped rows into a status map.
func Totals(rows []StatusTotal) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.TotalAmount
	}
	return out
}

// Payment is the view of a payment record used by the in-process evaluators.
type Payment struct {
	ID            primitive.ObjectID
	Email         string
	Price         float64
	Status        string
	TransactionID string
	Date          time.Time
	ProductIDs    []string
}

// Product is the view of a product used by the in-process evaluators.
type Product struct {
	ID           primitive.ObjectID
	Name         string
	PricePerUnit float64
	SellerEmail  string
}

// AdminSummaryOf evaluates AdminSummaryPipeline over payments.
func AdminSummaryOf(payments []Payment) AdminSummary {
	totals := map[string]float64{}
	var all float64
	for _, p := range payments {
		all += p.Price
		if p.Status == StatusPaid || p.Status == StatusPending {
			totals[p.Status] += p.Price
		}
	}
	for k, v := range totals {
		totals[k] = round2(v)
	}
	return AdminSummary{StatusTotals: totals, TotalRevenue: round2(all)}
}

// SellerSummaryOf evaluates SellerSummaryPipeline.
func SellerSummaryOf(seller string, payments []Payment, products []Product) SellerSummary {
	totals := map[string]float64{}
	forEachLine(seller, payments, products, func(p Payment, _ Product) {
		totals[p.Status] += p.Price
	})
	for k, v := range totals {
		totals[k] = round2(v)
	}
	return SellerSummary{StatusTotals: totals}
}

// SellerHistoryOf evaluates SellerHistoryPipeline.
func SellerHistoryOf(seller string, payments []Payment, products []Product) []HistoryEntry {
	out := []HistoryEntry{}
	forEachLine(seller, payments, products, func(p Payment, prod Product) {
		out = append(out, HistoryEntry{
			PaymentID:     p.ID,
			Email:         p.Email,
			Price:         p.Price,
			TransactionID: p.TransactionID,
			Date:          p.Date,
			Status:        p.Status,
			ProductID:     prod.ID.Hex(),
			ProductName:   prod.Name,
			PricePerUnit:  prod.PricePerUnit,
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func forEachLine(seller string, payments []Payment, products []Product, fn func(Payment, Product)) {
	byID := make(map[primitive.ObjectID]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, pay := range payments {
		for _, raw := range pay.ProductIDs {
			oid, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				continue
			}
			prod, ok := byID[oid]
			if !ok || prod.SellerEmail != seller {
				continue
			}
			fn(pay, prod)
		}
	}
}

// round2 rounds to two decimals, half to even, matching MongoDB's $round.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
