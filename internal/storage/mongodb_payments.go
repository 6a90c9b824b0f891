package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmaplaza/server/internal/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListPayments returns every payment, newest first.
func (s *MongoDBStore) ListPayments(ctx context.Context) ([]Document, error) {
	defer s.measure("payments.list")()
	return findAll[Document](ctx, s.payments, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
}

// PaymentsByEmail returns the buyer's payments, newest first.
func (s *MongoDBStore) PaymentsByEmail(ctx context.Context, email string) ([]Document, error) {
	defer s.measure("payments.by_email")()
	return findAll[Document](ctx, s.payments, bson.M{"email": email}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
}

// CreatePayment stores the payment, defaulting status to pending and date to now.
func (s *MongoDBStore) CreatePayment(ctx context.Context, payment Document) (InsertResult, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("payments.create")()

	res, err := s.payments.InsertOne(ctx, preparePayment(payment, s.now()))
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert payment: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ObservePaymentRecorded()
	}
	return insertResult(res), nil
}

// MarkPaymentPaid sets the payment's status to Paid.
func (s *MongoDBStore) MarkPaymentPaid(ctx context.Context, id string) (UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("payments.mark_paid")()

	res, err := s.payments.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"status": stats.StatusPaid}})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("mark payment paid: %w", err)
	}
	return updateResult(res), nil
}

// ListInvoices returns all invoices, or the buyer's when email is set.
func (s *MongoDBStore) ListInvoices(ctx context.Context, email string) ([]Document, error) {
	defer s.measure("invoices.list")()
	filter := bson.M{}
	if email != "" {
		filter["email"] = email
	}
	return findAll[Document](ctx, s.invoices, filter)
}

// CreateInvoice inserts the invoice and purges its cart items. With
// transactions enabled both writes commit together; otherwise the invoice
// is written with cartPurge "pending" and marked "done" after the purge,
// leaving incomplete purges for ReconcileInvoices.
func (s *MongoDBStore) CreateInvoice(ctx context.Context, invoice Document) (InvoiceResult, error) {
	inv, cartIDs, err := prepareInvoice(invoice, s.now())
	if err != nil {
		return InvoiceResult{}, err
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("invoices.create")()

	purge := bson.M{"_id": bson.M{"$in": cartIDs}}

	if s.useTransactions {
		inv["cartPurge"] = PurgeDone
		var out InvoiceResult
		err := s.withTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			ins, err := s.invoices.InsertOne(sessCtx, inv)
			if err != nil {
				return fmt.Errorf("insert invoice: %w", err)
			}
			del, err := s.carts.DeleteMany(sessCtx, purge)
			if err != nil {
				return fmt.Errorf("purge carts: %w", err)
			}
			out = InvoiceResult{InvoiceResult: insertResult(ins), DeleteResult: deleteResult(del)}
			return nil
		})
		if err != nil {
			return InvoiceResult{}, err
		}
		s.observeInvoice("transaction", out.DeleteResult.DeletedCount)
		return out, nil
	}

	ins, err := s.invoices.InsertOne(ctx, inv)
	if err != nil {
		return InvoiceResult{}, fmt.Errorf("insert invoice: %w", err)
	}
	del, err := s.carts.DeleteMany(ctx, purge)
	if err != nil {
		return InvoiceResult{}, fmt.Errorf("purge carts (invoice %v left pending): %w", ins.InsertedID, err)
	}
	// A failure here only delays the bookkeeping; the reconciler repeats the
	// idempotent purge and marks the invoice done.
	_, _ = s.invoices.UpdateOne(ctx, bson.M{"_id": ins.InsertedID}, bson.M{"$set": bson.M{"cartPurge": PurgeDone}})

	out := InvoiceResult{InvoiceResult: insertResult(ins), DeleteResult: deleteResult(del)}
	s.observeInvoice("compensating", out.DeleteResult.DeletedCount)
	return out, nil
}

// DeleteInvoice removes the invoice with id.
func (s *MongoDBStore) DeleteInvoice(ctx context.Context, id string) (DeleteResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("invoices.delete")()

	res, err := s.invoices.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete invoice: %w", err)
	}
	return deleteResult(res), nil
}

// pendingInvoice is the part of an invoice the reconciler reads.
type pendingInvoice struct {
	ID      primitive.ObjectID `bson:"_id"`
	CartIDs []string           `bson:"cartIds"`
}

// ReconcileInvoices finishes cart purges for invoices left pending.
func (s *MongoDBStore) ReconcileInvoices(ctx context.Context, olderThan time.Time) (int64, error) {
	defer s.measure("invoices.reconcile")()

	pending, err := findAll[pendingInvoice](ctx, s.invoices, bson.M{
		"cartPurge": PurgePending,
		"createdAt": bson.M{"$lt": olderThan},
	})
	if err != nil {
		return 0, err
	}

	var completed int64
	for _, inv := range pending {
		cartIDs, err := parseIDs(inv.CartIDs)
		if err != nil {
			// unreachable for invoices written by CreateInvoice; skip rather than block the rest
			continue
		}
		if err := s.finishPurge(ctx, inv, cartIDs); err != nil {
			return completed, err
		}
		completed++
	}
	return completed, nil
}

func (s *MongoDBStore) finishPurge(ctx context.Context, inv pendingInvoice, cartIDs []primitive.ObjectID) error {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	if _, err := s.carts.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": cartIDs}}); err != nil {
		return fmt.Errorf("purge carts for invoice %s: %w", inv.ID.Hex(), err)
	}
	if _, err := s.invoices.UpdateOne(ctx, bson.M{"_id": inv.ID}, bson.M{"$set": bson.M{"cartPurge": PurgeDone}}); err != nil {
		return fmt.Errorf("mark invoice %s purged: %w", inv.ID.Hex(), err)
	}
	return nil
}

func (s *MongoDBStore) observeInvoice(mode string, purged int64) {
	if s.metrics != nil {
		s.metrics.ObserveInvoice(mode, purged)
	}
}

// AdminSummary totals payment revenue per status and overall.
func (s *MongoDBStore) AdminSummary(ctx context.Context) (stats.AdminSummary, error) {
	defer s.measure("stats.admin")()

	facets, err := aggregateAll[stats.AdminFacet](ctx, s.payments, stats.AdminSummaryPipeline())
	if err != nil {
		return stats.AdminSummary{}, err
	}
	if len(facets) == 0 {
		return stats.AdminSummary{StatusTotals: map[string]float64{}}, nil
	}
	return facets[0].Summary(), nil
}

// SellerSummary totals revenue per status for the seller's product lines.
func (s *MongoDBStore) SellerSummary(ctx context.Context, sellerEmail string) (stats.SellerSummary, error) {
	defer s.measure("stats.seller")()

	rows, err := aggregateAll[stats.StatusTotal](ctx, s.payments, stats.SellerSummaryPipeline(sellerEmail))
	if err != nil {
		return stats.SellerSummary{}, err
	}
	return stats.SellerSummary{StatusTotals: stats.Totals(rows)}, nil
}

// SellerHistory lists payment lines for the seller's products, newest first.
func (s *MongoDBStore) SellerHistory(ctx context.Context, sellerEmail string) ([]stats.HistoryEntry, error) {
	defer s.measure("stats.seller_history")()
	return aggregateAll[stats.HistoryEntry](ctx, s.payments, stats.SellerHistoryPipeline(sellerEmail))
}
