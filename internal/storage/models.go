package storage

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Collection names in the PharmaPlaza database.
const (
	collUsers          = "users"
	collProducts       = "products"
	collCategories     = "categories"
	collCarts          = "carts"
	collAdvertisements = "advertisements"
	collReviews        = "reviews"
	collBlogs          = "blogs"
	collPayments       = "payments"
	collInvoices       = "invoices"
)

// Advertisement statuses.
const (
	AdStatusApproved = "Approved"
	AdStatusHidden   = "Hidden"
)

// Default payment status for new records.
const PaymentStatusPending = "pending"

// Invoice cart purge states.
const (
	PurgePending = "pending"
	PurgeDone    = "done"
)

// User is a marketplace account keyed by email.
type User struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Email string             `bson:"email" json:"email"`
	Name  string             `bson:"name,omitempty" json:"name,omitempty"`
	Role  string             `bson:"role,omitempty" json:"role,omitempty"`
	Photo string             `bson:"photo,omitempty" json:"photo,omitempty"`
}

// Category groups products by categoryName.
type Category struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	CategoryName  string             `bson:"categoryName" json:"categoryName"`
	CategoryImage string             `bson:"categoryImage" json:"categoryImage"`
}

// Advertisement is a seller's promoted product, visible once Approved.
type Advertisement struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	SellerEmail string             `bson:"sellerEmail" json:"sellerEmail"`
	ProductName string             `bson:"productName,omitempty" json:"productName,omitempty"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Status      string             `bson:"status" json:"status"`
}

// Toggled returns the status after a moderation toggle. Statuses other than
// Approved and Hidden are left unchanged.
func (a Advertisement) Toggled() string {
	switch a.Status {
	case AdStatusApproved:
		return AdStatusHidden
	case AdStatusHidden:
		return AdStatusApproved
	default:
		return a.Status
	}
}

// InsertResult mirrors the driver's insert acknowledgement.
type InsertResult struct {
	Acknowledged bool `json:"acknowledged"`
	InsertedID   any  `json:"insertedId"`
}

// UpdateResult mirrors the driver's update acknowledgement.
type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
	UpsertedCount int64 `json:"upsertedCount"`
	UpsertedID    any   `json:"upsertedId"`
}

// DeleteResult mirrors the driver's delete acknowledgement.
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// InvoiceResult reports both writes of invoice creation.
type InvoiceResult struct {
	InvoiceResult InsertResult `json:"InvoiceResult"`
	DeleteResult  DeleteResult `json:"deleteResult"`
}
