package storage

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// parseID converts a hex string into an ObjectID.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// parseIDs converts every id, failing on the first invalid one.
func parseIDs(ids []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := parseID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, oid)
	}
	return out, nil
}

// prepareDocument copies doc without any client-supplied _id; ids are
// always assigned by the store.
func prepareDocument(doc Document) Document {
	out := doc.Clone()
	delete(out, "_id")
	return out
}

// prepareAdvertisement defaults new advertisements to Hidden.
func prepareAdvertisement(ad *Advertisement) {
	if ad.Status == "" {
		ad.Status = AdStatusHidden
	}
}

// preparePayment defaults status to pending and date to now. A date posted
// as an RFC 3339 string is stored as a BSON date so payments sort and
// aggregate chronologically.
func preparePayment(doc Document, now time.Time) Document {
	out := prepareDocument(doc)
	if s, _ := out["status"].(string); s == "" {
		out["status"] = PaymentStatusPending
	}
	switch v := out["date"].(type) {
	case nil:
		out["date"] = now
	case string:
		if v == "" {
			out["date"] = now
		} else if t := out.Time("date"); !t.IsZero() {
			out["date"] = t
		}
	}
	if !out.Has("productIds") {
		out["productIds"] = []string{}
	}
	return out
}

// prepareInvoice validates cart ids and stamps bookkeeping fields.
func prepareInvoice(doc Document, now time.Time) (Document, []primitive.ObjectID, error) {
	ids, ok := doc.Strings("cartIds")
	if !ok {
		return nil, nil, fmt.Errorf("%w: cartIds must be a list of ids", ErrInvalidID)
	}
	cartIDs, err := parseIDs(ids)
	if err != nil {
		return nil, nil, err
	}
	out := prepareDocument(doc)
	out["cartIds"] = ids
	out["cartPurge"] = PurgePending
	out["createdAt"] = now
	return out, cartIDs, nil
}
