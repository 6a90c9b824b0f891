// Package stats builds the revenue aggregation pipelines and evaluates the
// same semantics in process.
package stats

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Payment statuses counted by the admin summary.
const (
	StatusPaid    = "Paid"
	StatusPending = "pending"
)

// AdminSummaryPipeline totals payments per Paid/pending status and overall.
func AdminSummaryPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"byStatus": bson.A{
				bson.M{"$match": bson.M{"status": bson.M{"$in": bson.A{StatusPaid, StatusPending}}}},
				bson.M{"$group": bson.M{"_id": "$status", "totalAmount": bson.M{"$sum": "$price"}}},
				bson.M{"$project": bson.M{"totalAmount": bson.M{"$round": bson.A{"$totalAmount", 2}}}},
			},
			"overall": bson.A{
				bson.M{"$group": bson.M{"_id": nil, "totalRevenue": bson.M{"$sum": "$price"}}},
				bson.M{"$project": bson.M{"_id": 0, "totalRevenue": bson.M{"$round": bson.A{"$totalRevenue", 2}}}},
			},
		}}},
	}
}

// sellerLines fans each payment out to one row per product it references
// and keeps the rows whose product belongs to seller.
func sellerLines(seller string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$productIds"}},
		{{Key: "$addFields", Value: bson.M{
			"productObjectId": bson.M{"$convert": bson.M{
				"input":   "$productIds",
				"to":      "objectId",
				"onError": nil,
				"onNull":  nil,
			}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "products",
			"localField":   "productObjectId",
			"foreignField": "_id",
			"as":           "product",
		}}},
		{{Key: "$unwind", Value: "$product"}},
		{{Key: "$match", Value: bson.M{"product.sellerEmail": seller}}},
	}
}

// SellerSummaryPipeline totals, per payment status, the price of every
// payment line that references one of seller's products.
func SellerSummaryPipeline(seller string) mongo.Pipeline {
	return append(sellerLines(seller),
		bson.D{{Key: "$group", Value: bson.M{"_id": "$status", "totalAmount": bson.M{"$sum": "$price"}}}},
		bson.D{{Key: "$project", Value: bson.M{"totalAmount": bson.M{"$round": bson.A{"$totalAmount", 2}}}}},
	)
}

// SellerHistoryPipeline lists payment lines for seller's products, newest first.
func SellerHistoryPipeline(seller string) mongo.Pipeline {
	return append(sellerLines(seller),
		bson.D{{Key: "$project", Value: bson.M{
			"_id":           0,
			"paymentId":     "$_id",
			"email":         1,
			"price":         1,
			"transactionId": 1,
			"date":          1,
			"status":        1,
			"productId":     bson.M{"$toString": "$product._id"},
			"productName":   "$product.name",
			"pricePerUnit":  "$product.pricePerUnit",
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "date", Value: -1}}}},
	)
}
