// Package catalog turns product listing parameters into a MongoDB filter and
// find options, with matching in-process semantics for the memory store.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sort orders products by pricePerUnit.
type Sort int

const (
	SortNone Sort = iota
	SortAsc
	SortDesc
)

// ErrInvalidQuery marks malformed listing parameters.
var ErrInvalidQuery = errors.New("invalid catalog query")

// Query is a validated product listing request.
type Query struct {
	Search   string
	Sort     Sort
	Page     int64
	Size     int64
	Paginate bool
}

// Item is the subset of a product the query semantics depend on.
type Item struct {
	ID           string
	Name         string
	CompanyName  string
	CategoryName string
	PricePerUnit float64
}

// ParseQuery reads search, sort, page and size from URL values.
// page defaults to 1 when only size is given; page without size is rejected.
func ParseQuery(values url.Values) (Query, error) {
	q := Query{Search: strings.TrimSpace(values.Get("search"))}

	switch strings.ToLower(values.Get("sort")) {
	case "asc":
		q.Sort = SortAsc
	case "desc":
		q.Sort = SortDesc
	}

	rawSize, rawPage := values.Get("size"), values.Get("page")
	if rawSize == "" {
		if rawPage != "" {
			return Query{}, fmt.Errorf("%w: page requires size", ErrInvalidQuery)
		}
		return q, nil
	}

	size, err := parsePositive("size", rawSize)
	if err != nil {
		return Query{}, err
	}
	page := int64(1)
	if rawPage != "" {
		if page, err = parsePositive("page", rawPage); err != nil {
			return Query{}, err
		}
	}
	q.Size, q.Page, q.Paginate = size, page, true
	return q, nil
}

func parsePositive(name, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidQuery, name)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidQuery, name)
	}
	return n, nil
}

// Filter returns the MongoDB filter for the query.
func (q Query) Filter() bson.M {
	if q.Search == "" {
		return bson.M{}
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"companyName": pattern},
		bson.M{"categoryName": pattern},
	}}
}

// FindOptions returns sort, skip and limit for the query.
func (q Query) FindOptions() *options.FindOptions {
	opts := options.Find()
	switch q.Sort {
	case SortAsc:
		opts.SetSort(bson.D{{Key: "pricePerUnit", Value: 1}, {Key: "_id", Value: 1}})
	case SortDesc:
		opts.SetSort(bson.D{{Key: "pricePerUnit", Value: -1}, {Key: "_id", Value: 1}})
	}
	if q.Paginate {
		opts.SetSkip(q.Skip())
		opts.SetLimit(q.Size)
	}
	return opts
}

// Skip is the number of matching products before the requested page.
func (q Query) Skip() int64 {
	if !q.Paginate {
		return 0
	}
	return (q.Page - 1) * q.Size
}

// Matches reports whether item satisfies the search filter.
func (q Query) Matches(item Item) bool {
	if q.Search == "" {
		return true
	}
	term := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(item.Name), term) ||
		strings.Contains(strings.ToLower(item.CompanyName), term) ||
		strings.Contains(strings.ToLower(item.CategoryName), term)
}

// Less orders two items the way FindOptions sorts them. With SortNone it
// falls back to id order so listings stay stable.
func (q Query) Less(a, b Item) bool {
	if a.PricePerUnit != b.PricePerUnit {
		switch q.Sort {
		case SortAsc:
			return a.PricePerUnit < b.PricePerUnit
		case SortDesc:
			return a.PricePerUnit > b.PricePerUnit
		}
	}
	return a.ID < b.ID
}

// Window returns the [start, end) bounds of the page within n results.
func (q Query) Window(n int) (int, int) {
	if !q.Paginate {
		return 0, n
	}
	start := q.Skip()
	if start > int64(n) {
		return n, n
	}
	end := start + q.Size
	if end > int64(n) {
		end = int64(n)
	}
	return int(start), int(end)
}
