package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Query
		wantErr bool
	}{
		{name: "empty", raw: "", want: Query{}},
		{name: "search trimmed", raw: "search=+napa+", want: Query{Search: "napa"}},
		{name: "sort asc", raw: "sort=asc", want: Query{Sort: SortAsc}},
		{name: "sort DESC", raw: "sort=DESC", want: Query{Sort: SortDesc}},
		{name: "unknown sort ignored", raw: "sort=price", want: Query{}},
		{name: "size only defaults page", raw: "size=10", want: Query{Size: 10, Page: 1, Paginate: true}},
		{name: "page and size", raw: "size=5&page=3", want: Query{Size: 5, Page: 3, Paginate: true}},
		{name: "page without size", raw: "page=2", wantErr: true},
		{name: "non-numeric size", raw: "size=ten", wantErr: true},
		{name: "zero page", raw: "size=5&page=0", wantErr: true},
		{name: "negative size", raw: "size=-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.raw)
			got, err := ParseQuery(values)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuery) {
					t.Fatalf("error = %v, want ErrInvalidQuery", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseQuery() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilterEscapesMetacharacters(t *testing.T) {
	f := Query{Search: "a+b(c)"}.Filter()
	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 3 {
		t.Fatalf("filter = %#v", f)
	}
	re := or[0].(bson.M)["name"].(primitive.Regex)
	if re.Pattern != `a\+b\(c\)` || re.Options != "i" {
		t.Errorf("regex = %+v", re)
	}
	if len(Query{}.Filter()) != 0 {
		t.Error("empty search should produce empty filter")
	}
}

func TestFindOptions(t *testing.T) {
	opts := Query{Sort: SortDesc, Size: 4, Page: 3, Paginate: true}.FindOptions()
	if *opts.Skip != 8 || *opts.Limit != 4 {
		t.Errorf("skip/limit = %d/%d, want 8/4", *opts.Skip, *opts.Limit)
	}
	sortDoc := opts.Sort.(bson.D)
	if sortDoc[0].Key != "pricePerUnit" || sortDoc[0].Value != -1 || sortDoc[1].Key != "_id" {
		t.Errorf("sort = %v", sortDoc)
	}
	if opts := (Query{}).FindOptions(); opts.Sort != nil || opts.Skip != nil || opts.Limit != nil {
		t.Error("default query should not set sort/skip/limit")
	}
}

func TestMatchesCaseInsensitiveSubstring(t *testing.T) {
	item := Item{Name: "Napa Extra", CompanyName: "Beximco", CategoryName: "Tablet"}
	for _, term := range []string{"napa", "EXTRA", "xim", "tab"} {
		if !(Query{Search: term}).Matches(item) {
			t.Errorf("term %q should match", term)
		}
	}
	if (Query{Search: "syrup"}).Matches(item) {
		t.Error("syrup should not match")
	}
}

func TestPageIsSliceOfFullOrdering(t *testing.T) {
	var items []Item
	for i := 0; i < 23; i++ {
		items = append(items, Item{ID: fmt.Sprintf("%02d", i), Name: "p", PricePerUnit: float64(i % 5)})
	}
	full := Query{Sort: SortAsc}
	all := append([]Item(nil), items...)
	sort.SliceStable(all, func(i, j int) bool { return full.Less(all[i], all[j]) })

	for page := int64(1); page <= 6; page++ {
		q := Query{Sort: SortAsc, Size: 5, Page: page, Paginate: true}
		start, end := q.Window(len(all))
		got := all[start:end]
		if int64(len(got)) > q.Size {
			t.Fatalf("page %d has %d items", page, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].PricePerUnit > got[i].PricePerUnit {
				t.Errorf("page %d not ordered", page)
			}
		}
	}
	if start, end := (Query{Size: 5, Page: 9, Paginate: true}).Window(23); start != end {
		t.Errorf("page past end should be empty, got [%d,%d)", start, end)
	}
}
