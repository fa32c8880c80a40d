// Package query rewrites structured order filters into join, predicate and
// ordering fragments that read the order and subscription index tables.
package query

import (
	"strconv"
	"strings"
)

// Criterion names one filter criterion.
type Criterion string

const (
	CustomerUser        Criterion = "customer_user"
	CustomerEmail       Criterion = "customer_email"
	CustomerName        Criterion = "customer_name"
	CustomerPostcode    Criterion = "customer_postcode"
	CustomerCity        Criterion = "customer_city"
	OrderID             Criterion = "order_id"
	FullSearch          Criterion = "full_search"
	SubscriptionOrderBy Criterion = "subscription_orderby"
)

// Sort directions.
const (
	Asc  = "ASC"
	Desc = "DESC"
)

// SubscriptionOrder is a requested subscription ordering. Field must be one
// of the subscription index sort columns and Direction ASC or DESC; anything
// else leaves the caller's ordering alone.
type SubscriptionOrder struct {
	Field     string
	Direction string
}

// FilterRequest is a set of criteria combined with AND. Zero values mean the
// criterion is absent. CustomerUser 0 is absent too: guest orders are listed
// through the lookup API, not through filters.
type FilterRequest struct {
	CustomerUser     int64
	CustomerEmail    string
	CustomerName     string
	CustomerPostcode string
	CustomerCity     string
	OrderID          string
	FullSearch       string
	OrderBy          *SubscriptionOrder
}

// Set assigns a criterion from its string form. It reports false for unknown
// criteria and for values that do not parse; the filter is then unchanged.
func (f *FilterRequest) Set(c Criterion, value string) bool {
	value = strings.TrimSpace(value)
	switch c {
	case CustomerUser:
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id < 0 {
			return false
		}
		f.CustomerUser = id
	case CustomerEmail:
		f.CustomerEmail = value
	case CustomerName:
		f.CustomerName = value
	case CustomerPostcode:
		f.CustomerPostcode = value
	case CustomerCity:
		f.CustomerCity = value
	case OrderID:
		f.OrderID = value
	case FullSearch:
		f.FullSearch = value
	case SubscriptionOrderBy:
		fields := strings.Fields(strings.ReplaceAll(value, ":", " "))
		if len(fields) == 0 || len(fields) > 2 {
			return false
		}
		order := &SubscriptionOrder{Field: strings.ToLower(fields[0]), Direction: Asc}
		if len(fields) == 2 {
			order.Direction = fields[1]
		}
		f.OrderBy = order
	default:
		return false
	}
	return true
}

// Has reports whether criterion c is present.
func (f FilterRequest) Has(c Criterion) bool {
	switch c {
	case CustomerUser:
		return f.CustomerUser > 0
	case CustomerEmail:
		return f.CustomerEmail != ""
	case CustomerName:
		return f.CustomerName != ""
	case CustomerPostcode:
		return f.CustomerPostcode != ""
	case CustomerCity:
		return f.CustomerCity != ""
	case OrderID:
		return f.OrderID != ""
	case FullSearch:
		return strings.TrimSpace(f.FullSearch) != ""
	case SubscriptionOrderBy:
		return f.OrderBy != nil
	}
	return false
}

// IsEmpty reports whether no criterion is present.
func (f FilterRequest) IsEmpty() bool {
	for _, c := range allCriteria {
		if f.Has(c) {
			return false
		}
	}
	return true
}

var allCriteria = []Criterion{
	CustomerUser, CustomerEmail, CustomerName, CustomerPostcode,
	CustomerCity, OrderID, FullSearch, SubscriptionOrderBy,
}

// orderIndexCriteria are the criteria answered by the order index.
var orderIndexCriteria = []Criterion{
	CustomerUser, CustomerEmail, CustomerName, CustomerPostcode,
	CustomerCity, OrderID, FullSearch,
}

func (f FilterRequest) needsOrderIndex() bool {
	for _, c := range orderIndexCriteria {
		if f.Has(c) {
			return true
		}
	}
	return false
}
