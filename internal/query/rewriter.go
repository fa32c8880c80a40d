package query

import (
	"fmt"
	"strconv"
	"strings"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/store"
)

// Config names the tables a Rewriter joins.
type Config struct {
	// SourceTable is the table of the caller's query (default "records").
	SourceTable string
	// SourceIDColumn is its record id column (default "id").
	SourceIDColumn string
	// OrderTable and SubscriptionTable default to the store defaults.
	OrderTable        string
	SubscriptionTable string
}

// Rewriter produces query fragments for a FilterRequest. It is stateless
// and safe for concurrent use.
type Rewriter struct {
	source   string
	sourceID string
	orders   string
	subs     string
}

// NewRewriter validates cfg and creates a rewriter.
func NewRewriter(cfg Config) (*Rewriter, error) {
	r := &Rewriter{
		source:   defaultString(cfg.SourceTable, "records"),
		sourceID: defaultString(cfg.SourceIDColumn, "id"),
		orders:   defaultString(cfg.OrderTable, store.DefaultOrderTable),
		subs:     defaultString(cfg.SubscriptionTable, store.DefaultSubscriptionTable),
	}
	for _, ident := range []string{r.source, r.sourceID, r.orders, r.subs} {
		if !store.ValidIdent(ident) {
			return nil, coierrors.ConfigError(fmt.Sprintf("invalid identifier %q in query config", ident), nil)
		}
	}
	return r, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Rewritten holds every fragment for one filter.
type Rewritten struct {
	Join    string
	Where   string
	Args    []any
	OrderBy string
}

// Rewrite returns all three fragments. defaultOrderBy is returned as
// OrderBy unless the filter asks for a valid subscription ordering.
func (r *Rewriter) Rewrite(f FilterRequest, defaultOrderBy string) Rewritten {
	where, args := r.RewriteWhere(f)
	return Rewritten{
		Join:    r.RewriteJoin(f),
		Where:   where,
		Args:    args,
		OrderBy: r.RewriteOrderBy(f, defaultOrderBy),
	}
}

// RewriteJoin returns the INNER JOIN clauses the filter needs, each with a
// leading space, or "". Records without an index row drop out of the join.
func (r *Rewriter) RewriteJoin(f FilterRequest) string {
	var sb strings.Builder
	if f.needsOrderIndex() {
		fmt.Fprintf(&sb, " INNER JOIN %s ON %s.%s = %s.%s",
			r.orders, r.source, r.sourceID, r.orders, store.ColOrderID)
	}
	if _, _, ok := validOrder(f.OrderBy); ok {
		fmt.Fprintf(&sb, " INNER JOIN %s ON %s.%s = %s.%s",
			r.subs, r.source, r.sourceID, r.subs, store.ColSubscriptionID)
	}
	return sb.String()
}

// RewriteWhere returns " AND (...)" to append to an existing WHERE clause,
// with its bound arguments, or "" and nil when no criterion applies.
func (r *Rewriter) RewriteWhere(f FilterRequest) (string, []any) {
	p := r.Predicate(f)
	if p.IsEmpty() {
		return "", nil
	}
	sql, args := p.SQL(r.orders)
	return " AND " + sql, args
}

// RewriteOrderBy returns "<subscription table>.<field> <dir>" for a valid
// subscription ordering and defaultOrderBy otherwise.
func (r *Rewriter) RewriteOrderBy(f FilterRequest, defaultOrderBy string) string {
	field, dir, ok := validOrder(f.OrderBy)
	if !ok {
		return defaultOrderBy
	}
	return r.subs + "." + field + " " + dir
}

// Predicate builds the structured predicate for the order index criteria.
func (r *Rewriter) Predicate(f FilterRequest) Predicate {
	var p Predicate

	if f.Has(CustomerUser) {
		p.And(Eq(store.ColUserID, f.CustomerUser))
	}
	if f.Has(CustomerEmail) {
		p.And(likeAny(f.CustomerEmail, store.ColCustomerEmail, store.ColBillingEmail)...)
	}
	if f.Has(CustomerName) {
		p.And(likeAny(f.CustomerName, store.ColCustomerName, store.ColBillingName, store.ColShippingName)...)
	}
	if f.Has(CustomerPostcode) {
		p.And(likeAny(f.CustomerPostcode, store.ColBillingPostcode, store.ColShippingPostcode)...)
	}
	if f.Has(CustomerCity) {
		p.And(likeAny(f.CustomerCity, store.ColBillingCity, store.ColShippingCity)...)
	}
	if f.Has(OrderID) {
		p.And(orderIDConds(f.OrderID)...)
	}
	if f.Has(FullSearch) {
		for _, token := range strings.Fields(f.FullSearch) {
			p.And(likeAny(token, fullSearchColumns(token)...)...)
		}
	}
	return p
}

func likeAny(value string, columns ...string) []Cond {
	pattern, ok := Pattern(value)
	if !ok {
		return nil
	}
	conds := make([]Cond, len(columns))
	for i, c := range columns {
		conds[i] = Like(c, pattern)
	}
	return conds
}

// orderIDConds matches an order number exactly and, for numeric values,
// the order id too.
func orderIDConds(value string) []Cond {
	v := strings.ToLower(strings.TrimSpace(value))
	conds := []Cond{Eq(store.ColOrderNumber, v)}
	if id, err := strconv.ParseInt(v, 10, 64); err == nil {
		conds = append(conds, Eq(store.ColOrderID, id))
	}
	return conds
}

var textSearchColumns = []string{
	store.ColOrderNumber,
	store.ColCustomerEmail,
	store.ColBillingEmail,
	store.ColCustomerName,
	store.ColBillingName,
	store.ColShippingName,
	store.ColBillingCity,
	store.ColShippingCity,
	store.ColBillingPostcode,
	store.ColShippingPostcode,
}

// fullSearchColumns returns the columns a free-text token is matched
// against. Only purely numeric tokens may match the id columns.
func fullSearchColumns(token string) []string {
	cols := append([]string(nil), textSearchColumns...)
	if isNumeric(strings.Trim(token, "*")) {
		cols = append(cols, store.ColOrderID, store.ColUserID)
	}
	return cols
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var sortFields = map[string]bool{
	store.ColOrderTotal:      true,
	store.ColStartDate:       true,
	store.ColTrialEndDate:    true,
	store.ColNextPaymentDate: true,
	store.ColEndDate:         true,
	store.ColLastPaymentDate: true,
}

// SortFields returns the accepted subscription ordering fields.
func SortFields() []string {
	return []string{
		store.ColOrderTotal,
		store.ColStartDate,
		store.ColTrialEndDate,
		store.ColNextPaymentDate,
		store.ColEndDate,
		store.ColLastPaymentDate,
	}
}

func validOrder(o *SubscriptionOrder) (field, dir string, ok bool) {
	if o == nil {
		return "", "", false
	}
	field = strings.ToLower(strings.TrimSpace(o.Field))
	if !sortFields[field] {
		return "", "", false
	}
	dir = strings.ToUpper(strings.TrimSpace(o.Direction))
	if dir == "" {
		dir = Asc
	}
	if dir != Asc && dir != Desc {
		return "", "", false
	}
	return field, dir, true
}

// ValidateOrder returns an ERR_403 error for orderings RewriteOrderBy would
// ignore, so callers that want to reject them can.
func ValidateOrder(o SubscriptionOrder) error {
	if _, _, ok := validOrder(&o); !ok {
		return coierrors.New(coierrors.ErrCodeUnsupportedOrderBy,
			fmt.Sprintf("unsupported subscription ordering %q %q", o.Field, o.Direction), nil).
			WithSuggestion("use one of: " + strings.Join(SortFields(), ", "))
	}
	return nil
}
