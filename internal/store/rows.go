package store

// Field is one column/value pair of a row to upsert.
type Field struct {
	Column string
	Value  any
}

// Row is an ordered list of fields.
type Row []Field

// Columns returns the column names in row order.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, f := range r {
		cols[i] = f.Column
	}
	return cols
}

// Values returns the values in row order.
func (r Row) Values() []any {
	vals := make([]any, len(r))
	for i, f := range r {
		vals[i] = f.Value
	}
	return vals
}

// OrderRow is the denormalized order projection. Text fields hold the
// normalized (trimmed, lower-cased) values.
type OrderRow struct {
	OrderID          int64
	OrderNumber      string
	RecordKind       string
	UserID           int64
	CustomerEmail    string
	BillingEmail     string
	CustomerName     string
	BillingName      string
	ShippingName     string
	BillingCity      string
	ShippingCity     string
	BillingPostcode  string
	ShippingPostcode string
}

// Fields returns the row in order index column order.
func (r OrderRow) Fields() Row {
	return Row{
		{ColOrderID, r.OrderID},
		{ColOrderNumber, r.OrderNumber},
		{ColRecordKind, r.RecordKind},
		{ColUserID, r.UserID},
		{ColCustomerEmail, r.CustomerEmail},
		{ColBillingEmail, r.BillingEmail},
		{ColCustomerName, r.CustomerName},
		{ColBillingName, r.BillingName},
		{ColShippingName, r.ShippingName},
		{ColBillingCity, r.BillingCity},
		{ColShippingCity, r.ShippingCity},
		{ColBillingPostcode, r.BillingPostcode},
		{ColShippingPostcode, r.ShippingPostcode},
	}
}

// SubscriptionRow is the subscription projection. Dates use the
// "2006-01-02 15:04:05" UTC layout; empty means unset.
type SubscriptionRow struct {
	SubscriptionID  int64
	OrderTotal      float64
	StartDate       string
	TrialEndDate    string
	NextPaymentDate string
	EndDate         string
	LastPaymentDate string
}

// Fields returns the row in subscription index column order.
func (r SubscriptionRow) Fields() Row {
	return Row{
		{ColSubscriptionID, r.SubscriptionID},
		{ColOrderTotal, r.OrderTotal},
		{ColStartDate, r.StartDate},
		{ColTrialEndDate, r.TrialEndDate},
		{ColNextPaymentDate, r.NextPaymentDate},
		{ColEndDate, r.EndDate},
		{ColLastPaymentDate, r.LastPaymentDate},
	}
}
