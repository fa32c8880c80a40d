package query

import "strings"

// Legacy query variable names.
const (
	VarMetaKey       = "meta_key"
	VarMetaValue     = "meta_value"
	VarCustomer      = "customer"
	VarCustomerUser  = "wc_customer_user"
	VarCustomerEmail = "wc_customer_email"
	VarCustomerName  = "wc_customer_name"
	VarOrderID       = "wc_order_id"
)

// FromQueryVars translates legacy order query variables into a filter.
// A meta_key of _customer_user with its meta_value, and a non-empty
// customer, both select the customer. Empty or unparseable values are
// dropped. The returned map holds the variables the filter did not consume.
func FromQueryVars(vars map[string]string) (FilterRequest, map[string]string) {
	var f FilterRequest
	rest := make(map[string]string, len(vars))
	for k, v := range vars {
		rest[k] = v
	}

	if rest[VarMetaKey] == "_customer_user" {
		f.Set(CustomerUser, rest[VarMetaValue])
		delete(rest, VarMetaKey)
		delete(rest, VarMetaValue)
	}

	direct := map[string]Criterion{
		VarCustomerUser:  CustomerUser,
		VarCustomerEmail: CustomerEmail,
		VarCustomerName:  CustomerName,
		VarOrderID:       OrderID,
	}
	for name, c := range direct {
		v, ok := rest[name]
		if !ok {
			continue
		}
		delete(rest, name)
		if strings.TrimSpace(v) != "" {
			f.Set(c, v)
		}
	}

	if v := strings.TrimSpace(rest[VarCustomer]); v != "" {
		if f.Set(CustomerUser, v) {
			delete(rest, VarCustomer)
		}
	}
	return f, rest
}
