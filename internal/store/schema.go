package store

import (
	"fmt"
	"regexp"
	"strings"
)

// ColumnType is the SQLite storage class of an index column.
type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeText    ColumnType = "TEXT"
	TypeReal    ColumnType = "REAL"
)

// Column describes one index column.
type Column struct {
	Name    string
	Type    ColumnType
	Indexed bool
}

// Table is the static description of an index table: its columns in
// projection order and its key columns.
type Table struct {
	Name    string
	Key     []string
	Columns []Column
}

// Order index column names.
const (
	ColOrderID          = "order_id"
	ColOrderNumber      = "order_number"
	ColRecordKind       = "record_kind"
	ColUserID           = "user_id"
	ColCustomerEmail    = "customer_email"
	ColBillingEmail     = "billing_email"
	ColCustomerName     = "customer_name"
	ColBillingName      = "billing_name"
	ColShippingName     = "shipping_name"
	ColBillingCity      = "billing_city"
	ColShippingCity     = "shipping_city"
	ColBillingPostcode  = "billing_postcode"
	ColShippingPostcode = "shipping_postcode"
)

// Subscription index column names.
const (
	ColSubscriptionID  = "subscription_id"
	ColOrderTotal      = "order_total"
	ColStartDate       = "start_date"
	ColTrialEndDate    = "trial_end_date"
	ColNextPaymentDate = "next_payment_date"
	ColEndDate         = "end_date"
	ColLastPaymentDate = "last_payment_date"
)

// Option table column names.
const (
	ColOptionName  = "option_name"
	ColOptionValue = "option_value"
)

// Default table names.
const (
	DefaultOrderTable        = "customer_order_index"
	DefaultSubscriptionTable = "subscription_index"
	OptionsTable             = "index_options"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdent reports whether s can be used unquoted as a table or column name.
func ValidIdent(s string) bool {
	return identPattern.MatchString(s)
}

// OrderIndexTable describes the order index under the given name.
func OrderIndexTable(name string) Table {
	return Table{
		Name: name,
		Key:  []string{ColOrderID},
		Columns: []Column{
			{Name: ColOrderID, Type: TypeInteger},
			{Name: ColOrderNumber, Type: TypeText, Indexed: true},
			{Name: ColRecordKind, Type: TypeText},
			{Name: ColUserID, Type: TypeInteger, Indexed: true},
			{Name: ColCustomerEmail, Type: TypeText, Indexed: true},
			{Name: ColBillingEmail, Type: TypeText, Indexed: true},
			{Name: ColCustomerName, Type: TypeText, Indexed: true},
			{Name: ColBillingName, Type: TypeText, Indexed: true},
			{Name: ColShippingName, Type: TypeText, Indexed: true},
			{Name: ColBillingCity, Type: TypeText, Indexed: true},
			{Name: ColShippingCity, Type: TypeText, Indexed: true},
			{Name: ColBillingPostcode, Type: TypeText, Indexed: true},
			{Name: ColShippingPostcode, Type: TypeText, Indexed: true},
		},
	}
}

// SubscriptionIndexTable describes the subscription index under the given name.
func SubscriptionIndexTable(name string) Table {
	return Table{
		Name: name,
		Key:  []string{ColSubscriptionID},
		Columns: []Column{
			{Name: ColSubscriptionID, Type: TypeInteger},
			{Name: ColOrderTotal, Type: TypeReal, Indexed: true},
			{Name: ColStartDate, Type: TypeText, Indexed: true},
			{Name: ColTrialEndDate, Type: TypeText, Indexed: true},
			{Name: ColNextPaymentDate, Type: TypeText, Indexed: true},
			{Name: ColEndDate, Type: TypeText, Indexed: true},
			{Name: ColLastPaymentDate, Type: TypeText, Indexed: true},
		},
	}
}

func optionsTable() Table {
	return Table{
		Name: OptionsTable,
		Key:  []string{ColOptionName},
		Columns: []Column{
			{Name: ColOptionName, Type: TypeText},
			{Name: ColOptionValue, Type: TypeText},
		},
	}
}

// Validate checks identifiers and that every key column is declared.
func (t Table) Validate() error {
	if !ValidIdent(t.Name) {
		return fmt.Errorf("invalid table name %q", t.Name)
	}
	if len(t.Key) == 0 {
		return fmt.Errorf("table %s has no key columns", t.Name)
	}
	declared := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if !ValidIdent(c.Name) {
			return fmt.Errorf("invalid column name %q in table %s", c.Name, t.Name)
		}
		declared[c.Name] = true
	}
	for _, k := range t.Key {
		if !declared[k] {
			return fmt.Errorf("key column %s not declared in table %s", k, t.Name)
		}
	}
	return nil
}

// HasColumn reports whether name is a declared column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// CreateSQL returns the CREATE TABLE statement.
func (t Table) CreateSQL() string {
	defs := make([]string, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		def := c.Name + " " + string(c.Type)
		if isKey(t.Key, c.Name) {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	defs = append(defs, "PRIMARY KEY ("+strings.Join(t.Key, ", ")+")")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t"))
}

// AddColumnSQL returns the ALTER TABLE statement adding c.
func (t Table) AddColumnSQL(c Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", t.Name, c.Name, c.Type)
}

// IndexSQL returns CREATE INDEX statements for the indexed columns.
func (t Table) IndexSQL() []string {
	var stmts []string
	for _, c := range t.Columns {
		if !c.Indexed {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", t.Name, c.Name, t.Name, c.Name))
	}
	return stmts
}

func isKey(keys []string, name string) bool {
	for _, k := range keys {
		if k == name {
			return true
		}
	}
	return false
}
