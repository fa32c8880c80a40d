package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderindex/internal/host"
	"github.com/Aman-CERP/orderindex/internal/output"
	"github.com/Aman-CERP/orderindex/internal/query"
	"github.com/Aman-CERP/orderindex/internal/record"
	"github.com/Aman-CERP/orderindex/internal/search"
)

type searchOptions struct {
	kind       string
	limit      int
	orderBy    string
	direction  string
	vars       map[string]string
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	opts := searchOptions{}

	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Find orders or subscriptions through the index",
		Long: `Parse an admin search string into structured criteria and list the
matching record ids, newest first.

Recognized tokens (key:value or key=value, values may be quoted):
  email, mail                          billing or account email
  name                                 billing, shipping or account name
  post, postal, postcode, zip, ...     billing or shipping postcode
  city, suburb, address                billing or shipping city

A bare email address selects customer_email, "#1007" selects an order id,
and any other text searches across every indexed column. Text that yields
no criterion at all (only unknown keys) falls back to a plain match against
every record attribute.`,
		Example: `  # Orders of one customer
  orderindex search --var wc_customer_user=42

  # Email plus name
  orderindex search john@example.com name:"John Smith"

  # Subscriptions by next payment date
  orderindex search --kind subscription --order-by next_payment_date --dir asc city:Sydney

  # Legacy query variables
  orderindex search --var wc_customer_email=john@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", string(record.KindOrder), "Record kind: order or subscription")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 50, "Maximum results (0 for all)")
	cmd.Flags().StringVar(&opts.orderBy, "order-by", "", "Subscription ordering field: "+strings.Join(query.SortFields(), ", "))
	cmd.Flags().StringVar(&opts.direction, "dir", query.Asc, "Ordering direction: asc or desc")
	cmd.Flags().StringToStringVar(&opts.vars, "var", nil, "Legacy query variable (repeatable), e.g. wc_customer_user=42")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, terms string, opts searchOptions) error {
	kind := record.Kind(strings.ToLower(opts.kind))
	if !kind.Valid() {
		return fmt.Errorf("invalid --kind %q: use order or subscription", opts.kind)
	}
	if opts.limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	filter, rest := query.FromQueryVars(opts.vars)
	parsed := search.Parse(terms)
	mergeFilter(&filter, parsed.Filter)

	if opts.orderBy != "" {
		order := query.SubscriptionOrder{Field: opts.orderBy, Direction: opts.direction}
		if err := query.ValidateOrder(order); err != nil {
			return err
		}
		filter.OrderBy = &order
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	findOpts := host.FindOptions{
		OrderBy: a.cfg.Query.DefaultOrder,
		Limit:   opts.limit,
	}
	if !parsed.Suppress {
		findOpts.DefaultSearch = strings.TrimSpace(terms)
	}
	ids, err := a.host.FindRecords(cmd.Context(), kind, filter, findOpts)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if opts.jsonOutput {
		return out.JSON(searchResult{
			IDs:           nonNil(ids),
			Structured:    parsed.Suppress,
			DefaultSearch: findOpts.DefaultSearch,
			Dropped:       parsed.Dropped,
			Unused:        sortedNames(rest),
		})
	}

	for _, key := range parsed.Dropped {
		out.Warningf("Ignored unknown search key %q", key)
	}
	for _, name := range sortedNames(rest) {
		out.Warningf("Ignored query variable %q", name)
	}
	out.IDs(ids)
	return nil
}

type searchResult struct {
	IDs []int64 `json:"ids"`
	// Structured is set when the terms produced criteria and the default
	// attribute search was skipped.
	Structured    bool     `json:"structured"`
	DefaultSearch string   `json:"default_search,omitempty"`
	Dropped       []string `json:"dropped_keys,omitempty"`
	Unused        []string `json:"unused_vars,omitempty"`
}

// mergeFilter copies every criterion present in src onto dst.
func mergeFilter(dst *query.FilterRequest, src query.FilterRequest) {
	if src.Has(query.CustomerUser) {
		dst.CustomerUser = src.CustomerUser
	}
	if src.Has(query.CustomerEmail) {
		dst.CustomerEmail = src.CustomerEmail
	}
	if src.Has(query.CustomerName) {
		dst.CustomerName = src.CustomerName
	}
	if src.Has(query.CustomerPostcode) {
		dst.CustomerPostcode = src.CustomerPostcode
	}
	if src.Has(query.CustomerCity) {
		dst.CustomerCity = src.CustomerCity
	}
	if src.Has(query.OrderID) {
		dst.OrderID = src.OrderID
	}
	if src.Has(query.FullSearch) {
		dst.FullSearch = src.FullSearch
	}
	if src.Has(query.SubscriptionOrderBy) {
		dst.OrderBy = src.OrderBy
	}
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
