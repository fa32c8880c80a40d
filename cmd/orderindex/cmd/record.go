package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/output"
	"github.com/Aman-CERP/orderindex/internal/record"
	"github.com/Aman-CERP/orderindex/internal/store"
)

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Create and modify orders and subscriptions",
		Long: `Write records to the reference record store. Every write notifies the
change trigger, which recomputes the index rows of the record when an
indexed attribute changed.`,
	}

	cmd.AddCommand(newRecordAddCmd())
	cmd.AddCommand(newRecordSetCmd())
	cmd.AddCommand(newRecordStatusCmd())
	cmd.AddCommand(newRecordLinkCmd())
	cmd.AddCommand(newRecordShowCmd())

	return cmd
}

func newRecordAddCmd() *cobra.Command {
	var (
		kind     string
		status   string
		attrs    map[string]string
		checkout bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record and print its id",
		Example: `  orderindex record add --kind order --status processing \
    --attr _customer_user=42 --attr _billing_email=jane@example.com --attr _order_total=19.90

  # Subscription created at checkout: its last payment date is now
  orderindex record add --kind subscription --checkout --attr _order_total=9.90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k := record.Kind(kind)
			if !k.Valid() {
				return fmt.Errorf("invalid --kind %q: use order or subscription", kind)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			if checkout {
				ctx = record.WithCheckout(ctx)
			}
			id, err := a.host.CreateRecord(ctx, k, status, attrs)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(record.KindOrder), "Record kind: order or subscription")
	cmd.Flags().StringVar(&status, "status", "pending", "Record status")
	cmd.Flags().StringToStringVar(&attrs, "attr", nil, "Attribute name=value (repeatable)")
	cmd.Flags().BoolVar(&checkout, "checkout", false, "Write as checkout processing (subscriptions take now as last payment)")

	return cmd
}

func newRecordSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <attribute> <value>",
		Short: "Write one record attribute",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "record id")
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return a.host.SetAttribute(cmd.Context(), id, args[1], args[2])
		},
	}
}

func newRecordStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a record's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "record id")
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return a.host.SetStatus(cmd.Context(), id, args[1])
		},
	}
}

func newRecordLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <order-id> <subscription-id>",
		Short: "Associate a subscription with the order that created it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID(args[0], "order id")
			if err != nil {
				return err
			}
			subID, err := parseID(args[1], "subscription id")
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return a.host.LinkSubscription(cmd.Context(), orderID, subID)
		},
	}
}

func newRecordShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a record's attributes and its index rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "record id")
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := cmd.Context()
			kind, attrs, ok, err := a.host.Record(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return coierrors.ErrRecordNotFound
			}

			view := recordView{ID: id, Kind: string(kind), Attributes: attrs}
			if row, ok, err := a.store.OrderRow(ctx, id); err != nil {
				return err
			} else if ok {
				view.OrderIndex = rowMap(row.Fields())
			}
			if kind == record.KindSubscription {
				if row, ok, err := a.store.SubscriptionRow(ctx, id); err != nil {
					return err
				} else if ok {
					view.SubscriptionIndex = rowMap(row.Fields())
				}
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(view)
			}
			printRecordView(out, view)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

type recordView struct {
	ID                int64             `json:"id"`
	Kind              string            `json:"kind"`
	Attributes        map[string]string `json:"attributes"`
	OrderIndex        map[string]any    `json:"order_index,omitempty"`
	SubscriptionIndex map[string]any    `json:"subscription_index,omitempty"`
}

func rowMap(row store.Row) map[string]any {
	m := make(map[string]any, len(row))
	for _, f := range row {
		m[f.Column] = f.Value
	}
	return m
}

func printRecordView(out *output.Writer, v recordView) {
	out.Statusf("📄", "%s %d", v.Kind, v.ID)
	out.Fields(mapFields(v.Attributes)...)

	if v.OrderIndex == nil {
		out.Newline()
		out.Warning("Not indexed; run 'orderindex reindex' to build the index")
		return
	}
	out.Newline()
	out.Status("🗂 ", "Order index")
	out.Fields(anyFields(v.OrderIndex)...)
	if v.SubscriptionIndex != nil {
		out.Newline()
		out.Status("🗂 ", "Subscription index")
		out.Fields(anyFields(v.SubscriptionIndex)...)
	}
}

func mapFields(m map[string]string) []output.Field {
	fields := make([]output.Field, 0, len(m))
	for _, k := range sortedNames(m) {
		fields = append(fields, output.Field{Label: k, Value: m[k]})
	}
	return fields
}

func anyFields(m map[string]any) []output.Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]output.Field, 0, len(keys))
	for _, k := range keys {
		var s string
		switch v := m[k].(type) {
		case int64:
			s = strconv.FormatInt(v, 10)
		case float64:
			s = strconv.FormatFloat(v, 'f', 2, 64)
		default:
			s = fmt.Sprint(v)
		}
		fields = append(fields, output.Field{Label: k, Value: s})
	}
	return fields
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Create and modify customer accounts",
		Long: `Write customer accounts to the reference record store. Email and name
changes are copied onto every order the customer owns.`,
	}

	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserUpdateCmd())
	cmd.AddCommand(newUserSetCmd())

	return cmd
}

func newUserAddCmd() *cobra.Command {
	var c record.Customer

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a customer and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			id, err := a.host.CreateUser(cmd.Context(), c)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}

	cmd.Flags().StringVar(&c.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&c.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&c.LastName, "last-name", "", "Last name")

	return cmd
}

func newUserUpdateCmd() *cobra.Command {
	var email, first, last string

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Update a customer's profile in one write",
		Long: `Update the given profile fields in one write. Fields whose flags are
not passed keep their current values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			c, ok, err := a.host.Customer(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if !ok {
				return coierrors.ErrRecordNotFound
			}
			flags := cmd.Flags()
			if flags.Changed("email") {
				c.Email = email
			}
			if flags.Changed("first-name") {
				c.FirstName = first
			}
			if flags.Changed("last-name") {
				c.LastName = last
			}
			return a.host.UpdateUser(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&first, "first-name", "", "First name")
	cmd.Flags().StringVar(&last, "last-name", "", "Last name")

	return cmd
}

func newUserSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <user-id> <attribute> <value>",
		Short: "Write one profile attribute (email, first_name, last_name)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			return a.host.SetUserAttribute(cmd.Context(), userID, args[1], args[2])
		},
	}
}
