package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderindex/internal/host"
	"github.com/Aman-CERP/orderindex/internal/output"
	"github.com/Aman-CERP/orderindex/internal/record"
)

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Customer lookups answered from the index",
		Long: `Answer customer questions from the order index without reading record
attributes: who placed an order, which orders a customer has, which orders
were placed by guests, and per-customer totals.`,
	}

	cmd.AddCommand(newLookupOrderCustomerCmd())
	cmd.AddCommand(newLookupCustomerOrdersCmd())
	cmd.AddCommand(newLookupGuestOrdersCmd())
	cmd.AddCommand(newLookupCustomerStatsCmd())

	return cmd
}

func newLookupOrderCustomerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order-customer <order-id>",
		Short: "Print the customer user id of an order (0 for guests)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID(args[0], "order id")
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			userID, err := a.engine.OrderCustomer(cmd.Context(), orderID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), userID)
			return err
		},
	}
}

func newLookupCustomerOrdersCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "customer-orders <user-id>",
		Short: "List the record ids owned by a customer, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			k := record.Kind(kind)
			if kind != "" && !k.Valid() {
				return fmt.Errorf("invalid --kind %q: use order or subscription", kind)
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ids, err := a.engine.CustomersOrders(cmd.Context(), userID, k)
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).IDs(ids)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Restrict to order or subscription")

	return cmd
}

func newLookupGuestOrdersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guest-orders",
		Short: "List orders placed without a customer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ids, err := a.engine.GuestOrders(cmd.Context())
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).IDs(ids)
			return nil
		},
	}
}

// customerStats is the output of lookup customer-stats.
type customerStats struct {
	UserID     int64   `json:"user_id"`
	OrderCount int     `json:"order_count"`
	LastOrder  int64   `json:"last_order"`
	TotalSpent float64 `json:"total_spent"`
}

func newLookupCustomerStatsCmd() *cobra.Command {
	var (
		paid       []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "customer-stats <user-id>",
		Short: "Order count, last order and total spent of a customer",
		Args:  cobra.ExactArgs(1),
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

			ctx := cmd.Context()
			stats := customerStats{UserID: userID}
			if stats.OrderCount, err = a.engine.CustomerOrderCount(ctx, userID); err != nil {
				return err
			}
			if stats.LastOrder, err = a.engine.CustomerLastOrder(ctx, userID); err != nil {
				return err
			}
			if stats.TotalSpent, err = a.host.TotalSpent(ctx, userID, paid); err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(stats)
			}
			out.Fields(
				output.Field{Label: "Customer", Value: strconv.FormatInt(userID, 10)},
				output.Field{Label: "Orders", Value: strconv.Itoa(stats.OrderCount)},
				output.Field{Label: "Last order", Value: strconv.FormatInt(stats.LastOrder, 10)},
				output.Field{Label: "Total spent", Value: strconv.FormatFloat(stats.TotalSpent, 'f', 2, 64)},
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&paid, "paid-status", host.DefaultPaidStatuses, "Statuses counted as paid")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
