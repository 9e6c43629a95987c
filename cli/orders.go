package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"restaurant-queue/apperr"
	"restaurant-queue/lifecycle"
	"restaurant-queue/models"
)

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and move orders from the terminal",
		Long: `Inspect and move orders from the terminal. Status changes are recorded
in the order history as cli:<your OS user>.`,
	}
	cmd.AddCommand(newOrdersListCmd(), newOrdersNotifyCmd(), newOrdersSetStatusCmd())
	return cmd
}

func parseOrderID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid order id %q", s)
	}
	return uint(id), nil
}

func newOrdersListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []models.OrderStatus
			for _, s := range strings.Split(status, ",") {
				if s = strings.TrimSpace(s); s != "" {
					statuses = append(statuses, models.OrderStatus(strings.ToUpper(s)))
				}
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			orders, err := a.orders.ListOrders(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			return printOrders(cmd.OutOrStdout(), orders)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "comma separated statuses to include")
	return cmd
}

func printOrders(out io.Writer, orders []models.Order) error {
	if len(orders) == 0 {
		_, err := fmt.Fprintln(out, "No orders found")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tCUSTOMER\tSTATUS\tPOSITION\tCREATED")
	for _, o := range orders {
		pos := "-"
		if o.QueuePosition != nil {
			pos = strconv.Itoa(*o.QueuePosition)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.OrderCode, o.CustomerName, o.Status, pos, o.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func newOrdersNotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify <id>",
		Short: "Call a queued diner in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.orders.NotifyDiner(cmd.Context(), id, lifecycle.CLIActor(operator()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s (%s) notified, expected by %s\n",
				o.OrderCode, o.CustomerName, o.TargetArrivalTime.Local().Format(time.Kitchen))
			return nil
		},
	}
}

func newOrdersSetStatusCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Move an order to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			to := models.OrderStatus(strings.ToUpper(strings.TrimSpace(args[1])))

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.orders.UpdateStatus(cmd.Context(), id, to, lifecycle.CLIActor(operator()), note)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s is now %s\n", o.OrderCode, o.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "note stored with the status change")
	return cmd
}

func newEstimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate",
		Short: "Print the wait a diner joining now would be quoted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			depth, err := a.store.CountOrders(cmd.Context(), models.StatusInQueue)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queue depth: %d\nEstimated wait: %s\n", depth, a.orders.EstimateWait(cmd.Context()))
			return nil
		},
	}
}
