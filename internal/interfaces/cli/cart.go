package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/dine-composer/internal/domain/order"
	"github.com/example/dine-composer/internal/internaltypes"
)

func newCartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Edit the saved menu selection for a booking",
	}
	cmd.AddCommand(newCartSetCmd())
	cmd.AddCommand(newCartSkipCmd())
	cmd.AddCommand(newCartNoteCmd())
	cmd.AddCommand(newCartShowCmd())
	cmd.AddCommand(newCartClearCmd())
	return cmd
}

// editCart loads, changes and saves the logged-in user's cart for bookingID.
func editCart(cmd *cobra.Command, bookingID int64, fn func(*order.Draft) error) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		sess, err := a.session()
		if err != nil {
			return err
		}
		d, err := a.orderFlow(ctx).Edit(ctx, sess.UserID, bookingID, fn)
		if err != nil {
			return err
		}
		printCart(cmd.OutOrStdout(), d)
		return nil
	})
}

func newCartSetCmd() *cobra.Command {
	var bookingID, dish int64
	var qty int
	c := &cobra.Command{
		Use:     "add",
		Aliases: []string{"set"},
		Short:   "Set the quantity of a dish",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editCart(cmd, bookingID, func(d *order.Draft) error {
				return d.Cart.SetQuantity(dish, qty)
			})
		},
	}
	c.Flags().Int64Var(&bookingID, "booking", 0, "booking id")
	c.Flags().Int64Var(&dish, "dish", 0, "dish id")
	c.Flags().IntVar(&qty, "qty", 1, "quantity (0 removes the dish)")
	_ = c.MarkFlagRequired("booking")
	_ = c.MarkFlagRequired("dish")
	return c
}

func newCartSkipCmd() *cobra.Command {
	var bookingID, dish, ingredient int64
	var unit int
	c := &cobra.Command{
		Use:   "skip",
		Short: "Toggle leaving an ingredient out of one unit of a dish",
		RunE: func(cmd *cobra.Command, args []string) error {
			return editCart(cmd, bookingID, func(d *order.Draft) error {
				return d.Cart.ToggleSkip(dish, unit-1, ingredient)
			})
		},
	}
	c.Flags().Int64Var(&bookingID, "booking", 0, "booking id")
	c.Flags().Int64Var(&dish, "dish", 0, "dish id")
	c.Flags().IntVar(&unit, "unit", 1, "which unit, counting from 1")
	c.Flags().Int64Var(&ingredient, "ingredient", 0, "ingredient id")
	_ = c.MarkFlagRequired("booking")
	_ = c.MarkFlagRequired("dish")
	_ = c.MarkFlagRequired("ingredient")
	return c
}

func newCartNoteCmd() *cobra.Command {
	var bookingID int64
	c := &cobra.Command{
		Use:   "note [text]",
		Short: "Set the dedication note sent with the order (empty clears it)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := ""
			if len(args) == 1 {
				note = strings.TrimSpace(args[0])
			}
			return editCart(cmd, bookingID, func(d *order.Draft) error {
				d.Dedication = note
				return nil
			})
		},
	}
	c.Flags().Int64Var(&bookingID, "booking", 0, "booking id")
	_ = c.MarkFlagRequired("booking")
	return c
}

func newCartShowCmd() *cobra.Command {
	var bookingID int64
	c := &cobra.Command{
		Use:   "show",
		Short: "Show the saved cart and the line items it would submit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sess, err := a.session()
				if err != nil {
					return err
				}
				d, err := a.orderFlow(ctx).Load(ctx, sess.UserID, bookingID)
				if err != nil {
					return err
				}
				printCart(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}
	c.Flags().Int64Var(&bookingID, "booking", 0, "booking id")
	_ = c.MarkFlagRequired("booking")
	return c
}

func newCartClearCmd() *cobra.Command {
	var bookingID int64
	c := &cobra.Command{
		Use:   "clear",
		Short: "Discard the saved cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sess, err := a.session()
				if err != nil {
					return err
				}
				if err := a.orderFlow(ctx).Discard(ctx, sess.UserID, bookingID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cart cleared")
				return nil
			})
		},
	}
	c.Flags().Int64Var(&bookingID, "booking", 0, "booking id")
	_ = c.MarkFlagRequired("booking")
	return c
}

func printCart(w io.Writer, d order.Draft) {
	if len(d.Cart) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	for _, id := range d.Cart.DishIDs() {
		units := d.Cart[id].Units()
		fmt.Fprintf(w, "dish %d x%d\n", id, len(units))
		for i, u := range units {
			if len(u) > 0 {
				fmt.Fprintf(w, "  unit %d: without %s\n", i+1, joinInts(u))
			}
		}
	}
	if d.Dedication != "" {
		fmt.Fprintf(w, "note: %s\n", d.Dedication)
	}
	items := order.Decompose(d.Cart)
	fmt.Fprintf(w, "%d line item(s) to submit\n", len(items))
}

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Submit orders",
	}
	cmd.AddCommand(newOrderSubmitCmd())
	return cmd
}

func newOrderSubmitCmd() *cobra.Command {
	var bookingID int64
	c := &cobra.Command{
		Use:   "submit",
		Short: "Submit the saved cart for a booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sess, err := a.session()
				if err != nil {
					return err
				}
				if bookingID <= 0 {
					return internaltypes.Invalid("--booking must be positive")
				}
				flow := a.orderFlow(ctx)
				d, err := flow.Load(ctx, sess.UserID, bookingID)
				if err != nil {
					return err
				}
				r, err := flow.Submit(ctx, sess.UserID, bookingID, &d)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "order %d placed for booking %d: %s, total %.2f\n", r.OrderID, r.BookingID, r.Status, r.TotalPrice)
				return nil
			})
		},
	}
	c.Flags().Int64Var(&bookingID, "booking", 0, "booking id")
	_ = c.MarkFlagRequired("booking")
	return c
}
