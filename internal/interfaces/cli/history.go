package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/example/dine-composer/internal/infrastructure/postgres"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	c := &cobra.Command{
		Use:   "history",
		Short: "List confirmed bookings and orders recorded locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sess, err := a.session()
				if err != nil {
					return err
				}
				repo, err := a.history(ctx)
				if err != nil {
					return err
				}
				if repo == nil {
					return errors.WithHint(errors.New("history is not configured"), "set DATABASE_URL")
				}
				subs, err := repo.ListByUser(ctx, sess.UserID, limit)
				if err != nil {
					return err
				}
				printHistory(cmd.OutOrStdout(), subs)
				return nil
			})
		},
	}
	c.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	return c
}

func printHistory(w io.Writer, subs []postgres.Submission) {
	if len(subs) == 0 {
		fmt.Fprintln(w, "no history")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tKIND\tID\tDETAIL\tSTATUS")
	for _, s := range subs {
		var detail string
		switch s.Kind {
		case postgres.KindBooking:
			if s.ReservationAt != nil {
				detail = s.ReservationAt.UTC().Format("2006-01-02 15:04Z")
			}
			if len(s.TableIDs) > 0 {
				detail += " tables " + joinInts(s.TableIDs)
			}
			if s.Occasion != "" && s.Occasion != "None" {
				detail += " (" + s.Occasion + ")"
			}
		case postgres.KindOrder:
			if s.BookingID != nil {
				detail = "booking " + strconv.FormatInt(*s.BookingID, 10)
			}
			if s.TotalPrice != nil {
				detail += fmt.Sprintf(" total %.2f", *s.TotalPrice)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Kind, s.RemoteID, strings.TrimSpace(detail), s.Status)
	}
	_ = tw.Flush()
}

func joinInts(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
