package cli

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/dine-composer/internal/application/usecases"
	"github.com/example/dine-composer/internal/domain/booking"
	"github.com/example/dine-composer/internal/internaltypes"
)

type draftFlags struct {
	restaurant int64
	at         string
	occasion   string
}

func (f *draftFlags) register(c *cobra.Command) {
	c.Flags().Int64Var(&f.restaurant, "restaurant", 0, "restaurant id")
	c.Flags().StringVar(&f.at, "at", "", `reservation time, local "YYYY-MM-DD HH:MM"`)
	c.Flags().StringVar(&f.occasion, "occasion", "None", "None, Birthday, Anniversary, Graduation, Promotion, Engagement or Other")
	_ = c.MarkFlagRequired("restaurant")
	_ = c.MarkFlagRequired("at")
}

// draft starts a booking draft for the logged-in user.
func (f *draftFlags) draft(a *app, flow *usecases.BookingFlow) (*booking.Draft, error) {
	sess, err := a.session()
	if err != nil {
		return nil, err
	}
	if f.restaurant <= 0 {
		return nil, internaltypes.Invalid("--restaurant must be positive")
	}
	occ, err := booking.ParseOccasion(f.occasion)
	if err != nil {
		return nil, err
	}
	d := booking.NewDraft(sess.UserID, f.restaurant)
	d.Occasion = occ
	if err := flow.SetTime(d, f.at); err != nil {
		return nil, err
	}
	return d, nil
}

func newAvailabilityCmd() *cobra.Command {
	var (
		df     draftFlags
		floor  int
		tables string
	)
	c := &cobra.Command{
		Use:   "availability",
		Short: "List tables free at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				flow := a.bookingFlow(ctx)
				d, err := df.draft(a, flow)
				if err != nil {
					return err
				}
				var fl *int
				if cmd.Flags().Changed("floor") {
					fl = &floor
				}
				list, _, err := flow.Availability(ctx, d, fl)
				if err != nil {
					return err
				}
				ids, err := parseIDs(tables)
				if err != nil {
					return err
				}
				for _, id := range ids {
					d.Tables.Toggle(id)
				}

				sort.Slice(list, func(i, j int) bool {
					if list[i].Floor != list[j].Floor {
						return list[i].Floor < list[j].Floor
					}
					return list[i].ID < list[j].ID
				})
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SEL\tID\tNAME\tFLOOR\tLOCATION\tSEATS\tPRICE\tFREE")
				for _, t := range list {
					mark := ""
					if d.Tables.Contains(t.ID) {
						mark = "*"
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%d\t%.2f\t%t\n", mark, t.ID, t.Name, t.Floor, t.Location, t.Capacity, t.Price, t.Available)
				}
				return w.Flush()
			})
		},
	}
	df.register(c)
	c.Flags().IntVar(&floor, "floor", 0, "only this floor")
	c.Flags().StringVar(&tables, "tables", "", "comma-separated table ids to mark as selected")
	return c
}

func newSongsCmd() *cobra.Command {
	var (
		df     draftFlags
		artist string
	)
	c := &cobra.Command{
		Use:   "songs",
		Short: "List the songs a booking may request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				flow := a.bookingFlow(ctx)
				d, err := df.draft(a, flow)
				if err != nil {
					return err
				}
				songs, err := flow.SongChoices(ctx, d, artist)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tARTIST")
				for _, s := range songs {
					fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.Title, s.Artist)
				}
				return w.Flush()
			})
		},
	}
	df.register(c)
	c.Flags().StringVar(&artist, "artist", "", "artist name contains")
	return c
}

func newBookCmd() *cobra.Command {
	var (
		df         draftFlags
		tables     string
		songID     int64
		coinID     int64
		dedication string
	)
	c := &cobra.Command{
		Use:   "book",
		Short: "Book one or more tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				flow := a.bookingFlow(ctx)
				d, err := df.draft(a, flow)
				if err != nil {
					return err
				}
				ids, err := parseIDs(tables)
				if err != nil {
					return err
				}
				for _, id := range ids {
					if !d.Tables.Contains(id) {
						d.Tables.Toggle(id)
					}
				}
				if songID != 0 || coinID != 0 || dedication != "" {
					d.Music = &booking.MusicSelection{SongID: songID, CoinCategoryID: coinID, Dedication: dedication}
				}
				d.ID = d.ContentKey()

				out, err := flow.Submit(ctx, d)
				if err != nil {
					return err
				}
				kind := "booking"
				if out.Confirmation.Master {
					kind = "master booking"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "confirmed %s %d for %s (%s)\n",
					kind, out.Confirmation.BookingID, d.At.In(a.cfg.Booking.Location).Format(booking.LocalLayout), booking.WireTime(d.At))
				return nil
			})
		},
	}
	df.register(c)
	c.Flags().StringVar(&tables, "tables", "", "comma-separated table ids")
	c.Flags().Int64Var(&songID, "song", 0, "song id for the jukebox")
	c.Flags().Int64Var(&coinID, "coin", 0, "coin category id")
	c.Flags().StringVar(&dedication, "dedication", "", "dedication note")
	_ = c.MarkFlagRequired("tables")
	return c
}
