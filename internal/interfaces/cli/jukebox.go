package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/dine-composer/internal/application/usecases"
	"github.com/example/dine-composer/internal/domain/jukebox"
	"github.com/example/dine-composer/internal/infrastructure/session"
	"github.com/example/dine-composer/internal/internaltypes"
	"github.com/example/dine-composer/internal/logging"
	"github.com/example/dine-composer/internal/metrics"
)

func newJukeboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jukebox",
		Short: "Show the song request queue for a venue",
	}
	cmd.AddCommand(newJukeboxQueueCmd())
	cmd.AddCommand(newJukeboxWatchCmd())
	return cmd
}

type queueFlags struct {
	admin  int64
	bucket string
}

func (f *queueFlags) register(c *cobra.Command) {
	c.Flags().Int64Var(&f.admin, "admin", 0, "admin id (defaults to the logged-in user)")
	c.Flags().StringVar(&f.bucket, "bucket", string(jukebox.Today), "today or future")
}

// resolve picks the admin id and bucket. Customers cannot read the queue.
func (f *queueFlags) resolve(a *app) (int64, jukebox.Bucket, error) {
	bucket, ok := jukebox.ParseBucket(f.bucket)
	if !ok {
		return 0, "", internaltypes.Invalid("unknown bucket %q (want today or future)", f.bucket)
	}
	sess, err := a.session()
	if err != nil {
		return 0, "", err
	}
	if sess.Role == session.RoleCustomer {
		return 0, "", internaltypes.Invalid("the jukebox queue needs a waiter or admin login")
	}
	admin := f.admin
	if admin == 0 {
		admin = sess.UserID
	}
	if admin <= 0 {
		return 0, "", internaltypes.Invalid("--admin must be positive")
	}
	return admin, bucket, nil
}

func (a *app) jukeboxQueue() usecases.JukeboxQueue {
	return usecases.JukeboxQueue{
		Backend:  a.backend,
		Location: a.cfg.Booking.Location,
		Logger:   logging.Component(a.logger, "jukebox"),
	}
}

func newJukeboxQueueCmd() *cobra.Command {
	var f queueFlags
	c := &cobra.Command{
		Use:   "queue",
		Short: "Print the prioritised song requests once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				admin, bucket, err := f.resolve(a)
				if err != nil {
					return err
				}
				view, err := a.jukeboxQueue().Execute(ctx, admin, bucket)
				if err != nil {
					return err
				}
				printQueue(cmd.OutOrStdout(), view, a.cfg.Booking.Location)
				return nil
			})
		},
	}
	f.register(c)
	return c
}

func newJukeboxWatchCmd() *cobra.Command {
	var (
		f           queueFlags
		every       time.Duration
		metricsAddr string
	)
	c := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the song request queue until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				admin, bucket, err := f.resolve(a)
				if err != nil {
					return err
				}
				if metricsAddr != "" {
					go func() {
						if err := metrics.Serve(ctx, metricsAddr, a.logger); err != nil {
							a.logger.Error().Err(err).Msg("metrics server stopped")
						}
					}()
				}
				out := cmd.OutOrStdout()
				err = a.jukeboxQueue().Watch(ctx, admin, bucket, every, func(view []jukebox.Request) {
					fmt.Fprintf(out, "-- %s --\n", time.Now().Format("15:04:05"))
					printQueue(out, view, a.cfg.Booking.Location)
				})
				if ctx.Err() != nil {
					return nil
				}
				return err
			})
		},
	}
	f.register(c)
	c.Flags().DurationVar(&every, "every", 30*time.Second, "refresh interval")
	c.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	return c
}

func printQueue(w io.Writer, view []jukebox.Request, loc *time.Location) {
	if len(view) == 0 {
		fmt.Fprintln(w, "no requests")
		return
	}
	if loc == nil {
		loc = time.Local
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tTIER\tTABLE\tSONG\tREQUESTER\tDEDICATION")
	for _, r := range view {
		at := r.ScheduledAt
		if t, ok := jukebox.ParseScheduled(r.ScheduledAt, loc); ok {
			at = t.In(loc).Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, at, r.CoinTier, r.Table, r.SongTitle, r.Requester, r.Dedication)
	}
	_ = tw.Flush()
}
