package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/example/dine-composer/internal/db"
	"github.com/example/dine-composer/internal/domain/booking"
	"github.com/example/dine-composer/internal/domain/order"
)

type Kind string

const (
	KindBooking Kind = "booking"
	KindOrder   Kind = "order"
)

// Submission is one confirmed booking or order kept for the local history view.
type Submission struct {
	ID            int64
	Kind          Kind
	UserID        int64
	DraftID       uuid.NullUUID
	RemoteID      int64
	BookingID     *int64
	ReservationAt *time.Time
	TableIDs      []int64
	Occasion      string
	TotalPrice    *float64
	Status        string
	CreatedAt     time.Time
}

type HistoryRepo struct{ db db.Querier }

func NewHistoryRepo(d db.Querier) *HistoryRepo { return &HistoryRepo{db: d} }

// Record stores s. A booking already recorded for the same draft is left as is.
func (r *HistoryRepo) Record(ctx context.Context, s Submission) (int64, error) {
	if s.TableIDs == nil {
		s.TableIDs = []int64{}
	}
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO submissions(kind,user_id,draft_id,remote_id,booking_id,reservation_at,table_ids,occasion,total_price,status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (draft_id) WHERE draft_id IS NOT NULL DO UPDATE SET remote_id=EXCLUDED.remote_id
RETURNING id`,
		string(s.Kind), s.UserID, s.DraftID, s.RemoteID, s.BookingID, s.ReservationAt, s.TableIDs, s.Occasion, s.TotalPrice, s.Status,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(db.WrapNotFound(err), "record %s %d", s.Kind, s.RemoteID)
	}
	return id, nil
}

// ListByUser returns the newest submissions first.
func (r *HistoryRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
SELECT id,kind,user_id,draft_id,remote_id,booking_id,reservation_at,table_ids,occasion,total_price,status,created_at
FROM submissions
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list submissions")
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var s Submission
		var kind string
		if err := rows.Scan(
			&s.ID, &kind, &s.UserID, &s.DraftID, &s.RemoteID, &s.BookingID, &s.ReservationAt,
			&s.TableIDs, &s.Occasion, &s.TotalPrice, &s.Status, &s.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan submission")
		}
		s.Kind = Kind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *HistoryRepo) RecordBooking(ctx context.Context, d *booking.Draft, c booking.Confirmation) error {
	at := d.At.UTC()
	var tables []int64
	if d.Tables != nil {
		tables = d.Tables.Members()
	}
	status := "confirmed"
	if c.Master {
		status = "confirmed-multiple"
	}
	_, err := r.Record(ctx, Submission{
		Kind:          KindBooking,
		UserID:        d.UserID,
		DraftID:       uuid.NullUUID{UUID: d.ID, Valid: d.ID != uuid.Nil},
		RemoteID:      c.BookingID,
		ReservationAt: &at,
		TableIDs:      tables,
		Occasion:      string(d.Occasion),
		Status:        status,
	})
	return err
}

func (r *HistoryRepo) RecordOrder(ctx context.Context, rc order.Receipt) error {
	bookingID := rc.BookingID
	price := rc.TotalPrice
	_, err := r.Record(ctx, Submission{
		Kind:       KindOrder,
		UserID:     rc.UserID,
		RemoteID:   rc.OrderID,
		BookingID:  &bookingID,
		TotalPrice: &price,
		Status:     rc.Status,
	})
	return err
}
