package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"rental-booking-bot/internal/domain/model"
	"rental-booking-bot/internal/domain/ports/repository"
)

var _ repository.BookingLogRepository = (*bookingLogRepo)(nil)

// bookingLogRepo appends an audit row for every reservation the bot creates,
// confirms or expires. The conversation document stays authoritative; this
// table exists for reporting.
type bookingLogRepo struct{ pool *pgxpool.Pool }

func NewBookingLogRepo(pool *pgxpool.Pool) *bookingLogRepo {
	return &bookingLogRepo{pool: pool}
}

func (r *bookingLogRepo) Record(ctx context.Context, channelID string, b *model.BookingRecord, status string) error {
	const q = `
INSERT INTO booking_log (
  id, channel_id, event_id, apartment_id, check_in, check_out, amount, phone, status, recorded_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	_, err := r.pool.Exec(ctx, q,
		uuid.NewString(), channelID, b.EventID, b.ApartmentID,
		b.CheckIn, b.CheckOut, b.Amount, b.Phone, status, time.Now())
	if err != nil {
		// The table carries UNIQUE (event_id, status); a redelivered webhook
		// recording the same transition twice is not an error.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil
		}
		return err
	}
	return nil
}
