package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/model"
	"rental-booking-bot/internal/domain/ports/repository"
)

var _ repository.ApartmentRepository = (*apartmentRepo)(nil)

// apartmentRepo reads apartment reference data (addresses, move-in
// instructions). Rows are inserted and maintained out-of-band.
type apartmentRepo struct{ pool *pgxpool.Pool }

func NewApartmentRepo(pool *pgxpool.Pool) *apartmentRepo {
	return &apartmentRepo{pool: pool}
}

func (r *apartmentRepo) FindByID(ctx context.Context, apartmentID string) (*model.Apartment, error) {
	const q = `SELECT apartment_id, address, title, instruction_links, instruction_text
FROM apartments WHERE apartment_id=$1;`

	a := &model.Apartment{}
	row := r.pool.QueryRow(ctx, q, apartmentID)
	if err := row.Scan(&a.ID, &a.Address, &a.Title, &a.InstructionLinks, &a.InstructionText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}
