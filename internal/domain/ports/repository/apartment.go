package repository

import (
	"context"

	"rental-booking-bot/internal/domain/model"
)

// ApartmentRepository reads the externally-managed apartment reference data.
type ApartmentRepository interface {
	FindByID(ctx context.Context, apartmentID string) (*model.Apartment, error)
}

// BookingLogRepository keeps an append-only audit trail of reservations the
// bot created or expired.
type BookingLogRepository interface {
	Record(ctx context.Context, channelID string, booking *model.BookingRecord, status string) error
}
