package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/model"
	"rental-booking-bot/internal/domain/ports/adapter"
	"rental-booking-bot/internal/domain/ports/repository"
	"rental-booking-bot/internal/infra/metrics"
)

// Compile-time check
var _ BookingUseCase = (*bookingUC)(nil)

type BookingUseCase interface {
	// SearchAvailability lists vacant apartments; domain.ErrNoAvailability
	// when the upstream returns none.
	SearchAvailability(ctx context.Context, checkIn, checkOut string, guests int) ([]adapter.AvailableApartment, error)
	// BuildOfferLink prices each candidate per night and bundles them
	// behind one shareable link.
	BuildOfferLink(ctx context.Context, checkIn, checkOut string, apartments []adapter.AvailableApartment) (*adapter.Offer, error)
	// CreateBooking places a reservation for the selected candidate and
	// records it in the audit log.
	CreateBooking(ctx context.Context, channelID string, customer adapter.BookingCustomer, apartment model.CandidateApartment, checkIn, checkOut string) (*model.BookingRecord, error)
	// CancelBooking releases a reservation, recording the outcome.
	CancelBooking(ctx context.Context, channelID string, booking *model.BookingRecord) error
	// LookupByPhone finds a reservation made on an external channel.
	LookupByPhone(ctx context.Context, phone string) (*model.BookingRecord, error)
}

type bookingUC struct {
	calendar adapter.CalendarAPI
	log      repository.BookingLogRepository
	logger   *zerolog.Logger
}

func NewBookingUseCase(calendar adapter.CalendarAPI, bookingLog repository.BookingLogRepository, logger *zerolog.Logger) *bookingUC {
	ucLog := logger.With().Str("component", "BookingUC").Logger()
	return &bookingUC{calendar: calendar, log: bookingLog, logger: &ucLog}
}

func (u *bookingUC) SearchAvailability(ctx context.Context, checkIn, checkOut string, guests int) ([]adapter.AvailableApartment, error) {
	if _, err := model.Nights(checkIn, checkOut); err != nil {
		return nil, err
	}
	return u.calendar.Search(ctx, checkIn, checkOut, guests)
}

func (u *bookingUC) BuildOfferLink(ctx context.Context, checkIn, checkOut string, apartments []adapter.AvailableApartment) (*adapter.Offer, error) {
	if len(apartments) == 0 {
		return nil, domain.ErrNoAvailability
	}
	items := make([]adapter.OfferItem, 0, len(apartments))
	for _, apt := range apartments {
		nightly, err := u.calendar.QuoteNightly(ctx, apt.ID, checkIn, checkOut)
		if err != nil {
			// A candidate without a quote is skipped, not fatal.
			u.logger.Warn().Err(err).Str("apartment_id", apt.ID).Msg("quote failed, candidate skipped")
			continue
		}
		items = append(items, adapter.OfferItem{ApartmentID: apt.ID, Title: apt.Title, NightlyAmount: nightly})
	}
	if len(items) == 0 {
		return nil, domain.ErrNoAvailability
	}
	return u.calendar.CreateOfferLink(ctx, checkIn, checkOut, items)
}

func (u *bookingUC) CreateBooking(ctx context.Context, channelID string, customer adapter.BookingCustomer, apartment model.CandidateApartment, checkIn, checkOut string) (*model.BookingRecord, error) {
	if _, err := model.Nights(checkIn, checkOut); err != nil {
		return nil, err
	}
	booking, err := u.calendar.CreateBooking(ctx, customer, apartment.ID, checkIn, checkOut, apartment.NightlyAmount)
	if err != nil {
		return nil, err
	}
	metrics.BookingsCreated.Inc()
	if err := u.log.Record(ctx, channelID, booking, "created"); err != nil {
		u.logger.Warn().Err(err).Msg("booking log write failed")
	}
	return booking, nil
}

func (u *bookingUC) CancelBooking(ctx context.Context, channelID string, booking *model.BookingRecord) error {
	if err := u.calendar.DeleteBooking(ctx, booking.ApartmentID, booking.EventID); err != nil {
		u.logger.Error().Err(err).Str("event_id", booking.EventID).Msg("booking cancellation failed")
		return err
	}
	metrics.BookingsExpired.Inc()
	if err := u.log.Record(ctx, channelID, booking, "expired"); err != nil {
		u.logger.Warn().Err(err).Msg("booking log write failed")
	}
	return nil
}

func (u *bookingUC) LookupByPhone(ctx context.Context, phone string) (*model.BookingRecord, error) {
	if phone == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.calendar.FindBookingByPhone(ctx, phone)
}
