package adapter

import (
	"context"

	"rental-booking-bot/internal/domain/model"
)

// AvailableApartment is one unit returned by an availability search, before
// pricing.
type AvailableApartment struct {
	ID    string
	Title string
}

// OfferItem is a priced candidate inside a shareable offer link.
type OfferItem struct {
	ApartmentID   string `json:"apartment_id"`
	Title         string `json:"apartment_title"`
	NightlyAmount int64  `json:"amount"`
}

// Offer bundles priced candidates behind one shareable URL.
type Offer struct {
	URL   string
	Items []OfferItem
}

// BookingCustomer identifies the guest a reservation is created for.
type BookingCustomer struct {
	Name  string
	Phone string
}

// CalendarAPI is the port to the external booking calendar. Dates are
// "2006-01-02" unless noted; Search expects "02.01.2006" upstream and the
// adapter converts internally.
type CalendarAPI interface {
	// Search lists vacant apartments for the window.
	Search(ctx context.Context, checkIn, checkOut string, guests int) ([]AvailableApartment, error)
	// QuoteNightly returns the per-night price for one apartment, computed
	// as the ceiling of the total-stay quote divided by the night count.
	QuoteNightly(ctx context.Context, apartmentID, checkIn, checkOut string) (int64, error)
	// CreateOfferLink bundles priced candidates into a shareable link.
	CreateOfferLink(ctx context.Context, checkIn, checkOut string, items []OfferItem) (*Offer, error)
	// CreateBooking submits a signed reservation payload.
	CreateBooking(ctx context.Context, customer BookingCustomer, apartmentID, checkIn, checkOut string, nightly int64) (*model.BookingRecord, error)
	// DeleteBooking removes a reservation; it authenticates on its own.
	DeleteBooking(ctx context.Context, apartmentID, eventID string) error
	// FindBookingByPhone locates a reservation made on an external channel.
	FindBookingByPhone(ctx context.Context, phone string) (*model.BookingRecord, error)
}
