package model

import (
	"time"

	"rental-booking-bot/internal/domain"
)

// CandidateApartment is one unit offered to the customer, carrying the
// per-night price computed from a total-stay quote.
type CandidateApartment struct {
	ID            string `json:"apartment_id"`
	Title         string `json:"apartment_title"`
	NightlyAmount int64  `json:"amount"`
}

// BookingRecord is a reservation in the external calendar.
type BookingRecord struct {
	EventID     string `json:"id"`
	ApartmentID string `json:"apartment_id"`
	CheckIn     string `json:"begin_date"`
	CheckOut    string `json:"end_date"`
	Amount      int64  `json:"amount"`
	Phone       string `json:"phone"`
}

const dateLayout = "2006-01-02"

// Nights returns the whole-day count between check-in and check-out.
// Zero or negative stays are invalid input.
func Nights(checkIn, checkOut string) (int, error) {
	in, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	out, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	n := int(out.Sub(in).Hours() / 24)
	if n <= 0 {
		return 0, domain.ErrInvalidDates
	}
	return n, nil
}

// StayTotal is the full price of a stay: nightly amount times night count.
func (b BookingRecord) StayTotal() (int64, error) {
	n, err := Nights(b.CheckIn, b.CheckOut)
	if err != nil {
		return 0, err
	}
	return b.Amount * int64(n), nil
}
