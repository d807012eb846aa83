//go:build !integration

package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"rental-booking-bot/internal/domain"
)

func TestConversation_Append(t *testing.T) {
	t.Run("history is bounded", func(t *testing.T) {
		c := NewConversation("77011234567@c.us", "Aman")
		for i := 0; i < HistoryLimit+5; i++ {
			c.Append(RoleCustomer, fmt.Sprintf("msg-%d", i))
		}
		if len(c.History) != HistoryLimit {
			t.Fatalf("expected %d entries, got %d", HistoryLimit, len(c.History))
		}
		if c.History[0].Text != "msg-5" {
			t.Fatalf("expected oldest entries evicted, got %q first", c.History[0].Text)
		}
	})

	t.Run("consecutive duplicate customer turns collapse", func(t *testing.T) {
		c := NewConversation("77011234567@c.us", "Aman")
		c.AppendCustomer("привет")
		c.AppendCustomer("привет")
		if len(c.History) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(c.History))
		}
	})

	t.Run("duplicate after an assistant turn is kept", func(t *testing.T) {
		c := NewConversation("77011234567@c.us", "Aman")
		c.AppendCustomer("привет")
		c.Append(RoleAssistant, "Здравствуйте!")
		c.AppendCustomer("привет")
		if len(c.History) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(c.History))
		}
	})
}

func TestConversation_SameCalendarDay(t *testing.T) {
	c := NewConversation("77011234567@c.us", "Aman")
	c.LastActivity = time.Date(2026, 9, 1, 23, 50, 0, 0, time.UTC)

	if !c.SameCalendarDay(time.Date(2026, 9, 1, 23, 59, 0, 0, time.UTC)) {
		t.Fatal("same date must match")
	}
	if c.SameCalendarDay(time.Date(2026, 9, 2, 0, 5, 0, 0, time.UTC)) {
		t.Fatal("ten minutes later across midnight is a new day")
	}
}

func TestConversation_ResetBooking(t *testing.T) {
	c := NewConversation("77011234567@c.us", "Aman")
	c.Stage = StageAwaitingPaymentConfirm
	c.Selected = &CandidateApartment{ID: "231339"}
	c.Active = &BookingRecord{EventID: "ev-1"}
	c.PendingSum = 30000
	c.PartialAmount = 6000
	c.Payment = PaymentState{ApartmentID: "231339"}
	c.Confirmed = append(c.Confirmed, BookingRecord{EventID: "ev-0"})

	c.ResetBooking()

	if c.Stage != StageFreeform || c.Selected != nil || c.Active != nil {
		t.Fatalf("booking state not cleared: %+v", c)
	}
	if c.PendingSum != 0 || c.PartialAmount != 0 || c.Payment != (PaymentState{}) {
		t.Fatalf("payment state not cleared: %+v", c)
	}
	// The confirmed log is append-only and survives a reset.
	if len(c.Confirmed) != 1 {
		t.Fatalf("confirmed history must survive, got %v", c.Confirmed)
	}
}

func TestNights(t *testing.T) {
	t.Run("whole-day count", func(t *testing.T) {
		n, err := Nights("2026-09-10", "2026-09-15")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 5 {
			t.Fatalf("expected 5 nights, got %d", n)
		}
	})

	t.Run("zero-length stay is invalid", func(t *testing.T) {
		if _, err := Nights("2026-09-10", "2026-09-10"); !errors.Is(err, domain.ErrInvalidDates) {
			t.Fatalf("expected invalid dates, got %v", err)
		}
	})

	t.Run("inverted window is invalid", func(t *testing.T) {
		if _, err := Nights("2026-09-15", "2026-09-10"); !errors.Is(err, domain.ErrInvalidDates) {
			t.Fatalf("expected invalid dates, got %v", err)
		}
	})

	t.Run("unparseable input", func(t *testing.T) {
		if _, err := Nights("10.09.2026", "2026-09-15"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	})
}

func TestBookingRecord_StayTotal(t *testing.T) {
	b := BookingRecord{CheckIn: "2026-09-10", CheckOut: "2026-09-12", Amount: 15000}
	sum, err := b.StayTotal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != 30000 {
		t.Fatalf("expected 30000, got %d", sum)
	}
}
