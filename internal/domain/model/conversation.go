package model

import (
	"time"
)

// Stage is the single enumerated conversation state. Exactly one stage is
// active at a time; the zero value is StageFreeform.
type Stage string

const (
	// StageFreeform routes messages through the oracle.
	StageFreeform Stage = "freeform"
	// StageAwaitingApartmentConfirm waits for a yes/no on the selected unit.
	StageAwaitingApartmentConfirm Stage = "awaiting_apartment_confirm"
	// StageAwaitingKaspiConsent waits for a yes/no on paying via Kaspi.
	StageAwaitingKaspiConsent Stage = "awaiting_kaspi_consent"
	// StageAwaitingPaymentConfirm waits for a "paid" notification.
	StageAwaitingPaymentConfirm Stage = "awaiting_payment_confirm"
	// StageAwaitingPaymentPhone waits for the phone a transfer was sent from.
	StageAwaitingPaymentPhone Stage = "awaiting_payment_phone"
	// StageAwaitingInstructionPhone waits for the phone an external booking
	// was made with, to look up move-in instructions.
	StageAwaitingInstructionPhone Stage = "awaiting_instruction_phone"
	// StageAwaitingBookingPhone waits for the phone an external booking was
	// made with, to quote its price and continue to payment.
	StageAwaitingBookingPhone Stage = "awaiting_booking_phone"
)

const (
	// HistoryLimit bounds the oracle context window, not a full audit log.
	HistoryLimit = 20

	RoleCustomer  = "user"
	RoleAssistant = "assistant"
)

// HistoryEntry is one turn of the conversation.
type HistoryEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// BookingWindow holds the requested stay dates in "2006-01-02" form.
type BookingWindow struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   int    `json:"guests"`
}

// PaymentState links the pending payment to an apartment.
type PaymentState struct {
	ApartmentID string `json:"apartment_id"`
	Paid        bool   `json:"paid"`
}

// Conversation is the per-customer aggregate, keyed by the chat channel id.
type Conversation struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`

	Stage   Stage `json:"stage"`
	Blocked bool  `json:"blocked"`

	History []HistoryEntry `json:"history"`

	Window     BookingWindow        `json:"window"`
	Candidates []CandidateApartment `json:"candidates"`
	Selected   *CandidateApartment  `json:"selected,omitempty"`
	// PendingSum is the amount the customer owes for the pending booking.
	PendingSum int64 `json:"pending_sum"`

	// Active is the reservation awaiting payment; Confirmed is append-only.
	Active    *BookingRecord  `json:"active,omitempty"`
	Confirmed []BookingRecord `json:"confirmed"`

	Payment       PaymentState `json:"payment"`
	PartialAmount int64        `json:"partial_amount"`

	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewConversation(channelID, name string) *Conversation {
	now := time.Now()
	return &Conversation{
		ChannelID:    channelID,
		Name:         name,
		Stage:        StageFreeform,
		History:      make([]HistoryEntry, 0, 8),
		Confirmed:    []BookingRecord{},
		LastActivity: now,
		CreatedAt:    now,
	}
}

// Append adds a history entry, evicting the oldest beyond HistoryLimit.
func (c *Conversation) Append(role, text string) {
	c.History = append(c.History, HistoryEntry{Role: role, Text: text})
	if len(c.History) > HistoryLimit {
		c.History = c.History[len(c.History)-HistoryLimit:]
	}
}

// AppendCustomer records a customer turn unless it duplicates the previous
// one, which guards against duplicate webhook delivery.
func (c *Conversation) AppendCustomer(text string) {
	if n := len(c.History); n > 0 {
		last := c.History[n-1]
		if last.Role == RoleCustomer && last.Text == text {
			return
		}
	}
	c.Append(RoleCustomer, text)
}

// SameCalendarDay reports whether the last activity falls on today's date.
func (c *Conversation) SameCalendarDay(now time.Time) bool {
	y1, m1, d1 := c.LastActivity.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ResetBooking returns the conversation to its pre-booking shape after an
// expired or cancelled reservation.
func (c *Conversation) ResetBooking() {
	c.Stage = StageFreeform
	c.Selected = nil
	c.Active = nil
	c.PendingSum = 0
	c.PartialAmount = 0
	c.Payment = PaymentState{}
}
