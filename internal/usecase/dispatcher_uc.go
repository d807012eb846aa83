package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/model"
	"rental-booking-bot/internal/domain/ports/adapter"
	"rental-booking-bot/internal/domain/ports/repository"
	"rental-booking-bot/internal/infra/logging"
	"rental-booking-bot/internal/infra/metrics"
)

// Compile-time check
var _ Dispatcher = (*dispatcher)(nil)

// Dispatcher is the top-level conversation state machine. Handle is side
// effects only: outbound sends plus state persistence.
type Dispatcher interface {
	Handle(ctx context.Context, msg adapter.InboundMessage)
}

// ConversationLocker serializes concurrent deliveries for one channel.
type ConversationLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// DispatcherConfig carries the operational knobs Handle needs.
type DispatcherConfig struct {
	AdminChannelID     string
	NotifyDelay        time.Duration
	ExpireDelay        time.Duration
	RequiredPrepayment int64
}

type dispatcher struct {
	convs      repository.ConversationRepository
	apartments repository.ApartmentRepository
	chat       adapter.ChatTransport
	oracle     adapter.Oracle
	booking    BookingUseCase
	payment    PaymentUseCase
	timers     *TimerTable
	locker     ConversationLocker
	cfg        DispatcherConfig
	log        *zerolog.Logger

	// timerRetry spaces lock-contention retries of timer callbacks.
	timerRetry time.Duration
	now        func() time.Time
}

func NewDispatcher(
	convs repository.ConversationRepository,
	apartments repository.ApartmentRepository,
	chat adapter.ChatTransport,
	oracle adapter.Oracle,
	booking BookingUseCase,
	payment PaymentUseCase,
	timers *TimerTable,
	locker ConversationLocker,
	cfg DispatcherConfig,
	logger *zerolog.Logger,
) *dispatcher {
	dLog := logger.With().Str("component", "Dispatcher").Logger()
	return &dispatcher{
		convs:      convs,
		apartments: apartments,
		chat:       chat,
		oracle:     oracle,
		booking:    booking,
		payment:    payment,
		timers:     timers,
		locker:     locker,
		cfg:        cfg,
		log:        &dLog,
		timerRetry: 5 * time.Second,
		now:        time.Now,
	}
}

const (
	lockPrefix = "lock:conv:"
	lockTTL    = 30 * time.Second
)

func (d *dispatcher) Handle(ctx context.Context, msg adapter.InboundMessage) {
	if !msg.IsText() {
		return
	}
	text := strings.TrimSpace(msg.Body)
	if text == "" {
		return
	}

	// The webhook layer stamps a trace id into ctx; the channel id is added
	// here so every deterministic branch logs both.
	ctx = logging.WithChannelID(ctx, msg.ChannelID)
	log := *logging.With(ctx, d.log)

	if d.handleAdminCommand(ctx, text) {
		metrics.MessagesHandled.WithLabelValues("admin_command").Inc()
		return
	}
	if strings.Contains(strings.ToLower(text), "restart") {
		if err := d.convs.Delete(ctx, msg.ChannelID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Msg("conversation reset failed")
		}
		d.timers.CancelAll(msg.ChannelID)
		metrics.MessagesHandled.WithLabelValues("restart").Inc()
		return
	}

	token, err := d.locker.TryLock(ctx, lockPrefix+msg.ChannelID, lockTTL)
	if err != nil {
		// A concurrent duplicate delivery already holds the conversation.
		log.Warn().Err(err).Msg("conversation busy, delivery dropped")
		metrics.MessagesHandled.WithLabelValues("locked").Inc()
		return
	}
	defer func() {
		if err := d.locker.Unlock(context.Background(), lockPrefix+msg.ChannelID, token); err != nil {
			log.Warn().Err(err).Msg("conversation unlock failed")
		}
	}()

	conv, created, err := d.convs.FindOrCreate(ctx, model.NewConversation(msg.ChannelID, msg.SenderName))
	if err != nil {
		log.Error().Err(err).Msg("conversation load failed")
		metrics.MessagesHandled.WithLabelValues("error").Inc()
		return
	}

	if conv.Blocked {
		d.send(ctx, conv, msgNoAvailabilityFixed)
		d.save(ctx, conv, &log)
		metrics.MessagesHandled.WithLabelValues("blocked").Inc()
		return
	}

	outcome := d.dispatch(ctx, conv, text, created, &log)
	conv.LastActivity = d.now()
	d.save(ctx, conv, &log)
	metrics.MessagesHandled.WithLabelValues(outcome).Inc()
}

func (d *dispatcher) dispatch(ctx context.Context, conv *model.Conversation, text string, created bool, log *zerolog.Logger) string {
	// A brand-new conversation, a new calendar day and a message flagged as
	// coming from an alternate listing channel all get one oracle
	// classification pass before any stage branch: a stale consent-stage
	// reply on a new day is a fresh greeting, not a consent answer.
	reorient := created ||
		!conv.SameCalendarDay(d.now()) ||
		strings.Contains(strings.ToLower(text), alternateOriginTag)
	if reorient {
		d.classify(ctx, conv, text, log)
		return "classified"
	}

	conv.AppendCustomer(text)

	switch conv.Stage {
	case model.StageAwaitingApartmentConfirm:
		d.handleApartmentConfirm(ctx, conv, text, log)
		return "apartment_confirm"
	case model.StageAwaitingKaspiConsent:
		d.handleKaspiConsent(ctx, conv, text, log)
		return "kaspi_consent"
	case model.StageAwaitingPaymentPhone:
		d.handlePaymentPhone(ctx, conv, text, log)
		return "payment_phone"
	case model.StageAwaitingInstructionPhone:
		d.handleInstructionPhone(ctx, conv, text, log)
		return "instruction_phone"
	case model.StageAwaitingBookingPhone:
		d.handleBookingPhone(ctx, conv, text, log)
		return "booking_phone"
	}

	d.handleFreeform(ctx, conv, text, log)
	return "freeform"
}

// handleAdminCommand toggles the block flag on the channel named by the
// digits in the command text. Returns true when the text was a command.
func (d *dispatcher) handleAdminCommand(ctx context.Context, text string) bool {
	lower := strings.ToLower(text)
	var block bool
	switch {
	case strings.Contains(lower, "отключить бота"):
		block = true
	case strings.Contains(lower, "включить бота"):
		block = false
	default:
		return false
	}

	digits := digitSequence(text)
	if digits == "" {
		return false
	}
	channelID := digits + "@c.us"

	conv, _, err := d.convs.FindOrCreate(ctx, model.NewConversation(channelID, ""))
	if err != nil {
		d.log.Error().Err(err).Str("channel_id", channelID).Msg("block toggle failed")
		return true
	}
	conv.Blocked = block
	if err := d.convs.Save(ctx, conv); err != nil {
		d.log.Error().Err(err).Str("channel_id", channelID).Msg("block toggle not saved")
	}
	return true
}

// classify runs the oracle once over a fresh or re-orienting conversation:
// either the customer signals a booking made elsewhere, or they get the
// welcome message.
func (d *dispatcher) classify(ctx context.Context, conv *model.Conversation, text string, log *zerolog.Logger) {
	conv.AppendCustomer(text)

	answer, err := d.completeOracle(ctx, conv, text)
	if err != nil {
		log.Error().Err(err).Msg("classification oracle call failed")
		d.send(ctx, conv, msgWelcome)
		return
	}

	if strings.Contains(answer, bookingKeyword+" admin") {
		d.handleExternalLookup(ctx, conv, log)
		return
	}
	d.send(ctx, conv, msgWelcome)
}

func (d *dispatcher) handleApartmentConfirm(ctx context.Context, conv *model.Conversation, text string, log *zerolog.Logger) {
	if !d.askAgreement(ctx, conv, text, log) {
		d.escalate(ctx, conv, escalateCannotPay(conv.Name, channelPhone(conv.ChannelID)))
		d.send(ctx, conv, msgManagerWillContact)
		return
	}

	if conv.Selected == nil {
		log.Error().Msg("apartment confirm without selection")
		d.send(ctx, conv, msgApology)
		conv.Stage = model.StageFreeform
		return
	}

	d.send(ctx, conv, msgCreatingBooking)

	customer := adapter.BookingCustomer{
		Name:  conv.Name,
		Phone: "+" + truncatePhone(channelPhone(conv.ChannelID)),
	}
	booking, err := d.booking.CreateBooking(ctx, conv.ChannelID, customer, *conv.Selected, conv.Window.CheckIn, conv.Window.CheckOut)
	if err != nil {
		log.Error().Err(err).Msg("booking creation failed")
		d.send(ctx, conv, msgApology)
		conv.Stage = model.StageFreeform
		return
	}

	sum, err := booking.StayTotal()
	if err != nil {
		sum = booking.Amount
	}
	conv.Active = booking
	conv.PendingSum = sum
	conv.Stage = model.StageAwaitingKaspiConsent

	d.send(ctx, conv, msgStayTotal(sum))
	d.send(ctx, conv, msgDeposit)
	d.send(ctx, conv, msgKaspiConsentQuestion)
}

func (d *dispatcher) handleKaspiConsent(ctx context.Context, conv *model.Conversation, text string, log *zerolog.Logger) {
	if !d.askAgreement(ctx, conv, text, log) {
		d.escalate(ctx, conv, escalateCannotPay(conv.Name, channelPhone(conv.ChannelID)))
		d.send(ctx, conv, msgManagerWillContact)
		return
	}

	d.send(ctx, conv, msgKaspiInstructions)
	d.send(ctx, conv, msgNotifyAfterPayment)

	if conv.Active != nil {
		conv.Payment.ApartmentID = conv.Active.ApartmentID
		conv.Confirmed = append(conv.Confirmed, *conv.Active)
	}
	conv.Stage = model.StageAwaitingPaymentConfirm

	d.armNotifyTimer(conv.ChannelID)
}

func (d *dispatcher) handlePaymentPhone(ctx context.Context, conv *model.Conversation, text string, log *zerolog.Logger) {
	// This branch keeps the country code: the customer sends the number the
	// transfer was made from, matched digit-for-digit.
	phone := digitSequence(text)
	if phone == "" {
		d.send(ctx, conv, msgInvalidPhone)
		return
	}
	d.settleAgainstPortal(ctx, conv, phone, log)
}

func (d *dispatcher) handleInstructionPhone(ctx context.Context, conv *model.Conversation, text string, log *zerolog.Logger) {
	phone := digitSequence(text)
	if phone == "" {
		d.send(ctx, conv, msgInvalidPhone)
		return
	}

	// One attempt per prompt either way.
	conv.Stage = model.StageFreeform

	booking, err := d.booking.LookupByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.send(ctx, conv, msgBookingNotFoundFinal)
			return
		}
		log.Error().Err(err).Msg("booking lookup failed")
		d.send(ctx, conv, msgApology)
		return
	}

	d.deliverBookingInstructions(ctx, conv, booking, log)
}

// handleInstructionLookup serves a customer who booked on another channel and
// now wants move-in instructions: their reservation is found by their own
// chat number, falling back to an explicit phone prompt.
func (d *dispatcher) handleInstructionLookup(ctx context.Context, conv *model.Conversation, log *zerolog.Logger) {
	booking, err := d.booking.LookupByPhone(ctx, channelPhone(conv.ChannelID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.send(ctx, conv, msgBookingNotFoundAskPhone)
			conv.Stage = model.StageAwaitingInstructionPhone
			return
		}
		log.Error().Err(err).Msg("instruction booking lookup failed")
		d.send(ctx, conv, msgApology)
		return
	}

	d.deliverBookingInstructions(ctx, conv, booking, log)
}

// deliverBookingInstructions adopts an externally made reservation into the
// conversation and sends its apartment's move-in instructions.
func (d *dispatcher) deliverBookingInstructions(ctx context.Context, conv *model.Conversation, booking *model.BookingRecord, log *zerolog.Logger) {
	conv.Payment.ApartmentID = booking.ApartmentID
	conv.Active = booking
	conv.Confirmed = append(conv.Confirmed, *booking)
	d.sendInstructions(ctx, conv, booking.ApartmentID, log)
}

func (d *dispatcher) handleBookingPhone(ctx context.Context, conv *model.Conversation, text string, log *zerolog.Logger) {
	phone := digitSequence(text)
	if phone == "" {
		d.send(ctx, conv, msgInvalidPhone)
		return
	}

	conv.Stage = model.StageFreeform

	booking, err := d.booking.LookupByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.send(ctx, conv, msgBookingNotFoundFinal)
			return
		}
		log.Error().Err(err).Msg("booking lookup failed")
		d.send(ctx, conv, msgApology)
		return
	}

	d.greetExternalBooking(ctx, conv, booking)
}

func (d *dispatcher) handleFreeform(ctx context.Context, conv *model.Conversation, text string, log *zerolog.Logger) {
	answer, err := d.completeOracle(ctx, conv, text)
	if err != nil {
		log.Error().Err(err).Msg("oracle call failed")
		d.send(ctx, conv, msgApology)
		return
	}

	cmd, err := ParseOracleOutput(answer)
	if err != nil {
		log.Warn().Err(err).Str("raw", cmd.Raw).Msg("oracle output unusable")
		if strings.TrimSpace(answer) == "" {
			d.send(ctx, conv, msgDidNotSee)
		} else {
			d.send(ctx, conv, msgGenericAck)
		}
		return
	}

	switch cmd.Kind {
	case model.CommandReply:
		d.send(ctx, conv, cmd.Text)
	case model.CommandSearch:
		d.handleSearch(ctx, conv, cmd, log)
	case model.CommandSelect:
		d.handleSelect(ctx, conv, cmd)
	case model.CommandConfirmPayment:
		d.handleConfirmPayment(ctx, conv, log)
	case model.CommandInstructions:
		apartmentID := conv.Payment.ApartmentID
		if apartmentID == "" && conv.Active != nil {
			apartmentID = conv.Active.ApartmentID
		}
		d.sendInstructions(ctx, conv, apartmentID, log)
	case model.CommandInstructionLookup:
		d.handleInstructionLookup(ctx, conv, log)
	case model.CommandExternalLookup:
		d.handleExternalLookup(ctx, conv, log)
	default:
		log.Warn().Str("raw", cmd.Raw).Msg("unrecognized oracle command")
		d.send(ctx, conv, msgGenericAck)
	}
}

func (d *dispatcher) handleSearch(ctx context.Context, conv *model.Conversation, cmd model.Command, log *zerolog.Logger) {
	checkIn, checkOut := cmd.CheckIn, cmd.CheckOut
	// A window remembered from earlier in the conversation wins over
	// whatever the oracle extracted this turn.
	if conv.Window.CheckIn != "" && conv.Window.CheckOut != "" {
		checkIn, checkOut = conv.Window.CheckIn, conv.Window.CheckOut
	}

	apartments, err := d.booking.SearchAvailability(ctx, checkIn, checkOut, cmd.Guests)
	if err != nil {
		if errors.Is(err, domain.ErrNoAvailability) {
			d.send(ctx, conv, msgNoCandidates(checkIn, checkOut))
			return
		}
		log.Error().Err(err).Msg("availability search failed")
		d.send(ctx, conv, msgApology)
		return
	}

	offer, err := d.booking.BuildOfferLink(ctx, checkIn, checkOut, apartments)
	if err != nil {
		log.Error().Err(err).Msg("offer link failed")
		d.send(ctx, conv, msgApology)
		return
	}

	conv.Candidates = conv.Candidates[:0]
	for _, item := range offer.Items {
		conv.Candidates = append(conv.Candidates, model.CandidateApartment{
			ID:            item.ApartmentID,
			Title:         item.Title,
			NightlyAmount: item.NightlyAmount,
		})
	}
	conv.Window = model.BookingWindow{CheckIn: checkIn, CheckOut: checkOut, Guests: cmd.Guests}

	d.send(ctx, conv, msgCandidatesLink(checkIn, checkOut, len(offer.Items), offer.URL))
}

func (d *dispatcher) handleSelect(ctx context.Context, conv *model.Conversation, cmd model.Command) {
	var selected *model.CandidateApartment

	if cmd.Price > 0 {
		for i := range conv.Candidates {
			if conv.Candidates[i].NightlyAmount == cmd.Price {
				selected = &conv.Candidates[i]
				break
			}
		}
		if selected == nil {
			d.escalate(ctx, conv, escalateUnclearChoice(conv.Name, channelPhone(conv.ChannelID)))
			d.send(ctx, conv, msgManagerWillContact)
			return
		}
	} else {
		idx := cmd.Choice - 1
		if idx < 0 || idx >= len(conv.Candidates) {
			d.send(ctx, conv, msgInvalidChoice)
			return
		}
		selected = &conv.Candidates[idx]
	}

	chosen := *selected
	conv.Selected = &chosen
	conv.Stage = model.StageAwaitingApartmentConfirm
	d.send(ctx, conv, msgConfirmApartment(chosen.NightlyAmount))
}

func (d *dispatcher) handleConfirmPayment(ctx context.Context, conv *model.Conversation, log *zerolog.Logger) {
	d.timers.CancelAll(conv.ChannelID)

	// The channel id carries the customer's own number with a leading
	// country code; the portal lists transfers without it.
	phone := channelPhone(conv.ChannelID)
	if len(phone) > 1 {
		phone = phone[1:]
	}
	d.settleAgainstPortal(ctx, conv, phone, log)
}

// settleAgainstPortal checks the portal for a transfer from phone and folds
// the result into the conversation's partial-payment state.
func (d *dispatcher) settleAgainstPortal(ctx context.Context, conv *model.Conversation, phone string, log *zerolog.Logger) {
	amount, found, err := d.payment.Check(ctx, phone)
	if err != nil {
		log.Error().Err(err).Msg("payment check failed")
		d.send(ctx, conv, msgApology)
		return
	}
	if !found {
		d.send(ctx, conv, msgPaymentNotFound)
		conv.Stage = model.StageAwaitingPaymentPhone
		return
	}

	required := d.cfg.RequiredPrepayment
	if conv.PendingSum > 0 && conv.PendingSum < required {
		required = conv.PendingSum
	}

	paid, newPartial, remaining := settlePayment(conv.PartialAmount, amount, required)
	if paid {
		d.timers.CancelAll(conv.ChannelID)
		conv.PartialAmount = 0
		conv.Payment.Paid = true
		conv.Stage = model.StageFreeform
		d.send(ctx, conv, msgBookingConfirmed)
		return
	}

	conv.PartialAmount = newPartial
	conv.Stage = model.StageAwaitingPaymentConfirm
	d.send(ctx, conv, msgPartialPayment(remaining))
}

// handleExternalLookup finds a reservation the customer made on another
// listing channel, keyed by their own chat number.
func (d *dispatcher) handleExternalLookup(ctx context.Context, conv *model.Conversation, log *zerolog.Logger) {
	booking, err := d.booking.LookupByPhone(ctx, channelPhone(conv.ChannelID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.send(ctx, conv, msgBookingNotFoundAskPhone)
			conv.Stage = model.StageAwaitingBookingPhone
			return
		}
		log.Error().Err(err).Msg("external booking lookup failed")
		d.send(ctx, conv, msgApology)
		return
	}
	d.greetExternalBooking(ctx, conv, booking)
}

// greetExternalBooking quotes the stay total for a booking found upstream
// and moves the conversation to the Kaspi consent question.
func (d *dispatcher) greetExternalBooking(ctx context.Context, conv *model.Conversation, booking *model.BookingRecord) {
	sum, err := booking.StayTotal()
	if err != nil {
		sum = booking.Amount
	}

	conv.Payment.ApartmentID = booking.ApartmentID
	conv.Active = booking
	conv.Confirmed = append(conv.Confirmed, *booking)
	conv.Selected = &model.CandidateApartment{ID: booking.ApartmentID, NightlyAmount: booking.Amount}
	conv.PendingSum = sum
	conv.Stage = model.StageAwaitingKaspiConsent

	d.send(ctx, conv, msgStayTotal(sum))
	d.send(ctx, conv, msgDeposit)
	d.send(ctx, conv, msgKaspiConsentQuestion)
}

// sendInstructions delivers the move-in link and text for an apartment,
// escalating when the reference data has no entry.
func (d *dispatcher) sendInstructions(ctx context.Context, conv *model.Conversation, apartmentID string, log *zerolog.Logger) {
	apartment, err := d.apartments.FindByID(ctx, apartmentID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Str("apartment_id", apartmentID).Msg("apartment lookup failed")
		}
		d.send(ctx, conv, msgInstructionNotFound)
		d.escalate(ctx, conv, escalateContact(conv.Name, channelPhone(conv.ChannelID)))
		return
	}

	if len(apartment.InstructionLinks) > 0 {
		d.send(ctx, conv, apartment.InstructionLinks[0])
	}
	if apartment.InstructionText != "" {
		d.send(ctx, conv, apartment.InstructionText)
	}
}

// askAgreement classifies a confirm-stage reply through the oracle; any
// failure reads as "not agreed" and escalates.
func (d *dispatcher) askAgreement(ctx context.Context, conv *model.Conversation, text string, log *zerolog.Logger) bool {
	history := oracleHistory(conv)
	answer, err := d.oracle.Complete(ctx, agreementPrompt, history, text)
	if err != nil {
		log.Error().Err(err).Msg("agreement oracle call failed")
		return false
	}
	return strings.TrimSpace(answer) == "1"
}

// armNotifyTimer schedules the two-step payment deadline: a warning after
// NotifyDelay, then booking removal ExpireDelay after the warning. Both
// callbacks re-check the conversation because it may have paid or reset
// while the timer was pending.
func (d *dispatcher) armNotifyTimer(channelID string) {
	d.timers.Schedule(channelID, TimerNotify, d.cfg.NotifyDelay, func() {
		d.notifyUnpaid(channelID)
	})
}

// notifyUnpaid warns the customer their unpaid booking is about to be
// removed. It takes the same per-conversation lock as Handle; a delivery in
// flight holds the conversation, so the warning is retried shortly after.
func (d *dispatcher) notifyUnpaid(channelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := d.locker.TryLock(ctx, lockPrefix+channelID, lockTTL)
	if err != nil {
		d.timers.Schedule(channelID, TimerNotify, d.timerRetry, func() {
			d.notifyUnpaid(channelID)
		})
		return
	}
	defer func() {
		if err := d.locker.Unlock(context.Background(), lockPrefix+channelID, token); err != nil {
			d.log.Warn().Err(err).Str("channel_id", channelID).Msg("conversation unlock failed")
		}
	}()

	conv, err := d.convs.Find(ctx, channelID)
	if err != nil || conv.Stage != model.StageAwaitingPaymentConfirm || conv.Payment.Paid {
		return
	}

	d.send(ctx, conv, msgExpireWarning)
	d.save(ctx, conv, d.log)

	d.timers.Schedule(channelID, TimerExpire, d.cfg.ExpireDelay, func() {
		d.expireBooking(channelID)
	})
}

// expireBooking removes an unpaid reservation and returns the conversation
// to its pre-booking shape. Runs under the per-conversation lock so a payment
// settling concurrently in Handle is never overwritten by the reset.
func (d *dispatcher) expireBooking(channelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	token, err := d.locker.TryLock(ctx, lockPrefix+channelID, lockTTL)
	if err != nil {
		d.timers.Schedule(channelID, TimerExpire, d.timerRetry, func() {
			d.expireBooking(channelID)
		})
		return
	}
	defer func() {
		if err := d.locker.Unlock(context.Background(), lockPrefix+channelID, token); err != nil {
			d.log.Warn().Err(err).Str("channel_id", channelID).Msg("conversation unlock failed")
		}
	}()

	conv, err := d.convs.Find(ctx, channelID)
	if err != nil || conv.Stage != model.StageAwaitingPaymentConfirm || conv.Payment.Paid {
		return
	}

	if conv.Active != nil {
		if err := d.booking.CancelBooking(ctx, channelID, conv.Active); err != nil {
			d.log.Error().Err(err).Str("channel_id", channelID).Msg("expire cancellation failed")
		}
	}

	conv.ResetBooking()
	d.send(ctx, conv, msgBookingPurged)
	d.save(ctx, conv, d.log)
}

// ExpireStale removes unpaid bookings whose payment deadline passed without
// a timer firing. Timers live in process memory and are lost on restart, so
// a periodic sweep picks up what they dropped.
func (d *dispatcher) ExpireStale(ctx context.Context) (int, error) {
	convs, err := d.convs.All(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := d.now().Add(-(d.cfg.NotifyDelay + d.cfg.ExpireDelay))
	expired := 0
	for _, conv := range convs {
		if conv.Stage != model.StageAwaitingPaymentConfirm || conv.Payment.Paid {
			continue
		}
		if !conv.LastActivity.Before(cutoff) {
			continue
		}
		// A live timer owns this booking; the sweep only takes orphans.
		if d.timers.Pending(conv.ChannelID, TimerNotify) || d.timers.Pending(conv.ChannelID, TimerExpire) {
			continue
		}
		d.expireBooking(conv.ChannelID)
		expired++
	}
	return expired, nil
}

func (d *dispatcher) completeOracle(ctx context.Context, conv *model.Conversation, text string) (string, error) {
	return d.oracle.Complete(ctx, dispatchPrompt(conv, d.now()), oracleHistory(conv), text)
}

// send delivers one outbound message and mirrors it into history. Transport
// failures are logged, not propagated: the conversation must survive them.
func (d *dispatcher) send(ctx context.Context, conv *model.Conversation, text string) {
	if err := d.chat.Send(ctx, conv.ChannelID, text); err != nil {
		d.log.Error().Err(err).Str("channel_id", conv.ChannelID).Msg("outbound send failed")
		return
	}
	conv.Append(model.RoleAssistant, text)
}

// escalate notifies the administrative channel; nothing is appended to the
// customer's history.
func (d *dispatcher) escalate(ctx context.Context, conv *model.Conversation, text string) {
	if d.cfg.AdminChannelID == "" {
		return
	}
	if err := d.chat.Send(ctx, d.cfg.AdminChannelID, text); err != nil {
		d.log.Error().Err(err).Str("channel_id", conv.ChannelID).Msg("escalation send failed")
	}
}

func (d *dispatcher) save(ctx context.Context, conv *model.Conversation, log *zerolog.Logger) {
	if err := d.convs.Save(ctx, conv); err != nil {
		log.Error().Err(err).Str("channel_id", conv.ChannelID).Msg("conversation save failed")
	}
}

// oracleHistory converts the bounded history to the oracle's message shape.
func oracleHistory(conv *model.Conversation) []adapter.Message {
	msgs := make([]adapter.Message, 0, len(conv.History))
	for _, h := range conv.History {
		msgs = append(msgs, adapter.Message{Role: h.Role, Content: h.Text})
	}
	return msgs
}

// channelPhone extracts the digit part of a channel id like "77011234567@c.us".
func channelPhone(channelID string) string {
	return digitSequence(channelID)
}

// truncatePhone keeps the country code plus ten digits, the shape the
// calendar expects.
func truncatePhone(digits string) string {
	if len(digits) > 11 {
		return digits[:11]
	}
	return digits
}
