//go:build !integration

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/model"
	"rental-booking-bot/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memConversationRepo is a small in-memory implementation used by unit tests.
type memConversationRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Conversation
	saveErr error // used by tests to simulate save failures
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{store: make(map[string]*model.Conversation)}
}

func (m *memConversationRepo) Find(ctx context.Context, channelID string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[channelID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memConversationRepo) FindOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.store[conv.ChannelID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *conv
	m.store[conv.ChannelID] = &cp
	out := cp
	return &out, true, nil
}

func (m *memConversationRepo) Save(ctx context.Context, conv *model.Conversation) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *conv
	m.store[conv.ChannelID] = &cp
	return nil
}

func (m *memConversationRepo) Delete(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, channelID)
	return nil
}

func (m *memConversationRepo) All(ctx context.Context) ([]*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Conversation, 0, len(m.store))
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// memApartmentRepo serves fixed apartment reference rows.
type memApartmentRepo struct {
	store map[string]*model.Apartment
}

func newMemApartmentRepo() *memApartmentRepo {
	return &memApartmentRepo{store: make(map[string]*model.Apartment)}
}

func (m *memApartmentRepo) FindByID(ctx context.Context, apartmentID string) (*model.Apartment, error) {
	a, ok := m.store[apartmentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// memBookingLog records audit writes.
type memBookingLog struct {
	mu      sync.Mutex
	entries []string
}

func (m *memBookingLog) Record(ctx context.Context, channelID string, booking *model.BookingRecord, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, channelID+":"+status)
	return nil
}

// recordingTransport captures every outbound message.
type recordingTransport struct {
	mu      sync.Mutex
	sent    map[string][]string // channelID -> texts
	sendErr error
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{sent: make(map[string][]string)}
}

func (t *recordingTransport) Send(ctx context.Context, channelID, text string) error {
	if t.sendErr != nil {
		return t.sendErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent[channelID] = append(t.sent[channelID], text)
	return nil
}

func (t *recordingTransport) messages(channelID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent[channelID]...)
}

func (t *recordingTransport) last(channelID string) string {
	msgs := t.messages(channelID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// scriptedOracle pops answers in order; when the script runs out it repeats
// the final answer.
type scriptedOracle struct {
	mu      sync.Mutex
	answers []string
	calls   int
	err     error
}

func (o *scriptedOracle) Complete(ctx context.Context, systemPrompt string, history []adapter.Message, userText string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return "", o.err
	}
	if len(o.answers) == 0 {
		return "", nil
	}
	answer := o.answers[0]
	if len(o.answers) > 1 {
		o.answers = o.answers[1:]
	}
	return answer, nil
}

// stubBooking implements BookingUseCase with canned results.
type stubBooking struct {
	searchResult []adapter.AvailableApartment
	searchErr    error
	offer        *adapter.Offer
	offerErr     error
	created      *model.BookingRecord
	createErr    error
	cancelErr    error
	cancelled    []string
	lookupResult *model.BookingRecord
	lookupErr    error
	mu           sync.Mutex
}

func (s *stubBooking) SearchAvailability(ctx context.Context, checkIn, checkOut string, guests int) ([]adapter.AvailableApartment, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.searchResult, nil
}

func (s *stubBooking) BuildOfferLink(ctx context.Context, checkIn, checkOut string, apartments []adapter.AvailableApartment) (*adapter.Offer, error) {
	if s.offerErr != nil {
		return nil, s.offerErr
	}
	return s.offer, nil
}

func (s *stubBooking) CreateBooking(ctx context.Context, channelID string, customer adapter.BookingCustomer, apartment model.CandidateApartment, checkIn, checkOut string) (*model.BookingRecord, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.created, nil
}

func (s *stubBooking) CancelBooking(ctx context.Context, channelID string, booking *model.BookingRecord) error {
	s.mu.Lock()
	s.cancelled = append(s.cancelled, booking.EventID)
	s.mu.Unlock()
	return s.cancelErr
}

func (s *stubBooking) LookupByPhone(ctx context.Context, phone string) (*model.BookingRecord, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.lookupResult, nil
}

// stubPayment implements PaymentUseCase.
type stubPayment struct {
	amount int64
	found  bool
	err    error
}

func (s *stubPayment) Check(ctx context.Context, phone string) (int64, bool, error) {
	return s.amount, s.found, s.err
}

// gateLocker denies the lock while held, like a real delivery in flight.
type gateLocker struct {
	mu   sync.Mutex
	held bool
}

func (g *gateLocker) hold()    { g.mu.Lock(); g.held = true; g.mu.Unlock() }
func (g *gateLocker) release() { g.mu.Lock(); g.held = false; g.mu.Unlock() }

func (g *gateLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return "", domain.ErrConversationLocked
	}
	return "token", nil
}

func (g *gateLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// noopLocker always grants the lock.
type noopLocker struct{}

func (noopLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "token", nil
}

func (noopLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// memPortal serves a fixed list of today's operations.
type memPortal struct {
	ops []adapter.Operation
	err error
}

func (p *memPortal) TodayOperations(ctx context.Context) ([]adapter.Operation, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.ops, nil
}
